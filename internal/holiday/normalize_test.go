package holiday

import (
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "simple lowercase", input: "Veterans Day", want: "veterans day"},
		{name: "trim whitespace", input: "  Diwali  ", want: "diwali"},
		{name: "collapse internal whitespace", input: "National   Ninja\tDay", want: "national ninja day"},
		{name: "empty string", input: "", want: ""},
		{name: "only whitespace", input: "   \t\n   ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCountChars(t *testing.T) {
	if got := CountChars("café"); got != 4 {
		t.Errorf("CountChars(café) = %d, want 4", got)
	}
	if got := CountChars(""); got != 0 {
		t.Errorf("CountChars(\"\") = %d, want 0", got)
	}
}

func TestSafeDate(t *testing.T) {
	if got := SafeDate("2025-12-01"); got != "2025_12_01" {
		t.Errorf("SafeDate() = %q", got)
	}
}

func TestSafeName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Veterans Day", "veterans_day"},
		{"St. Patrick's Day!", "st_patrick_s_day"},
		{"  ", "untitled"},
		{"New Year's Eve 2025", "new_year_s_eve_2025"},
	}
	for _, tt := range tests {
		if got := SafeName(tt.input); got != tt.want {
			t.Errorf("SafeName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-12-01")
	if err != nil {
		t.Fatalf("ParseDate() error = %v", err)
	}
	if d.Day() != 1 || d.Month() != 12 || d.Year() != 2025 {
		t.Errorf("ParseDate() = %v", d)
	}
	if _, err := ParseDate("12/01/2025"); err == nil {
		t.Error("expected error for non-ISO date")
	}
}

func TestStripEmoji(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Book your beach escape 🌊✨", "Book your beach escape"},
		{"🎄 Cozy nights at MiCasa 🎄", "Cozy nights at MiCasa"},
		{"No emoji here", "No emoji here"},
		{"Stay ❤️ Pensacola", "Stay Pensacola"},
	}
	for _, tt := range tests {
		if got := StripEmoji(tt.input); got != tt.want {
			t.Errorf("StripEmoji(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 70); got != "short" {
		t.Errorf("Truncate() = %q", got)
	}
	got := Truncate("Celebrate the season with sunny Gulf Coast stays at MiCasa Rentals in Pensacola", 40)
	if CountChars(got) > 40 {
		t.Errorf("Truncate() = %q (%d chars), want <= 40", got, CountChars(got))
	}
	if got != "Celebrate the season with sunny Gulf" {
		t.Errorf("Truncate() = %q", got)
	}
}
