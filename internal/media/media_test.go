package media

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/micasa/marketer/internal/holiday"
)

func TestParseVideoName(t *testing.T) {
	tests := []struct {
		name   string
		want   string
		wantOK bool
	}{
		{"1709.mp4", "2025-09-17", true},
		{"0101.mp4", "2025-01-01", true},
		{"3112.mp4", "2025-12-31", true},
		{"3102.mp4", "", false},
		{"0013.mp4", "", false},
		{"1709.mov", "", false},
		{"final_1709.mp4", "", false},
		{"t1709.mp4", "", false},
		{"social_1709.mp4", "", false},
		{"17091.mp4", "", false},
		{"holiday.mp4", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseVideoName(tt.name, 2025)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseVideoName_LeapYear(t *testing.T) {
	_, ok := ParseVideoName("2902.mp4", 2025)
	assert.False(t, ok)
	got, ok := ParseVideoName("2902.mp4", 2028)
	assert.True(t, ok)
	assert.Equal(t, "2028-02-29", got)
}

func TestFindVideos(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"3110.mp4", "0111.mp4", "final_3110.mp4", "logo.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("x"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "2512.mp4"), 0755))

	got, err := FindVideos(dir, 2025)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2025-10-31", got[0].Date)
	assert.Equal(t, "2025-11-01", got[1].Date)
	assert.Equal(t, filepath.Join(dir, "3110.mp4"), got[0].Path)
}

func TestFindVideos_MissingDir(t *testing.T) {
	_, err := FindVideos(filepath.Join(t.TempDir(), "nope"), 2025)
	assert.Error(t, err)
}

func TestMatchVideos(t *testing.T) {
	s := holiday.NewStore()
	s.HolidaysByDate["2025-10-31"] = holiday.DateRecord{Date: "2025-10-31", HolidayText: "Happy Halloween", Catchphrase: "Stay with us"}
	s.HolidaysByDate["2025-11-01"] = holiday.DateRecord{Date: "2025-11-01", HolidayText: "Happy All Saints Day"}

	videos := []Video{
		{Name: "3110.mp4", Date: "2025-10-31"},
		{Name: "0111.mp4", Date: "2025-11-01"},
		{Name: "0211.mp4", Date: "2025-11-02"},
	}
	matched, missing := MatchVideos(videos, s)
	require.Len(t, matched, 1)
	assert.Equal(t, "Happy Halloween", matched[0].Record.HolidayText)
	assert.Len(t, missing, 2)
}

func TestMatchesLibraryPattern(t *testing.T) {
	assert.True(t, MatchesLibraryPattern("12_beach_sunset.mp4"))
	assert.True(t, MatchesLibraryPattern("1_.mp4"))
	assert.False(t, MatchesLibraryPattern("beach_12.mp4"))
	assert.False(t, MatchesLibraryPattern("12_beach.mov"))
	assert.False(t, MatchesLibraryPattern("12beach.mp4"))
}
