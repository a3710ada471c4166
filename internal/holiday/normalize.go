package holiday

import (
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// unsafeNameRegex matches runs of characters not allowed in generated file names
var unsafeNameRegex = regexp.MustCompile(`[^a-z0-9]+`)

// Normalize trims, lowercases and collapses internal whitespace.
// Used for dedupe keys and name matching.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	s = whitespaceRegex.ReplaceAllString(s, " ")
	return s
}

// CountChars returns the character count as runes (not bytes).
func CountChars(text string) int {
	return utf8.RuneCountInString(text)
}

// ParseDate parses a DateLayout key.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

// SafeDate turns "2025-12-01" into "2025_12_01" for file names.
func SafeDate(date string) string {
	return strings.ReplaceAll(date, "-", "_")
}

// SafeName turns a display name into a lowercase underscore slug for file names.
func SafeName(name string) string {
	slug := unsafeNameRegex.ReplaceAllString(Normalize(name), "_")
	slug = strings.Trim(slug, "_")
	if slug == "" {
		return "untitled"
	}
	return slug
}

// StripEmoji removes pictographs, dingbats and variation selectors, then
// collapses the whitespace left behind.
func StripEmoji(s string) string {
	var b strings.Builder
	for _, r := range s {
		if isEmoji(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(b.String(), " "))
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF:
		return true
	case r >= 0x2600 && r <= 0x27BF:
		return true
	case r >= 0xFE00 && r <= 0xFE0F, r == 0x200D:
		return true
	case r >= 0x1F1E6 && r <= 0x1F1FF:
		return true
	}
	return unicode.Is(unicode.So, r) && r > 0x2000
}

// Truncate shortens s to at most max runes, cutting at the last word boundary
// when one exists.
func Truncate(s string, max int) string {
	if CountChars(s) <= max {
		return s
	}
	runes := []rune(s)
	cut := string(runes[:max])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:-")
}
