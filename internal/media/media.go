// Package media matches raw clips on disk and in the Publer library to the
// dates they belong to.
package media

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/micasa/marketer/internal/holiday"
)

var (
	ddmmRegex    = regexp.MustCompile(`^(\d{2})(\d{2})\.mp4$`)
	libraryRegex = regexp.MustCompile(`^\d+_.*\.mp4$`)
)

// excludedPrefixes mark files that are already outputs or test renders.
var excludedPrefixes = []string{"final_", "t1", "social_"}

// Video is a raw clip named after the day it is for.
type Video struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Date string `json:"date"`
}

// Match pairs a clip with the record whose text will be burned into it.
type Match struct {
	Video  Video
	Record holiday.DateRecord
}

// ParseVideoName maps "DDMM.mp4" to "YYYY-MM-DD" in year. It reports false for
// excluded prefixes, other extensions and impossible days.
func ParseVideoName(name string, year int) (string, bool) {
	for _, p := range excludedPrefixes {
		if strings.HasPrefix(name, p) {
			return "", false
		}
	}
	m := ddmmRegex.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	date := fmt.Sprintf("%04d-%s-%s", year, m[2], m[1])
	if _, err := time.Parse(holiday.DateLayout, date); err != nil {
		return "", false
	}
	return date, true
}

// FindVideos lists dir and returns the clips with a parseable name, sorted by date.
func FindVideos(dir string, year int) ([]Video, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []Video
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		date, ok := ParseVideoName(e.Name(), year)
		if !ok {
			continue
		}
		out = append(out, Video{Name: e.Name(), Path: filepath.Join(dir, e.Name()), Date: date})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date == out[j].Date {
			return out[i].Name < out[j].Name
		}
		return out[i].Date < out[j].Date
	})
	return out, nil
}

// MatchVideos returns the clips whose date has a record carrying both enhancer
// lines. Clips without a record, or with an unenhanced one, are returned in missing.
func MatchVideos(videos []Video, s *holiday.Store) (matched []Match, missing []Video) {
	for _, v := range videos {
		r, ok := s.Get(v.Date)
		if !ok || !r.Enhanced() {
			missing = append(missing, v)
			continue
		}
		matched = append(matched, Match{Video: v, Record: r})
	}
	return matched, missing
}

// MatchesLibraryPattern reports whether a library file name follows the
// "<number>_<anything>.mp4" convention used for postable clips.
func MatchesLibraryPattern(name string) bool {
	return libraryRegex.MatchString(name)
}
