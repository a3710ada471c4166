// Package store persists the per-date content document across runs.
//
// The document is rewritten after every processed date, so an interrupted run
// loses at most the date in flight.
package store

import (
	"bytes"
	"fmt"
	"os"
	"time"

	json "github.com/goccy/go-json"

	"github.com/micasa/marketer/internal/errors"
	"github.com/micasa/marketer/internal/holiday"
	"github.com/micasa/marketer/internal/logging"
)

// LoadOptions controls how Load treats an unreadable document.
type LoadOptions struct {
	// ResetCorrupt moves a corrupt file aside to <path>.corrupt-<unix> and
	// returns an empty store instead of failing.
	ResetCorrupt bool
	Logger       logging.Logger
	Now          func() time.Time
}

// MergeStats counts what Merge did with the incoming batch.
type MergeStats struct {
	Added    int `json:"added"`
	Replaced int `json:"replaced"`
	Skipped  int `json:"skipped"`
}

// Load reads the store at path. A missing file yields an empty store.
// A file that exists but does not decode as a store is DATA_CORRUPTION unless
// opts.ResetCorrupt is set.
func Load(path string, opts LoadOptions) (*holiday.Store, error) {
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return holiday.NewStore(), nil
		}
		return nil, errors.NewDataCorruption(path, err)
	}

	s, err := decode(data)
	if err != nil {
		if !opts.ResetCorrupt {
			return nil, errors.NewDataCorruption(path, err)
		}
		aside := fmt.Sprintf("%s.corrupt-%d", path, now(opts.Now).Unix())
		if rerr := os.Rename(path, aside); rerr != nil {
			return nil, errors.NewDataCorruption(path, fmt.Errorf("%v (and could not move it aside: %w)", err, rerr))
		}
		log.Warnf(logging.TypeApp, "store %s is corrupt (%v), moved to %s and starting empty", path, err, aside)
		return holiday.NewStore(), nil
	}

	for date, r := range s.HolidaysByDate {
		if r.ContentReady != r.Ready() {
			log.Warnf(logging.TypeApp, "store %s: %s content_ready=%v disagrees with its artifacts, correcting", path, date, r.ContentReady)
			r.Evaluate()
			s.HolidaysByDate[date] = r
		}
	}
	return s, nil
}

func decode(data []byte) (*holiday.Store, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("document is not a JSON object")
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &keys); err != nil {
		return nil, err
	}
	byDate, ok := keys["holidays_by_date"]
	if !ok {
		return nil, fmt.Errorf("document has no holidays_by_date")
	}
	if b := bytes.TrimSpace(byDate); len(b) == 0 || b[0] != '{' {
		return nil, fmt.Errorf("holidays_by_date is not an object")
	}
	var s holiday.Store
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return nil, err
	}
	if s.HolidaysByDate == nil {
		s.HolidaysByDate = make(map[string]holiday.DateRecord)
	}
	for date, r := range s.HolidaysByDate {
		if r.Date == "" {
			r.Date = date
			s.HolidaysByDate[date] = r
		}
	}
	s.TotalDates = len(s.HolidaysByDate)
	return &s, nil
}

// Merge unions incoming into existing by date and returns a new store.
// Dates only in existing are carried forward untouched. A date in both is
// replaced wholesale, except that skipExisting keeps an existing record that
// is already content ready.
func Merge(existing *holiday.Store, incoming map[string]holiday.DateRecord, skipExisting bool, at time.Time) (*holiday.Store, MergeStats) {
	out := holiday.NewStore()
	var stats MergeStats

	if existing != nil {
		for date, r := range existing.HolidaysByDate {
			out.HolidaysByDate[date] = r
		}
	}

	for date, r := range incoming {
		prev, ok := out.HolidaysByDate[date]
		switch {
		case ok && skipExisting && prev.ContentReady:
			stats.Skipped++
			continue
		case ok:
			stats.Replaced++
		default:
			stats.Added++
		}
		if r.Date == "" {
			r.Date = date
		}
		r.Evaluate()
		out.HolidaysByDate[date] = r
	}

	out.TotalDates = len(out.HolidaysByDate)
	ts := holiday.FormatTime(at)
	out.GeneratedAt = &ts
	return out, stats
}

// ApplyCaption replaces only the generated text of date and keeps both image
// paths. A date not yet in the store is inserted without images.
func ApplyCaption(s *holiday.Store, date string, c holiday.Content, items []holiday.SourceItem, at time.Time) holiday.DateRecord {
	r, ok := s.HolidaysByDate[date]
	if !ok {
		r = holiday.DateRecord{Date: date, SourceItems: []holiday.SourceItem{}}
	}
	if items != nil {
		r.SourceItems = items
	}
	r.SelectedLabel = c.SelectedLabel
	r.ToneCategory = c.ToneCategory
	r.Caption = c.Caption
	r.ImagePrompt = c.ImagePrompt
	r.GeneratedAt = holiday.FormatTime(at)
	r.Evaluate()

	s.HolidaysByDate[date] = r
	s.TotalDates = len(s.HolidaysByDate)
	ts := holiday.FormatTime(at)
	s.GeneratedAt = &ts
	return r
}

// Put stores one record, recomputing content_ready and the totals.
func Put(s *holiday.Store, r holiday.DateRecord, at time.Time) {
	r.Evaluate()
	s.HolidaysByDate[r.Date] = r
	s.TotalDates = len(s.HolidaysByDate)
	ts := holiday.FormatTime(at)
	s.GeneratedAt = &ts
}

// Save writes the store as two-space indented JSON, replacing path atomically.
func Save(s *holiday.Store, path string) error {
	data, err := Encode(s)
	if err != nil {
		return errors.NewInternal(err)
	}
	if err := writeFileAtomic(path, data, 0644); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to save store %s: %w", path, err))
	}
	return nil
}

// Encode renders the store the way Save writes it.
func Encode(s *holiday.Store) ([]byte, error) {
	if s.HolidaysByDate == nil {
		s.HolidaysByDate = make(map[string]holiday.DateRecord)
	}
	s.TotalDates = len(s.HolidaysByDate)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteJSON writes v as two-space indented JSON, replacing path atomically.
// Side documents such as scrape results and prompt exports use it.
func WriteJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.NewInternal(err)
	}
	if err := writeFileAtomic(path, buf.Bytes(), 0644); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to write %s: %w", path, err))
	}
	return nil
}

func now(fn func() time.Time) time.Time {
	if fn != nil {
		return fn()
	}
	return time.Now()
}
