// Package collector obtains raw source items and arranges them by calendar day.
package collector

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/micasa/marketer/internal/errors"
	"github.com/micasa/marketer/internal/holiday"
	"github.com/micasa/marketer/internal/logging"
	"github.com/micasa/marketer/internal/scraper"
)

// DefaultDaysAhead is the default look-ahead window for FilterRange.
const DefaultDaysAhead = 75

// Source yields raw items.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]holiday.SourceItem, error)
}

// FileSource reads a JSON array of holiday objects. Unknown fields are ignored.
type FileSource struct {
	Path string
}

func (f FileSource) Name() string { return "file:" + f.Path }

// Fetch returns SETUP_ERROR when the file is missing and PARSE_ERROR when it
// is not a JSON array of holidays.
func (f FileSource) Fetch(_ context.Context) ([]holiday.SourceItem, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewSetup(fmt.Sprintf("holidays file %s not found", f.Path))
		}
		return nil, errors.NewSetup(fmt.Sprintf("cannot read holidays file %s: %v", f.Path, err))
	}
	var items []holiday.SourceItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, errors.NewParse(f.Path, err)
	}
	for i := range items {
		items[i].Name = strings.TrimSpace(items[i].Name)
		items[i].Date = strings.TrimSpace(items[i].Date)
	}
	return items, nil
}

// RangeScraper is the part of the event scraper EventSource needs.
type RangeScraper interface {
	EventsForRange(ctx context.Context, from, to string) (*scraper.Document, error)
}

// EventSource adapts scraped events into source items.
type EventSource struct {
	Scraper RangeScraper
	From    string
	To      string
}

func (e EventSource) Name() string { return "events:" + e.From + ".." + e.To }

func (e EventSource) Fetch(ctx context.Context) ([]holiday.SourceItem, error) {
	doc, err := e.Scraper.EventsForRange(ctx, e.From, e.To)
	if err != nil {
		return nil, err
	}
	return scraper.ToSourceItems(doc.Events), nil
}

// Aggregator concatenates several sources. A failing source is logged and
// skipped; Fetch fails only when every source fails.
type Aggregator struct {
	Sources []Source
	Logger  logging.Logger
}

func (a *Aggregator) Fetch(ctx context.Context) ([]holiday.SourceItem, error) {
	log := a.Logger
	if log == nil {
		log = logging.Nop()
	}

	var (
		all     []holiday.SourceItem
		lastErr error
		failed  int
	)
	for _, src := range a.Sources {
		items, err := src.Fetch(ctx)
		if err != nil {
			// Setup problems are the operator's to fix; do not paper over them.
			if errors.Is(err, errors.ErrSetup) {
				return nil, err
			}
			log.Warnf(logging.TypeCollect, "source %s failed: %v", src.Name(), err)
			lastErr = err
			failed++
			continue
		}
		log.Infof(logging.TypeCollect, "loaded %d item(s) from %s", len(items), src.Name())
		all = append(all, items...)
	}
	if failed > 0 && failed == len(a.Sources) {
		return nil, lastErr
	}
	return all, nil
}

// GroupByDate buckets items by their date key, keeping input order within a
// day. Items with an empty date are dropped.
func GroupByDate(items []holiday.SourceItem) map[string][]holiday.SourceItem {
	groups := make(map[string][]holiday.SourceItem)
	for _, it := range items {
		if it.Date == "" {
			continue
		}
		groups[it.Date] = append(groups[it.Date], it)
	}
	return groups
}

// SortedDates returns the keys of groups in ascending order.
func SortedDates(groups map[string][]holiday.SourceItem) []string {
	dates := make([]string, 0, len(groups))
	for d := range groups {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// FilterRange keeps items dated within [start, start+daysAhead], both ends
// inclusive, comparing calendar days only. Unparseable dates are skipped.
func FilterRange(items []holiday.SourceItem, start time.Time, daysAhead int) []holiday.SourceItem {
	from := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, daysAhead)

	var out []holiday.SourceItem
	for _, it := range items {
		d, err := holiday.ParseDate(it.Date)
		if err != nil {
			continue
		}
		if d.Before(from) || d.After(to) {
			continue
		}
		out = append(out, it)
	}
	return out
}
