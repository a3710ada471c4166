package ops

import (
	"context"
	"time"

	"github.com/micasa/marketer/internal/errors"
	"github.com/micasa/marketer/internal/holiday"
	"github.com/micasa/marketer/internal/logging"
	"github.com/micasa/marketer/internal/scraper"
	"github.com/micasa/marketer/internal/store"
)

// EventScraper fetches the day's events from the listing site.
type EventScraper interface {
	EventsForDate(ctx context.Context, date string) ([]scraper.Event, []string, error)
	EventsForRange(ctx context.Context, from, to string) (*scraper.Document, error)
}

// ScrapeEventsInput contains parameters for the ScrapeEvents operation.
type ScrapeEventsInput struct {
	Scraper EventScraper
	From    string // default: today
	Days    int    // default: 1
	Output  string // optional .json path for the document
}

// ScrapeEventsOutput contains the result of the ScrapeEvents operation.
type ScrapeEventsOutput struct {
	RunID    string            `json:"run_id,omitempty"`
	Path     string            `json:"path,omitempty"`
	Document *scraper.Document `json:"document"`
}

// ScrapeEvents scrapes [From, From+Days-1] and optionally writes the document.
func ScrapeEvents(ctx context.Context, rt *Runtime, input ScrapeEventsInput) (*ScrapeEventsOutput, error) {
	if input.Scraper == nil {
		return nil, errors.NewSetup("no event scraper configured")
	}
	from, err := startDate(rt, input.From)
	if err != nil {
		return nil, err
	}
	days := input.Days
	if days <= 0 {
		days = 1
	}
	if input.Output != "" {
		if err := ValidatePath(input.Output, PathCheckWrite, ".json"); err != nil {
			return nil, err
		}
	}
	fromStr := from.Format(holiday.DateLayout)
	toStr := from.AddDate(0, 0, days-1).Format(holiday.DateLayout)

	run := rt.startRun("scrape", fromStr+".."+toStr)
	doc, err := input.Scraper.EventsForRange(ctx, fromStr, toStr)
	if err != nil {
		rt.finishRun(run, RunCounts{Failed: days}, err)
		return nil, err
	}

	out := &ScrapeEventsOutput{RunID: run.ID, Document: doc}
	if input.Output != "" {
		if err := store.WriteJSON(input.Output, doc); err != nil {
			rt.finishRun(run, RunCounts{Processed: doc.Metadata.TotalEvents}, err)
			return nil, err
		}
		out.Path = input.Output
	}
	rt.log().Infof(logging.TypeCollect, "scraped %d event(s) for %s..%s", doc.Metadata.TotalEvents, fromStr, toStr)
	rt.finishRun(run, RunCounts{Processed: doc.Metadata.TotalEvents}, nil)
	return out, nil
}

// scrapeDay returns the events for date, or none when scraping fails. Posting
// still goes ahead with the fallback copy.
func scrapeDay(ctx context.Context, rt *Runtime, s EventScraper, date string) []scraper.Event {
	if s == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()
	events, _, err := s.EventsForDate(ctx, date)
	if err != nil {
		rt.log().Warnf(logging.TypeCollect, "scrape for %s failed, posting fallback copy: %v", date, err)
		return nil
	}
	return events
}
