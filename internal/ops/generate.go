package ops

import (
	"context"
	"fmt"
	"time"

	"github.com/micasa/marketer/internal/collector"
	"github.com/micasa/marketer/internal/content"
	"github.com/micasa/marketer/internal/errors"
	"github.com/micasa/marketer/internal/holiday"
	"github.com/micasa/marketer/internal/imagegen"
	"github.com/micasa/marketer/internal/logging"
	"github.com/micasa/marketer/internal/metrics"
	"github.com/micasa/marketer/internal/store"
)

// CaptionGenerator produces the caption and image prompt for one date.
type CaptionGenerator interface {
	Generate(ctx context.Context, items []holiday.SourceItem) (content.Result, error)
}

// AssetProducer renders the background and watermarked images for one date.
type AssetProducer interface {
	Produce(ctx context.Context, date, prompt string) (imagegen.Paths, error)
}

// GenerateInput contains parameters for the Generate operation.
type GenerateInput struct {
	StorePath string // required
	Sources   []collector.Source
	Generator CaptionGenerator
	Assets    AssetProducer // nil skips image generation (records stay pending)

	StartDate    string // default: today
	DaysAhead    *int   // nil: 75; 0 keeps only StartDate
	SkipExisting bool
	ResetCorrupt bool
}

// GenerateOutput contains the result of the Generate operation.
type GenerateOutput struct {
	RunID      string           `json:"run_id,omitempty"`
	StorePath  string           `json:"store_path"`
	StartDate  string           `json:"start_date"`
	EndDate    string           `json:"end_date"`
	Collected  int              `json:"collected"`
	Dates      int              `json:"dates"`
	Ready      []string         `json:"ready"`
	NotReady   []string         `json:"not_ready"`
	Skipped    []string         `json:"skipped"`
	Merge      store.MergeStats `json:"merge"`
	TotalDates int              `json:"total_dates"`
}

// Generate runs the collect, filter, group, generate and merge pipeline. The
// store is saved after every date so an interrupted run keeps everything
// finished before it. A failing date is recorded as not ready and the loop
// moves on; only setup problems and save failures abort.
func Generate(ctx context.Context, rt *Runtime, input GenerateInput) (*GenerateOutput, error) {
	if err := requirePath("store path", input.StorePath); err != nil {
		return nil, err
	}
	if input.Generator == nil {
		return nil, errors.NewSetup("no caption generator configured")
	}
	start, err := startDate(rt, input.StartDate)
	if err != nil {
		return nil, err
	}
	daysAhead := collector.DefaultDaysAhead
	if input.DaysAhead != nil {
		daysAhead = *input.DaysAhead
	}
	if daysAhead < 0 {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("days ahead must not be negative, got %d", daysAhead))
	}
	log := rt.log()

	s, err := store.Load(input.StorePath, store.LoadOptions{ResetCorrupt: input.ResetCorrupt, Logger: log, Now: rt.Now})
	if err != nil {
		return nil, err
	}

	out := &GenerateOutput{
		StorePath: input.StorePath,
		StartDate: start.Format(holiday.DateLayout),
		EndDate:   start.AddDate(0, 0, daysAhead).Format(holiday.DateLayout),
		Ready:     []string{},
		NotReady:  []string{},
		Skipped:   []string{},
	}
	run := rt.startRun("generate", out.StartDate+".."+out.EndDate)
	out.RunID = run.ID
	var counts RunCounts

	agg := &collector.Aggregator{Sources: input.Sources, Logger: log}
	items, err := agg.Fetch(ctx)
	if err != nil {
		rt.finishRun(run, counts, err)
		return nil, err
	}
	out.Collected = len(items)

	groups := collector.GroupByDate(collector.FilterRange(items, start, daysAhead))
	dates := collector.SortedDates(groups)
	out.Dates = len(dates)
	log.Infof(logging.TypeGenerate, "processing %d date(s) from %s to %s", len(dates), out.StartDate, out.EndDate)

	for i, date := range dates {
		if err := ctx.Err(); err != nil {
			err = interrupted("generate", date, err)
			rt.finishRun(run, counts, err)
			return out, err
		}
		if input.SkipExisting && s.IsReady(date) {
			log.Infof(logging.TypeGenerate, "[%d/%d] %s already ready, skipping", i+1, len(dates), date)
			out.Skipped = append(out.Skipped, date)
			counts.Skipped++
			rt.metrics().IncDatesProcessed(metrics.OutcomeSkipped)
			continue
		}

		log.Infof(logging.TypeGenerate, "[%d/%d] processing %s (%d item(s))", i+1, len(dates), date, len(groups[date]))
		rec := buildRecord(ctx, rt, input, date, groups[date])

		var stats store.MergeStats
		s, stats = store.Merge(s, map[string]holiday.DateRecord{date: rec}, input.SkipExisting, rt.now())
		out.Merge.Added += stats.Added
		out.Merge.Replaced += stats.Replaced
		out.Merge.Skipped += stats.Skipped
		if err := store.Save(s, input.StorePath); err != nil {
			rt.finishRun(run, counts, err)
			return out, err
		}

		counts.Processed++
		if rec.ContentReady {
			out.Ready = append(out.Ready, date)
			rt.metrics().IncDatesProcessed(metrics.OutcomeReady)
		} else {
			out.NotReady = append(out.NotReady, date)
			counts.Failed++
			rt.metrics().IncDatesProcessed(metrics.OutcomeNotReady)
		}
	}

	out.TotalDates = s.TotalDates
	rt.finishRun(run, counts, nil)
	log.Infof(logging.TypeGenerate, "done: %d ready, %d not ready, %d skipped", len(out.Ready), len(out.NotReady), len(out.Skipped))
	return out, nil
}

// buildRecord generates content and images for one date. Every failure is
// logged and yields a record that is not content ready.
func buildRecord(ctx context.Context, rt *Runtime, input GenerateInput, date string, items []holiday.SourceItem) holiday.DateRecord {
	log := rt.log()

	res, err := input.Generator.Generate(ctx, items)
	if err != nil {
		log.Errorf(logging.TypeGenerate, "%s: content generation failed: %v", date, err)
		return holiday.NewRecord(date, items, nil, nil, nil, rt.now())
	}

	var c holiday.Content
	switch r := res.(type) {
	case content.Parsed:
		c = r.Content
	case content.Malformed:
		log.Warnf(logging.TypeGenerate, "%s: unusable generator reply: %.200s", date, r.Raw)
		return holiday.NewRecord(date, items, nil, nil, nil, rt.now())
	default:
		log.Warnf(logging.TypeGenerate, "%s: unexpected generator result %T", date, res)
		return holiday.NewRecord(date, items, nil, nil, nil, rt.now())
	}

	var paths imagegen.Paths
	switch {
	case c.ImagePrompt == "":
		log.Warnf(logging.TypeGenerate, "%s: no image prompt, skipping images", date)
	case input.Assets == nil:
		log.Warnf(logging.TypeGenerate, "%s: no image backend configured", date)
	default:
		paths, err = input.Assets.Produce(ctx, date, c.ImagePrompt)
		if err != nil {
			log.Errorf(logging.TypeGenerate, "%s: image generation failed: %v", date, err)
		}
	}
	r := holiday.NewRecord(date, items, &c, paths.Background, paths.Final, rt.now())
	r.AnimationPath = paths.Animation
	return r
}

func startDate(rt *Runtime, date string) (time.Time, error) {
	if date == "" {
		return rt.now(), nil
	}
	t, err := holiday.ParseDate(date)
	if err != nil {
		return time.Time{}, errors.NewInvalidRequest(fmt.Sprintf("start date must be YYYY-MM-DD, got %q", date))
	}
	return t, nil
}
