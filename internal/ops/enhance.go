package ops

import (
	"context"
	"time"

	"github.com/micasa/marketer/internal/content"
	"github.com/micasa/marketer/internal/errors"
	"github.com/micasa/marketer/internal/holiday"
	"github.com/micasa/marketer/internal/logging"
	"github.com/micasa/marketer/internal/store"
)

// DefaultEnhanceDelay spaces enhancer calls out.
const DefaultEnhanceDelay = time.Second

// RecordEnhancer writes the headline and promo lines for one record.
type RecordEnhancer interface {
	Enhance(ctx context.Context, r holiday.DateRecord) (content.Result, error)
}

// EnhanceInput contains parameters for the Enhance operation.
type EnhanceInput struct {
	StorePath string // required
	Enhancer  RecordEnhancer
	Force     bool          // re-enhance records that already have both lines
	Delay     time.Duration // pause between calls; negative disables
	Dates     []string      // default: every ready date
}

// EnhanceOutput contains the result of the Enhance operation.
type EnhanceOutput struct {
	RunID    string   `json:"run_id,omitempty"`
	Enhanced []string `json:"enhanced"`
	Skipped  []string `json:"skipped"`
	Failed   []string `json:"failed"`
}

// Enhance adds holiday_text and catchphrase to content-ready records. Records
// that already carry both are skipped unless Force is set. The store is saved
// after each enhanced record.
func Enhance(ctx context.Context, rt *Runtime, input EnhanceInput) (*EnhanceOutput, error) {
	if err := requirePath("store path", input.StorePath); err != nil {
		return nil, err
	}
	if input.Enhancer == nil {
		return nil, errors.NewSetup("no enhancer configured")
	}
	for _, d := range input.Dates {
		if err := validateDate("date", d); err != nil {
			return nil, err
		}
	}
	delay := input.Delay
	if delay == 0 {
		delay = DefaultEnhanceDelay
	}
	log := rt.log()

	s, err := store.Load(input.StorePath, store.LoadOptions{Logger: log, Now: rt.Now})
	if err != nil {
		return nil, err
	}
	dates := input.Dates
	if len(dates) == 0 {
		dates = s.SortedDates()
	}

	out := &EnhanceOutput{Enhanced: []string{}, Skipped: []string{}, Failed: []string{}}
	run := rt.startRun("enhance", "")
	out.RunID = run.ID
	var counts RunCounts
	called := false

	for _, date := range dates {
		r, ok := s.Get(date)
		if !ok || !r.ContentReady || (r.Enhanced() && !input.Force) {
			out.Skipped = append(out.Skipped, date)
			counts.Skipped++
			continue
		}

		if called {
			if err := rt.sleep(ctx, delay); err != nil {
				err = interrupted("enhance", date, err)
				rt.finishRun(run, counts, err)
				return out, err
			}
		}
		called = true

		res, err := input.Enhancer.Enhance(ctx, r)
		if err != nil {
			log.Errorf(logging.TypeGenerate, "%s: enhance failed: %v", date, err)
			out.Failed = append(out.Failed, date)
			counts.Failed++
			continue
		}
		lines, ok := res.(content.Enhanced)
		if !ok {
			log.Warnf(logging.TypeGenerate, "%s: unusable enhancer reply", date)
			out.Failed = append(out.Failed, date)
			counts.Failed++
			continue
		}

		r.HolidayText = lines.HolidayText
		r.Catchphrase = lines.Catchphrase
		r.EnhancedAt = holiday.FormatTime(rt.now())
		store.Put(s, r, rt.now())
		if err := store.Save(s, input.StorePath); err != nil {
			rt.finishRun(run, counts, err)
			return out, err
		}
		counts.Processed++
		out.Enhanced = append(out.Enhanced, date)
		log.Infof(logging.TypeGenerate, "%s: %q / %q", date, r.HolidayText, r.Catchphrase)
	}

	rt.finishRun(run, counts, nil)
	return out, nil
}
