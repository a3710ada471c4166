package ops

import (
	"context"

	"github.com/micasa/marketer/internal/content"
	"github.com/micasa/marketer/internal/errors"
	"github.com/micasa/marketer/internal/holiday"
	"github.com/micasa/marketer/internal/logging"
	"github.com/micasa/marketer/internal/store"
)

// RegenerateCaptionsInput contains parameters for the RegenerateCaptions operation.
type RegenerateCaptionsInput struct {
	StorePath string // required
	Generator CaptionGenerator
	Dates     []string // default: every date in the store
}

// RegenerateCaptionsOutput contains the result of the RegenerateCaptions operation.
type RegenerateCaptionsOutput struct {
	RunID   string   `json:"run_id,omitempty"`
	Updated []string `json:"updated"`
	Failed  []string `json:"failed"`
	// Ready counts updated dates that are content ready afterwards.
	Ready int `json:"ready"`
}

// RegenerateCaptions reruns the caption generator over stored records and
// replaces only the text fields, keeping both image paths. A date that fails
// keeps its previous caption.
func RegenerateCaptions(ctx context.Context, rt *Runtime, input RegenerateCaptionsInput) (*RegenerateCaptionsOutput, error) {
	if err := requirePath("store path", input.StorePath); err != nil {
		return nil, err
	}
	if input.Generator == nil {
		return nil, errors.NewSetup("no caption generator configured")
	}
	for _, d := range input.Dates {
		if err := validateDate("date", d); err != nil {
			return nil, err
		}
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

	out := &RegenerateCaptionsOutput{Updated: []string{}, Failed: []string{}}
	run := rt.startRun("captions", "")
	out.RunID = run.ID
	var counts RunCounts

	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			err = interrupted("captions", date, err)
			rt.finishRun(run, counts, err)
			return out, err
		}
		r, ok := s.Get(date)
		if !ok {
			log.Warnf(logging.TypeGenerate, "%s: not in store, skipping", date)
			counts.Skipped++
			continue
		}

		res, err := input.Generator.Generate(ctx, r.SourceItems)
		if err != nil {
			log.Errorf(logging.TypeGenerate, "%s: caption generation failed: %v", date, err)
			out.Failed = append(out.Failed, date)
			counts.Failed++
			continue
		}
		parsed, ok := res.(content.Parsed)
		if !ok {
			log.Warnf(logging.TypeGenerate, "%s: unusable generator reply, keeping previous caption", date)
			out.Failed = append(out.Failed, date)
			counts.Failed++
			continue
		}

		updated := store.ApplyCaption(s, date, parsed.Content, nil, rt.now())
		if err := store.Save(s, input.StorePath); err != nil {
			rt.finishRun(run, counts, err)
			return out, err
		}
		counts.Processed++
		out.Updated = append(out.Updated, date)
		if updated.ContentReady {
			out.Ready++
		}
		log.Infof(logging.TypeGenerate, "%s: caption updated (%d chars)", date, holiday.CountChars(updated.Caption))
	}

	rt.finishRun(run, counts, nil)
	return out, nil
}
