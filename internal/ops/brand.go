package ops

import (
	"context"

	"github.com/micasa/marketer/internal/content"
	"github.com/micasa/marketer/internal/errors"
	"github.com/micasa/marketer/internal/logging"
	"github.com/micasa/marketer/internal/media"
	"github.com/micasa/marketer/internal/store"
)

// VideoBrander burns the record's lines into a clip.
type VideoBrander interface {
	Brand(ctx context.Context, input, date, label, text, promo string) (string, error)
}

// BrandVideosInput contains parameters for the BrandVideos operation.
type BrandVideosInput struct {
	StorePath string // required
	VideoDir  string // required; holds DDMM.mp4 clips
	Year      int    // default: current year
	Brander   VideoBrander
}

// BrandedVideo is one rendered clip.
type BrandedVideo struct {
	Date   string `json:"date"`
	Input  string `json:"input"`
	Output string `json:"output"`
}

// BrandVideosOutput contains the result of the BrandVideos operation.
type BrandVideosOutput struct {
	RunID     string         `json:"run_id,omitempty"`
	Branded   []BrandedVideo `json:"branded"`
	Unmatched []string       `json:"unmatched"`
	Failed    []string       `json:"failed"`
}

// BrandVideos matches DDMM.mp4 clips to enhanced records and renders each
// with the record's holiday_text and catchphrase.
func BrandVideos(ctx context.Context, rt *Runtime, input BrandVideosInput) (*BrandVideosOutput, error) {
	if err := requirePath("store path", input.StorePath); err != nil {
		return nil, err
	}
	if err := requirePath("video dir", input.VideoDir); err != nil {
		return nil, err
	}
	if input.Brander == nil {
		return nil, errors.NewSetup("no video brander configured")
	}
	year := input.Year
	if year == 0 {
		year = rt.now().Year()
	}
	log := rt.log()

	s, err := store.Load(input.StorePath, store.LoadOptions{Logger: log, Now: rt.Now})
	if err != nil {
		return nil, err
	}
	videos, err := media.FindVideos(input.VideoDir, year)
	if err != nil {
		return nil, errors.NewSetup(err.Error())
	}
	matched, missing := media.MatchVideos(videos, s)

	out := &BrandVideosOutput{Branded: []BrandedVideo{}, Unmatched: []string{}, Failed: []string{}}
	for _, v := range missing {
		log.Warnf(logging.TypeGenerate, "%s: no enhanced record for %s", v.Name, v.Date)
		out.Unmatched = append(out.Unmatched, v.Name)
	}

	run := rt.startRun("brand", input.VideoDir)
	out.RunID = run.ID
	counts := RunCounts{Skipped: len(missing)}

	for _, m := range matched {
		if err := ctx.Err(); err != nil {
			err = interrupted("brand", m.Video.Date, err)
			rt.finishRun(run, counts, err)
			return out, err
		}
		path, err := input.Brander.Brand(ctx, m.Video.Path, m.Video.Date, content.Label(m.Record), m.Record.HolidayText, m.Record.Catchphrase)
		if err != nil {
			log.Errorf(logging.TypeGenerate, "%s: branding failed: %v", m.Video.Name, err)
			out.Failed = append(out.Failed, m.Video.Name)
			counts.Failed++
			continue
		}
		out.Branded = append(out.Branded, BrandedVideo{Date: m.Video.Date, Input: m.Video.Path, Output: path})
		counts.Processed++
	}

	rt.finishRun(run, counts, nil)
	return out, nil
}
