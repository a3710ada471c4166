package ops

import (
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/micasa/marketer/internal/content"
	"github.com/micasa/marketer/internal/errors"
	"github.com/micasa/marketer/internal/logging"
	"github.com/micasa/marketer/internal/publisher"
)

// PostVideoInput contains parameters for the PostVideo operation.
type PostVideoInput struct {
	VideoDir  string   // required
	Video     string   // file name in VideoDir; empty picks one at random
	Captions  []string // default: content.PromoCaptions
	Publisher Publisher
	// Pick chooses an index below n; defaults to math/rand/v2.
	Pick func(n int) int
	PublishOptions
}

// PostVideoOutput contains the result of the PostVideo operation.
type PostVideoOutput struct {
	RunID   string              `json:"run_id,omitempty"`
	Video   string              `json:"video"`
	Caption string              `json:"caption"`
	Media   *publisher.MediaRef `json:"media,omitempty"`
	Post    PostAttempt         `json:"post"`
}

// PostVideo uploads one branded clip from VideoDir and posts it as a reel
// with a rotating promo caption.
func PostVideo(ctx context.Context, rt *Runtime, input PostVideoInput) (*PostVideoOutput, error) {
	if err := requirePath("video dir", input.VideoDir); err != nil {
		return nil, err
	}
	if input.Publisher == nil && !input.DryRun {
		return nil, errors.NewSetup("no publisher configured")
	}
	pick := input.Pick
	if pick == nil {
		pick = rand.IntN
	}
	captions := input.Captions
	if len(captions) == 0 {
		captions = content.PromoCaptions
	}

	videos, err := listVideos(input.VideoDir)
	if err != nil {
		return nil, err
	}
	name := input.Video
	switch {
	case name != "":
		if !slices.Contains(videos, name) {
			return nil, errors.NewNotFound(filepath.Join(input.VideoDir, name))
		}
	case len(videos) == 0:
		return nil, errors.NewNotFound("no .mp4 videos in " + input.VideoDir)
	default:
		name = videos[pick(len(videos))]
	}

	out := &PostVideoOutput{
		Video:   filepath.Join(input.VideoDir, name),
		Caption: captions[pick(len(captions))],
	}
	run := rt.startRun("publish video", name)
	out.RunID = run.ID
	rt.log().Infof(logging.TypePublish, "selected video %s", name)

	if !input.DryRun {
		m, err := input.Publisher.UploadMedia(ctx, out.Video)
		if err != nil {
			rt.finishRun(run, RunCounts{Failed: 1}, err)
			return nil, err
		}
		out.Media = m
	}

	out.Post = send(ctx, rt, input.Publisher, run.ID, KindVideo, "", input.PublishOptions,
		input.request(out.Caption, publisher.TypeReel, out.Media, rt.now()))
	finishPublish(rt, run, []PostAttempt{out.Post})
	return out, nil
}

// listVideos returns the sorted .mp4 file names directly inside dir.
func listVideos(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound(dir)
		}
		return nil, errors.NewSetup("read video dir: " + err.Error())
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".mp4") {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}
