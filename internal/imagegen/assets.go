package imagegen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/micasa/marketer/internal/holiday"
	"github.com/micasa/marketer/internal/logging"
)

// Paths are the files written for one date. Nil means the step did not succeed.
type Paths struct {
	Background *string
	Final      *string
	Animation  *string
}

// Animator is a Generator whose images can be turned into short clips.
type Animator interface {
	GenerateURL(ctx context.Context, prompt string) ([]byte, string, error)
	Animate(ctx context.Context, imageURL string) ([]byte, error)
}

// Assets writes background and watermarked images into Dir, plus an
// animated clip when Animate is set and Generator is an Animator.
type Assets struct {
	Generator Generator
	Dir       string
	Watermark string
	Animate   bool
	Logger    logging.Logger
}

// BackgroundName is the file name of the raw generated image for date.
func BackgroundName(date string) string {
	return fmt.Sprintf("holiday_%s_background.png", holiday.SafeDate(date))
}

// FinalName is the file name of the watermarked image for date.
func FinalName(date string) string {
	return fmt.Sprintf("holiday_%s_background_with_text.png", holiday.SafeDate(date))
}

// AnimationName is the file name of the animated clip for date.
func AnimationName(date string) string {
	return fmt.Sprintf("holiday_%s_animated.mp4", holiday.SafeDate(date))
}

// Produce generates the background for prompt and writes both images.
// The returned error describes the first failing step; Paths still reports
// whatever was written before it.
func (a *Assets) Produce(ctx context.Context, date, prompt string) (Paths, error) {
	var paths Paths
	logger := a.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	if err := os.MkdirAll(a.Dir, 0755); err != nil {
		return paths, fmt.Errorf("create images dir: %w", err)
	}

	animator, canAnimate := a.Generator.(Animator)
	if a.Animate && !canAnimate {
		logger.Warnf(logging.TypeGenerate, "%s: image backend cannot animate, skipping clip", date)
	}
	var (
		img      []byte
		imageURL string
		err      error
	)
	if a.Animate && canAnimate {
		img, imageURL, err = animator.GenerateURL(ctx, prompt)
	} else {
		img, err = a.Generator.Generate(ctx, prompt)
	}
	if err != nil {
		return paths, err
	}
	bgPath := filepath.Join(a.Dir, BackgroundName(date))
	if err := os.WriteFile(bgPath, img, 0644); err != nil {
		return paths, fmt.Errorf("write background: %w", err)
	}
	paths.Background = &bgPath
	logger.Infof(logging.TypeGenerate, "image saved: %s", bgPath)

	final, err := Overlay(img, a.Watermark)
	if err != nil {
		return paths, fmt.Errorf("watermark %s: %w", date, err)
	}
	finalPath := filepath.Join(a.Dir, FinalName(date))
	if err := os.WriteFile(finalPath, final, 0644); err != nil {
		return paths, fmt.Errorf("write final image: %w", err)
	}
	paths.Final = &finalPath

	if a.Animate && canAnimate {
		paths.Animation = a.animate(ctx, animator, date, imageURL, logger)
	}
	return paths, nil
}

// animate renders the clip for date. A failed clip is logged and leaves the
// still images in place.
func (a *Assets) animate(ctx context.Context, animator Animator, date, imageURL string, logger logging.Logger) *string {
	clip, err := animator.Animate(ctx, imageURL)
	if err != nil {
		logger.Warnf(logging.TypeGenerate, "%s: animation failed: %v", date, err)
		return nil
	}
	clipPath := filepath.Join(a.Dir, AnimationName(date))
	if err := os.WriteFile(clipPath, clip, 0644); err != nil {
		logger.Warnf(logging.TypeGenerate, "%s: write animation: %v", date, err)
		return nil
	}
	logger.Infof(logging.TypeGenerate, "animation saved: %s", clipPath)
	return &clipPath
}
