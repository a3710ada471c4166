// Package video burns the logo and the holiday lines into raw clips with ffmpeg.
package video

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/micasa/marketer/internal/holiday"
	"github.com/micasa/marketer/internal/logging"
)

// Layout of the branded frame. Clips are 1080 tall; the box fills the bottom 80 rows.
const (
	BoxY          = 1000
	BoxHeight     = 80
	SingleFont    = 32
	HeadlineFont  = 28
	PromoFont     = 24
	headlineY     = 1010
	promoY        = 1045
	boxOpacity    = "0.9"
	logoOpacity   = "1"
	textOpacity   = "1"
	maxStderrTail = 500
)

var unsafeLabel = regexp.MustCompile(`[^\w\s-]`)

// Job describes one clip to brand.
type Job struct {
	Input  string
	Logo   string
	Output string
	Text   string
	// Promo adds a smaller second line under Text when set.
	Promo string
}

// EscapeText prepares s for a single-quoted drawtext value.
func EscapeText(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`'`, `'\''`,
		`%`, `\%`,
		`:`, `\:`,
	)
	return r.Replace(s)
}

// FilterGraph builds the -filter_complex value for j.
func FilterGraph(j Job) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[1:v]format=rgba,colorchannelmixer=aa=%s[logo_alpha];", logoOpacity)
	b.WriteString("[0:v][logo_alpha] overlay=10:10 [with_logo];")
	fmt.Fprintf(&b, "[with_logo] drawbox=x=0:y=%d:w=iw:h=%d:color=black@%s:t=fill [with_box];", BoxY, BoxHeight, boxOpacity)
	if j.Promo != "" {
		fmt.Fprintf(&b, "[with_box] drawtext=text='%s':fontsize=%d:fontcolor=white@%s:x=(w-text_w)/2:y=%d [with_text1];",
			EscapeText(j.Text), HeadlineFont, textOpacity, headlineY)
		fmt.Fprintf(&b, "[with_text1] drawtext=text='%s':fontsize=%d:fontcolor=white@%s:x=(w-text_w)/2:y=%d",
			EscapeText(j.Promo), PromoFont, textOpacity, promoY)
		return b.String()
	}
	fmt.Fprintf(&b, "[with_box] drawtext=text='%s':fontsize=%d:fontcolor=white@%s:x=(w-text_w)/2:y=%d+(%d-text_h)/2",
		EscapeText(j.Text), SingleFont, textOpacity, BoxY, BoxHeight)
	return b.String()
}

// BuildArgs returns the ffmpeg arguments for j, audio copied untouched.
func BuildArgs(j Job) []string {
	return []string{
		"-i", j.Input,
		"-i", j.Logo,
		"-filter_complex", FilterGraph(j),
		"-codec:a", "copy",
		"-y",
		j.Output,
	}
}

// OutputName is the branded file name for a date and holiday label.
func OutputName(date, label string) string {
	if label == "" {
		label = "holiday"
	}
	clean := strings.ReplaceAll(unsafeLabel.ReplaceAllString(label, ""), " ", "_")
	return fmt.Sprintf("branded_%s_%s.mp4", holiday.SafeDate(date), clean)
}

// Runner executes a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}

// Brander renders branded clips into OutDir.
type Brander struct {
	FFmpegPath string
	Logo       string
	OutDir     string
	Logger     logging.Logger
	// Run defaults to exec.CommandContext.
	Run Runner
}

// Brand renders input with the two lines and returns the output path.
func (b *Brander) Brand(ctx context.Context, input, date, label, text, promo string) (string, error) {
	if text == "" {
		return "", fmt.Errorf("no text to burn into %s", input)
	}
	if _, err := os.Stat(b.Logo); err != nil {
		return "", fmt.Errorf("logo: %w", err)
	}
	if err := os.MkdirAll(b.OutDir, 0755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	out := filepath.Join(b.OutDir, OutputName(date, label))
	run := b.Run
	if run == nil {
		run = execRunner
	}
	ffmpeg := b.FFmpegPath
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}

	output, err := run(ctx, ffmpeg, BuildArgs(Job{Input: input, Logo: b.Logo, Output: out, Text: text, Promo: promo})...)
	if err != nil {
		return "", fmt.Errorf("ffmpeg %s: %w: %s", filepath.Base(input), err, tail(output))
	}
	if b.Logger != nil {
		b.Logger.Infof(logging.TypeGenerate, "branded video created: %s", out)
	}
	return out, nil
}

func tail(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > maxStderrTail {
		s = s[len(s)-maxStderrTail:]
	}
	return s
}
