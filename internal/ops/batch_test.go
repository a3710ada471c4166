package ops

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/micasa/marketer/internal/db"
	"github.com/micasa/marketer/internal/errors"
	"github.com/micasa/marketer/internal/holiday"
	"github.com/micasa/marketer/internal/scraper"
)

func TestRegenerateCaptions_KeepsImages(t *testing.T) {
	rt, _, _ := newRuntime(t)
	path := storePath(t)
	a := readyRecord("2025-12-01", "Old caption one")
	b := readyRecord("2025-12-02", "Old caption two")
	seedStore(t, path, a, b)

	gen := &fakeGenerator{caption: "Fresh", malformed: map[string]bool{"2025-12-02": true}}
	out, err := RegenerateCaptions(context.Background(), rt, RegenerateCaptionsInput{StorePath: path, Generator: gen})
	require.NoError(t, err)

	assert.Equal(t, []string{"2025-12-01"}, out.Updated)
	assert.Equal(t, []string{"2025-12-02"}, out.Failed)
	assert.Equal(t, 1, out.Ready)

	s := loadStore(t, path)
	got := s.HolidaysByDate["2025-12-01"]
	assert.Equal(t, "Fresh 2025-12-01", got.Caption)
	assert.Equal(t, "A festive scene for 2025-12-01", got.ImagePrompt)
	assert.Equal(t, *a.BackgroundImagePath, *got.BackgroundImagePath)
	assert.Equal(t, *a.FinalImagePath, *got.FinalImagePath)
	assert.True(t, got.ContentReady)

	assert.Equal(t, "Old caption two", s.HolidaysByDate["2025-12-02"].Caption)
}

func TestRegenerateCaptions_SelectedDates(t *testing.T) {
	rt, _, logger := newRuntime(t)
	path := storePath(t)
	seedStore(t, path, readyRecord("2025-12-01", "one"), readyRecord("2025-12-02", "two"))

	gen := &fakeGenerator{}
	out, err := RegenerateCaptions(context.Background(), rt, RegenerateCaptionsInput{
		StorePath: path,
		Generator: gen,
		Dates:     []string{"2025-12-02", "2025-12-09"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-12-02"}, out.Updated)
	assert.Equal(t, []string{"2025-12-02"}, gen.calls)
	assert.True(t, logger.Contains("warn", "2025-12-09: not in store"))

	_, err = RegenerateCaptions(context.Background(), rt, RegenerateCaptionsInput{StorePath: path, Generator: gen, Dates: []string{"tomorrow"}})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("error = %v, want INVALID_REQUEST", err)
	}
}

func TestEnhance_SkipsEnhancedAndPending(t *testing.T) {
	rt, database, _ := newRuntime(t)
	var slept []time.Duration
	rt.Sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	path := storePath(t)

	plain := readyRecord("2025-12-01", "one")
	done := readyRecord("2025-12-02", "two")
	done.HolidayText = "Already here"
	done.Catchphrase = "Already promoted"
	other := readyRecord("2025-12-03", "three")
	pending := holiday.NewRecord("2025-12-04", nil, nil, nil, nil, t0)
	seedStore(t, path, plain, done, other, pending)

	enh := &fakeEnhancer{}
	out, err := Enhance(context.Background(), rt, EnhanceInput{StorePath: path, Enhancer: enh})
	require.NoError(t, err)

	assert.Equal(t, []string{"2025-12-01", "2025-12-03"}, out.Enhanced)
	assert.Equal(t, []string{"2025-12-02", "2025-12-04"}, out.Skipped)
	assert.Equal(t, []time.Duration{DefaultEnhanceDelay}, slept, "delay only between calls")

	s := loadStore(t, path)
	got := s.HolidaysByDate["2025-12-01"]
	assert.Equal(t, "Happy Holiday 2025-12-01", got.HolidayText)
	assert.NotEmpty(t, got.EnhancedAt)
	assert.True(t, got.ContentReady)
	assert.Equal(t, "Already here", s.HolidaysByDate["2025-12-02"].HolidayText)

	runs, err := db.ListRuns(database, 1)
	require.NoError(t, err)
	assert.Equal(t, "enhance", runs[0].Command)
	assert.Equal(t, 2, runs[0].Processed)
	assert.Equal(t, 2, runs[0].Skipped)
}

func TestEnhance_ForceAndMalformed(t *testing.T) {
	rt, _, _ := newRuntime(t)
	path := storePath(t)
	done := readyRecord("2025-12-02", "two")
	done.HolidayText = "Old"
	done.Catchphrase = "Old promo"
	seedStore(t, path, readyRecord("2025-12-01", "one"), done)

	enh := &fakeEnhancer{malformed: map[string]bool{"2025-12-01": true}}
	out, err := Enhance(context.Background(), rt, EnhanceInput{StorePath: path, Enhancer: enh, Force: true, Delay: -1})
	require.NoError(t, err)

	assert.Equal(t, []string{"2025-12-02"}, out.Enhanced)
	assert.Equal(t, []string{"2025-12-01"}, out.Failed)
	s := loadStore(t, path)
	assert.Equal(t, "Happy Holiday 2025-12-02", s.HolidaysByDate["2025-12-02"].HolidayText)
	assert.Empty(t, s.HolidaysByDate["2025-12-01"].HolidayText)
}

func TestEnhance_StopsWhenSleepCancelled(t *testing.T) {
	rt, _, _ := newRuntime(t)
	rt.Sleep = func(context.Context, time.Duration) error { return context.Canceled }
	path := storePath(t)
	seedStore(t, path, readyRecord("2025-12-01", "one"), readyRecord("2025-12-02", "two"))

	out, err := Enhance(context.Background(), rt, EnhanceInput{StorePath: path, Enhancer: &fakeEnhancer{}})
	require.Error(t, err)
	assert.Equal(t, []string{"2025-12-01"}, out.Enhanced)
	// The first record was saved before the interruption.
	first := loadStore(t, path).HolidaysByDate["2025-12-01"]
	assert.True(t, first.Enhanced())
}

func TestBrandVideos(t *testing.T) {
	rt, _, _ := newRuntime(t)
	path := storePath(t)
	enhanced := readyRecord("2025-12-01", "one")
	enhanced.HolidayText = "Happy Giving Tuesday"
	enhanced.Catchphrase = "Give yourself a Pensacola getaway"
	failing := readyRecord("2025-12-03", "three")
	failing.HolidayText = "Hello"
	failing.Catchphrase = "World"
	seedStore(t, path, enhanced, readyRecord("2025-12-02", "two"), failing)

	dir := t.TempDir()
	for _, name := range []string{"0112.mp4", "0212.mp4", "0312.mp4", "final_0112.mp4", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	brander := &fakeBrander{fail: map[string]bool{"2025-12-03": true}}
	out, err := BrandVideos(context.Background(), rt, BrandVideosInput{StorePath: path, VideoDir: dir, Year: 2025, Brander: brander})
	require.NoError(t, err)

	require.Len(t, out.Branded, 1)
	assert.Equal(t, "2025-12-01", out.Branded[0].Date)
	assert.Equal(t, []string{"0212.mp4"}, out.Unmatched)
	assert.Equal(t, []string{"0312.mp4"}, out.Failed)

	require.Len(t, brander.calls, 2)
	call := brander.calls[0]
	assert.Equal(t, filepath.Join(dir, "0112.mp4"), call.input)
	assert.Equal(t, "Holiday 2025-12-01", call.label)
	assert.Equal(t, "Happy Giving Tuesday", call.text)
	assert.Equal(t, "Give yourself a Pensacola getaway", call.promo)
}

func TestBrandVideos_MissingDir(t *testing.T) {
	rt, _, _ := newRuntime(t)
	_, err := BrandVideos(context.Background(), rt, BrandVideosInput{
		StorePath: storePath(t),
		VideoDir:  filepath.Join(t.TempDir(), "nope"),
		Brander:   &fakeBrander{},
	})
	if !errors.Is(err, errors.ErrSetup) {
		t.Errorf("error = %v, want SETUP_ERROR", err)
	}
}

func TestScrapeEvents_WritesDocument(t *testing.T) {
	rt, database, _ := newRuntime(t)
	sc := &fakeScraper{events: []scraper.Event{
		{Title: "Gallery Night", Date: "2025-12-01", Location: "downtown", Link: "https://events.test/gallery"},
	}}
	output := filepath.Join(t.TempDir(), "events.json")

	out, err := ScrapeEvents(context.Background(), rt, ScrapeEventsInput{Scraper: sc, From: "2025-12-01", Days: 3, Output: output})
	require.NoError(t, err)

	assert.Equal(t, []string{"2025-12-01..2025-12-03"}, sc.dates)
	assert.Equal(t, output, out.Path)
	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"title": "Gallery Night"`)

	runs, err := db.ListRuns(database, 1)
	require.NoError(t, err)
	assert.Equal(t, "scrape", runs[0].Command)
	assert.Equal(t, 1, runs[0].Processed)
}

func TestScrapeEvents_Errors(t *testing.T) {
	rt, _, _ := newRuntime(t)

	_, err := ScrapeEvents(context.Background(), rt, ScrapeEventsInput{Scraper: &fakeScraper{}, Output: "events.txt"})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("error = %v, want INVALID_REQUEST", err)
	}

	upstream := errors.NewNetwork("event_site", fmt.Errorf("connection refused"))
	_, err = ScrapeEvents(context.Background(), rt, ScrapeEventsInput{Scraper: &fakeScraper{err: upstream}})
	if !errors.Is(err, errors.ErrNetwork) {
		t.Errorf("error = %v, want NETWORK_ERROR", err)
	}
}
