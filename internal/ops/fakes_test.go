package ops

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/micasa/marketer/internal/content"
	"github.com/micasa/marketer/internal/db"
	"github.com/micasa/marketer/internal/holiday"
	"github.com/micasa/marketer/internal/imagegen"
	"github.com/micasa/marketer/internal/publisher"
	"github.com/micasa/marketer/internal/scraper"
	"github.com/micasa/marketer/internal/store"
	"github.com/micasa/marketer/internal/testutil"
)

var t0 = time.Date(2025, 11, 30, 12, 0, 0, 0, time.UTC)

func newRuntime(t *testing.T) (*Runtime, *sql.DB, *testutil.MockLogger) {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	logger := &testutil.MockLogger{}
	return &Runtime{
		DB:     database,
		Logger: logger,
		Now:    func() time.Time { return t0 },
		Sleep:  func(context.Context, time.Duration) error { return nil },
	}, database, logger
}

func storePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "holiday_output.json")
}

func item(date, name string) holiday.SourceItem {
	return holiday.SourceItem{Name: name, Date: date, Country: "US", Type: "Observance"}
}

// readyRecord is a content-ready record with both image paths set.
func readyRecord(date, caption string) holiday.DateRecord {
	c := &holiday.Content{SelectedLabel: "Holiday " + date, ToneCategory: "Festive", Caption: caption, ImagePrompt: "prompt " + date}
	return holiday.NewRecord(date, []holiday.SourceItem{item(date, "Holiday "+date)}, c,
		holiday.StrPtr("/img/"+date+"_bg.png"), holiday.StrPtr("/img/"+date+"_final.png"), t0)
}

func seedStore(t *testing.T, path string, records ...holiday.DateRecord) {
	t.Helper()
	s := holiday.NewStore()
	for _, r := range records {
		store.Put(s, r, t0)
	}
	if err := store.Save(s, path); err != nil {
		t.Fatalf("store.Save failed: %v", err)
	}
}

func loadStore(t *testing.T, path string) *holiday.Store {
	t.Helper()
	s, err := store.Load(path, store.LoadOptions{})
	if err != nil {
		t.Fatalf("store.Load failed: %v", err)
	}
	return s
}

type fakeSource struct {
	items []holiday.SourceItem
	err   error
}

func (f fakeSource) Name() string { return "fake" }

func (f fakeSource) Fetch(context.Context) ([]holiday.SourceItem, error) {
	return f.items, f.err
}

// fakeGenerator captions every date as "Caption for <date>". Dates listed in
// malformed get a Malformed result, fail get an error, and panicOn panics to
// simulate a crash mid-run.
type fakeGenerator struct {
	malformed map[string]bool
	fail      map[string]bool
	noPrompt  map[string]bool
	panicOn   string
	caption   string
	calls     []string
}

func (g *fakeGenerator) Generate(_ context.Context, items []holiday.SourceItem) (content.Result, error) {
	date := items[0].Date
	g.calls = append(g.calls, date)
	switch {
	case date == g.panicOn:
		panic("process killed while generating " + date)
	case g.fail[date]:
		return nil, fmt.Errorf("NETWORK_ERROR: openai unreachable")
	case g.malformed[date]:
		return content.Malformed{Raw: "Sorry, I can't help with that."}, nil
	}
	caption := "Caption for " + date
	if g.caption != "" {
		caption = g.caption + " " + date
	}
	c := holiday.Content{SelectedLabel: items[0].Name, ToneCategory: content.ToneFestive, Caption: caption, ImagePrompt: "A festive scene for " + date}
	if g.noPrompt[date] {
		c.ImagePrompt = ""
	}
	return content.Parsed{Content: c}, nil
}

type fakeAssets struct {
	dir     string
	fail    map[string]bool
	animate bool
	calls   []string
}

func (a *fakeAssets) Produce(_ context.Context, date, _ string) (imagegen.Paths, error) {
	a.calls = append(a.calls, date)
	bg := filepath.Join(a.dir, imagegen.BackgroundName(date))
	if a.fail[date] {
		return imagegen.Paths{Background: &bg}, fmt.Errorf("watermark %s: unsupported image format", date)
	}
	final := filepath.Join(a.dir, imagegen.FinalName(date))
	paths := imagegen.Paths{Background: &bg, Final: &final}
	if a.animate {
		clip := filepath.Join(a.dir, imagegen.AnimationName(date))
		paths.Animation = &clip
	}
	return paths, nil
}

type fakeEnhancer struct {
	malformed map[string]bool
	calls     []string
}

func (e *fakeEnhancer) Enhance(_ context.Context, r holiday.DateRecord) (content.Result, error) {
	e.calls = append(e.calls, r.Date)
	if e.malformed[r.Date] {
		return content.Malformed{Raw: "{}"}, nil
	}
	return content.Enhanced{HolidayText: "Happy " + content.Label(r), Catchphrase: "Your home away from home in Pensacola"}, nil
}

type fakeScraper struct {
	events []scraper.Event
	err    error
	dates  []string
}

func (f *fakeScraper) EventsForDate(_ context.Context, date string) ([]scraper.Event, []string, error) {
	f.dates = append(f.dates, date)
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.events, []string{"https://events.test/?date=" + date}, nil
}

func (f *fakeScraper) EventsForRange(_ context.Context, from, to string) (*scraper.Document, error) {
	f.dates = append(f.dates, from+".."+to)
	if f.err != nil {
		return nil, f.err
	}
	return &scraper.Document{
		Metadata: scraper.Metadata{SearchDate: from, EndDate: to, TotalEvents: len(f.events)},
		Events:   f.events,
	}, nil
}

type fakeWriter struct {
	got []scraper.Event
}

func (w *fakeWriter) Write(_ context.Context, date string, events []scraper.Event) content.EventPosts {
	w.got = events
	if len(events) == 0 {
		return content.FallbackEventPosts(date, "https://events.test/")
	}
	return content.EventPosts{
		Long:  fmt.Sprintf("%d things to do on %s", len(events), content.DayHeading(date)),
		Short: "Busy day in Pensacola",
	}
}

type fakeFacts struct {
	fact     string
	fallback bool
}

func (f fakeFacts) Write(context.Context) (string, bool) { return f.fact, f.fallback }

type fakePublisher struct {
	media     *publisher.MediaRef
	selectErr error
	uploadErr error
	fail      bool

	uploaded []string
	posts    []publisher.PostRequest
}

func (p *fakePublisher) SelectMedia(context.Context) (*publisher.MediaRef, error) {
	return p.media, p.selectErr
}

func (p *fakePublisher) UploadMedia(_ context.Context, path string) (*publisher.MediaRef, error) {
	if p.uploadErr != nil {
		return nil, p.uploadErr
	}
	p.uploaded = append(p.uploaded, path)
	return &publisher.MediaRef{ID: "upload-1", Name: filepath.Base(path), Type: "photo"}, nil
}

func (p *fakePublisher) Post(_ context.Context, req publisher.PostRequest) publisher.PostResult {
	p.posts = append(p.posts, req)
	if p.fail {
		return publisher.PostResult{JobID: "job-x", Error: "TIMEOUT: timed out waiting for publer job job-x"}
	}
	return publisher.PostResult{Success: true, JobID: fmt.Sprintf("job-%d", len(p.posts)), PostID: fmt.Sprintf("post-%d", len(p.posts))}
}

type brandCall struct {
	input, date, label, text, promo string
}

type fakeBrander struct {
	fail  map[string]bool
	calls []brandCall
}

func (b *fakeBrander) Brand(_ context.Context, input, date, label, text, promo string) (string, error) {
	b.calls = append(b.calls, brandCall{input, date, label, text, promo})
	if b.fail[date] {
		return "", fmt.Errorf("ffmpeg %s: exit status 1", filepath.Base(input))
	}
	return filepath.Join("/out", "branded_"+holiday.SafeDate(date)+".mp4"), nil
}
