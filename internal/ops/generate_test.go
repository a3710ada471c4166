package ops

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/micasa/marketer/internal/collector"
	"github.com/micasa/marketer/internal/db"
	"github.com/micasa/marketer/internal/errors"
	"github.com/micasa/marketer/internal/holiday"
	"github.com/micasa/marketer/internal/store"
)

func decemberItems() []holiday.SourceItem {
	return []holiday.SourceItem{
		item("2025-12-01", "Giving Tuesday"),
		item("2025-12-02", "National Fritters Day"),
		item("2025-12-02", "International Day for the Abolition of Slavery"),
		item("2025-12-03", "Day of Persons with Disabilities"),
		item("2026-03-01", "Out of range"),
		item("", "No date"),
	}
}

func generateInput(t *testing.T, path string, gen *fakeGenerator, assets *fakeAssets) GenerateInput {
	t.Helper()
	in := GenerateInput{
		StorePath:    path,
		Sources:      []collector.Source{fakeSource{items: decemberItems()}},
		Generator:    gen,
		StartDate:    "2025-12-01",
		DaysAhead:    intPtr(5),
		SkipExisting: true,
	}
	// A typed nil would make the interface non-nil.
	if assets != nil {
		in.Assets = assets
	}
	return in
}

func TestGenerate_HappyPath(t *testing.T) {
	rt, database, _ := newRuntime(t)
	path := storePath(t)
	gen := &fakeGenerator{}
	assets := &fakeAssets{dir: t.TempDir()}

	out, err := Generate(context.Background(), rt, generateInput(t, path, gen, assets))
	require.NoError(t, err)

	assert.Equal(t, []string{"2025-12-01", "2025-12-02", "2025-12-03"}, out.Ready)
	assert.Empty(t, out.NotReady)
	assert.Equal(t, 6, out.Collected)
	assert.Equal(t, 3, out.Dates)
	assert.Equal(t, 3, out.Merge.Added)
	assert.Equal(t, "2025-12-06", out.EndDate)

	s := loadStore(t, path)
	require.Len(t, s.HolidaysByDate, 3)
	r := s.HolidaysByDate["2025-12-02"]
	assert.True(t, r.ContentReady)
	assert.Len(t, r.SourceItems, 2)
	assert.Equal(t, "National Fritters Day", r.SelectedLabel)
	require.NotNil(t, r.FinalImagePath)
	assert.Contains(t, *r.FinalImagePath, "holiday_2025_12_02_background_with_text.png")

	runs, err := db.ListRuns(database, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "generate", runs[0].Command)
	assert.Equal(t, db.RunCompleted, runs[0].Status)
	assert.Equal(t, 3, runs[0].Processed)
	assert.Equal(t, out.RunID, runs[0].ID)
}

func TestGenerate_FailuresRecordedNotReady(t *testing.T) {
	rt, database, logger := newRuntime(t)
	path := storePath(t)
	gen := &fakeGenerator{
		malformed: map[string]bool{"2025-12-01": true},
		fail:      map[string]bool{"2025-12-02": true},
	}
	assets := &fakeAssets{dir: t.TempDir(), fail: map[string]bool{"2025-12-03": true}}

	out, err := Generate(context.Background(), rt, generateInput(t, path, gen, assets))
	require.NoError(t, err)
	assert.Empty(t, out.Ready)
	assert.Equal(t, []string{"2025-12-01", "2025-12-02", "2025-12-03"}, out.NotReady)

	s := loadStore(t, path)
	require.Len(t, s.HolidaysByDate, 3, "failed dates must still be recorded")
	for date, r := range s.HolidaysByDate {
		assert.False(t, r.ContentReady, date)
	}
	// Image failure keeps the caption and the background but no final image.
	r := s.HolidaysByDate["2025-12-03"]
	assert.NotEmpty(t, r.Caption)
	assert.NotNil(t, r.BackgroundImagePath)
	assert.Nil(t, r.FinalImagePath)
	// Only the date with a prompt reached the asset step.
	assert.Equal(t, []string{"2025-12-03"}, assets.calls)

	assert.True(t, logger.Contains("warn", "unusable generator reply"))
	assert.True(t, logger.Contains("error", "content generation failed"))

	runs, err := db.ListRuns(database, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, runs[0].Failed)
}

func TestGenerate_NoImagePromptSkipsAssets(t *testing.T) {
	rt, _, _ := newRuntime(t)
	path := storePath(t)
	gen := &fakeGenerator{noPrompt: map[string]bool{"2025-12-01": true}}
	assets := &fakeAssets{dir: t.TempDir()}

	out, err := Generate(context.Background(), rt, generateInput(t, path, gen, assets))
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-12-01"}, out.NotReady)
	assert.NotContains(t, assets.calls, "2025-12-01")
}

func TestGenerate_SkipExistingKeepsReadyDates(t *testing.T) {
	rt, _, _ := newRuntime(t)
	path := storePath(t)
	assets := &fakeAssets{dir: t.TempDir()}

	first := &fakeGenerator{fail: map[string]bool{"2025-12-03": true}}
	_, err := Generate(context.Background(), rt, generateInput(t, path, first, assets))
	require.NoError(t, err)
	before := loadStore(t, path).HolidaysByDate["2025-12-01"]

	second := &fakeGenerator{caption: "Second run"}
	out, err := Generate(context.Background(), rt, generateInput(t, path, second, assets))
	require.NoError(t, err)

	assert.Equal(t, []string{"2025-12-01", "2025-12-02"}, out.Skipped)
	assert.Equal(t, []string{"2025-12-03"}, second.calls, "only the failed date is retried")

	s := loadStore(t, path)
	assert.Equal(t, before, s.HolidaysByDate["2025-12-01"])
	assert.Equal(t, "Second run 2025-12-03", s.HolidaysByDate["2025-12-03"].Caption)
	assert.True(t, s.HolidaysByDate["2025-12-03"].ContentReady)
}

func TestGenerate_NoSkipExistingRefreshesEverything(t *testing.T) {
	rt, _, _ := newRuntime(t)
	path := storePath(t)
	assets := &fakeAssets{dir: t.TempDir()}

	_, err := Generate(context.Background(), rt, generateInput(t, path, &fakeGenerator{}, assets))
	require.NoError(t, err)

	second := &fakeGenerator{caption: "Refreshed"}
	in := generateInput(t, path, second, assets)
	in.SkipExisting = false
	out, err := Generate(context.Background(), rt, in)
	require.NoError(t, err)

	assert.Empty(t, out.Skipped)
	assert.Equal(t, 3, out.Merge.Replaced)
	s := loadStore(t, path)
	for date, r := range s.HolidaysByDate {
		assert.Equal(t, "Refreshed "+date, r.Caption)
	}
}

func TestGenerate_KeepsDatesOutsideTheBatch(t *testing.T) {
	rt, _, _ := newRuntime(t)
	path := storePath(t)
	old := readyRecord("2025-11-01", "November caption")
	seedStore(t, path, old)

	_, err := Generate(context.Background(), rt, generateInput(t, path, &fakeGenerator{}, &fakeAssets{dir: t.TempDir()}))
	require.NoError(t, err)

	s := loadStore(t, path)
	assert.Len(t, s.HolidaysByDate, 4)
	assert.Equal(t, "November caption", s.HolidaysByDate["2025-11-01"].Caption)
}

// A crash while processing one date leaves every earlier date saved and ready.
func TestGenerate_CrashKeepsCompletedDates(t *testing.T) {
	rt, _, _ := newRuntime(t)
	path := storePath(t)
	gen := &fakeGenerator{panicOn: "2025-12-02"}

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Fatal("expected the generator to panic")
			}
		}()
		_, _ = Generate(context.Background(), rt, generateInput(t, path, gen, &fakeAssets{dir: t.TempDir()}))
	}()

	s := loadStore(t, path)
	r, ok := s.HolidaysByDate["2025-12-01"]
	require.True(t, ok)
	assert.True(t, r.ContentReady)
	_, ok = s.HolidaysByDate["2025-12-02"]
	assert.False(t, ok)
	assert.Equal(t, 1, s.TotalDates)
}

func TestGenerate_CorruptStoreFailsFast(t *testing.T) {
	rt, _, _ := newRuntime(t)
	path := storePath(t)
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	gen := &fakeGenerator{}
	_, err := Generate(context.Background(), rt, generateInput(t, path, gen, &fakeAssets{dir: t.TempDir()}))
	if !errors.Is(err, errors.ErrDataCorruption) {
		t.Fatalf("Generate() error = %v, want DATA_CORRUPTION", err)
	}
	if len(gen.calls) != 0 {
		t.Errorf("generator called %d times before the store was readable", len(gen.calls))
	}

	in := generateInput(t, path, gen, &fakeAssets{dir: t.TempDir()})
	in.ResetCorrupt = true
	out, err := Generate(context.Background(), rt, in)
	require.NoError(t, err)
	assert.Len(t, out.Ready, 3)
}

func TestGenerate_SetupErrorAborts(t *testing.T) {
	rt, database, _ := newRuntime(t)
	in := generateInput(t, storePath(t), &fakeGenerator{}, nil)
	in.Sources = []collector.Source{collector.FileSource{Path: "/nonexistent/holidays.json"}}

	_, err := Generate(context.Background(), rt, in)
	if !errors.Is(err, errors.ErrSetup) {
		t.Fatalf("Generate() error = %v, want SETUP_ERROR", err)
	}
	runs, err := db.ListRuns(database, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, db.RunFailed, runs[0].Status)
}

func TestGenerate_NoAssetsLeavesPending(t *testing.T) {
	rt, _, logger := newRuntime(t)
	path := storePath(t)

	out, err := Generate(context.Background(), rt, generateInput(t, path, &fakeGenerator{}, nil))
	require.NoError(t, err)
	assert.Len(t, out.NotReady, 3)
	assert.True(t, logger.Contains("warn", "no image backend configured"))
}

func intPtr(n int) *int { return &n }

func TestGenerate_ZeroDaysKeepsStartDateOnly(t *testing.T) {
	rt, _, _ := newRuntime(t)
	in := generateInput(t, storePath(t), &fakeGenerator{}, &fakeAssets{dir: t.TempDir()})
	in.DaysAhead = intPtr(0)

	out, err := Generate(context.Background(), rt, in)
	require.NoError(t, err)
	assert.Equal(t, "2025-12-01", out.EndDate)
	assert.Equal(t, []string{"2025-12-01"}, out.Ready)
	assert.Equal(t, 1, out.Dates)
}

func TestGenerate_DefaultWindow(t *testing.T) {
	rt, _, _ := newRuntime(t)
	in := generateInput(t, storePath(t), &fakeGenerator{}, &fakeAssets{dir: t.TempDir()})
	in.DaysAhead = nil

	out, err := Generate(context.Background(), rt, in)
	require.NoError(t, err)
	assert.Equal(t, "2026-02-14", out.EndDate)
	assert.Equal(t, []string{"2025-12-01", "2025-12-02", "2025-12-03"}, out.Ready)
}

func TestGenerate_RecordsAnimation(t *testing.T) {
	rt, _, _ := newRuntime(t)
	path := storePath(t)
	assets := &fakeAssets{dir: t.TempDir(), animate: true}

	_, err := Generate(context.Background(), rt, generateInput(t, path, &fakeGenerator{}, assets))
	require.NoError(t, err)

	s, err := store.Load(path, store.LoadOptions{})
	require.NoError(t, err)
	r := s.HolidaysByDate["2025-12-01"]
	require.NotNil(t, r.AnimationPath)
	assert.Equal(t, filepath.Join(assets.dir, "holiday_2025_12_01_animated.mp4"), *r.AnimationPath)
	assert.True(t, r.ContentReady)
}

func TestGenerate_InvalidInput(t *testing.T) {
	rt, _, _ := newRuntime(t)

	tests := []struct {
		name string
		in   GenerateInput
		code errors.ErrorCode
	}{
		{"missing store path", GenerateInput{Generator: &fakeGenerator{}}, errors.ErrInvalidRequest},
		{"missing generator", GenerateInput{StorePath: "out.json"}, errors.ErrSetup},
		{"bad start date", GenerateInput{StorePath: "out.json", Generator: &fakeGenerator{}, StartDate: "12/01/2025"}, errors.ErrInvalidRequest},
		{"negative days ahead", GenerateInput{StorePath: "out.json", Generator: &fakeGenerator{}, DaysAhead: intPtr(-1)}, errors.ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Generate(context.Background(), rt, tt.in)
			if !errors.Is(err, tt.code) {
				t.Errorf("Generate() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestGenerate_CancelledContext(t *testing.T) {
	rt, _, _ := newRuntime(t)
	path := storePath(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := &fakeGenerator{}
	_, err := Generate(ctx, rt, generateInput(t, path, gen, &fakeAssets{dir: t.TempDir()}))
	require.Error(t, err)
	assert.Empty(t, gen.calls)
}
