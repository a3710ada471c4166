package db

import (
	"database/sql"
	"testing"

	"github.com/micasa/marketer/internal/errors"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewID_Unique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewID()
		if len(id) != 26 {
			t.Fatalf("NewID() = %q, want 26 chars", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestInsertAndFinishRun(t *testing.T) {
	db := openTestDB(t)

	r := &Run{Command: "generate"}
	if err := InsertRun(db, r); err != nil {
		t.Fatalf("InsertRun failed: %v", err)
	}
	if r.ID == "" || r.StartedAt == 0 {
		t.Fatalf("InsertRun did not fill ID/StartedAt: %+v", r)
	}
	if r.Status != RunRunning {
		t.Errorf("Status = %q, want %q", r.Status, RunRunning)
	}

	r.Status = RunCompleted
	r.Processed = 3
	r.Failed = 1
	r.Skipped = 2
	r.Detail = "2025-12-01..2026-02-14"
	if err := FinishRun(db, r); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}
	if r.FinishedAt == nil {
		t.Error("FinishedAt not set")
	}

	runs, err := ListRuns(db, 10)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("len(runs) = %d, want 1", len(runs))
	}
	got := runs[0]
	if got.Status != RunCompleted || got.Processed != 3 || got.Failed != 1 || got.Skipped != 2 {
		t.Errorf("run = %+v", got)
	}
	if got.Detail != "2025-12-01..2026-02-14" {
		t.Errorf("Detail = %q", got.Detail)
	}
	if got.FinishedAt == nil {
		t.Error("FinishedAt not persisted")
	}
}

func TestFinishRun_NotFound(t *testing.T) {
	db := openTestDB(t)

	err := FinishRun(db, &Run{ID: "missing", Status: RunFailed})
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("FinishRun() error = %v, want NOT_FOUND", err)
	}
}

func TestListRuns_NewestFirstAndLimit(t *testing.T) {
	db := openTestDB(t)

	for i, cmd := range []string{"generate", "enhance", "publish"} {
		r := &Run{Command: cmd, StartedAt: int64(1000 + i)}
		if err := InsertRun(db, r); err != nil {
			t.Fatalf("InsertRun failed: %v", err)
		}
	}

	runs, err := ListRuns(db, 2)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len(runs) = %d, want 2", len(runs))
	}
	if runs[0].Command != "publish" || runs[1].Command != "enhance" {
		t.Errorf("order = %s, %s", runs[0].Command, runs[1].Command)
	}
	if runs[0].FinishedAt != nil {
		t.Error("unfinished run should have nil FinishedAt")
	}
}

func TestListRuns_Empty(t *testing.T) {
	db := openTestDB(t)

	runs, err := ListRuns(db, 0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if runs == nil || len(runs) != 0 {
		t.Errorf("runs = %v, want empty non-nil slice", runs)
	}
}

func TestInsertAndListPosts(t *testing.T) {
	db := openTestDB(t)

	posts := []*Post{
		{Kind: "events", Date: "2025-09-21", Platforms: []string{"facebook", "instagram"}, Text: "long", JobID: "job-1", Status: PostSent, CreatedAt: 100},
		{Kind: "fact", Platforms: []string{"facebook"}, Text: "fact", Status: PostFailed, Error: "TIMEOUT: publer job", CreatedAt: 200},
		{Kind: "events", Date: "2025-09-22", Platforms: []string{}, Text: "short", Status: PostDryRun, CreatedAt: 300},
	}
	for _, p := range posts {
		if err := InsertPost(db, p); err != nil {
			t.Fatalf("InsertPost failed: %v", err)
		}
	}

	all, err := ListPosts(db, PostFilter{})
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len(all) = %d, want 3", len(all))
	}
	if all[0].Text != "short" {
		t.Errorf("newest first: got %q", all[0].Text)
	}
	if len(all[0].Platforms) != 0 {
		t.Errorf("Platforms = %v, want empty", all[0].Platforms)
	}
	if all[1].Error != "TIMEOUT: publer job" || all[1].Date != "" {
		t.Errorf("fact post = %+v", all[1])
	}
	if len(all[2].Platforms) != 2 || all[2].Platforms[1] != "instagram" {
		t.Errorf("Platforms = %v", all[2].Platforms)
	}

	events, err := ListPosts(db, PostFilter{Kind: "events"})
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("len(events) = %d, want 2", len(events))
	}

	byDate, err := ListPosts(db, PostFilter{Date: "2025-09-21"})
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(byDate) != 1 || byDate[0].JobID != "job-1" {
		t.Errorf("byDate = %+v", byDate)
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultListLimit},
		{-5, DefaultListLimit},
		{7, 7},
		{10000, MaxListLimit},
	}
	for _, tt := range tests {
		if got := clampLimit(tt.in); got != tt.want {
			t.Errorf("clampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
