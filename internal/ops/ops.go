package ops

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/micasa/marketer/internal/db"
	"github.com/micasa/marketer/internal/errors"
	"github.com/micasa/marketer/internal/holiday"
	"github.com/micasa/marketer/internal/logging"
	"github.com/micasa/marketer/internal/metrics"
)

// Pagination limits
const (
	DefaultListLimit = 50
	MaxListLimit     = 400
)

// Date filters for ListDates.
const (
	FilterAll     = "all"
	FilterReady   = "ready"
	FilterPending = "pending"
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// Runtime carries what every operation shares: the history database, logging,
// metrics and the clock. A nil DB disables run and post history.
type Runtime struct {
	DB      *sql.DB
	Logger  logging.Logger
	Metrics metrics.Recorder
	Now     func() time.Time
	// Sleep waits between upstream calls in batch operations.
	Sleep func(ctx context.Context, d time.Duration) error
}

func (rt *Runtime) log() logging.Logger {
	if rt == nil || rt.Logger == nil {
		return logging.Nop()
	}
	return rt.Logger
}

func (rt *Runtime) metrics() metrics.Recorder {
	if rt == nil || rt.Metrics == nil {
		return metrics.Nop()
	}
	return rt.Metrics
}

func (rt *Runtime) now() time.Time {
	if rt == nil || rt.Now == nil {
		return time.Now()
	}
	return rt.Now()
}

func (rt *Runtime) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	if rt != nil && rt.Sleep != nil {
		return rt.Sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (rt *Runtime) database() *sql.DB {
	if rt == nil {
		return nil
	}
	return rt.DB
}

// RunCounts are the per-unit tallies of a batch operation.
type RunCounts struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// startRun records a running batch. History is best effort: a failing insert
// is logged and the returned run is still usable.
func (rt *Runtime) startRun(command, detail string) *db.Run {
	run := &db.Run{Command: command, Detail: detail, StartedAt: rt.now().Unix()}
	if d := rt.database(); d != nil {
		if err := db.InsertRun(d, run); err != nil {
			rt.log().Warnf(logging.TypeApp, "failed to record %s run: %v", command, err)
			run.ID = ""
		}
	}
	return run
}

func (rt *Runtime) finishRun(run *db.Run, counts RunCounts, err error) {
	run.Processed = counts.Processed
	run.Failed = counts.Failed
	run.Skipped = counts.Skipped
	run.Status = db.RunCompleted
	if err != nil {
		run.Status = db.RunFailed
		run.Detail = strings.TrimSpace(run.Detail + " " + err.Error())
	}
	d := rt.database()
	if d == nil || run.ID == "" {
		return
	}
	if ferr := db.FinishRun(d, run); ferr != nil {
		rt.log().Warnf(logging.TypeApp, "failed to finish %s run %s: %v", run.Command, run.ID, ferr)
	}
}

func (rt *Runtime) recordPost(p *db.Post) {
	if p.CreatedAt == 0 {
		p.CreatedAt = rt.now().Unix()
	}
	d := rt.database()
	if d == nil {
		return
	}
	if err := db.InsertPost(d, p); err != nil {
		rt.log().Warnf(logging.TypePublish, "failed to record %s post: %v", p.Kind, err)
	}
}

// validateDate returns INVALID_REQUEST unless date is a YYYY-MM-DD day.
func validateDate(field, date string) error {
	if _, err := holiday.ParseDate(date); err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("%s must be YYYY-MM-DD, got %q", field, date))
	}
	return nil
}

func requirePath(field, path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.NewInvalidRequest(field + " is required")
	}
	return nil
}

// interrupted wraps a context error so batch commands report where they stopped.
func interrupted(op, date string, err error) error {
	return errors.NewInternal(fmt.Errorf("%s interrupted before %s: %w", op, date, err))
}
