// Package poll waits on asynchronous upstream jobs with a fixed interval and a
// bounded total wait.
package poll

import (
	"context"
	"time"
)

// Outcome is how a bounded wait ended.
type Outcome int

const (
	// Pending is only returned by a Check to ask for another round.
	Pending Outcome = iota
	Completed
	Failed
	TimedOut
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case TimedOut:
		return "timed_out"
	default:
		return "pending"
	}
}

// Options bounds a wait.
type Options struct {
	Interval time.Duration
	Timeout  time.Duration
	// Sleep is used between checks; tests replace it. Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// Now defaults to time.Now.
	Now func() time.Time
}

// Check inspects the job once. A non-nil error aborts the wait immediately.
type Check func(ctx context.Context) (Outcome, error)

// Until calls check right away and then every Interval until it reports
// Completed or Failed, or until Timeout has elapsed. Running out of time is
// reported as TimedOut, never as Failed.
func Until(ctx context.Context, opts Options, check Check) (Outcome, error) {
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	deadline := now().Add(opts.Timeout)

	for {
		out, err := check(ctx)
		if err != nil {
			return Failed, err
		}
		if out == Completed || out == Failed {
			return out, nil
		}

		remaining := deadline.Sub(now())
		if remaining <= 0 {
			return TimedOut, nil
		}
		wait := opts.Interval
		if wait > remaining {
			wait = remaining
		}
		if err := sleep(ctx, wait); err != nil {
			return Failed, err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
