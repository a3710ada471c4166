package ops

import (
	"database/sql"

	"github.com/micasa/marketer/internal/db"
	"github.com/micasa/marketer/internal/errors"
	"github.com/micasa/marketer/internal/store"
)

// StatusInput contains parameters for the Status operation.
type StatusInput struct {
	StorePath  string          // required
	Keys       map[string]bool // credential presence, from config.KeyStatus
	RecentRuns int             // default: 5
}

// StoreCounts summarizes the store.
type StoreCounts struct {
	TotalDates  int     `json:"total_dates"`
	Ready       int     `json:"ready"`
	Pending     int     `json:"pending"`
	Enhanced    int     `json:"enhanced"`
	GeneratedAt *string `json:"generated_at"`
	FirstDate   string  `json:"first_date,omitempty"`
	LastDate    string  `json:"last_date,omitempty"`
}

// StatusOutput contains the result of the Status operation.
type StatusOutput struct {
	Keys       map[string]bool `json:"keys"`
	StorePath  string          `json:"store_path"`
	Store      StoreCounts     `json:"store"`
	RecentRuns []db.Run        `json:"recent_runs"`
}

// Status reports credential presence, store counts and the latest runs. A
// corrupt store is reported as an error rather than as an empty one.
func Status(rt *Runtime, input StatusInput) (*StatusOutput, error) {
	if err := requirePath("store path", input.StorePath); err != nil {
		return nil, err
	}
	s, err := store.Load(input.StorePath, store.LoadOptions{})
	if err != nil {
		return nil, err
	}

	out := &StatusOutput{
		Keys:       input.Keys,
		StorePath:  input.StorePath,
		RecentRuns: []db.Run{},
	}
	if out.Keys == nil {
		out.Keys = map[string]bool{}
	}
	out.Store.TotalDates = len(s.HolidaysByDate)
	out.Store.GeneratedAt = s.GeneratedAt
	dates := s.SortedDates()
	if len(dates) > 0 {
		out.Store.FirstDate = dates[0]
		out.Store.LastDate = dates[len(dates)-1]
	}
	for _, r := range s.HolidaysByDate {
		if r.ContentReady {
			out.Store.Ready++
		} else {
			out.Store.Pending++
		}
		if r.Enhanced() {
			out.Store.Enhanced++
		}
	}

	if d := rt.database(); d != nil {
		limit := input.RecentRuns
		if limit <= 0 {
			limit = 5
		}
		runs, err := db.ListRuns(d, limit)
		if err != nil {
			return nil, err
		}
		out.RecentRuns = runs
	}
	return out, nil
}

// RunHistoryInput contains parameters for the RunHistory operation.
type RunHistoryInput struct {
	Limit int // default: 20, max: 500
}

// RunHistoryOutput contains the result of the RunHistory operation.
type RunHistoryOutput struct {
	Runs []db.Run `json:"runs"`
}

// RunHistory returns the most recent batch runs.
func RunHistory(database *sql.DB, input RunHistoryInput) (*RunHistoryOutput, error) {
	if database == nil {
		return nil, errors.NewSetup("history database is not open")
	}
	runs, err := db.ListRuns(database, input.Limit)
	if err != nil {
		return nil, err
	}
	return &RunHistoryOutput{Runs: runs}, nil
}

// PostHistoryInput contains parameters for the PostHistory operation.
type PostHistoryInput struct {
	Kind  string // events, fact, date, video; empty for all
	Date  string // optional YYYY-MM-DD
	Limit int    // default: 20, max: 500
}

// PostHistoryOutput contains the result of the PostHistory operation.
type PostHistoryOutput struct {
	Posts []db.Post `json:"posts"`
}

// PostHistory returns the most recent publish attempts.
func PostHistory(database *sql.DB, input PostHistoryInput) (*PostHistoryOutput, error) {
	if database == nil {
		return nil, errors.NewSetup("history database is not open")
	}
	switch input.Kind {
	case "", KindEvents, KindFact, KindDate, KindVideo:
	default:
		return nil, errors.NewInvalidRequest("kind must be events, fact, date or video")
	}
	if input.Date != "" {
		if err := validateDate("date", input.Date); err != nil {
			return nil, err
		}
	}
	posts, err := db.ListPosts(database, db.PostFilter{Kind: input.Kind, Date: input.Date, Limit: input.Limit})
	if err != nil {
		return nil, err
	}
	return &PostHistoryOutput{Posts: posts}, nil
}
