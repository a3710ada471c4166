package db

import (
	"crypto/rand"
	"database/sql"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/micasa/marketer/internal/errors"
)

// Run statuses.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// Post statuses.
const (
	PostSent   = "sent"
	PostFailed = "failed"
	PostDryRun = "dry_run"
)

// DefaultListLimit applies when a list call passes limit <= 0.
const DefaultListLimit = 20

// MaxListLimit caps list calls.
const MaxListLimit = 500

// Run is one batch command execution.
type Run struct {
	ID         string `json:"id"`
	Command    string `json:"command"`
	StartedAt  int64  `json:"started_at"`
	FinishedAt *int64 `json:"finished_at,omitempty"`
	Status     string `json:"status"`
	Processed  int    `json:"processed"`
	Failed     int    `json:"failed"`
	Skipped    int    `json:"skipped"`
	Detail     string `json:"detail,omitempty"`
}

// Post is one publish attempt.
type Post struct {
	ID        string   `json:"id"`
	RunID     string   `json:"run_id,omitempty"`
	Kind      string   `json:"kind"`
	Date      string   `json:"date,omitempty"`
	Platforms []string `json:"platforms"`
	Text      string   `json:"text"`
	MediaID   string   `json:"media_id,omitempty"`
	JobID     string   `json:"job_id,omitempty"`
	PostID    string   `json:"post_id,omitempty"`
	Status    string   `json:"status"`
	Error     string   `json:"error,omitempty"`
	CreatedAt int64    `json:"created_at"`
}

// NewID returns a fresh ULID string.
func NewID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// InsertRun stores a new run in the running state. Empty ID and StartedAt are filled in.
func InsertRun(db *sql.DB, r *Run) error {
	if r.ID == "" {
		r.ID = NewID()
	}
	if r.StartedAt == 0 {
		r.StartedAt = time.Now().Unix()
	}
	if r.Status == "" {
		r.Status = RunRunning
	}
	_, err := db.Exec(`
		INSERT INTO runs (id, command, started_at, status, processed, failed, skipped, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Command, r.StartedAt, r.Status, r.Processed, r.Failed, r.Skipped, nullIfEmpty(r.Detail))
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// FinishRun records the final counts and status of a run.
func FinishRun(db *sql.DB, r *Run) error {
	now := time.Now().Unix()
	result, err := db.Exec(`
		UPDATE runs
		SET finished_at = ?, status = ?, processed = ?, failed = ?, skipped = ?, detail = ?
		WHERE id = ?
	`, now, r.Status, r.Processed, r.Failed, r.Skipped, nullIfEmpty(r.Detail), r.ID)
	if err != nil {
		return errors.NewInternal(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(r.ID)
	}
	r.FinishedAt = &now
	return nil
}

// ListRuns returns the most recent runs first.
func ListRuns(db *sql.DB, limit int) ([]Run, error) {
	rows, err := db.Query(`
		SELECT id, command, started_at, finished_at, status, processed, failed, skipped, detail
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, clampLimit(limit))
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var (
			r        Run
			finished sql.NullInt64
			detail   sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Command, &r.StartedAt, &finished, &r.Status,
			&r.Processed, &r.Failed, &r.Skipped, &detail); err != nil {
			return nil, errors.NewInternal(err)
		}
		if finished.Valid {
			v := finished.Int64
			r.FinishedAt = &v
		}
		r.Detail = detail.String
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return runs, nil
}

// InsertPost stores a publish attempt. Empty ID and CreatedAt are filled in.
func InsertPost(db *sql.DB, p *Post) error {
	if p.ID == "" {
		p.ID = NewID()
	}
	if p.CreatedAt == 0 {
		p.CreatedAt = time.Now().Unix()
	}
	_, err := db.Exec(`
		INSERT INTO posts (id, run_id, kind, date, platforms, text, media_id, job_id, post_id, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, nullIfEmpty(p.RunID), p.Kind, nullIfEmpty(p.Date), strings.Join(p.Platforms, ","), p.Text,
		nullIfEmpty(p.MediaID), nullIfEmpty(p.JobID), nullIfEmpty(p.PostID), p.Status, nullIfEmpty(p.Error), p.CreatedAt)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// PostFilter narrows ListPosts.
type PostFilter struct {
	Kind  string
	Date  string
	Limit int
}

// ListPosts returns the most recent publish attempts first.
func ListPosts(db *sql.DB, f PostFilter) ([]Post, error) {
	query := `
		SELECT id, run_id, kind, date, platforms, text, media_id, job_id, post_id, status, error, created_at
		FROM posts
		WHERE 1=1
	`
	var args []any
	if f.Kind != "" {
		query += " AND kind = ?"
		args = append(args, f.Kind)
	}
	if f.Date != "" {
		query += " AND date = ?"
		args = append(args, f.Date)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, clampLimit(f.Limit))

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	posts := []Post{}
	for rows.Next() {
		var (
			p         Post
			platforms string
			runID     sql.NullString
			date      sql.NullString
			mediaID   sql.NullString
			jobID     sql.NullString
			postID    sql.NullString
			perr      sql.NullString
		)
		if err := rows.Scan(&p.ID, &runID, &p.Kind, &date, &platforms, &p.Text,
			&mediaID, &jobID, &postID, &p.Status, &perr, &p.CreatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		p.RunID = runID.String
		p.Date = date.String
		p.MediaID = mediaID.String
		p.JobID = jobID.String
		p.PostID = postID.String
		p.Error = perr.String
		p.Platforms = []string{}
		if platforms != "" {
			p.Platforms = strings.Split(platforms, ",")
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return posts, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// nullIfEmpty stores empty strings as NULL.
func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
