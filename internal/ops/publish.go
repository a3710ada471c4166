package ops

import (
	"context"
	"fmt"
	"time"

	"github.com/micasa/marketer/internal/content"
	"github.com/micasa/marketer/internal/db"
	"github.com/micasa/marketer/internal/errors"
	"github.com/micasa/marketer/internal/holiday"
	"github.com/micasa/marketer/internal/logging"
	"github.com/micasa/marketer/internal/publisher"
	"github.com/micasa/marketer/internal/scraper"
	"github.com/micasa/marketer/internal/store"
)

// Post kinds recorded in history.
const (
	KindEvents = "events"
	KindFact   = "fact"
	KindDate   = "date"
	KindVideo  = "video"
)

// Publisher is the part of the Publer client the publish operations use.
type Publisher interface {
	SelectMedia(ctx context.Context) (*publisher.MediaRef, error)
	UploadMedia(ctx context.Context, path string) (*publisher.MediaRef, error)
	Post(ctx context.Context, req publisher.PostRequest) publisher.PostResult
}

// EventCopyWriter turns a day's events into feed and reel copy.
type EventCopyWriter interface {
	Write(ctx context.Context, date string, events []scraper.Event) content.EventPosts
}

// FactSource supplies one local fact and whether it is the fixed fallback.
type FactSource interface {
	Write(ctx context.Context) (string, bool)
}

// PublishOptions are shared by every publish operation.
type PublishOptions struct {
	Platforms       []string   // default: every connected platform
	ScheduleAt      *time.Time // nil publishes immediately
	AutoDeleteAfter time.Duration
	DryRun          bool
}

func (o PublishOptions) request(text, kind string, m *publisher.MediaRef, now time.Time) publisher.PostRequest {
	req := publisher.PostRequest{
		Text:       text,
		Platforms:  o.Platforms,
		Media:      m,
		ScheduleAt: o.ScheduleAt,
		Type:       kind,
	}
	if o.AutoDeleteAfter > 0 {
		base := now
		if o.ScheduleAt != nil {
			base = *o.ScheduleAt
		}
		at := base.Add(o.AutoDeleteAfter)
		req.AutoDeleteAt = &at
	}
	return req
}

// PostAttempt is one post sent (or, in a dry run, prepared).
type PostAttempt struct {
	Type   string               `json:"type"`
	Text   string               `json:"text"`
	DryRun bool                 `json:"dry_run,omitempty"`
	Result publisher.PostResult `json:"result"`
}

// send posts req (unless dry run) and records the attempt.
func send(ctx context.Context, rt *Runtime, pub Publisher, runID, kind, date string, o PublishOptions, req publisher.PostRequest) PostAttempt {
	attempt := PostAttempt{Type: req.Type, Text: req.Text, DryRun: o.DryRun}
	row := &db.Post{RunID: runID, Kind: kind, Date: date, Platforms: req.Platforms, Text: req.Text}
	if req.Media != nil {
		row.MediaID = req.Media.ID
	}

	switch {
	case o.DryRun:
		row.Status = db.PostDryRun
		attempt.Result = publisher.PostResult{Success: true}
		rt.log().Infof(logging.TypePublish, "dry run %s %s:\n%s", kind, req.Type, req.Text)
	default:
		attempt.Result = pub.Post(ctx, req)
		row.JobID = attempt.Result.JobID
		row.PostID = attempt.Result.PostID
		row.Status = db.PostSent
		if !attempt.Result.Success {
			row.Status = db.PostFailed
			row.Error = attempt.Result.Error
			rt.log().Errorf(logging.TypePublish, "%s %s failed: %s", kind, req.Type, attempt.Result.Error)
		} else {
			rt.log().Infof(logging.TypePublish, "%s %s posted (job %s)", kind, req.Type, attempt.Result.JobID)
		}
	}
	rt.recordPost(row)
	return attempt
}

func finishPublish(rt *Runtime, run *db.Run, attempts []PostAttempt) {
	var counts RunCounts
	for _, a := range attempts {
		if a.Result.Success {
			counts.Processed++
		} else {
			counts.Failed++
		}
	}
	rt.finishRun(run, counts, nil)
}

// PostEventsInput contains parameters for the PostEvents operation.
type PostEventsInput struct {
	Scraper   EventScraper
	Writer    EventCopyWriter
	Publisher Publisher // may be nil for a dry run
	Date      string    // default: today
	PublishOptions
}

// PostEventsOutput contains the result of the PostEvents operation.
type PostEventsOutput struct {
	RunID    string              `json:"run_id,omitempty"`
	Date     string              `json:"date"`
	Events   int                 `json:"events"`
	Fallback bool                `json:"fallback"`
	Media    *publisher.MediaRef `json:"media,omitempty"`
	Posts    []PostAttempt       `json:"posts"`
}

// PostEvents scrapes the day's events, writes feed and reel copy and posts
// both with a random library clip. Without a clip only the feed post goes out.
func PostEvents(ctx context.Context, rt *Runtime, input PostEventsInput) (*PostEventsOutput, error) {
	if input.Writer == nil {
		return nil, errors.NewSetup("no event copy writer configured")
	}
	if input.Publisher == nil && !input.DryRun {
		return nil, errors.NewSetup("no publisher configured")
	}
	day, err := startDate(rt, input.Date)
	if err != nil {
		return nil, err
	}
	date := day.Format(holiday.DateLayout)

	run := rt.startRun("publish events", date)
	events := scrapeDay(ctx, rt, input.Scraper, date)
	posts := input.Writer.Write(ctx, date, events)

	out := &PostEventsOutput{RunID: run.ID, Date: date, Events: len(events), Fallback: posts.Fallback, Posts: []PostAttempt{}}

	if !input.DryRun {
		m, err := input.Publisher.SelectMedia(ctx)
		if err != nil {
			rt.log().Warnf(logging.TypePublish, "media selection failed, posting text only: %v", err)
		}
		out.Media = m
	}

	now := rt.now()
	out.Posts = append(out.Posts, send(ctx, rt, input.Publisher, run.ID, KindEvents, date, input.PublishOptions,
		input.request(posts.Long, publisher.TypePost, out.Media, now)))
	if out.Media != nil || input.DryRun {
		out.Posts = append(out.Posts, send(ctx, rt, input.Publisher, run.ID, KindEvents, date, input.PublishOptions,
			input.request(posts.Short, publisher.TypeReel, out.Media, now)))
	}

	finishPublish(rt, run, out.Posts)
	return out, nil
}

// PostFactInput contains parameters for the PostFact operation.
type PostFactInput struct {
	Facts     FactSource
	Publisher Publisher // may be nil for a dry run
	PublishOptions
}

// PostFactOutput contains the result of the PostFact operation.
type PostFactOutput struct {
	RunID    string              `json:"run_id,omitempty"`
	Fact     string              `json:"fact"`
	Fallback bool                `json:"fallback"`
	Media    *publisher.MediaRef `json:"media,omitempty"`
	Post     PostAttempt         `json:"post"`
}

// PostFact posts one local fact, with a random library clip when one exists.
func PostFact(ctx context.Context, rt *Runtime, input PostFactInput) (*PostFactOutput, error) {
	if input.Facts == nil {
		return nil, errors.NewSetup("no fact writer configured")
	}
	if input.Publisher == nil && !input.DryRun {
		return nil, errors.NewSetup("no publisher configured")
	}

	run := rt.startRun("publish fact", "")
	fact, fallback := input.Facts.Write(ctx)
	out := &PostFactOutput{RunID: run.ID, Fact: fact, Fallback: fallback}

	if !input.DryRun {
		m, err := input.Publisher.SelectMedia(ctx)
		if err != nil {
			rt.log().Warnf(logging.TypePublish, "media selection failed, posting text only: %v", err)
		}
		out.Media = m
	}

	out.Post = send(ctx, rt, input.Publisher, run.ID, KindFact, "", input.PublishOptions,
		input.request(fact, publisher.TypePost, out.Media, rt.now()))
	finishPublish(rt, run, []PostAttempt{out.Post})
	return out, nil
}

// PostDateInput contains parameters for the PostDate operation.
type PostDateInput struct {
	StorePath string // required
	Date      string // required
	Publisher Publisher
	PublishOptions
}

// PostDateOutput contains the result of the PostDate operation.
type PostDateOutput struct {
	RunID string              `json:"run_id,omitempty"`
	Date  string              `json:"date"`
	Image string              `json:"image"`
	Media *publisher.MediaRef `json:"media,omitempty"`
	Post  PostAttempt         `json:"post"`
}

// PostDate uploads a ready record's final image and posts it with the caption.
func PostDate(ctx context.Context, rt *Runtime, input PostDateInput) (*PostDateOutput, error) {
	if err := requirePath("store path", input.StorePath); err != nil {
		return nil, err
	}
	if err := validateDate("date", input.Date); err != nil {
		return nil, err
	}
	if input.Publisher == nil && !input.DryRun {
		return nil, errors.NewSetup("no publisher configured")
	}

	s, err := store.Load(input.StorePath, store.LoadOptions{Logger: rt.log(), Now: rt.Now})
	if err != nil {
		return nil, err
	}
	r, ok := s.Get(input.Date)
	if !ok {
		return nil, errors.NewNotFound(input.Date)
	}
	if !r.ContentReady {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("%s is not content ready", input.Date))
	}

	out := &PostDateOutput{Date: input.Date, Image: *r.FinalImagePath}
	run := rt.startRun("publish date", input.Date)
	out.RunID = run.ID

	if !input.DryRun {
		m, err := input.Publisher.UploadMedia(ctx, out.Image)
		if err != nil {
			rt.finishRun(run, RunCounts{Failed: 1}, err)
			return nil, err
		}
		out.Media = m
	}

	out.Post = send(ctx, rt, input.Publisher, run.ID, KindDate, input.Date, input.PublishOptions,
		input.request(r.Caption, publisher.TypePost, out.Media, rt.now()))
	finishPublish(rt, run, []PostAttempt{out.Post})
	return out, nil
}
