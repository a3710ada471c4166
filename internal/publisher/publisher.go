// Package publisher schedules posts through the Publer API.
package publisher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/micasa/marketer/internal/config"
	"github.com/micasa/marketer/internal/errors"
	"github.com/micasa/marketer/internal/logging"
	"github.com/micasa/marketer/internal/media"
	"github.com/micasa/marketer/internal/metrics"
	"github.com/micasa/marketer/internal/poll"
	"github.com/micasa/marketer/internal/upstream"
)

const service = "publer"

// Post types.
const (
	TypePost = "post"
	TypeReel = "reel"
)

// Account is a connected social profile.
type Account struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Platform string `json:"platform"`
	Provider string `json:"provider"`
}

// network returns the platform key, whichever field the API filled.
func (a Account) network() string {
	if a.Platform != "" {
		return a.Platform
	}
	if a.Provider != "" {
		return a.Provider
	}
	return "unknown"
}

// MediaRef identifies an item in the Publer media library.
type MediaRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// PostRequest describes one post to one or more platforms.
type PostRequest struct {
	Text      string
	Platforms []string
	Media     *MediaRef
	// ScheduleAt nil publishes immediately.
	ScheduleAt   *time.Time
	Type         string
	AutoDeleteAt *time.Time
}

// PostResult reports how a post went. It is never returned with an error;
// failures are described in Error.
type PostResult struct {
	Success bool   `json:"success"`
	PostID  string `json:"post_id,omitempty"`
	JobID   string `json:"job_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Client talks to Publer for one workspace.
type Client struct {
	client  *upstream.Client
	cfg     config.PublerConfig
	logger  logging.Logger
	metrics metrics.Recorder

	workspaceID string
	accounts    map[string][]Account

	// Poll bounds the job status wait; tests swap Sleep and Now.
	Poll poll.Options
	// Intn picks the library item; defaults to math/rand/v2.
	Intn func(n int) int
}

// New builds a Client. client may be nil.
func New(cfg config.PublerConfig, client *upstream.Client, logger logging.Logger, m metrics.Recorder) *Client {
	if m == nil {
		m = metrics.Nop()
	}
	if client == nil {
		client = upstream.New(cfg.Timeout, m)
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Client{
		client:      client,
		cfg:         cfg,
		logger:      logger,
		metrics:     m,
		workspaceID: cfg.WorkspaceID,
		Poll:        poll.Options{Interval: cfg.PollInterval, Timeout: cfg.PollTimeout},
		Intn:        rand.IntN,
	}
}

func (c *Client) url(path string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + path
}

func (c *Client) headers() map[string]string {
	h := map[string]string{"Authorization": "Bearer-API " + c.cfg.APIKey}
	if c.workspaceID != "" {
		h["Publer-Workspace-Id"] = c.workspaceID
	}
	return h
}

func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	return c.client.JSON(ctx, service, upstream.Request{
		Method:  method,
		URL:     c.url(path),
		Headers: c.headers(),
		Body:    body,
	}, out)
}

// Connect resolves the workspace (the configured one, or the first listed)
// and loads the connected accounts grouped by platform.
func (c *Client) Connect(ctx context.Context) error {
	if c.workspaceID == "" {
		var workspaces []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		}
		if err := c.call(ctx, http.MethodGet, "/workspaces", nil, &workspaces); err != nil {
			return err
		}
		if len(workspaces) == 0 {
			return errors.NewSetup("publer: no workspaces found")
		}
		c.workspaceID = workspaces[0].ID
		c.logger.Infof(logging.TypePublish, "using workspace %s (%s)", workspaces[0].Name, c.workspaceID)
	}

	var accounts []Account
	if err := c.call(ctx, http.MethodGet, "/accounts", nil, &accounts); err != nil {
		return err
	}
	c.accounts = make(map[string][]Account)
	for _, a := range accounts {
		c.accounts[a.network()] = append(c.accounts[a.network()], a)
	}
	c.logger.Infof(logging.TypePublish, "found accounts for platforms: %v", c.Platforms())
	return nil
}

// Platforms lists the platforms with at least one connected account.
func (c *Client) Platforms() []string {
	out := make([]string, 0, len(c.accounts))
	for p := range c.accounts {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// WorkspaceID is the workspace in use, empty before Connect.
func (c *Client) WorkspaceID() string {
	return c.workspaceID
}

type mediaPage struct {
	Media []struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Filename string `json:"filename"`
		Type     string `json:"type"`
	} `json:"media"`
	Total int `json:"total"`
}

// SelectMedia lists the video library and picks one clip named like
// "<number>_<anything>.mp4" at random. It returns nil when none match.
func (c *Client) SelectMedia(ctx context.Context) (*MediaRef, error) {
	var page mediaPage
	if err := c.call(ctx, http.MethodGet, "/media?page=0&"+url.QueryEscape("types[]")+"=video", nil, &page); err != nil {
		return nil, err
	}
	var candidates []MediaRef
	for _, m := range page.Media {
		name := m.Name
		if name == "" {
			name = m.Filename
		}
		if media.MatchesLibraryPattern(name) {
			candidates = append(candidates, MediaRef{ID: m.ID, Name: name, Type: "video"})
		}
	}
	if len(candidates) == 0 {
		c.logger.Warnf(logging.TypePublish, "no library videos match <number>_*.mp4 (of %d items)", len(page.Media))
		return nil, nil
	}
	picked := candidates[c.Intn(len(candidates))]
	c.logger.Infof(logging.TypePublish, "selected video %s", picked.Name)
	return &picked, nil
}

// UploadMedia sends a local file to the media library.
func (c *Client) UploadMedia(ctx context.Context, path string) (*MediaRef, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewSetup(fmt.Sprintf("media file %s: %v", path, err))
	}
	defer f.Close()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := w.Close(); err != nil {
		return nil, errors.NewInternal(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/media/upload"), &body)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	for k, v := range c.headers() {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	data, err := c.client.Do(service, req)
	if err != nil {
		return nil, err
	}
	var ref MediaRef
	if err := json.Unmarshal(data, &ref); err != nil {
		return nil, errors.NewParse(service, err)
	}
	if ref.ID == "" {
		return nil, errors.NewParse(service, fmt.Errorf("upload response carries no media id"))
	}
	if ref.Name == "" {
		ref.Name = filepath.Base(path)
	}
	if ref.Type == "" {
		ref.Type = MediaType(path)
	}
	c.logger.Infof(logging.TypePublish, "media uploaded: %s", path)
	return &ref, nil
}

// MediaType guesses the Publer media type from a file extension. Anything
// that is not a known image is treated as video.
func MediaType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".webp", ".gif":
		return "photo"
	default:
		return "video"
	}
}

// DecorateText appends the fallback hashtags when no signature is configured.
func DecorateText(text, signatureID, hashtags string) string {
	if signatureID != "" || hashtags == "" {
		return text
	}
	return text + "\n\n" + hashtags
}

// Post schedules req and waits for the job to finish.
func (c *Client) Post(ctx context.Context, req PostRequest) PostResult {
	res := c.post(ctx, req)
	if res.Success {
		c.metrics.IncPosts("success")
	} else {
		c.metrics.IncPosts("failure")
	}
	return res
}

func (c *Client) post(ctx context.Context, req PostRequest) PostResult {
	if c.accounts == nil {
		if err := c.Connect(ctx); err != nil {
			return PostResult{Error: err.Error()}
		}
	}
	body, err := c.BuildBody(req)
	if err != nil {
		return PostResult{Error: err.Error()}
	}

	path := "/posts/schedule"
	if req.ScheduleAt == nil {
		path = "/posts/schedule/publish"
	}
	var started struct {
		JobID string `json:"job_id"`
	}
	if err := c.call(ctx, http.MethodPost, path, body, &started); err != nil {
		return PostResult{Error: err.Error()}
	}
	if started.JobID == "" {
		return PostResult{Success: true}
	}

	status, err := c.waitJob(ctx, started.JobID)
	res := PostResult{JobID: started.JobID, PostID: status.postID()}
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Success = true
	return res
}

type postBody struct {
	Bulk struct {
		Posts []bulkPost `json:"posts"`
	} `json:"bulk"`
}

type bulkPost struct {
	Networks map[string]network `json:"networks"`
	Accounts []accountTarget    `json:"accounts"`
}

type network struct {
	Type      string     `json:"type"`
	Text      string     `json:"text"`
	Media     []MediaRef `json:"media,omitempty"`
	Signature string     `json:"signature,omitempty"`
}

type accountTarget struct {
	ID          string `json:"id"`
	ScheduledAt string `json:"scheduled_at,omitempty"`
	DeleteAt    string `json:"delete_at,omitempty"`
}

// BuildBody renders the bulk schedule body for req against the loaded accounts.
func (c *Client) BuildBody(req PostRequest) (any, error) {
	platforms := req.Platforms
	if len(platforms) == 0 {
		platforms = c.cfg.Platforms
	}
	text := DecorateText(req.Text, c.cfg.SignatureID, c.cfg.FallbackHashtags)

	kind := "status"
	var mediaList []MediaRef
	if req.Media != nil {
		kind = req.Media.Type
		if kind == "" {
			kind = "video"
		}
		mediaList = []MediaRef{*req.Media}
	}
	if req.Type == TypeReel && req.Media != nil {
		kind = TypeReel
	}

	p := bulkPost{Networks: make(map[string]network)}
	for _, platform := range platforms {
		p.Networks[platform] = network{Type: kind, Text: text, Media: mediaList, Signature: c.cfg.SignatureID}
		for _, a := range c.accounts[platform] {
			t := accountTarget{ID: a.ID}
			if req.ScheduleAt != nil {
				t.ScheduledAt = req.ScheduleAt.Format(time.RFC3339)
			}
			if req.AutoDeleteAt != nil {
				t.DeleteAt = req.AutoDeleteAt.Format(time.RFC3339)
			}
			p.Accounts = append(p.Accounts, t)
		}
	}
	if len(p.Accounts) == 0 {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("no accounts found for platforms %v", platforms))
	}

	var body postBody
	body.Bulk.Posts = []bulkPost{p}
	return body, nil
}

type jobStatus struct {
	Status  string `json:"status"`
	Payload struct {
		Failures map[string]any `json:"failures"`
		Posts    []struct {
			ID string `json:"id"`
		} `json:"posts"`
	} `json:"payload"`
}

func (s jobStatus) postID() string {
	if len(s.Payload.Posts) > 0 {
		return s.Payload.Posts[0].ID
	}
	return ""
}

func (c *Client) waitJob(ctx context.Context, id string) (jobStatus, error) {
	var last jobStatus
	outcome, err := poll.Until(ctx, c.Poll, func(ctx context.Context) (poll.Outcome, error) {
		var st jobStatus
		if err := c.call(ctx, http.MethodGet, "/job_status/"+url.PathEscape(id), nil, &st); err != nil {
			return poll.Failed, err
		}
		last = st
		c.logger.Debugf(logging.TypePublish, "job %s status: %s", id, st.Status)
		switch st.Status {
		case "complete", "completed":
			if len(st.Payload.Failures) > 0 {
				return poll.Failed, nil
			}
			return poll.Completed, nil
		case "failed":
			return poll.Failed, nil
		}
		return poll.Pending, nil
	})
	if err != nil {
		return last, err
	}
	switch outcome {
	case poll.TimedOut:
		return last, errors.NewTimeout("publer job " + id)
	case poll.Failed:
		reason := last.Status
		if len(last.Payload.Failures) > 0 {
			reason = fmt.Sprintf("%v", last.Payload.Failures)
		}
		return last, errors.NewJobFailed(service, id, reason)
	}
	return last, nil
}
