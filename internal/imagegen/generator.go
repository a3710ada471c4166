// Package imagegen produces the square background image for a date and the
// watermarked copy that gets posted.
package imagegen

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/micasa/marketer/internal/config"
	"github.com/micasa/marketer/internal/errors"
	"github.com/micasa/marketer/internal/logging"
	"github.com/micasa/marketer/internal/poll"
	"github.com/micasa/marketer/internal/upstream"
)

// Generator turns an image prompt into encoded image bytes.
type Generator interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

// DallE calls the OpenAI images endpoint.
type DallE struct {
	client  *upstream.Client
	baseURL string
	apiKey  string
	model   string
}

// NewDallE builds a DALL-E backend from the OpenAI settings.
func NewDallE(cfg config.OpenAIConfig, client *upstream.Client) *DallE {
	if client == nil {
		client = upstream.New(cfg.Timeout, nil)
	}
	return &DallE{
		client:  client,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.ImageModel,
	}
}

type dalleResponse struct {
	Data []struct {
		URL     string `json:"url"`
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

// Generate requests one 1024x1024 standard-quality image and downloads it.
func (d *DallE) Generate(ctx context.Context, prompt string) ([]byte, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, errors.NewInvalidRequest("empty image prompt")
	}
	var resp dalleResponse
	err := d.client.JSON(ctx, "openai", upstream.Request{
		Method:  http.MethodPost,
		URL:     d.baseURL + "/images/generations",
		Headers: map[string]string{"Authorization": "Bearer " + d.apiKey},
		Body: map[string]any{
			"model":   d.model,
			"prompt":  prompt,
			"size":    "1024x1024",
			"quality": "standard",
			"n":       1,
		},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, errors.NewParse("openai", errNoImage)
	}
	if resp.Data[0].B64JSON != "" {
		data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
		if err != nil {
			return nil, errors.NewParse("openai", err)
		}
		return data, nil
	}
	if resp.Data[0].URL == "" {
		return nil, errors.NewParse("openai", errNoImage)
	}
	return d.client.Download(ctx, "openai", resp.Data[0].URL)
}

// Midjourney drives the userapi.ai proxy: imagine, poll status, download.
type Midjourney struct {
	client  *upstream.Client
	baseURL string
	apiKey  string
	logger  logging.Logger
	motion  int
	// Poll bounds the status wait; tests swap Sleep and Now.
	Poll poll.Options
}

// NewMidjourney builds a Midjourney backend.
func NewMidjourney(cfg config.MidjourneyConfig, client *upstream.Client, logger logging.Logger) *Midjourney {
	if client == nil {
		client = upstream.New(30*time.Second, nil)
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Midjourney{
		client:  client,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		logger:  logger,
		motion:  cfg.MotionStrength,
		Poll:    poll.Options{Interval: cfg.PollInterval, Timeout: cfg.PollTimeout},
	}
}

type imagineResponse struct {
	TaskID string `json:"task_id"`
	Hash   string `json:"hash"`
	ID     string `json:"id"`
}

func (r imagineResponse) jobID() string {
	for _, id := range []string{r.TaskID, r.Hash, r.ID} {
		if id != "" {
			return id
		}
	}
	return ""
}

type statusResponse struct {
	Status   string `json:"status"`
	ImageURL string `json:"image_url"`
	VideoURL string `json:"video_url"`
	Result   struct {
		URL      string `json:"url"`
		ImageURL string `json:"image_url"`
		VideoURL string `json:"video_url"`
	} `json:"result"`
	StatusReason string `json:"status_reason"`
}

func (s statusResponse) imageURL() string {
	for _, u := range []string{s.ImageURL, s.Result.ImageURL, s.Result.URL} {
		if u != "" {
			return u
		}
	}
	return ""
}

func (s statusResponse) videoURL() string {
	for _, u := range []string{s.VideoURL, s.Result.VideoURL} {
		if u != "" {
			return u
		}
	}
	return ""
}

func (m *Midjourney) headers() map[string]string {
	return map[string]string{"api-key": m.apiKey}
}

// Generate submits prompt as a square standard-quality job and waits for it.
// A job that outlives the poll timeout is TIMEOUT; a job reported failed is JOB_FAILED.
func (m *Midjourney) Generate(ctx context.Context, prompt string) ([]byte, error) {
	img, _, err := m.GenerateURL(ctx, prompt)
	return img, err
}

// GenerateURL is Generate that also returns the upstream image URL, which
// Animate needs.
func (m *Midjourney) GenerateURL(ctx context.Context, prompt string) ([]byte, string, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, "", errors.NewInvalidRequest("empty image prompt")
	}

	var started imagineResponse
	err := m.client.JSON(ctx, "midjourney", upstream.Request{
		Method:  http.MethodPost,
		URL:     m.baseURL + "/midjourney/v2/imagine",
		Headers: m.headers(),
		Body: map[string]any{
			"prompt":         prompt + " --ar 1:1 --quality standard",
			"webhook_url":    nil,
			"webhook_secret": nil,
		},
	}, &started)
	if err != nil {
		return nil, "", err
	}
	id := started.jobID()
	if id == "" {
		return nil, "", errors.NewParse("midjourney", errNoJobID)
	}
	m.logger.Infof(logging.TypeGenerate, "midjourney job %s started", id)

	st, err := m.wait(ctx, id)
	if err != nil {
		return nil, "", err
	}
	imageURL := st.imageURL()
	if imageURL == "" {
		return nil, "", errors.NewParse("midjourney", errNoImage)
	}
	img, err := m.client.Download(ctx, "midjourney", imageURL)
	if err != nil {
		return nil, "", err
	}
	return img, imageURL, nil
}

// Animate turns a generated image into a short mp4 and downloads it. The
// image must be addressed by its http(s) URL; local files are rejected.
func (m *Midjourney) Animate(ctx context.Context, imageURL string) ([]byte, error) {
	if !strings.HasPrefix(imageURL, "http://") && !strings.HasPrefix(imageURL, "https://") {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("animation needs an image URL, got %q", imageURL))
	}

	var started imagineResponse
	err := m.client.JSON(ctx, "midjourney", upstream.Request{
		Method:  http.MethodPost,
		URL:     m.baseURL + "/animate",
		Headers: m.headers(),
		Body: map[string]any{
			"image_url":       imageURL,
			"motion_strength": m.motion,
			"webhook_url":     nil,
		},
	}, &started)
	if err != nil {
		return nil, err
	}
	id := started.jobID()
	if id == "" {
		return nil, errors.NewParse("midjourney", errNoJobID)
	}
	m.logger.Infof(logging.TypeGenerate, "midjourney animation %s started (motion %d)", id, m.motion)

	st, err := m.wait(ctx, id)
	if err != nil {
		return nil, err
	}
	videoURL := st.videoURL()
	if videoURL == "" {
		return nil, errors.NewParse("midjourney", errNoVideo)
	}
	return m.client.Download(ctx, "midjourney", videoURL)
}

// wait polls the status of job id until it completes, fails or times out.
func (m *Midjourney) wait(ctx context.Context, id string) (statusResponse, error) {
	var last statusResponse
	outcome, err := poll.Until(ctx, m.Poll, func(ctx context.Context) (poll.Outcome, error) {
		var st statusResponse
		err := m.client.JSON(ctx, "midjourney", upstream.Request{
			Method:  http.MethodGet,
			URL:     m.baseURL + "/midjourney/v2/status?hash=" + url.QueryEscape(id),
			Headers: m.headers(),
		}, &st)
		if err != nil {
			if errors.Is(err, errors.ErrHTTP) {
				m.logger.Warnf(logging.TypeGenerate, "midjourney status for %s: %v", id, err)
				return poll.Pending, nil
			}
			return poll.Failed, err
		}
		last = st
		switch st.Status {
		case "completed":
			return poll.Completed, nil
		case "failed":
			return poll.Failed, nil
		case "processing", "in_queue", "started":
		default:
			m.logger.Warnf(logging.TypeGenerate, "midjourney job %s has unknown status %q", id, st.Status)
		}
		return poll.Pending, nil
	})
	if err != nil {
		return last, err
	}
	switch outcome {
	case poll.TimedOut:
		return last, errors.NewTimeout("midjourney job " + id)
	case poll.Failed:
		return last, errors.NewJobFailed("midjourney", id, last.StatusReason)
	}
	return last, nil
}
