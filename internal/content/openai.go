// Package content produces the written copy: per-date captions and image
// prompts, on-video headlines, event round-ups and local facts. All of it goes
// through the OpenAI chat completions endpoint.
package content

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/micasa/marketer/internal/config"
	"github.com/micasa/marketer/internal/errors"
	"github.com/micasa/marketer/internal/upstream"
)

const service = "openai"

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Tool declares a function the model may call.
type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

// ToolFunction is the function schema inside a Tool.
type ToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Tools       []Tool    `json:"tools,omitempty"`
	ToolChoice  any       `json:"tool_choice,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
}

// Chat holds the settings for one kind of completion.
type Chat struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// OpenAI is a minimal chat completions client.
type OpenAI struct {
	client  *upstream.Client
	baseURL string
	apiKey  string
	model   string
}

// NewOpenAI builds a client from cfg. client may be nil.
func NewOpenAI(cfg config.OpenAIConfig, client *upstream.Client) *OpenAI {
	if client == nil {
		client = upstream.New(cfg.Timeout, nil)
	}
	return &OpenAI{
		client:  client,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.ChatModel,
	}
}

// Complete returns the trimmed text of the first choice.
func (o *OpenAI) Complete(ctx context.Context, c Chat) (string, error) {
	resp, err := o.send(ctx, chatRequest{
		Model:       o.model,
		Messages:    c.Messages,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// CallTool forces the model to call tool and returns the raw JSON arguments.
func (o *OpenAI) CallTool(ctx context.Context, c Chat, tool Tool) (string, error) {
	resp, err := o.send(ctx, chatRequest{
		Model:       o.model,
		Messages:    c.Messages,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
		Tools:       []Tool{tool},
		ToolChoice: map[string]any{
			"type":     "function",
			"function": map[string]string{"name": tool.Function.Name},
		},
	})
	if err != nil {
		return "", err
	}
	calls := resp.Choices[0].Message.ToolCalls
	if len(calls) == 0 {
		return "", errors.NewParse(service, fmt.Errorf("no function call returned"))
	}
	return calls[0].Function.Arguments, nil
}

func (o *OpenAI) send(ctx context.Context, body chatRequest) (*chatResponse, error) {
	var resp chatResponse
	err := o.client.JSON(ctx, service, upstream.Request{
		Method:  http.MethodPost,
		URL:     o.baseURL + "/chat/completions",
		Headers: map[string]string{"Authorization": "Bearer " + o.apiKey},
		Body:    body,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.NewParse(service, fmt.Errorf("response has no choices"))
	}
	return &resp, nil
}
