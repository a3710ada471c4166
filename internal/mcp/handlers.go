package mcp

import (
	"context"
	"database/sql"

	json "github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/micasa/marketer/internal/config"
	"github.com/micasa/marketer/internal/errors"
	"github.com/micasa/marketer/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db  *sql.DB
	cfg *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config) *Handlers {
	return &Handlers{db: db, cfg: cfg}
}

// Request types for each tool

// ListRequest represents the arguments for holiday_list.
type ListRequest struct {
	Filter string `json:"filter,omitempty"`
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// GetRequest represents the arguments for holiday_get.
type GetRequest struct {
	Date string `json:"date"`
}

// PendingRequest represents the arguments for holiday_pending.
type PendingRequest struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// ExportPromptsRequest represents the arguments for holiday_export_prompts.
type ExportPromptsRequest struct {
	Path string `json:"path,omitempty"`
}

// PostHistoryRequest represents the arguments for post_history.
type PostHistoryRequest struct {
	Kind  string `json:"kind,omitempty"`
	Date  string `json:"date,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// RunHistoryRequest represents the arguments for run_history.
type RunHistoryRequest struct {
	Limit int `json:"limit,omitempty"`
}

// Handler implementations

// HandleList handles the holiday_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := args[ListRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.ListDates(ops.ListDatesInput{
		StorePath: h.cfg.StorePath,
		Filter:    input.Filter,
		From:      input.From,
		To:        input.To,
		Limit:     input.Limit,
		Offset:    input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleGet handles the holiday_get tool call.
func (h *Handlers) HandleGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := args[GetRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.GetDate(ops.GetDateInput{StorePath: h.cfg.StorePath, Date: input.Date})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandlePending handles the holiday_pending tool call.
func (h *Handlers) HandlePending(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := args[PendingRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.ListDates(ops.ListDatesInput{
		StorePath: h.cfg.StorePath,
		Filter:    ops.FilterPending,
		Limit:     input.Limit,
		Offset:    input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleExportPrompts handles the holiday_export_prompts tool call.
func (h *Handlers) HandleExportPrompts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := args[ExportPromptsRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.ExportPrompts(ops.ExportPromptsInput{StorePath: h.cfg.StorePath, Output: input.Path})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleLint handles the holiday_lint tool call.
func (h *Handlers) HandleLint(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Lint(ops.LintInput{StorePath: h.cfg.StorePath})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandlePostHistory handles the post_history tool call.
func (h *Handlers) HandlePostHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := args[PostHistoryRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.PostHistory(h.db, ops.PostHistoryInput{
		Kind:  input.Kind,
		Date:  input.Date,
		Limit: input.Limit,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleRunHistory handles the run_history tool call.
func (h *Handlers) HandleRunHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := args[RunHistoryRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.RunHistory(h.db, ops.RunHistoryInput{Limit: input.Limit})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if mErr := errors.As(err); mErr != nil {
		// A wrapped error keeps its wrapper context in the message.
		msg := mErr.Message
		if err != error(mErr) {
			msg = err.Error()
		}
		errorObj := map[string]any{
			"code":    mErr.Code,
			"message": msg,
			"status":  mErr.Status,
		}
		if mErr.Code == errors.ErrInternal {
			errorObj["message"] = "an internal error occurred"
		} else if mErr.Details != nil {
			errorObj["details"] = mErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
