package mcp

import "github.com/mark3labs/mcp-go/mcp"

var listToolDef = mcp.NewTool("holiday_list",
	mcp.WithDescription("List stored dates in ascending order with caption, readiness and image path. Bodies of source items are left out; use holiday_get for the full record."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("filter", mcp.Description("all (default), ready or pending"), mcp.Enum("all", "ready", "pending")),
	mcp.WithString("from", mcp.Description("Inclusive lower bound, YYYY-MM-DD")),
	mcp.WithString("to", mcp.Description("Inclusive upper bound, YYYY-MM-DD")),
	mcp.WithNumber("limit", mcp.Description("Page size (default 50, max 400)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip")),
)

var getToolDef = mcp.NewTool("holiday_get",
	mcp.WithDescription("Return the full record for one date, including source items and image paths."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("date", mcp.Required(), mcp.Description("YYYY-MM-DD")),
)

var pendingToolDef = mcp.NewTool("holiday_pending",
	mcp.WithDescription("List dates that are not content ready: no caption or no final image yet."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithNumber("limit", mcp.Description("Page size (default 50, max 400)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip")),
)

var exportPromptsToolDef = mcp.NewTool("holiday_export_prompts",
	mcp.WithDescription("Return the sorted {date, selected_holiday, image_prompt, caption} list. With path, also write it as JSON."),
	mcp.WithString("path", mcp.Description("Optional .json output path")),
)

var lintToolDef = mcp.NewTool("holiday_lint",
	mcp.WithDescription("Check every record for a missing caption or image, a stale content_ready flag and an overlong catchphrase."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var postHistoryToolDef = mcp.NewTool("post_history",
	mcp.WithDescription("Most recent publish attempts, newest first."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("kind", mcp.Description("events, fact, date or video"), mcp.Enum("events", "fact", "date", "video")),
	mcp.WithString("date", mcp.Description("Only posts for this YYYY-MM-DD")),
	mcp.WithNumber("limit", mcp.Description("Max rows (default 20, max 500)")),
)

var runHistoryToolDef = mcp.NewTool("run_history",
	mcp.WithDescription("Most recent batch runs with their counts and status, newest first."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithNumber("limit", mcp.Description("Max rows (default 20, max 500)")),
)
