package content

import (
	"context"
	"fmt"
	"strings"

	"github.com/micasa/marketer/internal/holiday"
	"github.com/micasa/marketer/internal/logging"
	"github.com/micasa/marketer/internal/scraper"
)

// StayLine closes every event post.
const StayLine = "✨ Visiting Pensacola? Stay with us → www.micasa.rentals"

// MoreLine points readers at the public listing for the day.
func MoreLine(searchURL string) string {
	return "📍 For more: Visit Pensacola → " + searchURL
}

const eventsPrompt = `You are a content assistant. I will provide a JSON containing event data (title, date, location, description, link, metadata).

Your task is to return a JSON object with two keys:

long_post:

Format as a social media caption with:

Header: ✨ What's Happening in Pensacola – [Day, Month] ✨

Group events under their different locations.

List 3–4 event titles per group, separated by commas, no bullets.

End with two lines:
📍 For more: Visit Pensacola → [metadata.search_url]
✨ Visiting Pensacola? Stay with us → www.micasa.rentals

Keep it plain text, cross-platform friendly.

short_post:

Write 1–2 catchy sentences highlighting 2–3 engaging events.

End with the same two links:
📍 For more: Visit Pensacola → [metadata.search_url]
✨ Visiting Pensacola? Stay with us → www.micasa.rentals

Keep it casual and shorter (ideal for Reels/TikTok captions).

Here's the event data: `

var socialPostsTool = Tool{
	Type: "function",
	Function: ToolFunction{
		Name:        "create_social_posts",
		Description: "Create social media posts for Pensacola events",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"long_post": map[string]string{
					"type":        "string",
					"description": "Long-form social media post with event details",
				},
				"short_post": map[string]string{
					"type":        "string",
					"description": "Short, catchy post for Reels/TikTok",
				},
			},
			"required": []string{"long_post", "short_post"},
		},
	},
}

// EventPosts is the feed post and the reel caption for one day.
type EventPosts struct {
	Long  string `json:"long_post"`
	Short string `json:"short_post"`
	// Fallback is set when the fixed copy was used instead of generated text.
	Fallback bool `json:"fallback"`
}

// EventWriter turns a day's events into social copy.
type EventWriter struct {
	chat      ToolCaller
	searchURL string
	limit     int
	logger    logging.Logger
}

// NewEventWriter returns a writer that links to the listing at searchBase and
// sends at most limit events to the model.
func NewEventWriter(chat ToolCaller, searchBase string, limit int, logger logging.Logger) *EventWriter {
	if limit <= 0 {
		limit = 10
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &EventWriter{chat: chat, searchURL: searchBase, limit: limit, logger: logger}
}

type eventsInput struct {
	Date     string          `json:"date"`
	Events   []scraper.Event `json:"events"`
	Metadata struct {
		SearchURL string `json:"search_url"`
	} `json:"metadata"`
}

// Write never fails: any error talking to the model, or an unusable reply,
// yields the fixed copy with Fallback set.
func (w *EventWriter) Write(ctx context.Context, date string, events []scraper.Event) EventPosts {
	in := eventsInput{Date: date, Events: events}
	if len(in.Events) > w.limit {
		in.Events = in.Events[:w.limit]
	}
	if in.Events == nil {
		in.Events = []scraper.Event{}
	}
	in.Metadata.SearchURL = scraper.PublicSearchURL(w.searchURL, date, date)

	posts, err := w.generate(ctx, in)
	if err != nil {
		w.logger.Warnf(logging.TypeGenerate, "event copy for %s fell back to fixed text: %v", date, err)
		return FallbackEventPosts(date, w.searchURL)
	}
	posts.Long = withFooter(posts.Long, in.Metadata.SearchURL)
	posts.Short = withFooter(posts.Short, in.Metadata.SearchURL)
	return posts
}

func (w *EventWriter) generate(ctx context.Context, in eventsInput) (EventPosts, error) {
	data, err := indentJSON(in)
	if err != nil {
		return EventPosts{}, err
	}
	args, err := w.chat.CallTool(ctx, Chat{
		Messages:    []Message{{Role: "user", Content: eventsPrompt + data}},
		Temperature: 0.7,
		MaxTokens:   500,
	}, socialPostsTool)
	if err != nil {
		return EventPosts{}, err
	}

	var posts EventPosts
	if !decodeObject(args, &posts) {
		return EventPosts{}, fmt.Errorf("unparseable function arguments")
	}
	posts.Long = strings.TrimSpace(posts.Long)
	posts.Short = strings.TrimSpace(posts.Short)
	if posts.Long == "" || posts.Short == "" {
		return EventPosts{}, fmt.Errorf("function arguments missing a post")
	}
	posts.Fallback = false
	return posts, nil
}

// FallbackEventPosts is the fixed copy used when generation fails.
func FallbackEventPosts(date, searchBase string) EventPosts {
	heading := DayHeading(date)
	footer := MoreLine(searchBase) + "\n" + StayLine
	return EventPosts{
		Long:     fmt.Sprintf("✨ What's Happening in Pensacola – %s ✨\n\nDowntown vibes, Beach beats, and more!\n\n%s", heading, footer),
		Short:    "Pensacola's got the vibes today! 🌊✨\n\n" + footer,
		Fallback: true,
	}
}

// withFooter appends the two closing lines when the model left them out.
func withFooter(post, searchURL string) string {
	if strings.Contains(post, "www.micasa.rentals") {
		return post
	}
	return post + "\n\n" + MoreLine(searchURL) + "\n" + StayLine
}

// DayHeading formats date the way post headers show it.
func DayHeading(date string) string {
	t, err := holiday.ParseDate(date)
	if err != nil {
		return date
	}
	return t.Format("Monday, Jan 2")
}
