package content

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/micasa/marketer/internal/config"
	"github.com/micasa/marketer/internal/errors"
	"github.com/micasa/marketer/internal/holiday"
	"github.com/micasa/marketer/internal/scraper"
	"github.com/micasa/marketer/internal/testutil"
)

// fakeChat replays canned replies and records the chats it saw.
type fakeChat struct {
	reply string
	err   error
	seen  []Chat
	tools []Tool
}

func (f *fakeChat) Complete(_ context.Context, c Chat) (string, error) {
	f.seen = append(f.seen, c)
	return f.reply, f.err
}

func (f *fakeChat) CallTool(_ context.Context, c Chat, tool Tool) (string, error) {
	f.seen = append(f.seen, c)
	f.tools = append(f.tools, tool)
	return f.reply, f.err
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around", "Here you go:\n```json\n{\"a\":1}\n```\nEnjoy", `{"a":1}`},
		{"single line fence", "```{\"a\":1}```", `{"a":1}`},
		{"whitespace", "  {\"a\":1}\n", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripFences(tt.in))
		})
	}
}

func TestGenerate_Parsed(t *testing.T) {
	chat := &fakeChat{reply: "```json\n" + `{
		"selected_holiday": "Veterans Day",
		"tone_category": "Respectful",
		"caption": " Honoring all who served. ",
		"image_prompt": "Flag at dawn over a quiet memorial"
	}` + "\n```"}
	g := NewGenerator(chat)

	res, err := g.Generate(context.Background(), []holiday.SourceItem{
		{Name: "Veterans Day", Date: "2025-11-11", Country: "US", Type: "National holiday"},
	})
	require.NoError(t, err)
	parsed, ok := res.(Parsed)
	require.True(t, ok, "result = %#v", res)
	assert.Equal(t, "Veterans Day", parsed.Content.SelectedLabel)
	assert.Equal(t, ToneRespectful, parsed.Content.ToneCategory)
	assert.Equal(t, "Honoring all who served.", parsed.Content.Caption)

	require.Len(t, chat.seen, 1)
	msgs := chat.seen[0].Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].Role)
	assert.True(t, strings.HasPrefix(msgs[1].Content, "JSON input:\n["))
	assert.Contains(t, msgs[1].Content, `"name": "Veterans Day"`)
	assert.NotContains(t, msgs[1].Content, "2025-11-11")
	assert.Equal(t, 500, chat.seen[0].MaxTokens)
}

func TestGenerate_Malformed(t *testing.T) {
	for _, reply := range []string{"Sorry, I can't help with that.", `{"caption": `, "[1,2]"} {
		g := NewGenerator(&fakeChat{reply: reply})
		res, err := g.Generate(context.Background(), nil)
		require.NoError(t, err)
		m, ok := res.(Malformed)
		require.True(t, ok, "reply %q gave %#v", reply, res)
		assert.Equal(t, reply, m.Raw)
	}
}

func TestGenerate_TransportError(t *testing.T) {
	g := NewGenerator(&fakeChat{err: errors.NewNetwork("openai", fmt.Errorf("refused"))})
	res, err := g.Generate(context.Background(), nil)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, errors.ErrNetwork))
}

func TestEnhance_CleansLines(t *testing.T) {
	long := strings.Repeat("Comfort meets convenience ", 5)
	chat := &fakeChat{reply: fmt.Sprintf(`{"holiday_text": "Happy Halloween 🎃", "catchphrase": %q}`, long)}
	e := NewEnhancer(chat)

	res, err := e.Enhance(context.Background(), holiday.DateRecord{Date: "2025-10-31", SelectedLabel: "Halloween"})
	require.NoError(t, err)
	got, ok := res.(Enhanced)
	require.True(t, ok, "result = %#v", res)
	assert.Equal(t, "Happy Halloween", got.HolidayText)
	assert.LessOrEqual(t, holiday.CountChars(got.Catchphrase), MaxLineChars)
	assert.True(t, strings.HasPrefix(got.Catchphrase, "Comfort meets convenience"))

	prompt := chat.seen[0].Messages[1].Content
	assert.Contains(t, prompt, `"Halloween" on 2025-10-31`)
	assert.Equal(t, 200, chat.seen[0].MaxTokens)
}

func TestEnhance_MissingLineIsMalformed(t *testing.T) {
	e := NewEnhancer(&fakeChat{reply: `{"holiday_text": "🎃🎃", "catchphrase": "Stay with us"}`})
	res, err := e.Enhance(context.Background(), holiday.DateRecord{Date: "2025-10-31"})
	require.NoError(t, err)
	_, ok := res.(Malformed)
	assert.True(t, ok, "result = %#v", res)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Diwali", Label(holiday.DateRecord{SelectedLabel: "Diwali"}))
	assert.Equal(t, "First", Label(holiday.DateRecord{SourceItems: []holiday.SourceItem{{Name: "First"}, {Name: "Second"}}}))
	assert.Equal(t, "", Label(holiday.DateRecord{}))
}

func TestEventWriter_Generated(t *testing.T) {
	chat := &fakeChat{reply: `{"long_post": "✨ What's Happening ✨\n\nDowntown: Ghost Tour", "short_post": "Catch the Ghost Tour tonight!"}`}
	w := NewEventWriter(chat, "https://www.visitpensacola.com/events/", 2, nil)

	events := []scraper.Event{{Title: "A"}, {Title: "B"}, {Title: "C"}}
	posts := w.Write(context.Background(), "2025-09-21", events)

	assert.False(t, posts.Fallback)
	assert.True(t, strings.HasSuffix(posts.Long, StayLine))
	assert.Contains(t, posts.Short, "date-from=2025-09-21&date-to=2025-09-21")

	require.Len(t, chat.tools, 1)
	assert.Equal(t, "create_social_posts", chat.tools[0].Function.Name)
	prompt := chat.seen[0].Messages[0].Content
	assert.Contains(t, prompt, `"title": "B"`)
	assert.NotContains(t, prompt, `"title": "C"`)
}

func TestEventWriter_KeepsModelFooter(t *testing.T) {
	post := "Fun day!\n📍 For more: Visit Pensacola → x\n" + StayLine
	chat := &fakeChat{reply: fmt.Sprintf(`{"long_post": %q, "short_post": %q}`, post, post)}
	w := NewEventWriter(chat, "https://example.com/events/", 10, nil)

	posts := w.Write(context.Background(), "2025-09-21", nil)
	assert.Equal(t, post, posts.Long)
	assert.Equal(t, 1, strings.Count(posts.Short, StayLine))
}

func TestEventWriter_FallbackOnError(t *testing.T) {
	logger := &testutil.MockLogger{}
	w := NewEventWriter(&fakeChat{err: errors.NewTimeout("openai")}, "https://www.visitpensacola.com/events/", 10, logger)

	posts := w.Write(context.Background(), "2025-09-21", nil)
	assert.True(t, posts.Fallback)
	assert.Contains(t, posts.Long, "What's Happening in Pensacola – Sunday, Sep 21")
	assert.True(t, strings.HasSuffix(posts.Short, StayLine))
	assert.True(t, logger.Contains("warn", "fell back"))
}

func TestEventWriter_FallbackOnEmptyPost(t *testing.T) {
	w := NewEventWriter(&fakeChat{reply: `{"long_post": "x", "short_post": ""}`}, "https://example.com/", 10, nil)
	assert.True(t, w.Write(context.Background(), "2025-09-21", nil).Fallback)
}

func TestFactWriter(t *testing.T) {
	fact, fallback := NewFactWriter(&fakeChat{reply: "🌊 Pensacola is the oldest European settlement in the US."}, nil).Write(context.Background())
	assert.False(t, fallback)
	assert.Contains(t, fact, "oldest")

	fact, fallback = NewFactWriter(&fakeChat{err: errors.NewTimeout("openai")}, nil).Write(context.Background())
	assert.True(t, fallback)
	assert.Equal(t, FallbackFact, fact)

	long := strings.Repeat("word ", 100)
	fact, _ = NewFactWriter(&fakeChat{reply: long}, nil).Write(context.Background())
	assert.LessOrEqual(t, holiday.CountChars(fact), MaxFactChars)
}

func TestOpenAI_CompleteAndCallTool(t *testing.T) {
	var bodies []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		data, _ := io.ReadAll(r.Body)
		var body map[string]any
		assert.NoError(t, json.Unmarshal(data, &body))
		bodies = append(bodies, body)

		if _, ok := body["tools"]; ok {
			w.Write([]byte(`{"choices":[{"message":{"tool_calls":[{"function":{"name":"create_social_posts","arguments":"{\"long_post\":\"L\",\"short_post\":\"S\"}"}}]}}]}`))
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"  hello  "}}]}`))
	}))
	defer srv.Close()

	o := NewOpenAI(config.OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1/", ChatModel: "gpt-4", Timeout: 5 * time.Second}, nil)

	text, err := o.Complete(context.Background(), Chat{Messages: []Message{{Role: "user", Content: "hi"}}, Temperature: 0.7, MaxTokens: 10})
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	args, err := o.CallTool(context.Background(), Chat{Messages: []Message{{Role: "user", Content: "hi"}}}, socialPostsTool)
	require.NoError(t, err)
	assert.JSONEq(t, `{"long_post":"L","short_post":"S"}`, args)

	require.Len(t, bodies, 2)
	assert.Equal(t, "gpt-4", bodies[0]["model"])
	assert.EqualValues(t, 10, bodies[0]["max_tokens"])
	choice := bodies[1]["tool_choice"].(map[string]any)
	assert.Equal(t, "function", choice["type"])
}

func TestOpenAI_NoChoicesIsParseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	o := NewOpenAI(config.OpenAIConfig{BaseURL: srv.URL, ChatModel: "gpt-4", Timeout: 5 * time.Second}, nil)
	_, err := o.Complete(context.Background(), Chat{})
	assert.True(t, errors.Is(err, errors.ErrParse), "err = %v", err)
}

func TestOpenAI_NoToolCallIsParseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"no tools here"}}]}`))
	}))
	defer srv.Close()

	o := NewOpenAI(config.OpenAIConfig{BaseURL: srv.URL, ChatModel: "gpt-4", Timeout: 5 * time.Second}, nil)
	_, err := o.CallTool(context.Background(), Chat{}, socialPostsTool)
	assert.True(t, errors.Is(err, errors.ErrParse), "err = %v", err)
}
