package content

import (
	"context"
	"strings"

	"github.com/micasa/marketer/internal/holiday"
)

const captionSystemPrompt = `You are a content assistant.
You are given a JSON array of holidays for a specific date.

Your task:
1. Pick the most important or engaging holiday.
   - Prioritize: National public holiday > major cultural/religious holiday > fun/quirky day.
2. Classify the holiday into a tone category:
   - Playful: quirky fun days like National Ninja Day, Burger Day.
   - Festive: cultural/religious holidays like Chanukah, Diwali, Christmas.
   - Respectful: solemn remembrance days like Veterans Day, Memorial Day, MLK Day.
3. Write a short caption.
4. Write a background image generation prompt for social media.

The image prompt must:
- Match the tone category (Playful / Festive / Respectful).
- Be styled for Instagram (square format).
- Focus only on background visuals, colors, atmosphere, composition, and symbolic characters.
- Be designed for virality in a natural, authentic way: realistic lighting, cinematic depth,
  balanced color palettes based on tone. Motion effects, subtle glow or texture are allowed but refined.
- May include a person or character that represents the holiday
  (a ninja for Ninja Day, Santa for Christmas, a family lighting a menorah for Chanukah,
  soldier silhouettes for Veterans Day).
- Explicitly exclude all text, captions, logos, watermarks, or words from the image.

Return your response as a JSON object with exactly these keys:
- "selected_holiday"
- "tone_category"
- "caption"
- "image_prompt"
`

// Tone categories the caption prompt asks for.
const (
	TonePlayful    = "Playful"
	ToneFestive    = "Festive"
	ToneRespectful = "Respectful"
)

// Completer is the slice of the chat client the writers need.
type Completer interface {
	Complete(ctx context.Context, c Chat) (string, error)
}

// ToolCaller forces a function call and returns its arguments.
type ToolCaller interface {
	CallTool(ctx context.Context, c Chat, tool Tool) (string, error)
}

// Generator turns the source items of one date into caption content.
type Generator struct {
	chat Completer
}

// NewGenerator returns a Generator backed by chat.
func NewGenerator(chat Completer) *Generator {
	return &Generator{chat: chat}
}

type promptItem struct {
	Name    string `json:"name"`
	Country string `json:"country"`
	Type    string `json:"type"`
}

// Generate asks for a caption and image prompt. Transport and HTTP failures are
// returned as errors; a reply that is not the expected object is Malformed.
func (g *Generator) Generate(ctx context.Context, items []holiday.SourceItem) (Result, error) {
	input := make([]promptItem, 0, len(items))
	for _, it := range items {
		input = append(input, promptItem{Name: it.Name, Country: it.Country, Type: it.Type})
	}
	data, err := indentJSON(input)
	if err != nil {
		return nil, err
	}

	raw, err := g.chat.Complete(ctx, Chat{
		Messages: []Message{
			{Role: "system", Content: captionSystemPrompt},
			{Role: "user", Content: "JSON input:\n" + data},
		},
		Temperature: 0.7,
		MaxTokens:   500,
	})
	if err != nil {
		return nil, err
	}

	var c holiday.Content
	if !decodeObject(raw, &c) {
		return Malformed{Raw: raw}, nil
	}
	c.Caption = strings.TrimSpace(c.Caption)
	c.ImagePrompt = strings.TrimSpace(c.ImagePrompt)
	return Parsed{Content: c}, nil
}
