package content

import (
	"context"
	"fmt"

	"github.com/micasa/marketer/internal/holiday"
)

// MaxLineChars bounds the on-video headline and promo line.
const MaxLineChars = holiday.MaxCatchphraseChars

const enhancerSystemPrompt = "You are an expert marketing copywriter specializing in vacation rental marketing."

const enhancerPrompt = `You are a marketing copywriter for MiCasa.Rentals, a Pensacola, FL vacation rental company with 12 furnished short-term and long-term rental properties.

For the holiday %q on %s, create:

1. holiday_text: A brief, warm holiday greeting (under 70 characters, no emoticons/emojis). Examples:
   - "Happy Halloween"
   - "Celebrating International Women's Day"
   - "Wishing you a peaceful World Mental Health Day"

2. catchphrase: A short, tactful brand tie-in for MiCasa.Rentals (under 70 characters, no emoticons/emojis). Should feel natural, not pushy. Examples:
   - "Your home away from home in beautiful Pensacola awaits"
   - "Comfort meets convenience in our furnished Pensacola rentals"
   - "Experience Pensacola like a local with MiCasa.Rentals"

IMPORTANT: Do not use any emoticons, emojis, or special characters. Keep text professional and under 70 characters each.

Respond in valid JSON format:
{
  "holiday_text": "Brief greeting here",
  "catchphrase": "Tactful brand tie-in here"
}
`

// Enhancer writes the two short lines burned into branded videos.
type Enhancer struct {
	chat Completer
}

// NewEnhancer returns an Enhancer backed by chat.
func NewEnhancer(chat Completer) *Enhancer {
	return &Enhancer{chat: chat}
}

// Label is the name the enhancer writes about: the selected holiday, or the
// first source item when nothing was selected.
func Label(r holiday.DateRecord) string {
	if r.SelectedLabel != "" {
		return r.SelectedLabel
	}
	if len(r.SourceItems) > 0 {
		return r.SourceItems[0].Name
	}
	return ""
}

// Enhance returns Enhanced or Malformed. Both lines are stripped of emoji and
// cut to MaxLineChars; a reply missing either line is Malformed.
func (e *Enhancer) Enhance(ctx context.Context, r holiday.DateRecord) (Result, error) {
	raw, err := e.chat.Complete(ctx, Chat{
		Messages: []Message{
			{Role: "system", Content: enhancerSystemPrompt},
			{Role: "user", Content: fmt.Sprintf(enhancerPrompt, Label(r), r.Date)},
		},
		Temperature: 0.7,
		MaxTokens:   200,
	})
	if err != nil {
		return nil, err
	}

	var out Enhanced
	if !decodeObject(raw, &out) {
		return Malformed{Raw: raw}, nil
	}
	out.HolidayText = cleanLine(out.HolidayText)
	out.Catchphrase = cleanLine(out.Catchphrase)
	if out.HolidayText == "" || out.Catchphrase == "" {
		return Malformed{Raw: raw}, nil
	}
	return out, nil
}

func cleanLine(s string) string {
	return holiday.Truncate(holiday.StripEmoji(s), MaxLineChars)
}
