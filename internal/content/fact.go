package content

import (
	"context"

	"github.com/micasa/marketer/internal/holiday"
	"github.com/micasa/marketer/internal/logging"
)

// MaxFactChars bounds a generated fact.
const MaxFactChars = 300

// FallbackFact is posted when no fact could be generated.
const FallbackFact = "🏖️ Pensacola Beach boasts some of the world's whitest sand beaches, made of pure quartz crystals! ✨"

const factPrompt = `Generate a single interesting, fun fact about Pensacola, Gulf Coast, or Escambia County area.

Requirements:
- Focus on history, nature, culture, attractions, or unique features
- Make it engaging and shareable for social media
- Keep it under 300 characters
- Include relevant emojis
- Make it feel local and authentic
- Don't use hashtags

Examples:
Did you know?
🏴‍☠️ Pensacola was once the hideout of pirate Jean Lafitte! The Gulf Coast's swashbuckling history lives on in our crystal waters ⚓
Fun Fact:
🌊 The Gulf Islands National Seashore protects 150 miles of pristine coastline - some of the whitest sand beaches in the world! 🏖️

Generate ONE fact in this style:`

// FactWriter produces one local fact per call.
type FactWriter struct {
	chat   Completer
	logger logging.Logger
}

// NewFactWriter returns a FactWriter backed by chat.
func NewFactWriter(chat Completer, logger logging.Logger) *FactWriter {
	if logger == nil {
		logger = logging.Nop()
	}
	return &FactWriter{chat: chat, logger: logger}
}

// Write returns a fact and whether FallbackFact was used.
func (f *FactWriter) Write(ctx context.Context) (string, bool) {
	fact, err := f.chat.Complete(ctx, Chat{
		Messages:    []Message{{Role: "user", Content: factPrompt}},
		Temperature: 0.8,
		MaxTokens:   150,
	})
	if err != nil {
		f.logger.Warnf(logging.TypeGenerate, "fact generation failed, using fallback: %v", err)
		return FallbackFact, true
	}
	if fact == "" {
		return FallbackFact, true
	}
	return holiday.Truncate(fact, MaxFactChars), false
}
