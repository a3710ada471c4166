package content

import (
	"bytes"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/micasa/marketer/internal/holiday"
)

// Result is the outcome of a completion whose reply had to be parsed.
// It is one of Parsed, Enhanced or Malformed.
type Result interface {
	result()
}

// Parsed carries a caption reply that decoded cleanly.
type Parsed struct {
	Content holiday.Content
}

// Enhanced carries the on-video headline and promo line.
type Enhanced struct {
	HolidayText string `json:"holiday_text"`
	Catchphrase string `json:"catchphrase"`
}

// Malformed carries a reply that was not the expected JSON object.
type Malformed struct {
	Raw string
}

func (Parsed) result()    {}
func (Enhanced) result()  {}
func (Malformed) result() {}

// StripFences removes a markdown code fence (``` or ```json) around a reply.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	start := strings.Index(s, "```")
	if start < 0 {
		return s
	}
	rest := s[start+3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 && !strings.ContainsAny(rest[:nl], "{[") {
		rest = rest[nl+1:]
	}
	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

// decodeObject unmarshals a fenced or bare JSON object into out.
func decodeObject(raw string, out any) bool {
	body := StripFences(raw)
	if !strings.HasPrefix(body, "{") {
		return false
	}
	return json.Unmarshal([]byte(body), out) == nil
}

// indentJSON renders v the way it is shown to the model: two-space indent,
// no HTML escaping.
func indentJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
