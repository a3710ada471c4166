package holiday

import (
	"bytes"
	"slices"
	"time"

	json "github.com/goccy/go-json"
)

// DateLayout is the calendar-day key format used throughout the store.
const DateLayout = "2006-01-02"

// SourceItem is one raw holiday or event collected for a calendar day.
type SourceItem struct {
	// HolidayID is the upstream identifier when the source list has one
	HolidayID int `json:"holiday_id,omitempty"`

	// Name is the display name of the holiday or event
	Name string `json:"name"`

	// Date is the calendar day in DateLayout
	Date string `json:"date"`

	// Country is the ISO country code (holidays) or "US" for scraped events
	Country string `json:"country,omitempty"`

	// Type is the category: "National holiday", "Observance", or an event location
	Type string `json:"type,omitempty"`

	// Description is optional free text
	Description string `json:"description,omitempty"`

	// Link points at the event detail page for scraped items
	Link string `json:"link,omitempty"`

	// Extra holds source keys this type does not model (occasion_id, created_at, ...)
	// so a load/save cycle writes them back unchanged.
	Extra map[string]json.RawMessage `json:"-"`
}

type sourceItemFields SourceItem

var sourceItemKeys = []string{"holiday_id", "name", "date", "country", "type", "description", "link"}

// UnmarshalJSON decodes the modelled fields and keeps every other key in Extra.
func (s *SourceItem) UnmarshalJSON(data []byte) error {
	var fields sourceItemFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, k := range sourceItemKeys {
		delete(raw, k)
	}
	fields.Extra = nil
	if len(raw) > 0 {
		fields.Extra = raw
	}
	*s = SourceItem(fields)
	return nil
}

// MarshalJSON writes the modelled fields in declaration order, then the
// Extra keys they do not shadow in sorted order.
func (s SourceItem) MarshalJSON() ([]byte, error) {
	known, err := json.MarshalNoEscape(sourceItemFields(s))
	if err != nil || len(s.Extra) == 0 {
		return known, err
	}
	keys := make([]string, 0, len(s.Extra))
	for k := range s.Extra {
		if !slices.Contains(sourceItemKeys, k) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	out := bytes.TrimSuffix(bytes.TrimSpace(known), []byte("}"))
	for _, k := range keys {
		name, err := json.MarshalNoEscape(k)
		if err != nil {
			return nil, err
		}
		out = append(out, ',')
		out = append(out, name...)
		out = append(out, ':')
		if v := s.Extra[k]; len(v) > 0 {
			out = append(out, v...)
		} else {
			out = append(out, "null"...)
		}
	}
	return append(out, '}'), nil
}

// DateRecord is the unit of generated content keyed by calendar date.
type DateRecord struct {
	// Date is the unique key (DateLayout)
	Date string `json:"date"`

	// SourceItems are the raw items that fell on this date
	SourceItems []SourceItem `json:"original_holidays"`

	// SelectedLabel is the item the generator chose to feature
	SelectedLabel string `json:"selected_holiday"`

	// ToneCategory is Playful, Festive, or Respectful
	ToneCategory string `json:"tone_category"`

	// Caption is the short social caption
	Caption string `json:"caption"`

	// ImagePrompt is the background image prompt sent to the image backend
	ImagePrompt string `json:"image_prompt"`

	// CaptionStyle and BrandingStyle are opaque style hints kept verbatim when present
	CaptionStyle  json.RawMessage `json:"caption_style,omitempty"`
	BrandingStyle json.RawMessage `json:"branding_style,omitempty"`

	// BackgroundImagePath is the raw generated image (nullable)
	BackgroundImagePath *string `json:"background_image_path"`

	// FinalImagePath is the watermarked image (nullable)
	FinalImagePath *string `json:"final_image_path"`

	// AnimationPath is the optional animated clip of the background
	AnimationPath *string `json:"animation_path,omitempty"`

	// GeneratedAt is the RFC 3339 time the content was produced
	GeneratedAt string `json:"generated_at"`

	// ContentReady is true iff Caption is non-empty and FinalImagePath is set
	ContentReady bool `json:"content_ready"`

	// HolidayText is the short on-video headline added by the enhancer
	HolidayText string `json:"holiday_text,omitempty"`

	// Catchphrase is the promotional second line added by the enhancer
	Catchphrase string `json:"catchphrase,omitempty"`

	// EnhancedAt is when HolidayText/Catchphrase were written
	EnhancedAt string `json:"enhanced_at,omitempty"`
}

// Ready reports whether both the caption and the final image exist.
func (r *DateRecord) Ready() bool {
	return r.Caption != "" && r.FinalImagePath != nil && *r.FinalImagePath != ""
}

// Evaluate recomputes ContentReady. Every write path calls it so the flag can
// never claim an artifact that is missing.
func (r *DateRecord) Evaluate() {
	r.ContentReady = r.Ready()
}

// Enhanced reports whether the enhancer fields are both present.
func (r *DateRecord) Enhanced() bool {
	return r.HolidayText != "" && r.Catchphrase != ""
}

// Store is the persisted document: every DateRecord produced so far.
type Store struct {
	// GeneratedAt is the time of the last merge (nullable for a fresh store)
	GeneratedAt *string `json:"generated_at"`

	// TotalDates mirrors len(HolidaysByDate)
	TotalDates int `json:"total_dates"`

	// HolidaysByDate maps DateLayout keys to records
	HolidaysByDate map[string]DateRecord `json:"holidays_by_date"`
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{HolidaysByDate: make(map[string]DateRecord)}
}

// Get returns the record for date, if present.
func (s *Store) Get(date string) (DateRecord, bool) {
	r, ok := s.HolidaysByDate[date]
	return r, ok
}

// IsReady reports whether date exists and is content ready.
func (s *Store) IsReady(date string) bool {
	r, ok := s.HolidaysByDate[date]
	return ok && r.ContentReady
}

// StrPtr returns a pointer to s, or nil when s is empty.
func StrPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Content is what the caption generator produces for one date.
type Content struct {
	SelectedLabel string `json:"selected_holiday"`
	ToneCategory  string `json:"tone_category"`
	Caption       string `json:"caption"`
	ImagePrompt   string `json:"image_prompt"`
}

// NewRecord builds a record for date from the generated content and image paths.
// A nil content produces the not-ready record kept for failed dates so a later
// run can retry them.
func NewRecord(date string, items []SourceItem, c *Content, background, final *string, now time.Time) DateRecord {
	r := DateRecord{
		Date:                date,
		SourceItems:         items,
		BackgroundImagePath: background,
		FinalImagePath:      final,
		GeneratedAt:         FormatTime(now),
	}
	if r.SourceItems == nil {
		r.SourceItems = []SourceItem{}
	}
	if c != nil {
		r.SelectedLabel = c.SelectedLabel
		r.ToneCategory = c.ToneCategory
		r.Caption = c.Caption
		r.ImagePrompt = c.ImagePrompt
	}
	r.Evaluate()
	return r
}

// FormatTime renders timestamps the way the store keeps them.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
