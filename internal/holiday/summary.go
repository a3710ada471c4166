package holiday

// DateSummary is a record without its source items or style blobs.
// Used for browse operations (dates list, dashboard, MCP) to keep payloads small.
type DateSummary struct {
	// Date is the store key
	Date string `json:"date"`

	// SelectedLabel is the featured holiday or event name
	SelectedLabel string `json:"selected_holiday"`

	// ToneCategory is Playful, Festive, or Respectful
	ToneCategory string `json:"tone_category,omitempty"`

	// Caption is the social caption
	Caption string `json:"caption"`

	// CaptionChars is the caption length in runes
	CaptionChars int `json:"caption_chars"`

	// SourceCount is how many raw items fell on this date
	SourceCount int `json:"source_count"`

	// FinalImagePath is the watermarked image (nullable)
	FinalImagePath *string `json:"final_image_path,omitempty"`

	// ContentReady mirrors the record flag
	ContentReady bool `json:"content_ready"`

	// Enhanced is true once holiday_text and catchphrase are both present
	Enhanced bool `json:"enhanced"`

	// GeneratedAt is when the content was produced
	GeneratedAt string `json:"generated_at"`
}

// ToSummary strips the record down to a DateSummary.
func (r *DateRecord) ToSummary() DateSummary {
	return DateSummary{
		Date:           r.Date,
		SelectedLabel:  r.SelectedLabel,
		ToneCategory:   r.ToneCategory,
		Caption:        r.Caption,
		CaptionChars:   CountChars(r.Caption),
		SourceCount:    len(r.SourceItems),
		FinalImagePath: r.FinalImagePath,
		ContentReady:   r.ContentReady,
		Enhanced:       r.Enhanced(),
		GeneratedAt:    r.GeneratedAt,
	}
}
