package holiday

import "sort"

// PromptExport is the simplified per-date view written by export-prompts.
type PromptExport struct {
	Date          string `json:"date"`
	SelectedLabel string `json:"selected_holiday"`
	ImagePrompt   string `json:"image_prompt"`
	Caption       string `json:"caption"`
}

// ToPromptExport converts a record to its export shape.
func (r *DateRecord) ToPromptExport() PromptExport {
	return PromptExport{
		Date:          r.Date,
		SelectedLabel: r.SelectedLabel,
		ImagePrompt:   r.ImagePrompt,
		Caption:       r.Caption,
	}
}

// SortedDates returns the store keys in ascending order.
func (s *Store) SortedDates() []string {
	dates := make([]string, 0, len(s.HolidaysByDate))
	for d := range s.HolidaysByDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// ExportPrompts returns one PromptExport per record with a non-empty image
// prompt, sorted by date.
func (s *Store) ExportPrompts() []PromptExport {
	out := []PromptExport{}
	for _, d := range s.SortedDates() {
		r := s.HolidaysByDate[d]
		if r.ImagePrompt == "" {
			continue
		}
		out = append(out, r.ToPromptExport())
	}
	return out
}
