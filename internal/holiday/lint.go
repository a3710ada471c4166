package holiday

import "strings"

// MaxCatchphraseChars bounds the promotional line drawn under video headlines.
const MaxCatchphraseChars = 70

// Lint problem names.
const (
	ProblemMissingCaption    = "missing_caption"
	ProblemMissingImage      = "missing_final_image"
	ProblemReadyMismatch     = "content_ready_mismatch"
	ProblemCatchphraseLength = "catchphrase_too_long"
	ProblemCatchphraseEmoji  = "catchphrase_has_emoji"
	ProblemBadDate           = "invalid_date"
	ProblemKeyMismatch       = "key_mismatch"
)

// LintResult lists what is wrong with one record.
type LintResult struct {
	Date     string   `json:"date"`
	Valid    bool     `json:"valid"`
	Problems []string `json:"problems,omitempty"`
}

// Lint checks a record stored under key.
func Lint(key string, r DateRecord) LintResult {
	res := LintResult{Date: key, Valid: true}
	add := func(p string) {
		res.Problems = append(res.Problems, p)
		res.Valid = false
	}

	if _, err := ParseDate(key); err != nil {
		add(ProblemBadDate)
	}
	if r.Date != key {
		add(ProblemKeyMismatch)
	}
	if strings.TrimSpace(r.Caption) == "" {
		add(ProblemMissingCaption)
	}
	if r.FinalImagePath == nil || *r.FinalImagePath == "" {
		add(ProblemMissingImage)
	}
	if r.ContentReady != r.Ready() {
		add(ProblemReadyMismatch)
	}
	if r.Catchphrase != "" {
		if CountChars(r.Catchphrase) > MaxCatchphraseChars {
			add(ProblemCatchphraseLength)
		}
		if StripEmoji(r.Catchphrase) != strings.TrimSpace(r.Catchphrase) {
			add(ProblemCatchphraseEmoji)
		}
	}
	return res
}

// LintStore lints every record, in date order, returning only invalid ones.
func LintStore(s *Store) []LintResult {
	var out []LintResult
	for _, d := range s.SortedDates() {
		if res := Lint(d, s.HolidaysByDate[d]); !res.Valid {
			out = append(out, res)
		}
	}
	return out
}
