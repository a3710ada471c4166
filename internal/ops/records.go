package ops

import (
	"fmt"

	"github.com/micasa/marketer/internal/errors"
	"github.com/micasa/marketer/internal/holiday"
	"github.com/micasa/marketer/internal/store"
)

// ListDatesInput contains parameters for the ListDates operation.
type ListDatesInput struct {
	StorePath string // required
	Filter    string // all (default), ready, pending
	From      string // optional inclusive lower bound
	To        string // optional inclusive upper bound
	Limit     int    // default: 50, max: 400
	Offset    int
}

// ListDatesOutput contains the result of the ListDates operation.
type ListDatesOutput struct {
	Items      []holiday.DateSummary `json:"items"`
	Pagination Pagination            `json:"pagination"`
	Sort       string                `json:"sort"`
}

// ListDates returns record summaries in ascending date order.
func ListDates(input ListDatesInput) (*ListDatesOutput, error) {
	if err := requirePath("store path", input.StorePath); err != nil {
		return nil, err
	}
	filter := input.Filter
	if filter == "" {
		filter = FilterAll
	}
	if filter != FilterAll && filter != FilterReady && filter != FilterPending {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("filter must be all, ready or pending, got %q", input.Filter))
	}
	for field, d := range map[string]string{"from": input.From, "to": input.To} {
		if d == "" {
			continue
		}
		if err := validateDate(field, d); err != nil {
			return nil, err
		}
	}

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset := max(input.Offset, 0)

	s, err := store.Load(input.StorePath, store.LoadOptions{})
	if err != nil {
		return nil, err
	}

	var matched []holiday.DateSummary
	for _, date := range s.SortedDates() {
		if input.From != "" && date < input.From {
			continue
		}
		if input.To != "" && date > input.To {
			continue
		}
		r := s.HolidaysByDate[date]
		if (filter == FilterReady && !r.ContentReady) || (filter == FilterPending && r.ContentReady) {
			continue
		}
		matched = append(matched, r.ToSummary())
	}

	total := len(matched)
	items := []holiday.DateSummary{}
	if offset < total {
		end := min(offset+limit, total)
		items = matched[offset:end]
	}

	return &ListDatesOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
		Sort: "date_asc",
	}, nil
}

// GetDateInput contains parameters for the GetDate operation.
type GetDateInput struct {
	StorePath string // required
	Date      string // required
}

// GetDate returns one full record.
func GetDate(input GetDateInput) (*holiday.DateRecord, error) {
	if err := requirePath("store path", input.StorePath); err != nil {
		return nil, err
	}
	if err := validateDate("date", input.Date); err != nil {
		return nil, err
	}
	s, err := store.Load(input.StorePath, store.LoadOptions{})
	if err != nil {
		return nil, err
	}
	r, ok := s.Get(input.Date)
	if !ok {
		return nil, errors.NewNotFound(input.Date)
	}
	return &r, nil
}

// LintInput contains parameters for the Lint operation.
type LintInput struct {
	StorePath string // required
}

// LintOutput contains the result of the Lint operation.
type LintOutput struct {
	Checked int                  `json:"checked"`
	Invalid int                  `json:"invalid"`
	Results []holiday.LintResult `json:"results"`
}

// Lint checks every record for problems that would break posting or branding.
// Only records with problems are returned.
func Lint(input LintInput) (*LintOutput, error) {
	if err := requirePath("store path", input.StorePath); err != nil {
		return nil, err
	}
	s, err := store.Load(input.StorePath, store.LoadOptions{})
	if err != nil {
		return nil, err
	}
	out := &LintOutput{Checked: len(s.HolidaysByDate), Results: []holiday.LintResult{}}
	out.Results = append(out.Results, holiday.LintStore(s)...)
	out.Invalid = len(out.Results)
	return out, nil
}
