package scraper

import (
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"

	"github.com/micasa/marketer/internal/holiday"
)

// Location labels.
const (
	LocationDowntown = "Downtown Pensacola"
	LocationBeach    = "Pensacola Beach"
	LocationOther    = "Pensacola"
)

var (
	isoDateRegex   = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	slashDateRegex = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b`)
	monthDayRegex  = regexp.MustCompile(`(?i)\b(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?\s+(\d{1,2})(?:st|nd|rd|th)?\b(?:,?\s+(\d{4}))?`)

	downtownWords = []string{"downtown", "palafox", "seville"}
	beachWords    = []string{"beach", "gulf breeze", "perdido"}
)

// ParseListing extracts the event cards from one listing page. Cards are found
// through their "Learn more" links; the title comes from the first h3, h2 or h1
// in the enclosing article or div.card. Dates that cannot be read fall back to
// targetDate, and only events on targetDate are returned.
func ParseListing(r io.Reader, pageURL *url.URL, targetDate string) ([]Event, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	ref, err := holiday.ParseDate(targetDate)
	if err != nil {
		return nil, fmt.Errorf("invalid target date %q: %w", targetDate, err)
	}

	var events []Event
	seenHref := map[string]bool{}
	seen := map[string]bool{}

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if !strings.Contains(href, "/events/") || seenHref[href] {
			return
		}
		if !strings.Contains(strings.ToLower(a.Text()), "learn more") {
			return
		}
		seenHref[href] = true

		card := a.Closest("article")
		if card.Length() == 0 {
			card = a.Closest("div.card")
		}
		if card.Length() == 0 {
			return
		}

		title := cardTitle(card)
		text := card.Text()
		date := ParseEventDate(text, ref)
		if date == "" {
			date = targetDate
		}
		if date != targetDate {
			return
		}

		link := resolve(pageURL, href)
		key := title + "\x00" + link
		if seen[key] {
			return
		}
		seen[key] = true

		events = append(events, Event{
			Title:       title,
			Date:        date,
			Location:    ClassifyLocation(text),
			Description: title,
			Link:        link,
		})
	})
	return events, nil
}

func cardTitle(card *goquery.Selection) string {
	for _, sel := range []string{"h3", "h2", "h1"} {
		if h := card.Find(sel).First(); h.Length() > 0 {
			if t := strings.Join(strings.Fields(h.Text()), " "); t != "" {
				return t
			}
		}
	}
	return "Unknown Event"
}

func resolve(base *url.URL, href string) string {
	u, err := url.Parse(href)
	if err != nil || base == nil {
		return href
	}
	return base.ResolveReference(u).String()
}

// ParseEventDate finds the first date in text and returns it in DateLayout.
// Month-day dates without a year take ref's year. Returns "" when nothing parses.
func ParseEventDate(text string, ref time.Time) string {
	var candidates []string
	if m := isoDateRegex.FindString(text); m != "" {
		candidates = append(candidates, m)
	}
	if m := slashDateRegex.FindString(text); m != "" {
		candidates = append(candidates, m)
	}
	if m := monthDayRegex.FindStringSubmatch(text); m != nil {
		year := m[3]
		if year == "" {
			year = fmt.Sprint(ref.Year())
		}
		month := strings.ToUpper(m[1][:1]) + strings.ToLower(m[1][1:3])
		candidates = append(candidates, fmt.Sprintf("%s %s, %s", month, m[2], year))
	}

	for _, c := range candidates {
		t, err := dateparse.ParseIn(c, time.UTC)
		if err != nil {
			continue
		}
		return t.Format(holiday.DateLayout)
	}
	return ""
}

// ClassifyLocation maps card text to one of the location labels.
func ClassifyLocation(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "downtown pensacola"):
		return LocationDowntown
	case strings.Contains(lower, "pensacola beach"):
		return LocationBeach
	case containsAny(lower, downtownWords):
		return LocationDowntown
	case containsAny(lower, beachWords):
		return LocationBeach
	default:
		return LocationOther
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
