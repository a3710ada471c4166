// Package scraper collects daily events from the tourism site's listing pages.
package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"

	"github.com/micasa/marketer/internal/config"
	"github.com/micasa/marketer/internal/holiday"
	"github.com/micasa/marketer/internal/logging"
	"github.com/micasa/marketer/internal/metrics"
	"github.com/micasa/marketer/internal/upstream"
)

const service = "event_site"

// categories is the listing filter the site uses for public events.
const categories = "544740,544743,544744,544746,544751,544752,2581955,7482323,7639914"

// maxDescriptionChars bounds readability excerpts.
const maxDescriptionChars = 300

// Event is one scraped listing entry.
type Event struct {
	Title       string `json:"title"`
	Date        string `json:"date"`
	Location    string `json:"location"`
	Description string `json:"description"`
	Link        string `json:"link"`
}

// Metadata describes a scrape.
type Metadata struct {
	SearchDate     string   `json:"search_date"`
	EndDate        string   `json:"end_date"`
	DaysRange      int      `json:"days_range"`
	TotalEvents    int      `json:"total_events"`
	LocationsFound []string `json:"locations_found"`
	SearchURL      string   `json:"search_url"`
	SearchURLsUsed []string `json:"search_urls_used"`
	Timestamp      string   `json:"timestamp"`
	Source         string   `json:"source"`
}

// Document is the scrape output written by the scrape command.
type Document struct {
	Metadata Metadata `json:"metadata"`
	Events   []Event  `json:"events"`
}

// Scraper fetches and parses listing pages.
type Scraper struct {
	cfg     config.ScraperConfig
	client  *upstream.Client
	cache   Cache
	logger  logging.Logger
	metrics metrics.Recorder
	now     func() time.Time
}

// New builds a Scraper. client may be nil, in which case one is created from cfg.
func New(cfg config.ScraperConfig, client *upstream.Client, logger logging.Logger, m metrics.Recorder) *Scraper {
	if m == nil {
		m = metrics.Nop()
	}
	if client == nil {
		client = upstream.New(cfg.Timeout, m)
	}
	if cfg.MaxBodyBytes > 0 {
		client.MaxBody = cfg.MaxBodyBytes
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Scraper{
		cfg:     cfg,
		client:  client,
		cache:   NewCache(cfg.CacheMB),
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// SearchURL returns the listing URL for [from, to]; page 1 carries no page parameter.
func SearchURL(base, from, to string, page int) string {
	q := url.Values{}
	q.Set("range", "1")
	q.Set("date-from", from)
	q.Set("date-to", to)
	q.Set("categories", categories)
	q.Set("calendar", "1")
	if page > 1 {
		q.Set("page", fmt.Sprint(page))
	}
	return strings.TrimRight(base, "?") + "?" + q.Encode()
}

// PublicSearchURL is the short link shown to readers in event posts.
func PublicSearchURL(base, from, to string) string {
	return fmt.Sprintf("%s?range=1&date-from=%s&date-to=%s", strings.TrimRight(base, "?"), from, to)
}

// EventsForDate scrapes every configured listing page for date and returns the
// deduplicated events plus the URLs fetched. It fails only when every page fails.
func (s *Scraper) EventsForDate(ctx context.Context, date string) ([]Event, []string, error) {
	pages := s.cfg.Pages
	if pages < 1 {
		pages = 1
	}

	var (
		events  []Event
		urls    []string
		lastErr error
		failed  int
	)
	seen := map[string]bool{}

	for page := 1; page <= pages; page++ {
		if page > 1 && s.cfg.RequestDelay > 0 {
			if err := sleep(ctx, s.cfg.RequestDelay); err != nil {
				return nil, urls, err
			}
		}
		pageURL := SearchURL(s.cfg.BaseURL, date, date, page)
		urls = append(urls, pageURL)

		found, err := s.scrapePage(ctx, pageURL, date)
		if err != nil {
			s.logger.Warnf(logging.TypeCollect, "scrape %s failed: %v", pageURL, err)
			lastErr = err
			failed++
			continue
		}
		for _, e := range found {
			key := e.Title + "\x00" + e.Link
			if seen[key] {
				continue
			}
			seen[key] = true
			events = append(events, e)
		}
	}
	if failed == pages {
		return nil, urls, lastErr
	}

	if s.cfg.FetchDetails {
		s.describe(ctx, events)
	}
	s.logger.Infof(logging.TypeCollect, "found %d event(s) on %s", len(events), date)
	return events, urls, nil
}

// EventsForRange scrapes each day in [from, to] and assembles the output document.
func (s *Scraper) EventsForRange(ctx context.Context, from, to string) (*Document, error) {
	start, err := holiday.ParseDate(from)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", from, err)
	}
	end, err := holiday.ParseDate(to)
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q: %w", to, err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("end date %s is before start date %s", to, from)
	}

	all := []Event{}
	var urls []string
	var lastErr error
	days, failedDays := 0, 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days++
		events, used, err := s.EventsForDate(ctx, d.Format(holiday.DateLayout))
		urls = append(urls, used...)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			failedDays++
			continue
		}
		all = append(all, events...)
	}
	if failedDays == days {
		return nil, lastErr
	}

	return &Document{
		Metadata: Metadata{
			SearchDate:     from,
			EndDate:        to,
			DaysRange:      days,
			TotalEvents:    len(all),
			LocationsFound: locations(all),
			SearchURL:      SearchURL(s.cfg.BaseURL, from, to, 1),
			SearchURLsUsed: urls,
			Timestamp:      holiday.FormatTime(s.now()),
			Source:         sourceName(s.cfg.BaseURL),
		},
		Events: all,
	}, nil
}

func (s *Scraper) scrapePage(ctx context.Context, pageURL, date string) ([]Event, error) {
	body, err := s.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	u, _ := url.Parse(pageURL)
	return ParseListing(bytes.NewReader(body), u, date)
}

func (s *Scraper) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if s.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", s.cfg.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	return s.client.Do(service, req)
}

// describe replaces each event's title-only description with a readability
// excerpt of its detail page, up to DetailLimit pages per call.
func (s *Scraper) describe(ctx context.Context, events []Event) {
	limit := s.cfg.DetailLimit
	for i := range events {
		if limit > 0 && i >= limit {
			return
		}
		link := events[i].Link
		if link == "" {
			continue
		}
		if cached, ok := s.cache.Get(link); ok {
			s.metrics.IncCacheHits()
			events[i].Description = string(cached)
			continue
		}
		s.metrics.IncCacheMisses()

		body, err := s.get(ctx, link)
		if err != nil {
			s.logger.Debugf(logging.TypeCollect, "detail page %s: %v", link, err)
			continue
		}
		u, _ := url.Parse(link)
		article, err := readability.FromReader(bytes.NewReader(body), u)
		if err != nil {
			s.logger.Debugf(logging.TypeCollect, "readability %s: %v", link, err)
			continue
		}
		desc := strings.TrimSpace(article.Excerpt)
		if desc == "" {
			desc = strings.Join(strings.Fields(article.TextContent), " ")
		}
		if desc == "" {
			continue
		}
		desc = holiday.Truncate(desc, maxDescriptionChars)
		s.cache.Set(link, []byte(desc))
		events[i].Description = desc
	}
}

func locations(events []Event) []string {
	set := map[string]bool{}
	for _, e := range events {
		if e.Location != "" {
			set[e.Location] = true
		}
	}
	out := make([]string, 0, len(set))
	for l := range set {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

func sourceName(base string) string {
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return base
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

// ToSourceItems converts events into collector items.
func ToSourceItems(events []Event) []holiday.SourceItem {
	items := make([]holiday.SourceItem, 0, len(events))
	for _, e := range events {
		items = append(items, holiday.SourceItem{
			Name:        e.Title,
			Date:        e.Date,
			Country:     "US",
			Type:        e.Location,
			Description: e.Description,
			Link:        e.Link,
		})
	}
	return items
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
