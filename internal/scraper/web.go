package scraper

import (
	"context"
	"log"
	"strings"
	"time"

	"event-scout/internal/config"
	"event-scout/internal/domain/event"
)

// WebAdapter scrapes one configured web source per call: rate limit, cache,
// fetch-with-retry, flatten, then heuristic candidate extraction.
type WebAdapter struct {
	limiter   *RateLimiter
	cache     *Cache
	retrier   *Retrier
	validator *Validator
	fetcher   pageFetcher
	headless  pageFetcher
	stats     *Stats
	logger    *log.Logger

	maxDescription int
	probeURL       string
	now            func() time.Time
}

func NewWebAdapter(cfg config.ScrapeConfig, limiter *RateLimiter, cache *Cache, logger *log.Logger) *WebAdapter {
	stats := &Stats{}
	return &WebAdapter{
		limiter:        limiter,
		cache:          cache,
		retrier:        NewRetrier(cfg.MaxAttempts, cfg.InitialDelay, cfg.BackoffMultiplier, stats),
		validator:      NewValidator(cfg.MinEventNameLen, cfg.MaxEventNameLen),
		fetcher:        newCollyFetcher(cfg.FetchTimeout),
		headless:       newHeadlessFetcher(cfg.FetchTimeout),
		stats:          stats,
		logger:         logger,
		maxDescription: cfg.MaxDescription,
		probeURL:       "https://example.com/",
		now:            time.Now,
	}
}

func (a *WebAdapter) Kind() event.SourceKind { return event.KindWeb }

func (a *WebAdapter) Stats() StatsSnapshot { return a.stats.Snapshot() }

func (a *WebAdapter) Probe(ctx context.Context) error {
	_, err := a.fetcher.Fetch(ctx, a.probeURL)
	return err
}

func (a *WebAdapter) Scrape(ctx context.Context, src event.SourceDescriptor) ([]event.Candidate, error) {
	doc, err := a.fetchDocument(ctx, src)
	if err != nil {
		return nil, err
	}

	candidates := a.ParseEvents(doc, src)

	out := make([]event.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if err := a.validator.Validate(c); err != nil {
			if a.logger != nil {
				a.logger.Printf("scrape source=%s skip candidate=%q reason=%v", src.Name, c.Name, err)
			}
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (a *WebAdapter) fetchDocument(ctx context.Context, src event.SourceDescriptor) (*PageDocument, error) {
	key := CacheKey("web", src.Endpoint)
	if v, ok := a.cache.Get(key); ok {
		if doc, ok := v.(*PageDocument); ok {
			a.stats.CacheHit()
			return doc, nil
		}
	}

	if err := a.limiter.Acquire(ctx, event.KindWeb); err != nil {
		return nil, err
	}

	fetcher := a.fetcher
	if src.RenderJS {
		fetcher = a.headless
	}

	var doc *PageDocument
	err := a.retrier.Do(ctx, "scrape", src.Endpoint, func(ctx context.Context) error {
		d, err := fetcher.Fetch(ctx, src.Endpoint)
		if err != nil {
			return err
		}
		doc = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.cache.Set(key, doc)
	return doc, nil
}

// ParseEvents scans the flattened document line by line. A title line opens a
// candidate; following lines feed its date, location and description until
// the next title line. First match wins for every field, and candidates come
// back in document order.
func (a *WebAdapter) ParseEvents(doc *PageDocument, src event.SourceDescriptor) []event.Candidate {
	if doc == nil {
		return nil
	}

	scrapedAt := a.now().UTC()
	var out []event.Candidate
	var open *event.Candidate

	finalize := func() {
		if open == nil {
			return
		}
		name := strings.TrimSpace(open.Name)
		if name != "" && len(name) > 3 {
			out = append(out, *open)
		}
		open = nil
	}

	for _, rawLine := range strings.Split(doc.Markdown, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" {
			continue
		}

		cleaned := cleanText(line)
		if isTitleLine(line, cleaned, src.Keywords) {
			finalize()
			open = &event.Candidate{
				Name:      cleaned,
				Source:    src.Name,
				SourceURL: doc.URL,
				Tags:      extractTags(cleaned),
				ScrapedAt: scrapedAt,
			}
			continue
		}

		if open == nil {
			continue
		}
		if open.Date == nil {
			if d := extractDate(line); d != nil {
				open.Date = d
			}
		}
		if open.Location == nil {
			if loc := extractLocation(line); loc != nil {
				open.Location = loc
			}
		}
		if open.Description == "" && isDescriptionLine(line, cleaned) {
			open.Description = truncate(cleaned, a.maxDescription)
		}
	}
	finalize()

	// Headings unrelated to events slip past the length heuristic; require an
	// event indicator in the name or description before keeping a candidate.
	kept := out[:0]
	for _, c := range out {
		if matchesEventIndicator(c.Name, src.Keywords) || (c.Description != "" && matchesEventIndicator(c.Description, src.Keywords)) {
			kept = append(kept, c)
		}
	}
	return kept
}

func isTitleLine(line, cleaned string, keywords []string) bool {
	if strings.HasPrefix(line, "#") {
		return true
	}
	if len(cleaned) < 10 || len(cleaned) > 100 {
		return false
	}
	// Prose mentions events too; keep sentences and links out of the title slot.
	if strings.HasSuffix(cleaned, ".") || containsURL(line) {
		return false
	}
	if len(strings.Fields(cleaned)) > 10 {
		return false
	}
	return matchesEventIndicator(cleaned, keywords)
}

func isDescriptionLine(line, cleaned string) bool {
	if strings.HasPrefix(line, "#") {
		return false
	}
	if containsURL(line) {
		return false
	}
	return len(cleaned) >= 30 && len(cleaned) <= 200
}

var tagWords = []string{"conference", "summit", "meetup", "hackathon", "workshop"}

func extractTags(s string) []string {
	lower := strings.ToLower(s)
	var tags []string
	for _, w := range tagWords {
		if strings.Contains(lower, w) {
			tags = append(tags, w)
		}
	}
	return tags
}
