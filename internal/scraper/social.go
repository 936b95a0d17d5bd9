package scraper

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"event-scout/internal/config"
	"event-scout/internal/domain/event"
)

// SocialAdapter searches a social-post backend for event announcements and
// extracts candidates from individual posts.
type SocialAdapter struct {
	limiter   *RateLimiter
	cache     *Cache
	retrier   *Retrier
	validator *Validator
	client    searchClient
	stats     *Stats
	logger    *log.Logger

	maxConcurrent  int
	maxDescription int
	now            func() time.Time
}

func NewSocialAdapter(cfg config.ScrapeConfig, limiter *RateLimiter, cache *Cache, logger *log.Logger) *SocialAdapter {
	stats := &Stats{}
	return &SocialAdapter{
		limiter:        limiter,
		cache:          cache,
		retrier:        NewRetrier(cfg.MaxAttempts, cfg.InitialDelay, cfg.BackoffMultiplier, stats),
		validator:      NewValidator(cfg.MinEventNameLen, cfg.MaxEventNameLen),
		client:         newHTTPSearchClient(cfg.SocialAPIBase, cfg.SocialAPIToken, cfg.SocialRequestsPerSecond, cfg.PollTimeout),
		stats:          stats,
		logger:         logger,
		maxConcurrent:  cfg.MaxConcurrent,
		maxDescription: cfg.MaxDescription,
		now:            time.Now,
	}
}

func (a *SocialAdapter) Kind() event.SourceKind { return event.KindSocial }

func (a *SocialAdapter) Stats() StatsSnapshot { return a.stats.Snapshot() }

func (a *SocialAdapter) Probe(ctx context.Context) error {
	return a.client.Ping(ctx)
}

// Scrape runs every query of the source. Independent query lookups overlap up
// to the configured ceiling, but results keep query order so candidate order
// is stable run to run.
func (a *SocialAdapter) Scrape(ctx context.Context, src event.SourceDescriptor) ([]event.Candidate, error) {
	if len(src.Queries) == 0 {
		return nil, nil
	}

	workers := a.maxConcurrent
	if workers > len(src.Queries) {
		workers = len(src.Queries)
	}

	perQuery := make([][]event.Candidate, len(src.Queries))
	errs := make([]error, len(src.Queries))

	pool := NewWorkerPool(workers, len(src.Queries))
	results := pool.Run(ctx)

	for i, q := range src.Queries {
		i, q := i, q
		pool.Submit(func(ctx context.Context) error {
			cands, err := a.searchQuery(ctx, src, q)
			if err != nil {
				errs[i] = fmt.Errorf("query %q: %w", q, err)
				return errs[i]
			}
			perQuery[i] = cands
			return nil
		})
	}
	pool.Close()
	for range results {
	}

	var out []event.Candidate
	var lastErr error
	var okCount int
	for i := range perQuery {
		if errs[i] != nil {
			lastErr = errs[i]
			if a.logger != nil {
				a.logger.Printf("scrape source=%s error=%v", src.Name, errs[i])
			}
			continue
		}
		okCount++
		out = append(out, perQuery[i]...)
	}
	if okCount == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}

func (a *SocialAdapter) searchQuery(ctx context.Context, src event.SourceDescriptor, query string) ([]event.Candidate, error) {
	key := CacheKey("social", src.Platform, query)
	if v, ok := a.cache.Get(key); ok {
		if cands, ok := v.([]event.Candidate); ok {
			a.stats.CacheHit()
			return cands, nil
		}
	}

	if err := a.limiter.Acquire(ctx, event.KindSocial); err != nil {
		return nil, err
	}

	enriched := enrichQuery(query, a.now())

	var posts []socialPost
	err := a.retrier.Do(ctx, "search", query, func(ctx context.Context) error {
		p, err := a.client.Search(ctx, enriched)
		if err != nil {
			return err
		}
		posts = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	cands := make([]event.Candidate, 0, len(posts))
	for _, post := range posts {
		c := a.ExtractEventFromPost(post, src)
		if c == nil {
			continue
		}
		if err := a.validator.Validate(*c); err != nil {
			if a.logger != nil {
				a.logger.Printf("scrape source=%s skip candidate=%q reason=%v", src.Name, c.Name, err)
			}
			continue
		}
		cands = append(cands, *c)
	}

	a.cache.Set(key, cands)
	return cands, nil
}

// enrichQuery builds the full search expression: recency window, no reposts,
// a minimum-engagement floor, and an OR-group of event keywords.
func enrichQuery(query string, now time.Time) string {
	since := now.AddDate(0, 0, -30).Format("2006-01-02")
	return fmt.Sprintf(
		"%s (conference OR summit OR meetup OR hackathon OR workshop OR event) -is:repost min_faves:5 since:%s",
		strings.TrimSpace(query), since,
	)
}

var (
	announcementVerbs = regexp.MustCompile(`(?i)\b(announcing|join us|save the date)\b`)
	eventNoun         = regexp.MustCompile(`(?i)\b(conference|summit|meetup|event|hackathon|workshop)\b`)

	// Name capture groups, tried in order.
	namePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bannouncing\s+(?:the\s+)?([^.!\n]{3,100})`),
		regexp.MustCompile(`(?i)\bjoin us\s+(?:for|at)\s+(?:the\s+)?([^.!\n]{3,100})`),
		regexp.MustCompile(`(?i)\bsave the date\s+(?:for\s+)?(?:the\s+)?([^.!\n]{3,100})`),
	}
)

// ExtractEventFromPost returns nil unless the post text reads like an event
// announcement: an announcement verb next to an event noun, or a concrete
// date next to an event noun.
func (a *SocialAdapter) ExtractEventFromPost(post socialPost, src event.SourceDescriptor) *event.Candidate {
	text := strings.TrimSpace(post.Text)
	if text == "" {
		return nil
	}

	hasNoun := eventNoun.MatchString(text) || matchesEventIndicator(text, src.Keywords)
	date := extractDate(text)
	if !hasNoun {
		return nil
	}
	if !announcementVerbs.MatchString(text) && date == nil {
		return nil
	}

	name := extractPostName(text)
	if len(name) < 3 {
		return nil
	}

	var loc *event.Location
	for _, line := range strings.Split(text, "\n") {
		if loc = extractLocation(line); loc != nil {
			break
		}
	}

	cleaned := cleanPostText(text)
	description := ""
	if len(cleaned) >= 30 {
		description = truncate(cleaned, a.maxDescription)
	}

	return &event.Candidate{
		Name:        name,
		Date:        date,
		Location:    loc,
		Description: description,
		Source:      src.Name,
		SourceURL:   post.URL,
		Tags:        extractTags(text),
		ScrapedAt:   a.now().UTC(),
		Social: &event.SocialData{
			Platform: src.Platform,
			Author:   post.Author,
			Reposts:  post.Reposts,
			Likes:    post.Likes,
			Replies:  post.Replies,
			Links:    externalLinks(post.Links, src.Platform),
		},
	}
}

func extractPostName(text string) string {
	for _, re := range namePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return trimEventName(m[1])
		}
	}
	// No capture group matched: fall back to a cleaned prefix of the post.
	return trimEventName(truncateAtWord(cleanPostText(text), 80))
}

func trimEventName(s string) string {
	s = cleanText(s)
	s = strings.Trim(s, " -—:,;\"'")
	return s
}

func cleanPostText(text string) string {
	words := strings.Fields(text)
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if containsURL(w) || strings.HasPrefix(w, "@") || strings.HasPrefix(w, "#") {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

func truncateAtWord(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return cut
}

var platformDomains = map[string][]string{
	"x":        {"x.com", "twitter.com", "t.co"},
	"mastodon": {"mastodon.social"},
	"bluesky":  {"bsky.app"},
}

// externalLinks keeps only URLs pointing off-platform; those are the ones
// likely to be event pages.
func externalLinks(links []string, platform string) []string {
	domains := platformDomains[strings.ToLower(strings.TrimSpace(platform))]
	var out []string
	for _, l := range links {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		onPlatform := false
		for _, d := range domains {
			if strings.Contains(strings.ToLower(l), d) {
				onPlatform = true
				break
			}
		}
		if !onPlatform {
			out = append(out, l)
		}
	}
	return out
}
