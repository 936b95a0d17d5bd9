package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

const userAgent = "EventScout/1.0 (+https://github.com/event-scout)"

type pageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (*PageDocument, error)
}

// collyFetcher fetches static pages. One collector per request keeps the
// allowed-domain scope tied to the target URL.
type collyFetcher struct {
	timeout time.Duration
}

func newCollyFetcher(timeout time.Duration) *collyFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &collyFetcher{timeout: timeout}
}

func (f *collyFetcher) Fetch(ctx context.Context, pageURL string) (*PageDocument, error) {
	host, err := hostOf(pageURL)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := colly.NewCollector(
		colly.AllowedDomains(host),
	)
	c.SetRequestTimeout(f.timeout)
	_ = c.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: 2, Delay: 250 * time.Millisecond})

	var (
		body    []byte
		status  int
		reqErr  error
		visited bool
	)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", userAgent)
		r.Headers.Set("Accept", "text/html,application/xhtml+xml")
	})
	c.OnResponse(func(r *colly.Response) {
		visited = true
		status = r.StatusCode
		body = append([]byte(nil), r.Body...)
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		reqErr = err
	})

	if err := c.Visit(pageURL); err != nil {
		return nil, err
	}
	c.Wait()

	if reqErr != nil {
		return nil, reqErr
	}
	if !visited {
		return nil, fmt.Errorf("no response from %s", pageURL)
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("%w: %d", ErrBadStatus, status)
	}

	gq, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	markdown, title, description := flattenDocument(gq)

	return &PageDocument{
		URL:         pageURL,
		Title:       title,
		Description: description,
		StatusCode:  status,
		Markdown:    markdown,
		HTML:        string(body),
	}, nil
}

func hostOf(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("bad url %q: %w", raw, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("bad url %q: missing host", raw)
	}
	return u.Hostname(), nil
}
