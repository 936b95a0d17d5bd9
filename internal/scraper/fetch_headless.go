package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
)

// headlessFetcher renders JS-heavy sources in a headless browser before
// flattening. Used only for sources flagged render_js.
type headlessFetcher struct {
	timeout time.Duration
}

func newHeadlessFetcher(timeout time.Duration) *headlessFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &headlessFetcher{timeout: timeout}
}

func (f *headlessFetcher) Fetch(ctx context.Context, pageURL string) (*PageDocument, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(userAgent),
		)...,
	)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	reqCtx, reqCancel := context.WithTimeout(browserCtx, f.timeout)
	defer reqCancel()

	var html string
	err := chromedp.Run(reqCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(1500*time.Millisecond),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("headless fetch: %w", err)
	}

	gq, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	markdown, title, description := flattenDocument(gq)

	return &PageDocument{
		URL:         pageURL,
		Title:       title,
		Description: description,
		StatusCode:  200,
		Markdown:    markdown,
		HTML:        html,
	}, nil
}
