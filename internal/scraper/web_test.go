package scraper

import (
	"strings"
	"testing"
	"time"

	"event-scout/internal/domain/event"
)

func testWebAdapter() *WebAdapter {
	return &WebAdapter{
		maxDescription: 300,
		now:            func() time.Time { return time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC) },
	}
}

func TestParseEvents_ConferenceListing(t *testing.T) {
	doc := &PageDocument{
		URL: "https://ethglobal.com/events",
		Markdown: strings.Join([]string{
			"# Upcoming Events",
			"## ETHDenver 2025",
			"February 20-28, 2025",
			"Denver, Colorado, USA",
			"The largest web3 hackathon and conference in the Rockies, free to attend.",
			"https://ethdenver.com",
		}, "\n"),
	}

	a := testWebAdapter()
	got := a.ParseEvents(doc, event.SourceDescriptor{Name: "ethglobal", Kind: event.KindWeb})

	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d: %+v", len(got), got)
	}
	c := got[0]
	if c.Name != "ETHDenver 2025" {
		t.Fatalf("unexpected name %q", c.Name)
	}
	if c.Date == nil {
		t.Fatalf("expected date parsed")
	}
	want := time.Date(2025, 2, 20, 0, 0, 0, 0, time.UTC)
	if !c.Date.Equal(want) {
		t.Fatalf("expected range start %s, got %s", want, c.Date)
	}
	if c.Location == nil || !strings.Contains(c.Location.Full, "Denver, Colorado") {
		t.Fatalf("unexpected location %+v", c.Location)
	}
	if c.Location.City != "Denver" || c.Location.Region != "Colorado" {
		t.Fatalf("unexpected city/region %+v", c.Location)
	}
	if !strings.Contains(c.Description, "hackathon") {
		t.Fatalf("unexpected description %q", c.Description)
	}
	if c.SourceURL != doc.URL || c.Source != "ethglobal" {
		t.Fatalf("unexpected source fields %q %q", c.Source, c.SourceURL)
	}
}

func TestParseEvents_OrderAndFirstMatchWins(t *testing.T) {
	doc := &PageDocument{
		URL: "https://example.com/events",
		Markdown: strings.Join([]string{
			"## DevOps Summit 2025",
			"March 3, 2025",
			"March 10, 2025",
			"Lisbon, Portugal",
			"Porto, Portugal",
			"## Rustacean Meetup",
			"2025-04-01",
		}, "\n"),
	}

	a := testWebAdapter()
	got := a.ParseEvents(doc, event.SourceDescriptor{Name: "example", Kind: event.KindWeb})

	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].Name != "DevOps Summit 2025" || got[1].Name != "Rustacean Meetup" {
		t.Fatalf("expected document order, got %q then %q", got[0].Name, got[1].Name)
	}
	// First date and first location stick, later lines do not overwrite.
	if got[0].Date == nil || got[0].Date.Day() != 3 {
		t.Fatalf("expected first date kept, got %v", got[0].Date)
	}
	if got[0].Location == nil || got[0].Location.City != "Lisbon" {
		t.Fatalf("expected first location kept, got %+v", got[0].Location)
	}
	if got[1].Date == nil || !got[1].Date.Equal(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected second date %v", got[1].Date)
	}
}

func TestParseEvents_DropsNonEventHeadings(t *testing.T) {
	doc := &PageDocument{
		URL: "https://example.com",
		Markdown: strings.Join([]string{
			"## Privacy Policy",
			"We collect nothing and never will, see the details below for specifics.",
			"## Community Meetup 2025",
			"May 5, 2025",
		}, "\n"),
	}

	a := testWebAdapter()
	got := a.ParseEvents(doc, event.SourceDescriptor{Name: "example", Kind: event.KindWeb})

	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if got[0].Name != "Community Meetup 2025" {
		t.Fatalf("unexpected survivor %q", got[0].Name)
	}
}

func TestParseEvents_SourceKeywordsExtendIndicators(t *testing.T) {
	doc := &PageDocument{
		URL:      "https://example.com",
		Markdown: "## Devcon SEA\nNovember 12, 2025",
	}

	a := testWebAdapter()
	src := event.SourceDescriptor{Name: "example", Kind: event.KindWeb}
	if got := a.ParseEvents(doc, src); len(got) != 0 {
		t.Fatalf("expected no candidates without keyword hint, got %d", len(got))
	}

	src.Keywords = []string{"devcon"}
	got := a.ParseEvents(doc, src)
	if len(got) != 1 || got[0].Name != "Devcon SEA" {
		t.Fatalf("expected keyword hint to keep candidate, got %+v", got)
	}
}

func TestExtractDate_Formats(t *testing.T) {
	cases := []struct {
		line string
		want time.Time
	}{
		{"February 20-28, 2025", time.Date(2025, 2, 20, 0, 0, 0, 0, time.UTC)},
		{"Feb 20, 2025", time.Date(2025, 2, 20, 0, 0, 0, 0, time.UTC)},
		{"2/20/2025", time.Date(2025, 2, 20, 0, 0, 0, 0, time.UTC)},
		{"2025-02-20", time.Date(2025, 2, 20, 0, 0, 0, 0, time.UTC)},
		{"20 February 2025", time.Date(2025, 2, 20, 0, 0, 0, 0, time.UTC)},
		{"Doors open 1 May 2025 at noon", time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got := extractDate(tc.line)
		if got == nil {
			t.Fatalf("%q: expected date", tc.line)
		}
		if !got.Equal(tc.want) {
			t.Fatalf("%q: expected %s, got %s", tc.line, tc.want, got)
		}
	}

	for _, line := range []string{"no date here", "February 30, 2025", "13/45/2025", "version 2.20.2025 released"} {
		if got := extractDate(line); got != nil {
			t.Fatalf("%q: expected nil, got %s", line, got)
		}
	}
}

func TestExtractDate_PatternOrderIsStable(t *testing.T) {
	// A line with several recognizable dates resolves by pattern order, not
	// position: the month-name form is tried first.
	got := extractDate("2025-03-01 updated, event runs February 20, 2025")
	if got == nil || !got.Equal(time.Date(2025, 2, 20, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected month-name pattern to win, got %v", got)
	}
}

func TestExtractLocation(t *testing.T) {
	loc := extractLocation("Join us in San Francisco, California, USA this spring")
	if loc == nil {
		t.Fatalf("expected location")
	}
	if loc.City != "San Francisco" || loc.Region != "California" {
		t.Fatalf("unexpected %+v", loc)
	}

	if loc := extractLocation("see https://example.com/Denver,Colorado/tickets"); loc != nil {
		t.Fatalf("expected URL line skipped, got %+v", loc)
	}
	if loc := extractLocation("nothing to see here"); loc != nil {
		t.Fatalf("expected nil, got %+v", loc)
	}
}

func TestExtractTags(t *testing.T) {
	tags := extractTags("ETHDenver Hackathon and Workshop Week")
	if len(tags) != 2 || tags[0] != "hackathon" || tags[1] != "workshop" {
		t.Fatalf("unexpected tags %v", tags)
	}
	if tags := extractTags("ordinary heading"); tags != nil {
		t.Fatalf("expected no tags, got %v", tags)
	}
}

func TestCleanText(t *testing.T) {
	if got := cleanText("##   ETHDenver   2025  "); got != "ETHDenver 2025" {
		t.Fatalf("unexpected %q", got)
	}
	if got := cleanText("- bullet item"); got != "bullet item" {
		t.Fatalf("unexpected %q", got)
	}
}
