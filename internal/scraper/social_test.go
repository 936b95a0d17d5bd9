package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"event-scout/internal/domain/event"
)

func testSocialAdapter() *SocialAdapter {
	return &SocialAdapter{
		maxDescription: 300,
		now:            func() time.Time { return time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC) },
	}
}

func TestEnrichQuery(t *testing.T) {
	now := time.Date(2025, 1, 31, 10, 0, 0, 0, time.UTC)
	got := enrichQuery("  web3 ", now)
	want := "web3 (conference OR summit OR meetup OR hackathon OR workshop OR event) -is:repost min_faves:5 since:2025-01-01"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestExtractEventFromPost_Announcement(t *testing.T) {
	a := testSocialAdapter()
	src := event.SourceDescriptor{Name: "x-search", Kind: event.KindSocial, Platform: "x"}

	post := socialPost{
		ID:     "1",
		Text:   "Announcing the Web3 Builders Summit! Join us February 20, 2025 in Lisbon, Portugal for two days of talks and workshops.\nhttps://web3builders.xyz",
		Author: "@builders",
		URL:    "https://x.com/builders/status/1",
		Likes:  120,
		Links:  []string{"https://t.co/abc", "https://web3builders.xyz"},
	}

	c := a.ExtractEventFromPost(post, src)
	if c == nil {
		t.Fatalf("expected candidate")
	}
	if !strings.Contains(c.Name, "Web3 Builders Summit") {
		t.Fatalf("unexpected name %q", c.Name)
	}
	if c.Date == nil || !c.Date.Equal(time.Date(2025, 2, 20, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %v", c.Date)
	}
	if c.Location == nil || c.Location.City != "Lisbon" {
		t.Fatalf("unexpected location %+v", c.Location)
	}
	if c.Social == nil || c.Social.Platform != "x" || c.Social.Likes != 120 {
		t.Fatalf("unexpected social data %+v", c.Social)
	}
	// Platform-internal shortener link is dropped, the event page survives.
	if len(c.Social.Links) != 1 || c.Social.Links[0] != "https://web3builders.xyz" {
		t.Fatalf("unexpected links %v", c.Social.Links)
	}
	if c.SourceURL != post.URL {
		t.Fatalf("unexpected source url %q", c.SourceURL)
	}
}

func TestExtractEventFromPost_DateWithNounIsEnough(t *testing.T) {
	a := testSocialAdapter()
	src := event.SourceDescriptor{Name: "x-search", Kind: event.KindSocial, Platform: "x"}

	c := a.ExtractEventFromPost(socialPost{
		Text: "Our community meetup happens on 2025-03-12, doors open early this time around",
	}, src)
	if c == nil {
		t.Fatalf("expected candidate from date + event noun")
	}
	if c.Date == nil || c.Date.Month() != time.March {
		t.Fatalf("unexpected date %v", c.Date)
	}
}

func TestExtractEventFromPost_Rejections(t *testing.T) {
	a := testSocialAdapter()
	src := event.SourceDescriptor{Name: "x-search", Kind: event.KindSocial, Platform: "x"}

	cases := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"no event noun", "Announcing our new product launch on February 20, 2025"},
		{"noun without verb or date", "That conference last year was something else"},
	}
	for _, tc := range cases {
		if c := a.ExtractEventFromPost(socialPost{Text: tc.text}, src); c != nil {
			t.Fatalf("%s: expected nil, got %+v", tc.name, c)
		}
	}
}

func TestCleanPostText(t *testing.T) {
	got := cleanPostText("Big #web3 news from @acme: summit incoming https://t.co/x soon")
	if got != "Big news from summit incoming soon" {
		t.Fatalf("unexpected %q", got)
	}
}

// fakeSearchBackend models the async search API: jobs complete after a
// configurable number of polls.
type fakeSearchBackend struct {
	mu          sync.Mutex
	pollsNeeded int
	polls       int
	submits     int
	finalStatus string
	posts       []socialPost
}

func (b *fakeSearchBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/v1/search/jobs", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.submits++
		b.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{"job_id": "job-1", "status": "queued"})
	})
	mux.HandleFunc("/v1/search/jobs/job-1", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.polls++
		done := b.polls >= b.pollsNeeded
		b.mu.Unlock()
		if !done {
			_ = json.NewEncoder(w).Encode(map[string]any{"job_id": "job-1", "status": "running"})
			return
		}
		resp := searchJobResponse{JobID: "job-1", Status: b.finalStatus, Posts: b.posts}
		if b.finalStatus == "failed" {
			resp.Error = "backend exploded"
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	return mux
}

func newTestSearchClient(baseURL string, pollTimeout time.Duration) *httpSearchClient {
	c := newHTTPSearchClient(baseURL, "test-token", 100, pollTimeout)
	c.pollInterval = 5 * time.Millisecond
	return c
}

func TestHTTPSearchClient_SubmitAndPoll(t *testing.T) {
	backend := &fakeSearchBackend{
		pollsNeeded: 3,
		finalStatus: "done",
		posts:       []socialPost{{ID: "p1", Text: "Announcing the Test Summit on 2025-05-01"}},
	}
	server := httptest.NewServer(backend.handler())
	defer server.Close()

	c := newTestSearchClient(server.URL, 5*time.Second)
	posts, err := c.Search(context.Background(), "web3")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(posts) != 1 || posts[0].ID != "p1" {
		t.Fatalf("unexpected posts %+v", posts)
	}
	backend.mu.Lock()
	defer backend.mu.Unlock()
	if backend.submits != 1 {
		t.Fatalf("expected 1 submit, got %d", backend.submits)
	}
	if backend.polls != 3 {
		t.Fatalf("expected 3 polls, got %d", backend.polls)
	}
}

func TestHTTPSearchClient_PollTimeout(t *testing.T) {
	backend := &fakeSearchBackend{pollsNeeded: 1 << 30, finalStatus: "done"}
	server := httptest.NewServer(backend.handler())
	defer server.Close()

	c := newTestSearchClient(server.URL, 30*time.Millisecond)
	_, err := c.Search(context.Background(), "web3")
	if !errors.Is(err, ErrPollTimeout) {
		t.Fatalf("expected poll timeout, got %v", err)
	}
}

func TestHTTPSearchClient_FailedJob(t *testing.T) {
	backend := &fakeSearchBackend{pollsNeeded: 1, finalStatus: "failed"}
	server := httptest.NewServer(backend.handler())
	defer server.Close()

	c := newTestSearchClient(server.URL, time.Second)
	_, err := c.Search(context.Background(), "web3")
	if err == nil || !strings.Contains(err.Error(), "backend exploded") {
		t.Fatalf("expected job failure surfaced, got %v", err)
	}
}

func TestHTTPSearchClient_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := newTestSearchClient(server.URL, time.Second)
	if _, err := c.Search(context.Background(), "web3"); !errors.Is(err, ErrBadStatus) {
		t.Fatalf("expected bad status, got %v", err)
	}
	if err := c.Ping(context.Background()); !errors.Is(err, ErrBadStatus) {
		t.Fatalf("expected bad status from ping, got %v", err)
	}
}

func TestHTTPSearchClient_SendsAuthHeader(t *testing.T) {
	var mu sync.Mutex
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		got = r.Header.Get("Authorization")
		mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{"job_id": "job-1", "status": "done"})
	}))
	defer server.Close()

	c := newTestSearchClient(server.URL, time.Second)
	if _, err := c.Search(context.Background(), "web3"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if got != "Bearer test-token" {
		t.Fatalf("unexpected auth header %q", got)
	}
}

func TestSocialAdapter_ScrapePreservesQueryOrder(t *testing.T) {
	a := testSocialAdapter()
	a.limiter = NewRateLimiter(nil)
	a.cache = NewCache(time.Hour, 10)
	a.stats = &Stats{}
	a.validator = NewValidator(3, 200)
	a.retrier = NewRetrier(1, time.Millisecond, 2, a.stats)
	a.maxConcurrent = 4
	a.client = scriptedSearchClient{
		byQuery: map[string][]socialPost{
			"alpha": {{Text: "Announcing the Alpha Summit on 2025-05-01"}},
			"beta":  {{Text: "Announcing the Beta Summit on 2025-05-02"}},
			"gamma": {{Text: "Announcing the Gamma Summit on 2025-05-03"}},
		},
	}

	src := event.SourceDescriptor{
		Name:     "x-search",
		Kind:     event.KindSocial,
		Platform: "x",
		Queries:  []string{"alpha", "beta", "gamma"},
	}
	got, err := a.Scrape(context.Background(), src)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(got))
	}
	for i, want := range []string{"Alpha Summit", "Beta Summit", "Gamma Summit"} {
		if !strings.Contains(got[i].Name, want) {
			t.Fatalf("position %d: expected %q, got %q", i, want, got[i].Name)
		}
	}
}

func TestSocialAdapter_PartialQueryFailure(t *testing.T) {
	a := testSocialAdapter()
	a.limiter = NewRateLimiter(nil)
	a.cache = NewCache(time.Hour, 10)
	a.stats = &Stats{}
	a.validator = NewValidator(3, 200)
	a.retrier = NewRetrier(1, time.Millisecond, 2, a.stats)
	a.maxConcurrent = 2
	a.client = scriptedSearchClient{
		byQuery: map[string][]socialPost{
			"alpha": {{Text: "Announcing the Alpha Summit on 2025-05-01"}},
		},
		failing: map[string]error{"beta": errors.New("backend down")},
	}

	src := event.SourceDescriptor{
		Name:     "x-search",
		Kind:     event.KindSocial,
		Platform: "x",
		Queries:  []string{"alpha", "beta"},
	}
	got, err := a.Scrape(context.Background(), src)
	if err != nil {
		t.Fatalf("expected partial success, got err %v", err)
	}
	if len(got) != 1 || !strings.Contains(got[0].Name, "Alpha Summit") {
		t.Fatalf("unexpected candidates %+v", got)
	}

	// All queries failing surfaces the error.
	a.client = scriptedSearchClient{failing: map[string]error{
		"alpha": errors.New("down"), "beta": errors.New("down"),
	}}
	a.cache = NewCache(time.Hour, 10)
	if _, err := a.Scrape(context.Background(), src); err == nil {
		t.Fatalf("expected error when every query fails")
	}
}

// scriptedSearchClient maps the raw (pre-enrichment) query prefix to a result.
type scriptedSearchClient struct {
	byQuery map[string][]socialPost
	failing map[string]error
}

func (c scriptedSearchClient) Search(ctx context.Context, query string) ([]socialPost, error) {
	base := strings.Fields(query)[0]
	if err, ok := c.failing[base]; ok {
		return nil, err
	}
	if posts, ok := c.byQuery[base]; ok {
		return posts, nil
	}
	return nil, fmt.Errorf("unexpected query %q", query)
}

func (c scriptedSearchClient) Ping(ctx context.Context) error { return nil }
