package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// socialPost is one post returned by the search backend.
type socialPost struct {
	ID        string   `json:"id"`
	Text      string   `json:"text"`
	Author    string   `json:"author"`
	URL       string   `json:"url"`
	CreatedAt string   `json:"created_at"`
	Reposts   int      `json:"repost_count"`
	Likes     int      `json:"like_count"`
	Replies   int      `json:"reply_count"`
	Links     []string `json:"links"`
}

type searchClient interface {
	Search(ctx context.Context, query string) ([]socialPost, error)
	Ping(ctx context.Context) error
}

// httpSearchClient talks to the asynchronous search API: submit a job, then
// poll it until done or the poll budget runs out. Calls are paced with a
// per-second limiter on top of the caller's minute budget; the social backend
// throttles by the second.
type httpSearchClient struct {
	base         string
	token        string
	client       *http.Client
	pace         *rate.Limiter
	pollInterval time.Duration
	pollTimeout  time.Duration
}

func newHTTPSearchClient(base, token string, rps int, pollTimeout time.Duration) *httpSearchClient {
	if rps <= 0 {
		rps = 1
	}
	if pollTimeout <= 0 {
		pollTimeout = 60 * time.Second
	}
	return &httpSearchClient{
		base:         strings.TrimRight(strings.TrimSpace(base), "/"),
		token:        strings.TrimSpace(token),
		client:       &http.Client{Timeout: 25 * time.Second},
		pace:         rate.NewLimiter(rate.Limit(rps), 1),
		pollInterval: time.Second,
		pollTimeout:  pollTimeout,
	}
}

type searchJobRequest struct {
	Query string `json:"query"`
}

type searchJobResponse struct {
	JobID  string       `json:"job_id"`
	Status string       `json:"status"`
	Error  string       `json:"error,omitempty"`
	Posts  []socialPost `json:"posts,omitempty"`
}

// Ping is the low-cost connectivity probe for health checks.
func (c *httpSearchClient) Ping(ctx context.Context) error {
	if c.base == "" {
		return fmt.Errorf("social search backend not configured")
	}

	if err := c.pace.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/v1/health", nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}
	return nil
}

func (c *httpSearchClient) Search(ctx context.Context, query string) ([]socialPost, error) {
	if c.base == "" {
		return nil, fmt.Errorf("social search backend not configured")
	}

	jobID, err := c.submit(ctx, query)
	if err != nil {
		return nil, err
	}
	return c.poll(ctx, jobID)
}

func (c *httpSearchClient) submit(ctx context.Context, query string) (string, error) {
	body, err := json.Marshal(searchJobRequest{Query: query})
	if err != nil {
		return "", err
	}

	var out searchJobResponse
	if err := c.do(ctx, http.MethodPost, c.base+"/v1/search/jobs", bytes.NewReader(body), &out); err != nil {
		return "", fmt.Errorf("submit search job: %w", err)
	}
	if strings.TrimSpace(out.JobID) == "" {
		return "", fmt.Errorf("submit search job: empty job id")
	}
	return out.JobID, nil
}

func (c *httpSearchClient) poll(ctx context.Context, jobID string) ([]socialPost, error) {
	deadline := time.Now().Add(c.pollTimeout)
	url := c.base + "/v1/search/jobs/" + jobID

	for {
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: job=%s waited=%s", ErrPollTimeout, jobID, c.pollTimeout)
		}

		var out searchJobResponse
		if err := c.do(ctx, http.MethodGet, url, nil, &out); err != nil {
			return nil, fmt.Errorf("poll search job: %w", err)
		}

		switch strings.ToLower(strings.TrimSpace(out.Status)) {
		case "done", "completed":
			return out.Posts, nil
		case "failed":
			return nil, fmt.Errorf("search job %s failed: %s", jobID, out.Error)
		}

		timer := time.NewTimer(c.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (c *httpSearchClient) do(ctx context.Context, method, url string, body *bytes.Reader, out *searchJobResponse) error {
	if err := c.pace.Wait(ctx); err != nil {
		return err
	}

	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, url, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, url, nil)
	}
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}

	b, err := readAllLimit(resp.Body, 5<<20)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
