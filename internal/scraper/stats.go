package scraper

import "sync"

// Stats is the per-adapter health surface. Safe for concurrent use.
type Stats struct {
	mu        sync.Mutex
	requests  int64
	successes int64
	failures  int64
	cacheHits int64
}

type StatsSnapshot struct {
	Requests    int64   `json:"requests"`
	Successes   int64   `json:"successes"`
	Failures    int64   `json:"failures"`
	CacheHits   int64   `json:"cache_hits"`
	SuccessRate float64 `json:"success_rate"`
}

func (s *Stats) Request() {
	s.mu.Lock()
	s.requests++
	s.mu.Unlock()
}

func (s *Stats) Success() {
	s.mu.Lock()
	s.successes++
	s.mu.Unlock()
}

func (s *Stats) Failure() {
	s.mu.Lock()
	s.failures++
	s.mu.Unlock()
}

func (s *Stats) CacheHit() {
	s.mu.Lock()
	s.cacheHits++
	s.mu.Unlock()
}

func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := StatsSnapshot{
		Requests:  s.requests,
		Successes: s.successes,
		Failures:  s.failures,
		CacheHits: s.cacheHits,
	}
	if total := s.successes + s.failures; total > 0 {
		out.SuccessRate = float64(s.successes) / float64(total)
	}
	return out
}
