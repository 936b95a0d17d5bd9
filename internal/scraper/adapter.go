package scraper

import (
	"context"

	"event-scout/internal/domain/event"
)

// SourceAdapter turns one configured source into zero or more candidates.
// The orchestrator holds a list of adapters and dispatches by Kind.
type SourceAdapter interface {
	Kind() event.SourceKind
	Scrape(ctx context.Context, src event.SourceDescriptor) ([]event.Candidate, error)
	Stats() StatsSnapshot
	// Probe issues one low-cost request for external health checks.
	Probe(ctx context.Context) error
}
