package event

import (
	"time"

	"github.com/google/uuid"
)

type SourceKind string

const (
	KindWeb    SourceKind = "web"
	KindSocial SourceKind = "social"
)

// SourceDescriptor is the static configuration for one external origin of
// candidates. Loaded once per orchestrator instance, never mutated at run time.
type SourceDescriptor struct {
	Name     string     `json:"name"`
	Kind     SourceKind `json:"kind"`
	Endpoint string     `json:"endpoint"`
	// Web sources only: render the page in a headless browser before parsing.
	RenderJS bool `json:"render_js,omitempty"`
	// Social sources only: the platform label and query templates.
	Platform string   `json:"platform,omitempty"`
	Queries  []string `json:"queries,omitempty"`
	// Extraction hints: extra keyword patterns treated as event indicators
	// for this source, on top of the built-in set.
	Keywords []string `json:"keywords,omitempty"`
}

type Location struct {
	Full   string `json:"full"`
	City   string `json:"city,omitempty"`
	Region string `json:"region,omitempty"`
}

type SocialData struct {
	Platform string   `json:"platform"`
	Author   string   `json:"author,omitempty"`
	Reposts  int      `json:"reposts"`
	Likes    int      `json:"likes"`
	Replies  int      `json:"replies"`
	Links    []string `json:"links,omitempty"`
}

// Candidate is one unvalidated, unpersisted event extracted from a source
// document or post. Created per run and never mutated after the adapter
// returns it.
type Candidate struct {
	Name        string      `json:"name"`
	Date        *time.Time  `json:"date,omitempty"`
	Location    *Location   `json:"location,omitempty"`
	Description string      `json:"description,omitempty"`
	Source      string      `json:"source"`
	SourceURL   string      `json:"source_url"`
	Tags        []string    `json:"tags,omitempty"`
	ScrapedAt   time.Time   `json:"scraped_at"`
	Social      *SocialData `json:"social_data,omitempty"`
}

type Venue struct {
	ID                 uuid.UUID
	Name               string
	Address            *string
	City               *string
	Region             *string
	Country            *string
	Capacity           int
	VerificationStatus string
	IsVirtual          bool
	CreatedAt          time.Time
}

type EventStatus string

const (
	StatusUpcoming  EventStatus = "upcoming"
	StatusCompleted EventStatus = "completed"
)

type Event struct {
	ID          uuid.UUID
	VenueID     uuid.UUID
	Name        string
	Description *string
	StartTime   time.Time
	EndTime     time.Time
	Status      EventStatus
	Tags        []string
	SourceName  string
	SourceURL   *string
	ScrapeJobID uuid.UUID
	Social      *SocialData
	CreatedAt   time.Time
}
