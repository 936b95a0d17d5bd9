package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"event-scout/internal/database"
	"event-scout/internal/domain/event"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type EventRepository interface {
	FindByNameAndWindow(ctx context.Context, name string, center time.Time, window time.Duration) (*event.Event, error)
	FindByName(ctx context.Context, name string) (*event.Event, error)
	Create(ctx context.Context, e *event.Event) error
}

type PostgresEventRepository struct {
	db database.DB
}

func NewPostgresEventRepository(db database.DB) *PostgresEventRepository {
	return &PostgresEventRepository{db: db}
}

// FindByNameAndWindow looks up an event whose normalized name shares a prefix
// with the given name (either direction) and whose start time falls inside
// center ± window. This is the dedup lookup: a hit means "same event".
func (r *PostgresEventRepository) FindByNameAndWindow(ctx context.Context, name string, center time.Time, window time.Duration) (*event.Event, error) {
	norm := NormalizeEventName(name)
	if norm == "" {
		return nil, nil
	}

	row := r.db.QueryRow(ctx,
		`SELECT id, venue_id, name, description, start_time, end_time, status, tags, source_name, source_url, scrape_job_id, social_json, created_at
		 FROM events
		 WHERE (lower(name) LIKE $1 || '%' OR $1 LIKE lower(name) || '%')
		   AND start_time BETWEEN $2 AND $3
		 ORDER BY created_at ASC
		 LIMIT 1`,
		norm, center.Add(-window), center.Add(window),
	)
	return scanEventRow(row)
}

// FindByName is the fallback lookup for candidates without a parsed date.
func (r *PostgresEventRepository) FindByName(ctx context.Context, name string) (*event.Event, error) {
	norm := NormalizeEventName(name)
	if norm == "" {
		return nil, nil
	}

	row := r.db.QueryRow(ctx,
		`SELECT id, venue_id, name, description, start_time, end_time, status, tags, source_name, source_url, scrape_job_id, social_json, created_at
		 FROM events
		 WHERE lower(name) LIKE $1 || '%' OR $1 LIKE lower(name) || '%'
		 ORDER BY created_at ASC
		 LIMIT 1`,
		norm,
	)
	return scanEventRow(row)
}

func (r *PostgresEventRepository) Create(ctx context.Context, e *event.Event) error {
	if e == nil {
		return errors.New("nil event")
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	var socialJSON any
	if e.Social != nil {
		b, err := json.Marshal(e.Social)
		if err != nil {
			return err
		}
		socialJSON = b
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO events (id, venue_id, name, description, start_time, end_time, status, tags, source_name, source_url, scrape_job_id, social_json, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		e.ID, e.VenueID, e.Name, e.Description, e.StartTime, e.EndTime,
		string(e.Status), e.Tags, e.SourceName, e.SourceURL, e.ScrapeJobID, socialJSON, e.CreatedAt,
	)
	return err
}

// NormalizeEventName lowercases and collapses whitespace for prefix matching.
func NormalizeEventName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

func scanEventRow(row database.Row) (*event.Event, error) {
	var e event.Event
	var status string
	var socialJSON []byte
	if err := row.Scan(
		&e.ID, &e.VenueID, &e.Name, &e.Description, &e.StartTime, &e.EndTime,
		&status, &e.Tags, &e.SourceName, &e.SourceURL, &e.ScrapeJobID, &socialJSON, &e.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	e.Status = event.EventStatus(status)
	if len(socialJSON) > 0 {
		var sd event.SocialData
		if err := json.Unmarshal(socialJSON, &sd); err == nil {
			e.Social = &sd
		}
	}
	return &e, nil
}
