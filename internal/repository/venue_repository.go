package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"event-scout/internal/database"
	"event-scout/internal/domain/event"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const VirtualVenueName = "Virtual / Online"

type VenueRepository interface {
	FindByNameOrAddress(ctx context.Context, location string) (*event.Venue, error)
	Create(ctx context.Context, v *event.Venue) error
}

type PostgresVenueRepository struct {
	db database.DB
}

func NewPostgresVenueRepository(db database.DB) *PostgresVenueRepository {
	return &PostgresVenueRepository{db: db}
}

// FindByNameOrAddress matches case-insensitively on venue name or address.
// Returns nil, nil when no venue matches.
func (r *PostgresVenueRepository) FindByNameOrAddress(ctx context.Context, location string) (*event.Venue, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, nil
	}

	row := r.db.QueryRow(ctx,
		`SELECT id, name, address, city, region, country, capacity, verification_status, is_virtual, created_at
		 FROM venues
		 WHERE lower(name) = lower($1) OR lower(COALESCE(address, '')) = lower($1)
		 LIMIT 1`,
		location,
	)
	v, err := scanVenue(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return v, nil
}

func (r *PostgresVenueRepository) Create(ctx context.Context, v *event.Venue) error {
	if v == nil {
		return errors.New("nil venue")
	}
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO venues (id, name, address, city, region, country, capacity, verification_status, is_virtual, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		v.ID, v.Name, v.Address, v.City, v.Region, v.Country,
		v.Capacity, v.VerificationStatus, v.IsVirtual, v.CreatedAt,
	)
	return err
}

func scanVenue(row database.Row) (*event.Venue, error) {
	var v event.Venue
	if err := row.Scan(
		&v.ID, &v.Name, &v.Address, &v.City, &v.Region, &v.Country,
		&v.Capacity, &v.VerificationStatus, &v.IsVirtual, &v.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &v, nil
}
