package seeder

import (
	"context"

	"event-scout/internal/database"
	"event-scout/internal/repository"
)

// VenuesSeeder guarantees the virtual-venue sentinel exists, so the first
// scrape run never races its own venue creation.
type VenuesSeeder struct{}

func (VenuesSeeder) Name() string { return "venues" }

func (VenuesSeeder) Run(ctx context.Context, db database.DB) error {
	if err := requireColumns(ctx, db, "venues", "id", "name", "capacity", "verification_status", "is_virtual"); err != nil {
		return err
	}

	_, err := db.Exec(
		ctx,
		`INSERT INTO venues (id, name, capacity, verification_status, is_virtual)
		 SELECT gen_random_uuid(), $1, $2, 'verified', TRUE
		 WHERE NOT EXISTS (SELECT 1 FROM venues WHERE lower(name) = lower($1))`,
		repository.VirtualVenueName, 0,
	)
	return err
}
