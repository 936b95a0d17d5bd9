package seeder

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"event-scout/internal/database"
)

// A Seeder puts one piece of baseline data in place. Seeds run on every
// startup, so each implementation must be idempotent.
type Seeder interface {
	Name() string
	Run(ctx context.Context, db database.DB) error
}

type Runner struct {
	Log     *log.Logger
	Seeders []Seeder
}

func (r Runner) Run(ctx context.Context, db database.DB) error {
	if db == nil {
		return fmt.Errorf("nil db")
	}
	for _, s := range r.Seeders {
		if s == nil {
			continue
		}
		start := time.Now()
		if err := s.Run(ctx, db); err != nil {
			return fmt.Errorf("seed %s: %w", s.Name(), err)
		}
		if r.Log != nil {
			r.Log.Printf("seed applied | name=%s took=%s", s.Name(), time.Since(start).Round(time.Millisecond))
		}
	}
	return nil
}

func Defaults() []Seeder {
	return []Seeder{
		VenuesSeeder{},
	}
}

// requireColumns fails fast with a schema-mismatch error instead of letting
// a seed insert die on a missing column.
func requireColumns(ctx context.Context, db database.DB, table string, columns ...string) error {
	rows, err := db.Query(
		ctx,
		`SELECT column_name FROM information_schema.columns WHERE table_schema='public' AND table_name=$1`,
		table,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	existing := map[string]struct{}{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return err
		}
		existing[c] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	var missing []string
	for _, col := range columns {
		if _, ok := existing[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("schema mismatch: table %s missing columns %s", table, strings.Join(missing, ", "))
	}
	return nil
}
