package main

import (
	"context"
	"flag"
	"log"
	"time"

	"event-scout/internal/app"
	"event-scout/internal/config"
	"event-scout/internal/database/migration"
	"event-scout/internal/database/seeder"
	"event-scout/internal/service"
)

// One-shot run: trigger a scrape job, wait for it, report the outcome.
func main() {
	timeout := flag.Duration("timeout", 30*time.Minute, "maximum time to wait for the run")
	source := flag.String("source", "", "restrict the run to one configured source")
	dryRun := flag.Bool("dry-run", false, "collect and report candidates without persisting")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	c, err := app.NewContainer(cfg, log.Default())
	if err != nil {
		log.Fatalf("failed to init container: %v", err)
	}
	defer func() {
		_ = c.Close()
	}()

	migCtx, migCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	r := migration.Runner{Dir: "migrations"}
	if err := r.Run(migCtx, c.DB.SQLDB()); err != nil {
		migCancel()
		log.Fatalf("migration failed: %v", err)
	}
	if err := (seeder.Runner{Log: log.Default(), Seeders: seeder.Defaults()}).Run(migCtx, c.DB); err != nil {
		migCancel()
		log.Fatalf("seed failed: %v", err)
	}
	migCancel()

	job, err := c.Scrape.TriggerWith(service.RunOptions{Source: *source, DryRun: *dryRun})
	if err != nil {
		log.Fatalf("trigger failed: %v", err)
	}
	log.Printf("scrape triggered job=%s source=%q dry_run=%t", job.ID, *source, *dryRun)

	done := make(chan struct{})
	go func() {
		c.Scrape.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(*timeout):
		_ = c.Scrape.Stop()
		<-done
	}

	status := c.Scrape.Status()
	if status.CurrentJob == nil {
		log.Fatalf("no job state after run")
	}
	j := status.CurrentJob
	log.Printf("scrape finished job=%s status=%s web=%d social=%d saved=%d errors=%d",
		j.ID, j.Status, j.Results.WebEvents, j.Results.SocialEvents, j.Results.SavedCount, len(j.Results.Errors))
	for _, e := range j.Results.Errors {
		log.Printf("scrape error source=%s event=%s type=%s error=%s", e.Source, e.Event, e.Type, e.Error)
	}
}
