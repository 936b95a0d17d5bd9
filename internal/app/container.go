package app

import (
	"context"
	"log"
	"time"

	"event-scout/internal/config"
	"event-scout/internal/database"
	dbpostgres "event-scout/internal/database/postgres"
	"event-scout/internal/domain/event"
	"event-scout/internal/infrastructure/cache"
	"event-scout/internal/repository"
	"event-scout/internal/scraper"
	"event-scout/internal/service"
	"event-scout/internal/ws"
)

// Container wires the pipeline: store, cache, adapters, orchestrator,
// scheduler and the notification hub.
type Container struct {
	Config    config.Config
	DB        database.DB
	Redis     *cache.Redis
	Hub       *ws.Hub
	Scrape    *service.ScrapeService
	Scheduler *service.Scheduler
	Logger    *log.Logger
}

func NewContainer(cfg config.Config, logger *log.Logger) (*Container, error) {
	if logger == nil {
		logger = log.Default()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := dbpostgres.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	sources, err := config.LoadSources(cfg.Scrape)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	redisCache := cache.NewRedis(logger)

	limiter := scraper.NewRateLimiter(map[event.SourceKind]int{
		event.KindWeb:    cfg.Scrape.WebRequestsPerMinute,
		event.KindSocial: cfg.Scrape.SocialRequestsPerMinute,
	})
	responseCache := scraper.NewCache(cfg.Scrape.CacheTTL, cfg.Scrape.CacheMaxEntries)

	adapters := []scraper.SourceAdapter{
		scraper.NewWebAdapter(cfg.Scrape, limiter, responseCache, logger),
		scraper.NewSocialAdapter(cfg.Scrape, limiter, responseCache, logger),
	}

	hub := ws.NewHub(logger)

	svc := service.NewScrapeService(
		cfg.Scrape,
		sources,
		adapters,
		repository.NewPostgresVenueRepository(db),
		repository.NewPostgresEventRepository(db),
		repository.NewPostgresScrapeJobRepository(db),
		ws.NewJobNotifier(hub),
		logger,
	)

	var scheduler *service.Scheduler
	if cfg.Scrape.ScheduleEnabled {
		scheduler = service.NewScheduler(cfg.Scrape.ScheduleSpec, svc, redisCache, logger)
	}

	return &Container{
		Config:    cfg,
		DB:        db,
		Redis:     redisCache,
		Hub:       hub,
		Scrape:    svc,
		Scheduler: scheduler,
		Logger:    logger,
	}, nil
}

func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	if c.Scheduler != nil {
		c.Scheduler.Stop()
	}
	if c.DB == nil {
		return nil
	}
	return c.DB.Close()
}
