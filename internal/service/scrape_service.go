package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"event-scout/internal/config"
	"event-scout/internal/domain/event"
	"event-scout/internal/repository"
	"event-scout/internal/scraper"

	"github.com/google/uuid"
)

var (
	ErrAlreadyRunning = errors.New("scrape job already running")
	ErrNoActiveJob    = errors.New("no active scrape job")
	ErrUnknownSource  = errors.New("unknown source")
)

// RunOptions narrows a run. Source restricts scraping to one configured
// source by name; DryRun collects and reports candidates without touching
// the store.
type RunOptions struct {
	Source string
	DryRun bool
}

// Notifier receives job lifecycle updates. The WebSocket hub implements it;
// a nil notifier is fine.
type Notifier interface {
	JobUpdate(job event.ScrapeJob)
}

type CumulativeStats struct {
	TotalRuns        int        `json:"total_runs"`
	TotalEventsFound int        `json:"total_events_found"`
	TotalEventsSaved int        `json:"total_events_saved"`
	LastRunAt        *time.Time `json:"last_run_at,omitempty"`
}

type StatusReport struct {
	IsRunning  bool                             `json:"is_running"`
	CurrentJob *event.ScrapeJob                 `json:"current_job,omitempty"`
	Cumulative CumulativeStats                  `json:"cumulative_stats"`
	Adapters   map[string]scraper.StatsSnapshot `json:"adapter_stats"`
}

// ScrapeService owns the run lifecycle: source selection, adapter dispatch,
// candidate dedup, venue resolution and event persistence. At most one job
// runs per instance; a trigger during a run fails fast instead of queueing.
type ScrapeService struct {
	cfg      config.ScrapeConfig
	sources  []event.SourceDescriptor
	adapters []scraper.SourceAdapter
	venues   repository.VenueRepository
	events   repository.EventRepository
	jobs     repository.ScrapeJobRepository
	notifier Notifier
	logger   *log.Logger

	mu         sync.Mutex
	current    *event.ScrapeJob
	cancelRun  context.CancelFunc
	cumulative CumulativeStats
	done       chan struct{}
	runOpts    RunOptions

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewScrapeService(
	cfg config.ScrapeConfig,
	sources []event.SourceDescriptor,
	adapters []scraper.SourceAdapter,
	venues repository.VenueRepository,
	events repository.EventRepository,
	jobs repository.ScrapeJobRepository,
	notifier Notifier,
	logger *log.Logger,
) *ScrapeService {
	return &ScrapeService{
		cfg:      cfg,
		sources:  sources,
		adapters: adapters,
		venues:   venues,
		events:   events,
		jobs:     jobs,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// Trigger starts a run in the background and returns the new job, or
// ErrAlreadyRunning while a job is active.
func (s *ScrapeService) Trigger() (*event.ScrapeJob, error) {
	return s.TriggerWith(RunOptions{})
}

// TriggerWith starts a run narrowed by opts. A named source must exist in
// the configured source list.
func (s *ScrapeService) TriggerWith(opts RunOptions) (*event.ScrapeJob, error) {
	if opts.Source != "" && !s.hasSource(opts.Source) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, opts.Source)
	}

	s.mu.Lock()
	if s.current != nil && !s.current.Status.Terminal() {
		s.mu.Unlock()
		return nil, ErrAlreadyRunning
	}

	job := &event.ScrapeJob{
		ID:        uuid.New(),
		Status:    event.JobPending,
		StartTime: s.now().UTC(),
	}
	runCtx, cancel := context.WithCancel(context.Background())
	s.current = job
	s.cancelRun = cancel
	s.done = make(chan struct{})
	s.runOpts = opts
	done := s.done
	snapshot := snapshotJob(job)
	s.mu.Unlock()

	go func() {
		defer close(done)
		s.run(runCtx, job.ID, opts)
	}()

	return snapshot, nil
}

func (s *ScrapeService) hasSource(name string) bool {
	for _, src := range s.sources {
		if src.Name == name {
			return true
		}
	}
	return false
}

// Stop requests cooperative cancellation: in-flight adapter calls finish,
// the run stops at the next phase or iteration boundary.
func (s *ScrapeService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.current.Status.Terminal() {
		return ErrNoActiveJob
	}
	if s.cancelRun != nil {
		s.cancelRun()
	}
	return nil
}

func (s *ScrapeService) Status() StatusReport {
	s.mu.Lock()
	report := StatusReport{
		Cumulative: s.cumulative,
	}
	if s.current != nil {
		report.CurrentJob = snapshotJob(s.current)
		report.IsRunning = !s.current.Status.Terminal()
	}
	s.mu.Unlock()

	report.Adapters = make(map[string]scraper.StatsSnapshot, len(s.adapters))
	for _, a := range s.adapters {
		report.Adapters[string(a.Kind())] = a.Stats()
	}
	return report
}

func (s *ScrapeService) Sources() []event.SourceDescriptor {
	out := make([]event.SourceDescriptor, len(s.sources))
	copy(out, s.sources)
	return out
}

// Probe runs each adapter's connectivity check, for deep health checks.
func (s *ScrapeService) Probe(ctx context.Context) map[string]error {
	out := make(map[string]error, len(s.adapters))
	for _, a := range s.adapters {
		out[string(a.Kind())] = a.Probe(ctx)
	}
	return out
}

// Wait blocks until the current run finishes. Used by the one-shot CLI.
func (s *ScrapeService) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (s *ScrapeService) adapterFor(kind event.SourceKind) scraper.SourceAdapter {
	for _, a := range s.adapters {
		if a.Kind() == kind {
			return a
		}
	}
	return nil
}

func (s *ScrapeService) run(ctx context.Context, jobID uuid.UUID, opts RunOptions) {
	start := s.now()

	s.updateJob(func(j *event.ScrapeJob) {
		j.Status = event.JobRunning
		j.Progress = 5
	})
	s.notify()

	if s.jobs != nil && !opts.DryRun {
		s.mu.Lock()
		job := snapshotJob(s.current)
		s.mu.Unlock()
		if err := s.jobs.Create(ctx, job); err != nil {
			// The run record could not even be created: treat the store as
			// down and fail the whole job.
			s.finalize(event.JobFailed, fmt.Errorf("persist job record: %w", err))
			return
		}
	}

	candidates := s.collectCandidates(ctx, opts)

	if ctx.Err() != nil {
		s.finalize(event.JobCancelled, nil)
		return
	}

	saved := 0
	if opts.DryRun {
		for _, c := range candidates {
			if s.logger != nil {
				s.logger.Printf("scrape dry-run candidate=%q source=%s", c.Name, c.Source)
			}
		}
	} else {
		saved = s.persistCandidates(ctx, jobID, candidates)
	}

	status := event.JobCompleted
	if ctx.Err() != nil {
		status = event.JobCancelled
	}
	s.finalize(status, nil)

	if s.logger != nil {
		s.logger.Printf("scrape job=%s status=%s found=%d saved=%d duration=%s",
			jobID, status, len(candidates), saved, s.now().Sub(start).Round(time.Millisecond))
	}
}

// collectCandidates visits every source sequentially with a polite delay
// between hosts. A source failure is recorded and skipped; web candidates
// always precede social candidates in the merged list.
func (s *ScrapeService) collectCandidates(ctx context.Context, opts RunOptions) []event.Candidate {
	var all []event.Candidate

	web := s.scrapeKind(ctx, event.KindWeb, opts)
	all = append(all, web...)
	s.updateJob(func(j *event.ScrapeJob) {
		j.Results.WebEvents = len(web)
		j.Progress = 50
	})
	s.notify()

	if ctx.Err() != nil {
		return all
	}

	social := s.scrapeKind(ctx, event.KindSocial, opts)
	all = append(all, social...)
	s.updateJob(func(j *event.ScrapeJob) {
		j.Results.SocialEvents = len(social)
		j.Progress = 80
	})
	s.notify()

	return all
}

func (s *ScrapeService) scrapeKind(ctx context.Context, kind event.SourceKind, opts RunOptions) []event.Candidate {
	adapter := s.adapterFor(kind)
	if adapter == nil {
		return nil
	}

	var out []event.Candidate
	first := true
	for _, src := range s.sources {
		if src.Kind != kind {
			continue
		}
		if opts.Source != "" && src.Name != opts.Source {
			continue
		}
		if ctx.Err() != nil {
			return out
		}
		if !first {
			if err := s.sleep(ctx, s.cfg.InterSourceDelay); err != nil {
				return out
			}
		}
		first = false

		cands, err := adapter.Scrape(ctx, src)
		if err != nil {
			s.recordError(event.JobError{Source: src.Name, Type: string(kind), Error: err.Error()})
			if s.logger != nil {
				s.logger.Printf("scrape source=%s kind=%s error=%v", src.Name, kind, err)
			}
			continue
		}
		if s.logger != nil {
			s.logger.Printf("scrape source=%s kind=%s candidates=%d", src.Name, kind, len(cands))
		}
		out = append(out, cands...)
	}
	return out
}

// persistCandidates walks the merged list in order: dedup, venue resolution,
// event creation. Dedup lookups run against live store state, so the first of
// two same-run duplicates wins and the second matches the fresh insert.
func (s *ScrapeService) persistCandidates(ctx context.Context, jobID uuid.UUID, candidates []event.Candidate) int {
	saved := 0
	for _, c := range candidates {
		if ctx.Err() != nil {
			break
		}

		ok, err := s.persistOne(ctx, jobID, c)
		if err != nil {
			s.recordError(event.JobError{Event: c.Name, Type: "database", Error: err.Error()})
			continue
		}
		if ok {
			saved++
			s.updateJob(func(j *event.ScrapeJob) { j.Results.SavedCount = saved })
		}
	}
	return saved
}

func (s *ScrapeService) persistOne(ctx context.Context, jobID uuid.UUID, c event.Candidate) (bool, error) {
	dup, err := s.findDuplicate(ctx, c)
	if err != nil {
		return false, err
	}
	if dup != nil {
		if s.logger != nil {
			s.logger.Printf("scrape duplicate candidate=%q existing=%s", c.Name, dup.ID)
		}
		return false, nil
	}

	venue, err := s.resolveVenue(ctx, c)
	if err != nil {
		return false, err
	}

	now := s.now().UTC()
	startTime := now
	if c.Date != nil {
		startTime = c.Date.UTC()
	}
	endTime := startTime.Add(s.cfg.DefaultEventDuration)

	status := event.StatusCompleted
	if startTime.After(now) {
		status = event.StatusUpcoming
	}

	var desc *string
	if c.Description != "" {
		d := c.Description
		desc = &d
	}
	var srcURL *string
	if c.SourceURL != "" {
		u := c.SourceURL
		srcURL = &u
	}

	e := &event.Event{
		VenueID:     venue.ID,
		Name:        c.Name,
		Description: desc,
		StartTime:   startTime,
		EndTime:     endTime,
		Status:      status,
		Tags:        c.Tags,
		SourceName:  c.Source,
		SourceURL:   srcURL,
		ScrapeJobID: jobID,
		Social:      c.Social,
	}
	if err := s.events.Create(ctx, e); err != nil {
		return false, err
	}
	return true, nil
}

// findDuplicate: name-prefix + date-window lookup first, then a plain
// name-prefix lookup. Any hit means the candidate is already known.
func (s *ScrapeService) findDuplicate(ctx context.Context, c event.Candidate) (*event.Event, error) {
	window := time.Duration(s.cfg.DedupDayWindow) * 24 * time.Hour
	if c.Date != nil {
		existing, err := s.events.FindByNameAndWindow(ctx, c.Name, c.Date.UTC(), window)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}
	return s.events.FindByName(ctx, c.Name)
}

func (s *ScrapeService) resolveVenue(ctx context.Context, c event.Candidate) (*event.Venue, error) {
	if c.Location == nil || c.Location.Full == "" {
		return s.findOrCreateVenue(ctx, repository.VirtualVenueName, nil, true)
	}
	return s.findOrCreateVenue(ctx, c.Location.Full, c.Location, false)
}

func (s *ScrapeService) findOrCreateVenue(ctx context.Context, name string, loc *event.Location, virtual bool) (*event.Venue, error) {
	existing, err := s.venues.FindByNameOrAddress(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	v := &event.Venue{
		Name:               name,
		Capacity:           s.cfg.DefaultVenueCapacity,
		VerificationStatus: "pending",
		IsVirtual:          virtual,
	}
	if loc != nil {
		if loc.Full != "" {
			addr := loc.Full
			v.Address = &addr
		}
		if loc.City != "" {
			city := loc.City
			v.City = &city
		}
		if loc.Region != "" {
			region := loc.Region
			v.Region = &region
		}
	}
	if err := s.venues.Create(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *ScrapeService) finalize(status event.JobStatus, cause error) {
	end := s.now().UTC()
	s.updateJob(func(j *event.ScrapeJob) {
		j.Status = status
		j.EndTime = &end
		if status == event.JobCompleted {
			j.Progress = 100
		}
		if cause != nil {
			j.Results.Errors = append(j.Results.Errors, event.JobError{Type: "fatal", Error: cause.Error()})
		}
	})

	s.mu.Lock()
	job := snapshotJob(s.current)
	dryRun := s.runOpts.DryRun
	s.cumulative.TotalRuns++
	s.cumulative.TotalEventsFound += job.Results.WebEvents + job.Results.SocialEvents
	s.cumulative.TotalEventsSaved += job.Results.SavedCount
	s.cumulative.LastRunAt = &end
	s.mu.Unlock()

	if s.jobs != nil && !dryRun {
		finishCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := s.jobs.Finish(finishCtx, job); err != nil && s.logger != nil {
			s.logger.Printf("scrape job=%s finish record error=%v", job.ID, err)
		}
		cancel()
	}

	s.notify()
}

func (s *ScrapeService) recordError(e event.JobError) {
	s.updateJob(func(j *event.ScrapeJob) {
		j.Results.Errors = append(j.Results.Errors, e)
	})
}

func (s *ScrapeService) updateJob(fn func(j *event.ScrapeJob)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return
	}
	fn(s.current)
}

func (s *ScrapeService) notify() {
	if s.notifier == nil {
		return
	}
	s.mu.Lock()
	job := snapshotJob(s.current)
	s.mu.Unlock()
	if job != nil {
		s.notifier.JobUpdate(*job)
	}
}

func snapshotJob(j *event.ScrapeJob) *event.ScrapeJob {
	if j == nil {
		return nil
	}
	out := *j
	out.Results.Errors = append([]event.JobError(nil), j.Results.Errors...)
	return &out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
