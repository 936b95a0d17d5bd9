package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"event-scout/internal/config"
	"event-scout/internal/domain/event"
	"event-scout/internal/repository"
	"event-scout/internal/scraper"
)

type fakeAdapter struct {
	kind      event.SourceKind
	bySource  map[string][]event.Candidate
	failing   map[string]error
	blockCh   chan struct{}
	mu        sync.Mutex
	callCount int
}

func (a *fakeAdapter) Kind() event.SourceKind       { return a.kind }
func (a *fakeAdapter) Stats() scraper.StatsSnapshot { return scraper.StatsSnapshot{} }
func (a *fakeAdapter) Probe(context.Context) error  { return nil }

func (a *fakeAdapter) Scrape(ctx context.Context, src event.SourceDescriptor) ([]event.Candidate, error) {
	a.mu.Lock()
	a.callCount++
	a.mu.Unlock()

	if a.blockCh != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-a.blockCh:
		}
	}
	if err, ok := a.failing[src.Name]; ok {
		return nil, err
	}
	return a.bySource[src.Name], nil
}

type fakeVenueRepo struct {
	mu     sync.Mutex
	venues []*event.Venue
}

func (r *fakeVenueRepo) FindByNameOrAddress(ctx context.Context, location string) (*event.Venue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	needle := strings.ToLower(location)
	for _, v := range r.venues {
		if strings.ToLower(v.Name) == needle {
			return v, nil
		}
		if v.Address != nil && strings.ToLower(*v.Address) == needle {
			return v, nil
		}
	}
	return nil, nil
}

func (r *fakeVenueRepo) Create(ctx context.Context, v *event.Venue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.venues = append(r.venues, v)
	return nil
}

type fakeEventRepo struct {
	mu     sync.Mutex
	events []*event.Event
	err    error
}

func prefixMatch(a, b string) bool {
	return strings.HasPrefix(a, b) || strings.HasPrefix(b, a)
}

func (r *fakeEventRepo) FindByNameAndWindow(ctx context.Context, name string, center time.Time, window time.Duration) (*event.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	norm := repository.NormalizeEventName(name)
	for _, e := range r.events {
		if !prefixMatch(repository.NormalizeEventName(e.Name), norm) {
			continue
		}
		if e.StartTime.Before(center.Add(-window)) || e.StartTime.After(center.Add(window)) {
			continue
		}
		return e, nil
	}
	return nil, nil
}

func (r *fakeEventRepo) FindByName(ctx context.Context, name string) (*event.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	norm := repository.NormalizeEventName(name)
	for _, e := range r.events {
		if prefixMatch(repository.NormalizeEventName(e.Name), norm) {
			return e, nil
		}
	}
	return nil, nil
}

func (r *fakeEventRepo) Create(ctx context.Context, e *event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, e)
	return nil
}

type fakeJobRepo struct {
	mu       sync.Mutex
	created  int
	finished []event.JobStatus
}

func (r *fakeJobRepo) Create(ctx context.Context, job *event.ScrapeJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created++
	return nil
}

func (r *fakeJobRepo) Finish(ctx context.Context, job *event.ScrapeJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, job.Status)
	return nil
}

type fakeNotifier struct {
	mu      sync.Mutex
	updates []event.ScrapeJob
}

func (n *fakeNotifier) JobUpdate(job event.ScrapeJob) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updates = append(n.updates, job)
}

func testScrapeConfig() config.ScrapeConfig {
	return config.ScrapeConfig{
		DedupDayWindow:       1,
		DefaultEventDuration: 8 * time.Hour,
		DefaultVenueCapacity: 100,
	}
}

func dateAt(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func newTestService(
	sources []event.SourceDescriptor,
	adapters []scraper.SourceAdapter,
	venues repository.VenueRepository,
	events repository.EventRepository,
	jobs repository.ScrapeJobRepository,
	notifier Notifier,
) *ScrapeService {
	return NewScrapeService(testScrapeConfig(), sources, adapters, venues, events, jobs, notifier, nil)
}

func TestScrapeService_RunPersistsAndDedups(t *testing.T) {
	sources := []event.SourceDescriptor{
		{Name: "conf-site", Kind: event.KindWeb, Endpoint: "https://conf.example"},
		{Name: "x-search", Kind: event.KindSocial, Platform: "x"},
	}
	web := &fakeAdapter{kind: event.KindWeb, bySource: map[string][]event.Candidate{
		"conf-site": {
			{Name: "ETHDenver 2025", Date: dateAt(2025, 2, 20), Location: &event.Location{Full: "Denver, Colorado", City: "Denver", Region: "Colorado"}, Source: "conf-site"},
			// Same event, slightly longer name, one day off: dedup window hit.
			{Name: "ETHDenver 2025 Conference", Date: dateAt(2025, 2, 21), Source: "conf-site"},
		},
	}}
	social := &fakeAdapter{kind: event.KindSocial, bySource: map[string][]event.Candidate{
		"x-search": {
			{Name: "Web3 Builders Summit", Date: dateAt(2025, 3, 5), Source: "x-search"},
		},
	}}

	venues := &fakeVenueRepo{}
	events := &fakeEventRepo{}
	jobs := &fakeJobRepo{}
	notifier := &fakeNotifier{}

	svc := newTestService(sources, []scraper.SourceAdapter{web, social}, venues, events, jobs, notifier)

	job, err := svc.Trigger()
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if job.Status != event.JobPending {
		t.Fatalf("expected pending snapshot, got %s", job.Status)
	}
	svc.Wait()

	report := svc.Status()
	if report.IsRunning {
		t.Fatalf("expected run finished")
	}
	got := report.CurrentJob
	if got.Status != event.JobCompleted {
		t.Fatalf("expected completed, got %s (errors %+v)", got.Status, got.Results.Errors)
	}
	if got.Progress != 100 {
		t.Fatalf("expected progress 100, got %d", got.Progress)
	}
	if got.Results.WebEvents != 2 || got.Results.SocialEvents != 1 {
		t.Fatalf("unexpected found counts %+v", got.Results)
	}
	if got.Results.SavedCount != 2 {
		t.Fatalf("expected 2 saved (1 dedup), got %d", got.Results.SavedCount)
	}

	if len(events.events) != 2 {
		t.Fatalf("expected 2 events persisted, got %d", len(events.events))
	}
	// Web candidates are persisted before social ones.
	if events.events[0].Name != "ETHDenver 2025" || events.events[1].Name != "Web3 Builders Summit" {
		t.Fatalf("unexpected persistence order: %q, %q", events.events[0].Name, events.events[1].Name)
	}
	first := events.events[0]
	if !first.EndTime.Equal(first.StartTime.Add(8 * time.Hour)) {
		t.Fatalf("expected default duration applied, got %s..%s", first.StartTime, first.EndTime)
	}
	if first.ScrapeJobID != job.ID {
		t.Fatalf("expected events linked to job")
	}

	// One located venue, one virtual fallback for the location-less social hit.
	if len(venues.venues) != 2 {
		t.Fatalf("expected 2 venues, got %d", len(venues.venues))
	}
	if venues.venues[0].Name != "Denver, Colorado" || venues.venues[0].IsVirtual {
		t.Fatalf("unexpected first venue %+v", venues.venues[0])
	}
	if venues.venues[1].Name != repository.VirtualVenueName || !venues.venues[1].IsVirtual {
		t.Fatalf("unexpected second venue %+v", venues.venues[1])
	}

	jobs.mu.Lock()
	defer jobs.mu.Unlock()
	if jobs.created != 1 || len(jobs.finished) != 1 || jobs.finished[0] != event.JobCompleted {
		t.Fatalf("unexpected job records: created=%d finished=%v", jobs.created, jobs.finished)
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.updates) == 0 {
		t.Fatalf("expected job update notifications")
	}
	last := notifier.updates[len(notifier.updates)-1]
	if last.Status != event.JobCompleted {
		t.Fatalf("expected final notification completed, got %s", last.Status)
	}
}

func TestScrapeService_SecondTriggerConflicts(t *testing.T) {
	release := make(chan struct{})
	web := &fakeAdapter{kind: event.KindWeb, blockCh: release}
	sources := []event.SourceDescriptor{{Name: "slow", Kind: event.KindWeb}}

	svc := newTestService(sources, []scraper.SourceAdapter{web}, &fakeVenueRepo{}, &fakeEventRepo{}, nil, nil)

	if _, err := svc.Trigger(); err != nil {
		t.Fatalf("first trigger: %v", err)
	}
	if _, err := svc.Trigger(); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}

	close(release)
	svc.Wait()

	// A finished job frees the slot.
	if _, err := svc.Trigger(); err != nil {
		t.Fatalf("trigger after completion: %v", err)
	}
	svc.Wait()
}

func TestScrapeService_StopCancelsRun(t *testing.T) {
	web := &fakeAdapter{kind: event.KindWeb, blockCh: make(chan struct{})}
	sources := []event.SourceDescriptor{{Name: "slow", Kind: event.KindWeb}}

	svc := newTestService(sources, []scraper.SourceAdapter{web}, &fakeVenueRepo{}, &fakeEventRepo{}, nil, nil)

	if _, err := svc.Trigger(); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	waitForRunning(t, svc)

	if err := svc.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	svc.Wait()

	report := svc.Status()
	if report.CurrentJob.Status != event.JobCancelled {
		t.Fatalf("expected cancelled, got %s", report.CurrentJob.Status)
	}
	if err := svc.Stop(); !errors.Is(err, ErrNoActiveJob) {
		t.Fatalf("expected ErrNoActiveJob after finish, got %v", err)
	}
}

func TestScrapeService_StopWithoutJob(t *testing.T) {
	svc := newTestService(nil, nil, &fakeVenueRepo{}, &fakeEventRepo{}, nil, nil)
	if err := svc.Stop(); !errors.Is(err, ErrNoActiveJob) {
		t.Fatalf("expected ErrNoActiveJob, got %v", err)
	}
}

func TestScrapeService_SourceFailureDoesNotAbortRun(t *testing.T) {
	sources := []event.SourceDescriptor{
		{Name: "broken", Kind: event.KindWeb},
		{Name: "healthy", Kind: event.KindWeb},
	}
	web := &fakeAdapter{
		kind:    event.KindWeb,
		failing: map[string]error{"broken": errors.New("connect refused")},
		bySource: map[string][]event.Candidate{
			"healthy": {{Name: "Community Meetup 2025", Date: dateAt(2025, 5, 5), Source: "healthy"}},
		},
	}

	events := &fakeEventRepo{}
	svc := newTestService(sources, []scraper.SourceAdapter{web}, &fakeVenueRepo{}, events, nil, nil)

	if _, err := svc.Trigger(); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	svc.Wait()

	report := svc.Status()
	job := report.CurrentJob
	if job.Status != event.JobCompleted {
		t.Fatalf("expected completed despite source failure, got %s", job.Status)
	}
	if len(job.Results.Errors) != 1 {
		t.Fatalf("expected 1 recorded error, got %+v", job.Results.Errors)
	}
	if job.Results.Errors[0].Source != "broken" || job.Results.Errors[0].Type != "web" {
		t.Fatalf("unexpected error entry %+v", job.Results.Errors[0])
	}
	if len(events.events) != 1 {
		t.Fatalf("expected healthy source still persisted, got %d", len(events.events))
	}
}

func TestScrapeService_PersistFailureSkipsCandidate(t *testing.T) {
	sources := []event.SourceDescriptor{{Name: "site", Kind: event.KindWeb}}
	web := &fakeAdapter{kind: event.KindWeb, bySource: map[string][]event.Candidate{
		"site": {
			{Name: "First Summit 2025", Date: dateAt(2025, 6, 1), Source: "site"},
			{Name: "Second Summit 2025", Date: dateAt(2025, 7, 1), Source: "site"},
		},
	}}

	events := &fakeEventRepo{err: errors.New("insert failed")}
	svc := newTestService(sources, []scraper.SourceAdapter{web}, &fakeVenueRepo{}, events, nil, nil)

	if _, err := svc.Trigger(); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	svc.Wait()

	job := svc.Status().CurrentJob
	if job.Status != event.JobCompleted {
		t.Fatalf("expected completed, got %s", job.Status)
	}
	if job.Results.SavedCount != 0 {
		t.Fatalf("expected nothing saved, got %d", job.Results.SavedCount)
	}
	if len(job.Results.Errors) != 2 {
		t.Fatalf("expected a database error per candidate, got %+v", job.Results.Errors)
	}
	for _, e := range job.Results.Errors {
		if e.Type != "database" {
			t.Fatalf("unexpected error type %q", e.Type)
		}
	}
}

func TestScrapeService_ReusesExistingVenue(t *testing.T) {
	sources := []event.SourceDescriptor{{Name: "site", Kind: event.KindWeb}}
	loc := &event.Location{Full: "Lisbon, Portugal", City: "Lisbon", Region: "Portugal"}
	web := &fakeAdapter{kind: event.KindWeb, bySource: map[string][]event.Candidate{
		"site": {
			{Name: "Lisbon Dev Summit", Date: dateAt(2025, 4, 1), Location: loc, Source: "site"},
			{Name: "Lisbon Hack Week", Date: dateAt(2025, 9, 1), Location: loc, Source: "site"},
		},
	}}

	venues := &fakeVenueRepo{}
	svc := newTestService(sources, []scraper.SourceAdapter{web}, venues, &fakeEventRepo{}, nil, nil)

	if _, err := svc.Trigger(); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	svc.Wait()

	if len(venues.venues) != 1 {
		t.Fatalf("expected venue reuse, got %d venues", len(venues.venues))
	}
	if venues.venues[0].Address == nil || *venues.venues[0].Address != "Lisbon, Portugal" {
		t.Fatalf("unexpected venue %+v", venues.venues[0])
	}
}

func TestScrapeService_SecondRunOverSameCorpusSavesNothing(t *testing.T) {
	sources := []event.SourceDescriptor{{Name: "site", Kind: event.KindWeb}}
	web := &fakeAdapter{kind: event.KindWeb, bySource: map[string][]event.Candidate{
		"site": {
			{Name: "ETHDenver 2025", Date: dateAt(2025, 2, 20), Source: "site"},
			{Name: "Web3 Builders Summit", Date: dateAt(2025, 3, 5), Source: "site"},
		},
	}}

	events := &fakeEventRepo{}
	svc := newTestService(sources, []scraper.SourceAdapter{web}, &fakeVenueRepo{}, events, nil, nil)

	if _, err := svc.Trigger(); err != nil {
		t.Fatalf("first trigger: %v", err)
	}
	svc.Wait()
	if got := svc.Status().CurrentJob.Results.SavedCount; got != 2 {
		t.Fatalf("first run: expected 2 saved, got %d", got)
	}

	// The corpus did not change; every candidate must hit an existing event.
	if _, err := svc.Trigger(); err != nil {
		t.Fatalf("second trigger: %v", err)
	}
	svc.Wait()

	job := svc.Status().CurrentJob
	if job.Status != event.JobCompleted {
		t.Fatalf("second run: expected completed, got %s", job.Status)
	}
	if job.Results.SavedCount != 0 {
		t.Fatalf("second run: expected 0 saved, got %d", job.Results.SavedCount)
	}
	if len(events.events) != 2 {
		t.Fatalf("expected store unchanged at 2 events, got %d", len(events.events))
	}
}

func TestScrapeService_DryRunTouchesNothing(t *testing.T) {
	sources := []event.SourceDescriptor{{Name: "site", Kind: event.KindWeb}}
	web := &fakeAdapter{kind: event.KindWeb, bySource: map[string][]event.Candidate{
		"site": {{Name: "Community Meetup 2025", Date: dateAt(2025, 5, 5), Source: "site"}},
	}}

	venues := &fakeVenueRepo{}
	events := &fakeEventRepo{}
	jobs := &fakeJobRepo{}
	svc := newTestService(sources, []scraper.SourceAdapter{web}, venues, events, jobs, nil)

	if _, err := svc.TriggerWith(RunOptions{DryRun: true}); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	svc.Wait()

	job := svc.Status().CurrentJob
	if job.Status != event.JobCompleted {
		t.Fatalf("expected completed, got %s", job.Status)
	}
	if job.Results.WebEvents != 1 {
		t.Fatalf("expected candidates still counted, got %+v", job.Results)
	}
	if job.Results.SavedCount != 0 {
		t.Fatalf("dry run must not save, got %d", job.Results.SavedCount)
	}
	if len(events.events) != 0 || len(venues.venues) != 0 {
		t.Fatalf("dry run wrote to the store: events=%d venues=%d", len(events.events), len(venues.venues))
	}
	jobs.mu.Lock()
	defer jobs.mu.Unlock()
	if jobs.created != 0 || len(jobs.finished) != 0 {
		t.Fatalf("dry run recorded job rows: created=%d finished=%v", jobs.created, jobs.finished)
	}
}

func TestScrapeService_SourceOptionRestrictsRun(t *testing.T) {
	sources := []event.SourceDescriptor{
		{Name: "site-a", Kind: event.KindWeb},
		{Name: "site-b", Kind: event.KindWeb},
	}
	web := &fakeAdapter{kind: event.KindWeb, bySource: map[string][]event.Candidate{
		"site-a": {{Name: "Alpha Conference 2025", Date: dateAt(2025, 4, 1), Source: "site-a"}},
		"site-b": {{Name: "Beta Conference 2025", Date: dateAt(2025, 4, 2), Source: "site-b"}},
	}}

	events := &fakeEventRepo{}
	svc := newTestService(sources, []scraper.SourceAdapter{web}, &fakeVenueRepo{}, events, nil, nil)

	if _, err := svc.TriggerWith(RunOptions{Source: "site-b"}); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	svc.Wait()

	if len(events.events) != 1 || events.events[0].Name != "Beta Conference 2025" {
		t.Fatalf("expected only site-b persisted, got %+v", events.events)
	}
	web.mu.Lock()
	calls := web.callCount
	web.mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected 1 adapter call, got %d", calls)
	}

	if _, err := svc.TriggerWith(RunOptions{Source: "nope"}); !errors.Is(err, ErrUnknownSource) {
		t.Fatalf("expected ErrUnknownSource, got %v", err)
	}
}

func waitForRunning(t *testing.T, svc *ScrapeService) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if r := svc.Status(); r.IsRunning && r.CurrentJob.Status == event.JobRunning {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("run never reached running state")
}
