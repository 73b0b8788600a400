package service

import (
	"context"
	"fmt"
	"time"

	"enip/calls"
	"enip/events"
	"enip/models"
	"enip/waypoint"

	log "github.com/sirupsen/logrus"
)

// IngestResult describes one committed ingest run
type IngestResult struct {
	Run      *models.IngestRun
	Decision waypoint.Decision
	// Records is the complete feed snapshot stamped with the run id, persisted or not.
	Records      []models.ResultRecord
	Persisted    int64
	CallsChanged int
}

// IngestService fetches the feed and records one ingest run
type IngestService struct {
	uowFactory    UnitOfWorkFactory
	feed          FeedClient
	scheduler     *waypoint.Scheduler
	persistLevels []models.Level
	now           func() time.Time
}

// NewIngestService creates an ingest service. Raw records of persistLevels are written
// only on runs that reach a new waypoint of the scheduler's finest interval.
func NewIngestService(uowFactory UnitOfWorkFactory, feed FeedClient, scheduler *waypoint.Scheduler, persistLevels []models.Level) *IngestService {
	return &IngestService{
		uowFactory:    uowFactory,
		feed:          feed,
		scheduler:     scheduler,
		persistLevels: persistLevels,
		now:           time.Now,
	}
}

// Ingest fetches the feed, records the run and its waypoints, persists raw records
// when the scheduler allows and syncs the call register, all in one transaction
func (s *IngestService) Ingest(ctx context.Context) (*IngestResult, error) {
	records, err := s.feed.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch results feed: %w", err)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	last, err := uow.IngestRunRepository().LatestWaypoints(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	decision := s.scheduler.Decide(now, last)

	run := &models.IngestRun{IngestDT: now, Waypoints: decision.New}
	if err := uow.IngestRunRepository().Create(ctx, run, decision.Names()); err != nil {
		return nil, err
	}

	for i := range records {
		records[i].IngestID = run.ID
	}

	result := &IngestResult{Run: run, Decision: decision, Records: records}

	// A concurrent run may have claimed the finest waypoint first
	if _, ok := run.Waypoint(s.scheduler.Finest().Name); ok {
		result.Persisted, err = uow.ResultRepository().Insert(ctx, s.persistable(records))
		if err != nil {
			return nil, err
		}
	}

	changed, err := s.syncCalls(ctx, uow, records, now)
	if err != nil {
		return nil, err
	}
	result.CallsChanged = changed

	waypoints := make([]string, 0, len(run.Waypoints))
	for _, iv := range s.scheduler.Intervals() {
		if _, ok := run.Waypoint(iv.Name); ok {
			waypoints = append(waypoints, iv.Name)
		}
	}
	uow.EventBus().Publish(events.IngestCompletedEvent{
		IngestID:  run.ID,
		IngestDT:  run.IngestDT,
		Waypoints: waypoints,
		Persisted: result.Persisted > 0,
		Records:   len(records),
	})

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"ingestId":     run.ID,
		"ingestDt":     run.IngestDT,
		"records":      len(records),
		"persisted":    result.Persisted,
		"waypoints":    waypoints,
		"callsChanged": changed,
	}).Info("Ingest run committed")

	return result, nil
}

func (s *IngestService) persistable(records []models.ResultRecord) []models.ResultRecord {
	keep := make(map[models.Level]bool, len(s.persistLevels))
	for _, l := range s.persistLevels {
		keep[l] = true
	}

	out := make([]models.ResultRecord, 0, len(records))
	for _, rec := range records {
		if keep[rec.Level] {
			out = append(out, rec)
		}
	}
	return out
}

// syncCalls writes the feed's calls that differ from the register
func (s *IngestService) syncCalls(ctx context.Context, uow UnitOfWork, records []models.ResultRecord, at time.Time) (int, error) {
	updates, err := calls.Derive(records)
	if err != nil {
		return 0, fmt.Errorf("failed to derive calls: %w", err)
	}

	current, err := uow.CallRepository().List(ctx)
	if err != nil {
		return 0, err
	}

	changes := calls.Changes(calls.NewSnapshot(current), updates)
	if len(changes) == 0 {
		return 0, nil
	}

	if _, err := uow.CallRepository().Upsert(ctx, changes, at); err != nil {
		return 0, err
	}

	for _, c := range changes {
		uow.EventBus().Publish(events.CallChangedEvent{
			Office: c.Office,
			State:  c.State,
			Party:  c.Party,
		})
	}
	return len(changes), nil
}
