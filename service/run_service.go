package service

import (
	"context"
	"errors"
	"time"

	"enip/models"
	"enip/publish"

	log "github.com/sirupsen/logrus"
)

// ErrNoIngestRun is returned when an export targets a run that does not exist
var ErrNoIngestRun = errors.New("no ingest run found")

// BulkEntry is one re-exported run in a bulk export
type BulkEntry struct {
	IngestID int64           `json:"ingestId"`
	IngestDT time.Time       `json:"ingestDt"`
	Exports  map[string]bool `json:"exports"`
	Failed   []string        `json:"failed,omitempty"`
}

// RunService chains ingest and export
type RunService struct {
	uowFactory      UnitOfWorkFactory
	ingest          *IngestService
	export          *ExportService
	historyInterval string
}

func NewRunService(uowFactory UnitOfWorkFactory, ingest *IngestService, export *ExportService, historyInterval string) *RunService {
	return &RunService{
		uowFactory:      uowFactory,
		ingest:          ingest,
		export:          export,
		historyInterval: historyInterval,
	}
}

// Run ingests the feed and exports the snapshot it just fetched
func (s *RunService) Run(ctx context.Context) (*ExportSummary, error) {
	result, err := s.ingest.Ingest(ctx)
	if err != nil {
		return nil, err
	}
	return s.export.Export(ctx, result.Run, NewMemorySource(result.Records), "")
}

// Ingest fetches and stores the feed without exporting
func (s *RunService) Ingest(ctx context.Context) (*IngestResult, error) {
	return s.ingest.Ingest(ctx)
}

// ExportLatest re-exports the most recent ingest run from the database
func (s *RunService) ExportLatest(ctx context.Context) (*ExportSummary, error) {
	run, err := s.findRun(ctx, func(repo IngestRunRepository) (*models.IngestRun, error) {
		return repo.GetLatest(ctx)
	})
	if err != nil {
		return nil, err
	}
	return s.export.Export(ctx, run, StoreSource{IngestID: run.ID}, "")
}

// ExportRun re-exports one ingest run from the database
func (s *RunService) ExportRun(ctx context.Context, id int64) (*ExportSummary, error) {
	run, err := s.findRun(ctx, func(repo IngestRunRepository) (*models.IngestRun, error) {
		return repo.GetByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return s.export.Export(ctx, run, StoreSource{IngestID: run.ID}, "")
}

// Bulk re-exports, oldest first, every run in [from, to] that reached a history
// waypoint. Objects are named after each run's own time. Failed runs are listed
// in their entry and joined into the returned error.
func (s *RunService) Bulk(ctx context.Context, from, to time.Time) ([]BulkEntry, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	runs, err := uow.IngestRunRepository().ListWithWaypoint(ctx, s.historyInterval, from, to)
	uow.Rollback()
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"runs":     len(runs),
		"from":     from,
		"to":       to,
		"interval": s.historyInterval,
	}).Info("Starting bulk export")

	entries := make([]BulkEntry, 0, len(runs))
	var errs []error
	for i, run := range runs {
		if err := ctx.Err(); err != nil {
			return entries, errors.Join(append(errs, err)...)
		}

		log.WithFields(log.Fields{
			"ingestId": run.ID,
			"index":    i + 1,
			"total":    len(runs),
		}).Info("Bulk exporting ingest run")

		stamp := run.IngestDT.UTC().Format(publish.StampFormat)
		summary, err := s.export.Export(ctx, run, StoreSource{IngestID: run.ID}, stamp)
		if err != nil {
			errs = append(errs, err)
		}
		entry := BulkEntry{IngestID: run.ID, IngestDT: run.IngestDT}
		if summary != nil {
			entry.Exports = summary.Exports
			entry.Failed = summary.Failed
		}
		entries = append(entries, entry)
	}

	return entries, errors.Join(errs...)
}

func (s *RunService) findRun(ctx context.Context, get func(IngestRunRepository) (*models.IngestRun, error)) (*models.IngestRun, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	run, err := get(uow.IngestRunRepository())
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, ErrNoIngestRun
	}
	return run, nil
}
