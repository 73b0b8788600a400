package service

import (
	"context"
	"sort"

	"enip/models"
)

// RecordSource supplies one run's records to the export
type RecordSource interface {
	Records(ctx context.Context, uow UnitOfWork, filter ResultFilter) ([]models.ResultRecord, error)
	// States lists the states that have county records
	States(ctx context.Context, uow UnitOfWork) ([]string, error)
}

// MemorySource serves a feed snapshot that was not necessarily persisted
type MemorySource struct {
	records []models.ResultRecord
}

func NewMemorySource(records []models.ResultRecord) *MemorySource {
	return &MemorySource{records: records}
}

func (m *MemorySource) Records(_ context.Context, _ UnitOfWork, filter ResultFilter) ([]models.ResultRecord, error) {
	levels := make(map[models.Level]bool, len(filter.Levels))
	for _, l := range filter.Levels {
		levels[l] = true
	}

	var out []models.ResultRecord
	for _, rec := range m.records {
		if !levels[rec.Level] {
			continue
		}
		if filter.State != "" && rec.StatePostal != filter.State {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (m *MemorySource) States(context.Context, UnitOfWork) ([]string, error) {
	seen := make(map[string]bool)
	var states []string
	for _, rec := range m.records {
		if rec.Level == models.LevelCounty && !seen[rec.StatePostal] {
			seen[rec.StatePostal] = true
			states = append(states, rec.StatePostal)
		}
	}
	sort.Strings(states)
	return states, nil
}

// StoreSource reads a persisted run back from the database
type StoreSource struct {
	IngestID int64
}

func (s StoreSource) Records(ctx context.Context, uow UnitOfWork, filter ResultFilter) ([]models.ResultRecord, error) {
	return uow.ResultRepository().LoadForRun(ctx, s.IngestID, filter)
}

func (s StoreSource) States(ctx context.Context, uow UnitOfWork) ([]string, error) {
	return uow.ResultRepository().States(ctx, s.IngestID, models.LevelCounty)
}
