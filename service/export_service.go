package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"enip/aggregate"
	"enip/calls"
	"enip/events"
	"enip/geography"
	"enip/models"
	"enip/publish"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// NationalPath is the national document's directory
const NationalPath = "national"

// StatePath returns a state document's directory
func StatePath(state string) string {
	return "states/" + state
}

var nationalLevels = []models.Level{models.LevelNational, models.LevelState, models.LevelDistrict}

// ExportSummary reports one export pass
type ExportSummary struct {
	IngestID int64     `json:"ingestId"`
	IngestDT time.Time `json:"ingestDt"`
	// Exports maps each document path to whether its latest pointer moved.
	Exports map[string]bool  `json:"exports"`
	Results []publish.Result `json:"-"`
	Failed  []string         `json:"failed,omitempty"`
}

// ExportService aggregates one run into documents and publishes them over a bounded pool
type ExportService struct {
	uowFactory      UnitOfWorkFactory
	publisher       Publisher
	reporter        Reporter
	bus             *events.Bus
	workers         int
	historyInterval string
	nationalSchema  *publish.Schema
	stateSchema     *publish.Schema
	shuffle         func([]string)
}

// NewExportService creates an export service. bus may be nil.
func NewExportService(uowFactory UnitOfWorkFactory, publisher Publisher, reporter Reporter, bus *events.Bus, workers int, historyInterval string) *ExportService {
	if workers < 1 {
		workers = 1
	}
	return &ExportService{
		uowFactory:      uowFactory,
		publisher:       publisher,
		reporter:        reporter,
		bus:             bus,
		workers:         workers,
		historyInterval: historyInterval,
		nationalSchema:  publish.MustLoadSchema(publish.NationalSchema),
		stateSchema:     publish.MustLoadSchema(publish.StateSchema),
		shuffle: func(s []string) {
			rand.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
		},
	}
}

// exportInputs are read once per pass so every geography sees the same register
type exportInputs struct {
	calls    *calls.Snapshot
	comments aggregate.Comments
	states   []string
}

// Export publishes the national document and one document per state with county
// results. A failing geography does not stop the others; when any failed the
// summary is still returned alongside an *ExportError. stamp names the timestamped
// objects and may be empty.
func (s *ExportService) Export(ctx context.Context, run *models.IngestRun, source RecordSource, stamp string) (*ExportSummary, error) {
	inputs, err := s.loadInputs(ctx, source)
	if err != nil {
		return nil, err
	}

	states := append([]string(nil), inputs.states...)
	s.shuffle(states)

	summary := &ExportSummary{
		IngestID: run.ID,
		IngestDT: run.IngestDT,
		Exports:  make(map[string]bool, len(states)+1),
	}
	failures := make(map[string]error)
	var mu sync.Mutex

	record := func(path string, res *publish.Result, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			failures[path] = err
			return
		}
		summary.Exports[path] = res.Changed
		summary.Results = append(summary.Results, *res)
	}

	start := time.Now()

	// Tasks never return an error to the group so one failure cannot cancel siblings
	var g errgroup.Group
	g.SetLimit(s.workers)

	g.Go(func() error {
		res, err := recovered(NationalPath, func() (*publish.Result, error) {
			return s.exportNational(ctx, run, source, inputs, stamp)
		})
		s.finish(ctx, run, NationalPath, res, err)
		record(NationalPath, res, err)
		return nil
	})
	for _, state := range states {
		g.Go(func() error {
			path := StatePath(state)
			res, err := recovered(path, func() (*publish.Result, error) {
				return s.exportState(ctx, run, source, state, stamp)
			})
			s.finish(ctx, run, path, res, err)
			record(path, res, err)
			return nil
		})
	}
	_ = g.Wait()

	changed := make([]string, 0, len(summary.Exports))
	for path, c := range summary.Exports {
		if c {
			changed = append(changed, path)
		}
	}

	var exportErr *ExportError
	if len(failures) > 0 {
		exportErr = &ExportError{IngestID: run.ID, Failures: failures}
		summary.Failed = exportErr.Paths()
	}

	if s.bus != nil {
		s.bus.Emit(ctx, events.ExportCompletedEvent{
			IngestID: run.ID,
			Changed:  changed,
			Failed:   summary.Failed,
		})
	}

	log.WithFields(log.Fields{
		"ingestId":  run.ID,
		"documents": len(states) + 1,
		"calls":     inputs.calls.Len(),
		"changed":   len(changed),
		"failed":    len(failures),
		"duration":  time.Since(start),
	}).Info("Export completed")

	if exportErr != nil {
		return summary, exportErr
	}
	return summary, nil
}

// recovered runs one geography's export and turns a panic into that path's failure
func recovered(path string, export func() (*publish.Result, error)) (res *publish.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("panic exporting %s: %v", path, r)
		}
	}()
	return export()
}

func (s *ExportService) loadInputs(ctx context.Context, source RecordSource) (*exportInputs, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	rows, err := uow.CallRepository().List(ctx)
	if err != nil {
		return nil, err
	}
	comments, err := uow.CommentRepository().List(ctx)
	if err != nil {
		return nil, err
	}
	found, err := source.States(ctx, uow)
	if err != nil {
		return nil, fmt.Errorf("failed to list states to export: %w", err)
	}
	states := make([]string, 0, len(found))
	for _, state := range found {
		if !geography.IsState(state) {
			log.WithField("state", state).Warn("Skipping county results for an unknown state")
			continue
		}
		states = append(states, state)
	}

	return &exportInputs{
		calls:    calls.NewSnapshot(rows),
		comments: aggregate.GroupComments(comments),
		states:   states,
	}, nil
}

// load reads a geography's records and historicals, releasing the connection before
// aggregation starts
func (s *ExportService) load(ctx context.Context, run *models.IngestRun, source RecordSource, filter ResultFilter) ([]models.ResultRecord, aggregate.Historicals, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, nil, err
	}
	defer uow.Rollback()

	records, err := source.Records(ctx, uow, filter)
	if err != nil {
		return nil, nil, err
	}
	hist, err := uow.ResultRepository().LoadHistoricals(ctx, run.IngestDT, s.historyInterval, filter)
	if err != nil {
		return nil, nil, err
	}
	return records, hist, nil
}

func (s *ExportService) exportNational(ctx context.Context, run *models.IngestRun, source RecordSource, inputs *exportInputs, stamp string) (*publish.Result, error) {
	records, hist, err := s.load(ctx, run, source, ResultFilter{Levels: nationalLevels})
	if err != nil {
		return nil, err
	}

	data, err := aggregate.BuildNational(records, hist, inputs.calls, inputs.comments)
	if err != nil {
		return nil, err
	}

	return s.publisher.Publish(ctx, publish.Document{
		Path:    NationalPath,
		Payload: data,
		Schema:  s.nationalSchema,
		RunID:   run.ID,
		RunDT:   run.IngestDT,
		Stamp:   stamp,
	})
}

func (s *ExportService) exportState(ctx context.Context, run *models.IngestRun, source RecordSource, state, stamp string) (*publish.Result, error) {
	records, hist, err := s.load(ctx, run, source, ResultFilter{
		Levels: []models.Level{models.LevelCounty},
		State:  state,
	})
	if err != nil {
		return nil, err
	}

	data, err := aggregate.BuildState(state, records, hist)
	if err != nil {
		return nil, err
	}

	return s.publisher.Publish(ctx, publish.Document{
		Path:    StatePath(state),
		Payload: data,
		Schema:  s.stateSchema,
		RunID:   run.ID,
		RunDT:   run.IngestDT,
		Stamp:   stamp,
	})
}

// finish logs and reports one geography's outcome
func (s *ExportService) finish(ctx context.Context, run *models.IngestRun, path string, res *publish.Result, err error) {
	fields := log.Fields{
		"ingestId": run.ID,
		"path":     path,
	}

	if err != nil {
		log.WithFields(fields).WithError(err).Error("Export failed")
		if s.reporter != nil {
			s.reporter.Report(ctx, err, map[string]string{
				"path":     path,
				"ingestId": fmt.Sprint(run.ID),
			})
		}
		return
	}

	fields["changed"] = res.Changed
	fields["url"] = res.URL
	log.WithFields(fields).Debug("Export finished")

	if res.Changed && s.bus != nil {
		s.bus.Emit(ctx, events.DocumentPublishedEvent{
			IngestID:    run.ID,
			Path:        path,
			ObjectPath:  res.ObjectPath,
			URL:         res.URL,
			LastUpdated: run.IngestDT,
		})
	}
}
