package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"enip/database"
	"enip/models"

	"github.com/jackc/pgx/v5"
)

// IngestRunRepository stores one row per ingest run plus the waypoints it reached
type IngestRunRepository struct {
	q queryable
}

// NewIngestRunRepository creates a new ingest run repository
func NewIngestRunRepository(db *database.DB) *IngestRunRepository {
	return &IngestRunRepository{q: db}
}

func newIngestRunRepositoryWithTx(tx queryable) *IngestRunRepository {
	return &IngestRunRepository{q: tx}
}

// Create inserts the run and claims its waypoints in claimOrder, finest first. Names
// missing from claimOrder are claimed afterwards in name order. Waypoints nest, so
// once one claim is lost to a concurrent run every coarser one is skipped. On return
// run.Waypoints holds exactly the waypoints this run was first to reach.
//
// Every run claims in the same order, so two concurrent runs wait on the same unique
// index entry instead of deadlocking.
func (r *IngestRunRepository) Create(ctx context.Context, run *models.IngestRun, claimOrder []string) error {
	if run.IngestDT.IsZero() {
		run.IngestDT = time.Now()
	}
	run.IngestDT = run.IngestDT.UTC()

	err := r.q.QueryRow(ctx, `
		INSERT INTO ingest_run (ingest_dt)
		VALUES ($1)
		RETURNING ingest_id
	`, run.IngestDT).Scan(&run.ID)
	if err != nil {
		return fmt.Errorf("failed to create ingest run at %s: %w", run.IngestDT.Format(time.RFC3339), err)
	}

	claimed := make(map[string]time.Time, len(run.Waypoints))
	for _, interval := range claimSequence(run.Waypoints, claimOrder) {
		wp := run.Waypoints[interval]
		var name string
		err := r.q.QueryRow(ctx, `
			INSERT INTO ingest_run_waypoint (ingest_id, interval_name, waypoint_dt)
			VALUES ($1, $2, $3)
			ON CONFLICT (interval_name, waypoint_dt) DO NOTHING
			RETURNING interval_name
		`, run.ID, interval, wp.UTC()).Scan(&name)
		if err == pgx.ErrNoRows {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to record %s waypoint for ingest run %d: %w", interval, run.ID, err)
		}
		claimed[interval] = wp.UTC()
	}
	run.Waypoints = claimed

	return nil
}

func claimSequence(waypoints map[string]time.Time, order []string) []string {
	seq := make([]string, 0, len(waypoints))
	seen := make(map[string]bool, len(waypoints))
	for _, name := range order {
		if _, ok := waypoints[name]; ok && !seen[name] {
			seq = append(seq, name)
			seen[name] = true
		}
	}

	var rest []string
	for name := range waypoints {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(seq, rest...)
}

// GetByID returns a run with its waypoints
func (r *IngestRunRepository) GetByID(ctx context.Context, id int64) (*models.IngestRun, error) {
	var run models.IngestRun
	err := r.q.QueryRow(ctx, `
		SELECT ingest_id, ingest_dt
		FROM ingest_run
		WHERE ingest_id = $1
	`, id).Scan(&run.ID, &run.IngestDT)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ingest run %d: %w", id, err)
	}

	if err := r.loadWaypoints(ctx, []*models.IngestRun{&run}); err != nil {
		return nil, err
	}
	return &run, nil
}

// GetLatest returns the most recent run
func (r *IngestRunRepository) GetLatest(ctx context.Context) (*models.IngestRun, error) {
	var run models.IngestRun
	err := r.q.QueryRow(ctx, `
		SELECT ingest_id, ingest_dt
		FROM ingest_run
		ORDER BY ingest_dt DESC, ingest_id DESC
		LIMIT 1
	`).Scan(&run.ID, &run.IngestDT)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest ingest run: %w", err)
	}

	if err := r.loadWaypoints(ctx, []*models.IngestRun{&run}); err != nil {
		return nil, err
	}
	return &run, nil
}

// LatestWaypoints returns the most recent waypoint recorded for every interval
func (r *IngestRunRepository) LatestWaypoints(ctx context.Context) (map[string]time.Time, error) {
	rows, err := r.q.Query(ctx, `
		SELECT interval_name, MAX(waypoint_dt)
		FROM ingest_run_waypoint
		GROUP BY interval_name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest waypoints: %w", err)
	}
	defer rows.Close()

	latest := make(map[string]time.Time)
	for rows.Next() {
		var name string
		var wp time.Time
		if err := rows.Scan(&name, &wp); err != nil {
			return nil, fmt.Errorf("failed to scan waypoint: %w", err)
		}
		latest[name] = wp.UTC()
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating waypoints: %w", err)
	}
	return latest, nil
}

// ListWithWaypoint returns the runs between from and to, inclusive, that reached a
// waypoint of the given interval, oldest first
func (r *IngestRunRepository) ListWithWaypoint(ctx context.Context, interval string, from, to time.Time) ([]*models.IngestRun, error) {
	rows, err := r.q.Query(ctx, `
		SELECT ir.ingest_id, ir.ingest_dt
		FROM ingest_run ir
		JOIN ingest_run_waypoint w ON w.ingest_id = ir.ingest_id AND w.interval_name = $1
		WHERE ir.ingest_dt >= $2 AND ir.ingest_dt <= $3
		ORDER BY ir.ingest_dt ASC
	`, interval, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to list ingest runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.IngestRun
	for rows.Next() {
		var run models.IngestRun
		if err := rows.Scan(&run.ID, &run.IngestDT); err != nil {
			return nil, fmt.Errorf("failed to scan ingest run: %w", err)
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ingest runs: %w", err)
	}

	if err := r.loadWaypoints(ctx, runs); err != nil {
		return nil, err
	}
	return runs, nil
}

func (r *IngestRunRepository) loadWaypoints(ctx context.Context, runs []*models.IngestRun) error {
	if len(runs) == 0 {
		return nil
	}

	byID := make(map[int64]*models.IngestRun, len(runs))
	ids := make([]int64, 0, len(runs))
	for _, run := range runs {
		run.IngestDT = run.IngestDT.UTC()
		run.Waypoints = make(map[string]time.Time)
		byID[run.ID] = run
		ids = append(ids, run.ID)
	}

	rows, err := r.q.Query(ctx, `
		SELECT ingest_id, interval_name, waypoint_dt
		FROM ingest_run_waypoint
		WHERE ingest_id = ANY($1)
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to load waypoints: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var name string
		var wp time.Time
		if err := rows.Scan(&id, &name, &wp); err != nil {
			return fmt.Errorf("failed to scan waypoint: %w", err)
		}
		byID[id].Waypoints[name] = wp.UTC()
	}
	return rows.Err()
}
