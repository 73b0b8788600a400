package repository

import (
	"context"
	"fmt"
	"time"

	"enip/aggregate"
	"enip/database"
	"enip/models"
	"enip/service"

	"github.com/jackc/pgx/v5"
)

// ResultRepository reads and writes raw feed records in ap_result
type ResultRepository struct {
	q queryable
}

// NewResultRepository creates a new result repository
func NewResultRepository(db *database.DB) *ResultRepository {
	return &ResultRepository{q: db}
}

func newResultRepositoryWithTx(tx queryable) *ResultRepository {
	return &ResultRepository{q: tx}
}

// Insert bulk-copies records into ap_result
func (r *ResultRepository) Insert(ctx context.Context, records []models.ResultRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	n, err := r.q.CopyFrom(ctx,
		pgx.Identifier{"ap_result"},
		models.ResultColumns,
		pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			return records[i].Values(), nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to copy %d results: %w", len(records), err)
	}
	return n, nil
}

// LoadForRun returns a run's records matching filter, highest vote count first
func (r *ResultRepository) LoadForRun(ctx context.Context, ingestID int64, filter service.ResultFilter) ([]models.ResultRecord, error) {
	rows, err := r.q.Query(ctx, `
		SELECT ingest_id, elex_id, statepostal, COALESCE(fipscode, ''), level,
		       COALESCE(reportingunitname, ''), officeid, seatnum, party, first, last,
		       electtotal, votecount, votepct, winner
		FROM ap_result
		WHERE ingest_id = $1
		  AND level = ANY($2)
		  AND ($3::text = '' OR statepostal = $3)
		ORDER BY votecount DESC
	`, ingestID, levelStrings(filter.Levels), filter.State)
	if err != nil {
		return nil, fmt.Errorf("failed to load results for ingest run %d: %w", ingestID, err)
	}
	defer rows.Close()

	var records []models.ResultRecord
	for rows.Next() {
		var rec models.ResultRecord
		var level, office string
		if err := rows.Scan(
			&rec.IngestID, &rec.ElexID, &rec.StatePostal, &rec.FIPSCode, &level,
			&rec.ReportingUnitName, &office, &rec.SeatNum, &rec.Party, &rec.First, &rec.Last,
			&rec.ElectTotal, &rec.VoteCount, &rec.VotePct, &rec.Winner,
		); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		rec.Level = models.Level(level)
		rec.OfficeID = models.Office(office)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating results: %w", err)
	}
	return records, nil
}

// LoadHistoricals returns, for every candidate matching filter, the vote count at each
// waypoint of interval reached before the given time. A count that did not change
// between waypoints is reported only at the first waypoint where it appeared.
func (r *ResultRepository) LoadHistoricals(ctx context.Context, before time.Time, interval string, filter service.ResultFilter) (aggregate.Historicals, error) {
	rows, err := r.q.Query(ctx, `
		SELECT DISTINCT ON (r.elex_id, r.votecount)
		       w.waypoint_dt, r.elex_id, r.votecount
		FROM ap_result r
		JOIN ingest_run ir ON ir.ingest_id = r.ingest_id
		JOIN ingest_run_waypoint w ON w.ingest_id = ir.ingest_id AND w.interval_name = $1
		WHERE ir.ingest_dt < $2
		  AND r.level = ANY($3)
		  AND ($4::text = '' OR r.statepostal = $4)
		ORDER BY r.elex_id, r.votecount, w.waypoint_dt ASC
	`, interval, before.UTC(), levelStrings(filter.Levels), filter.State)
	if err != nil {
		return nil, fmt.Errorf("failed to load historicals: %w", err)
	}
	defer rows.Close()

	hist := aggregate.Historicals{}
	for rows.Next() {
		var wp time.Time
		var elexID string
		var votes int64
		if err := rows.Scan(&wp, &elexID, &votes); err != nil {
			return nil, fmt.Errorf("failed to scan historical count: %w", err)
		}
		hist.Add(elexID, wp, votes)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating historicals: %w", err)
	}
	return hist, nil
}

// States returns the states that have records of the given level in a run
func (r *ResultRepository) States(ctx context.Context, ingestID int64, level models.Level) ([]string, error) {
	rows, err := r.q.Query(ctx, `
		SELECT DISTINCT statepostal
		FROM ap_result
		WHERE ingest_id = $1 AND level = $2
		ORDER BY statepostal
	`, ingestID, string(level))
	if err != nil {
		return nil, fmt.Errorf("failed to list states for ingest run %d: %w", ingestID, err)
	}
	defer rows.Close()

	var states []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan state: %w", err)
		}
		states = append(states, s)
	}
	return states, rows.Err()
}

func levelStrings(levels []models.Level) []string {
	out := make([]string, len(levels))
	for i, l := range levels {
		out[i] = string(l)
	}
	return out
}
