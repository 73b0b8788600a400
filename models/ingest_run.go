package models

import (
	"time"
)

// IngestRun represents one ingest of the results feed
type IngestRun struct {
	ID       int64     `db:"ingest_id"`
	IngestDT time.Time `db:"ingest_dt"`
	// Waypoints holds, per interval name, the waypoint this run was first to reach.
	Waypoints map[string]time.Time `db:"-"`
}

// Waypoint returns the waypoint this run reached for the named interval, if any
func (r *IngestRun) Waypoint(interval string) (time.Time, bool) {
	if r == nil || r.Waypoints == nil {
		return time.Time{}, false
	}
	wp, ok := r.Waypoints[interval]
	return wp, ok
}
