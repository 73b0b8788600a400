// Package waypoint decides which reporting intervals a run is the first to reach.
package waypoint

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Interval is a named, fixed-length waypoint bucket
type Interval struct {
	Name     string
	Duration time.Duration
}

// Floor rounds t down to the nearest multiple of d counted from the Unix epoch.
func Floor(t time.Time, d time.Duration) time.Time {
	if d <= 0 {
		return t.UTC()
	}
	ns := t.UnixNano()
	rem := ns % int64(d)
	if rem < 0 {
		rem += int64(d)
	}
	return time.Unix(0, ns-rem).UTC()
}

// Decision is the outcome of comparing a run against prior waypoints
type Decision struct {
	Now time.Time
	// New maps each interval this run newly reached to its waypoint.
	New map[string]time.Time
	// Persist is true when the finest interval is new, which gates raw record writes.
	Persist bool

	order []string
}

// IsNew reports whether the named interval was newly reached
func (d Decision) IsNew(interval string) bool {
	_, ok := d.New[interval]
	return ok
}

// Names returns the newly reached interval names, finest first
func (d Decision) Names() []string {
	return append([]string(nil), d.order...)
}

// Scheduler holds the configured intervals, finest first
type Scheduler struct {
	intervals []Interval
}

// NewScheduler validates the intervals and returns a scheduler.
// Every interval must be a positive multiple of the finest one so that crossing a
// coarse boundary always coincides with a persisted run.
func NewScheduler(intervals []Interval) (*Scheduler, error) {
	if len(intervals) == 0 {
		return nil, fmt.Errorf("at least one waypoint interval is required")
	}

	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Duration < sorted[j].Duration
	})

	seen := make(map[string]bool, len(sorted))
	finest := sorted[0].Duration
	for _, iv := range sorted {
		if iv.Name == "" {
			return nil, fmt.Errorf("waypoint interval name is required")
		}
		if seen[iv.Name] {
			return nil, fmt.Errorf("duplicate waypoint interval %q", iv.Name)
		}
		seen[iv.Name] = true
		if iv.Duration <= 0 {
			return nil, fmt.Errorf("waypoint interval %q must be positive", iv.Name)
		}
		if iv.Duration%finest != 0 {
			return nil, fmt.Errorf("waypoint interval %q (%s) is not a multiple of %s", iv.Name, iv.Duration, finest)
		}
	}

	return &Scheduler{intervals: sorted}, nil
}

// Intervals returns the configured intervals, finest first
func (s *Scheduler) Intervals() []Interval {
	out := make([]Interval, len(s.intervals))
	copy(out, s.intervals)
	return out
}

// Finest returns the shortest configured interval
func (s *Scheduler) Finest() Interval {
	return s.intervals[0]
}

// Has reports whether an interval with the given name is configured
func (s *Scheduler) Has(name string) bool {
	for _, iv := range s.intervals {
		if iv.Name == name {
			return true
		}
	}
	return false
}

// Decide compares now against the most recent stored waypoint for each interval.
// An interval missing from last has never been reached and is always new.
func (s *Scheduler) Decide(now time.Time, last map[string]time.Time) Decision {
	d := Decision{
		Now: now.UTC(),
		New: make(map[string]time.Time),
	}
	for _, iv := range s.intervals {
		current := Floor(now, iv.Duration)
		prev, ok := last[iv.Name]
		if !ok || current.After(prev) {
			d.New[iv.Name] = current
			d.order = append(d.order, iv.Name)
		}
	}
	d.Persist = d.IsNew(s.Finest().Name)
	return d
}

// ParseIntervals parses a comma separated list such as "15m,30m,60m". Each entry may be
// "name=duration"; without a name the duration string itself is used.
func ParseIntervals(raw string) ([]Interval, error) {
	var out []Interval
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, raw := part, part
		if i := strings.Index(part, "="); i >= 0 {
			name, raw = strings.TrimSpace(part[:i]), strings.TrimSpace(part[i+1:])
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid waypoint interval %q: %w", part, err)
		}
		out = append(out, Interval{Name: name, Duration: d})
	}
	return out, nil
}
