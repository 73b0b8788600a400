package aggregate

import (
	"encoding/json"
	"time"
)

// History maps a waypoint label to a vote count
type History map[string]int64

// Historicals maps an elex id to the candidate's vote count at each past waypoint
type Historicals map[string]History

// Label formats a waypoint as a history key
func Label(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// Add records a count for a candidate at a waypoint
func (h Historicals) Add(elexID string, waypoint time.Time, votes int64) {
	series, ok := h[elexID]
	if !ok {
		series = History{}
		h[elexID] = series
	}
	series[Label(waypoint)] = votes
}

func (h History) clone() History {
	out := make(History, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

// merge adds other into h label by label
func (h History) merge(other History) {
	for label, count := range other {
		h[label] += count
	}
}

// MarshalJSON renders a nil history as an empty object
func (h History) MarshalJSON() ([]byte, error) {
	if h == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]int64(h))
}
