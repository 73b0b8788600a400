package models

import "time"

// Call is one entry of the call register for an office and effective geography
type Call struct {
	Office     Office     `db:"office"`
	State      string     `db:"state"`
	APCall     *Party     `db:"ap_call"`
	APCalledAt *time.Time `db:"ap_called_at"`
	Published  bool       `db:"published"`
}

// CallUpdate is a feed-derived call for one geography. A nil Party retracts the call.
type CallUpdate struct {
	Office Office
	State  string
	Party  *Party
}
