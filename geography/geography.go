// Package geography maps raw feed locations onto the effective geography codes used
// to key summaries and calls.
package geography

import (
	"fmt"
	"sort"
)

// National is the state code of the single nationwide reporting unit
const National = "US"

// AtLarge is the reporting unit name of a statewide presidential figure in
// states that report by congressional district
const AtLarge = "At Large"

// AtLargeSeat keys the single house seat of an at-large state
const AtLargeSeat = "AL"

// States lists every state code that receives a per-state document
var States = []string{
	"AL", "AK", "AZ", "AR", "CA", "CO", "CT", "DC", "DE", "FL", "GA", "HI", "ID",
	"IL", "IN", "IA", "KS", "KY", "LA", "ME", "MD", "MA", "MI", "MN", "MS", "MO",
	"MT", "NE", "NV", "NH", "NJ", "NM", "NY", "NC", "ND", "OH", "OK", "OR", "PA",
	"RI", "SC", "SD", "TN", "TX", "UT", "VT", "VA", "WA", "WV", "WI", "WY",
}

var stateSet = func() map[string]bool {
	m := make(map[string]bool, len(States))
	for _, s := range States {
		m[s] = true
	}
	return m
}()

// districtsByState is the number of presidential congressional districts for states
// that split their electors
var districtsByState = map[string]int{
	"ME": 2,
	"NE": 3,
}

var atLargeHouseStates = map[string]bool{
	"AK": true, "DE": true, "MT": true, "ND": true, "SD": true, "VT": true, "WY": true,
}

// senateSpecials maps a state to the seat number of its special senate election
var senateSpecials = map[string]int{
	"GA": 2,
}

var districtNames = map[string]int{
	"District 1": 1,
	"District 2": 2,
	"District 3": 3,
}

// IsState reports whether code is one of the 50 states or DC
func IsState(code string) bool {
	return stateSet[code]
}

// SplitsElectors reports whether a state reports its presidential result by district
func SplitsElectors(state string) bool {
	_, ok := districtsByState[state]
	return ok
}

// IsAtLargeHouseState reports whether a state elects a single at-large representative
func IsAtLargeHouseState(state string) bool {
	return atLargeHouseStates[state]
}

// PresidentialDistrict maps a district-level reporting unit onto its effective geography.
// "At Large" maps to the state itself; "District N" maps to STATE-0N.
func PresidentialDistrict(state, reportingUnit string) (geo string, atLarge bool, err error) {
	if reportingUnit == AtLarge {
		return state, true, nil
	}
	n, ok := districtNames[reportingUnit]
	if !ok {
		return "", false, fmt.Errorf("invalid %s district: %q", state, reportingUnit)
	}
	return fmt.Sprintf("%s-%02d", state, n), false, nil
}

// Senate returns the effective geography of a senate race
func Senate(state string, seat int) string {
	if special, ok := senateSpecials[state]; ok && seat == special {
		return state + "-S"
	}
	return state
}

// IsSenateSpecial reports whether geo is a special senate pseudo-state
func IsSenateSpecial(geo string) bool {
	for state := range senateSpecials {
		if geo == state+"-S" {
			return true
		}
	}
	return false
}

// HouseSeat returns the key of a house seat within its state
func HouseSeat(state string, seat int) string {
	if IsAtLargeHouseState(state) {
		return AtLargeSeat
	}
	return fmt.Sprintf("%02d", seat)
}

// HouseRace returns the race key used for house comments, e.g. GA-04 or AK-AL
func HouseRace(state, seat string) string {
	return state + "-" + seat
}

// PresidentialGeographies lists every effective geography that carries a presidential race
func PresidentialGeographies() []string {
	out := make([]string, 0, len(States)+5)
	out = append(out, States...)
	for state, n := range districtsByState {
		for i := 1; i <= n; i++ {
			out = append(out, fmt.Sprintf("%s-%02d", state, i))
		}
	}
	sort.Strings(out)
	return out
}
