package aggregate

import (
	"enip/geography"
	"enip/models"
)

// StateBuilder folds the county records of one state into StateData
type StateBuilder struct {
	state string
	data  StateData
	hist  Historicals
}

// NewStateBuilder returns an empty builder for state
func NewStateBuilder(state string, hist Historicals) *StateBuilder {
	if hist == nil {
		hist = Historicals{}
	}
	return &StateBuilder{
		state: state,
		data:  StateData{Counties: make(map[string]*County)},
		hist:  hist,
	}
}

// Add folds one county record. Records of a race must be added in vote-count-descending order.
func (b *StateBuilder) Add(rec models.ResultRecord) error {
	if rec.Level != models.LevelCounty {
		return uncategorizable(rec, "state documents only carry county results")
	}
	if rec.StatePostal != b.state {
		return uncategorizable(rec, "county record for %s in the %s document", rec.StatePostal, b.state)
	}
	if rec.FIPSCode == "" {
		return uncategorizable(rec, "county record without a FIPS code")
	}

	county, ok := b.data.Counties[rec.FIPSCode]
	if !ok {
		county = newCounty()
		b.data.Counties[rec.FIPSCode] = county
	}

	switch rec.OfficeID {
	case models.OfficePresident:
		fold(&county.P.Tallies, nil, rec, b.hist, asCandidate)
	case models.OfficeSenate:
		foldCountyCongressional(county.S, geography.Senate(rec.StatePostal, rec.Seat()), rec, b.hist)
	case models.OfficeHouse:
		foldCountyCongressional(county.H, geography.HouseSeat(rec.StatePostal, rec.Seat()), rec, b.hist)
	default:
		return uncategorizable(rec, "unknown office")
	}
	return nil
}

func foldCountyCongressional(races map[string]*CountyCongressional, key string, rec models.ResultRecord, hist Historicals) {
	race, ok := races[key]
	if !ok {
		race = &CountyCongressional{}
		races[key] = race
	}
	fold(&race.Tallies, &race.Multiples, rec, hist, asCandidate)
}

// Build returns the document
func (b *StateBuilder) Build() *StateData {
	return &b.data
}

// BuildState folds one state's county records into its document.
// Records may arrive in any order.
func BuildState(state string, records []models.ResultRecord, hist Historicals) (*StateData, error) {
	b := NewStateBuilder(state, hist)
	for _, rec := range byVotesDescending(records) {
		if err := b.Add(rec); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}
