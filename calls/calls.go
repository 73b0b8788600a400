// Package calls holds the per-run view of the call register and derives the feed's
// calls that ingest writes back to it.
package calls

import (
	"sort"

	"enip/geography"
	"enip/models"
)

type key struct {
	office models.Office
	geo    string
}

// Snapshot is an immutable view of the call register for one aggregation pass
type Snapshot struct {
	entries map[key]models.Call
}

// NewSnapshot indexes register rows by office and geography
func NewSnapshot(rows []models.Call) *Snapshot {
	s := &Snapshot{entries: make(map[key]models.Call, len(rows))}
	for _, c := range rows {
		s.entries[key{office: c.Office, geo: c.State}] = c
	}
	return s
}

// Published reports whether an editor approved the call for a race.
// A missing entry is treated as unpublished.
func (s *Snapshot) Published(office models.Office, geo string) bool {
	if s == nil {
		return false
	}
	c, ok := s.entries[key{office: office, geo: geo}]
	return ok && c.Published
}

// Get returns the register entry for a race
func (s *Snapshot) Get(office models.Office, geo string) (models.Call, bool) {
	if s == nil {
		return models.Call{}, false
	}
	c, ok := s.entries[key{office: office, geo: geo}]
	return c, ok
}

// Len returns the number of register entries
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Derive computes the feed's current call for every presidential and senate geography
// present in records. A geography with no declared winner yields a nil Party.
// Updates are returned sorted by office then geography.
func Derive(records []models.ResultRecord) ([]models.CallUpdate, error) {
	seen := make(map[key]*models.Party)

	note := func(k key, rec models.ResultRecord) {
		if rec.Winner {
			p := models.PartyFromAP(rec.Party)
			seen[k] = &p
		} else if _, ok := seen[k]; !ok {
			seen[k] = nil
		}
	}

	for _, rec := range records {
		switch {
		case rec.OfficeID == models.OfficePresident && rec.Level == models.LevelState:
			if geography.SplitsElectors(rec.StatePostal) {
				continue
			}
			note(key{office: models.OfficePresident, geo: rec.StatePostal}, rec)
		case rec.OfficeID == models.OfficePresident && rec.Level == models.LevelDistrict:
			geo, _, err := geography.PresidentialDistrict(rec.StatePostal, rec.ReportingUnitName)
			if err != nil {
				return nil, err
			}
			note(key{office: models.OfficePresident, geo: geo}, rec)
		case rec.OfficeID == models.OfficeSenate && rec.Level == models.LevelState:
			note(key{office: models.OfficeSenate, geo: geography.Senate(rec.StatePostal, rec.Seat())}, rec)
		}
	}

	updates := make([]models.CallUpdate, 0, len(seen))
	for k, p := range seen {
		updates = append(updates, models.CallUpdate{Office: k.office, State: k.geo, Party: p})
	}
	sort.Slice(updates, func(i, j int) bool {
		if updates[i].Office != updates[j].Office {
			return updates[i].Office < updates[j].Office
		}
		return updates[i].State < updates[j].State
	})
	return updates, nil
}

// Changes returns the updates whose call differs from the register, including
// geographies the register has never seen
func Changes(current *Snapshot, updates []models.CallUpdate) []models.CallUpdate {
	var out []models.CallUpdate
	for _, u := range updates {
		existing, ok := current.Get(u.Office, u.State)
		if !ok || !sameParty(existing.APCall, u.Party) {
			out = append(out, u)
		}
	}
	return out
}

func sameParty(a, b *models.Party) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
