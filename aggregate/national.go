package aggregate

import (
	"enip/geography"
	"enip/models"
)

// ElectorsToWin is the elector count that decides the presidency
const ElectorsToWin = 270

// CallGate reports whether a human editor has approved showing the call for a race
type CallGate interface {
	Published(office models.Office, geo string) bool
}

// NationalBuilder folds national, state and district records into NationalData.
// A builder is owned by a single export and must not be shared.
type NationalBuilder struct {
	data     NationalData
	hist     Historicals
	calls    CallGate
	electors map[models.Party]int
}

// NewNationalBuilder returns an empty builder
func NewNationalBuilder(hist Historicals, calls CallGate) *NationalBuilder {
	if hist == nil {
		hist = Historicals{}
	}
	return &NationalBuilder{
		data: NationalData{
			StateSummaries: make(map[string]GeographySummary),
		},
		hist:     hist,
		calls:    calls,
		electors: make(map[models.Party]int),
	}
}

// Add folds one record. Records of a race must be added in vote-count-descending order.
func (b *NationalBuilder) Add(rec models.ResultRecord) error {
	switch {
	case rec.Level == models.LevelNational:
		return b.addNational(rec)
	case rec.Level == models.LevelDistrict:
		return b.addDistrictPresident(rec)
	case rec.Level == models.LevelState && rec.OfficeID == models.OfficePresident:
		return b.addStatePresident(rec)
	case rec.Level == models.LevelState && rec.OfficeID == models.OfficeSenate:
		return b.addSenate(rec)
	case rec.Level == models.LevelState && rec.OfficeID == models.OfficeHouse:
		return b.addHouse(rec)
	}
	return uncategorizable(rec, "no national placement for this level and office")
}

// Build applies the national presidential winner and returns the document.
// Comments are attached separately with Comments.AttachNational.
func (b *NationalBuilder) Build() *NationalData {
	p := &b.data.NationalSummary.P
	if p.Dem != nil {
		p.Dem.ElectWon = b.electors[models.PartyDem]
	}
	if p.Gop != nil {
		p.Gop.ElectWon = b.electors[models.PartyGOP]
	}
	p.Oth.ElectWon = b.electors[models.PartyOther]
	if p.Oth.PopVoteHistory == nil {
		p.Oth.PopVoteHistory = History{}
	}

	// Dem is checked first; both parties crossing the threshold in one run cannot
	// happen with 538 electors, so the order only fixes the tie-break.
	switch {
	case b.electors[models.PartyDem] >= ElectorsToWin:
		p.Winner = partyPtr(models.PartyDem)
	case b.electors[models.PartyGOP] >= ElectorsToWin:
		p.Winner = partyPtr(models.PartyGOP)
	default:
		p.Winner = nil
	}

	return &b.data
}

func (b *NationalBuilder) addNational(rec models.ResultRecord) error {
	if rec.OfficeID != models.OfficePresident {
		return uncategorizable(rec, "national level only carries the presidential race")
	}
	if rec.StatePostal != geography.National {
		return uncategorizable(rec, "national level record for %q", rec.StatePostal)
	}
	fold(&b.data.NationalSummary.P.Tallies, nil, rec, b.hist, asNationalCandidate)
	return nil
}

func (b *NationalBuilder) addDistrictPresident(rec models.ResultRecord) error {
	if rec.OfficeID != models.OfficePresident {
		return uncategorizable(rec, "district level only carries the presidential race")
	}
	geo, atLarge, err := geography.PresidentialDistrict(rec.StatePostal, rec.ReportingUnitName)
	if err != nil {
		return uncategorizable(rec, "%v", err)
	}

	summary, ok := b.data.StateSummaries[geo]
	if !ok {
		if atLarge {
			summary = newStateSummary()
		} else {
			summary = &PresidentialCDSummary{}
		}
		b.data.StateSummaries[geo] = summary
	}
	return b.foldPresident(summary, geo, rec)
}

func (b *NationalBuilder) addStatePresident(rec models.ResultRecord) error {
	// Split-elector states are built from district records, with At Large as the statewide figure
	if geography.SplitsElectors(rec.StatePostal) {
		return nil
	}
	return b.foldPresident(b.stateSummary(rec.StatePostal), rec.StatePostal, rec)
}

func (b *NationalBuilder) foldPresident(summary GeographySummary, geo string, rec models.ResultRecord) error {
	race := summary.president()
	if race == nil {
		return uncategorizable(rec, "%s has no presidential race", geo)
	}
	fold(&race.Tallies, nil, rec, b.hist, asCandidate)

	if rec.Winner && b.published(models.OfficePresident, geo) {
		party := models.PartyFromAP(rec.Party)
		race.Winner = partyPtr(party)
		b.electors[party] += rec.ElectTotal
	}
	return nil
}

func (b *NationalBuilder) addSenate(rec models.ResultRecord) error {
	geo := geography.Senate(rec.StatePostal, rec.Seat())

	summary, ok := b.data.StateSummaries[geo]
	if !ok {
		if geography.IsSenateSpecial(geo) {
			summary = &SenateSpecialSummary{}
		} else {
			summary = newStateSummary()
		}
		b.data.StateSummaries[geo] = summary
	}

	race := summary.senate()
	if race == nil {
		return uncategorizable(rec, "%s has no senate race", geo)
	}
	fold(&race.Tallies, &race.Multiples, rec, b.hist, asCandidate)

	if rec.Winner && b.published(models.OfficeSenate, geo) {
		party := models.PartyFromAP(rec.Party)
		race.Winner = partyPtr(party)
		b.data.NationalSummary.S.grant(party)
	}
	return nil
}

func (b *NationalBuilder) addHouse(rec models.ResultRecord) error {
	seats := b.stateSummary(rec.StatePostal).house()
	if seats == nil {
		return uncategorizable(rec, "%s has no house races", rec.StatePostal)
	}

	seat := geography.HouseSeat(rec.StatePostal, rec.Seat())
	race, ok := seats[seat]
	if !ok {
		race = &CongressionalResult{}
		seats[seat] = race
	}
	fold(&race.Tallies, &race.Multiples, rec, b.hist, asCandidate)

	// House calls come straight from the feed with no register gate
	if rec.Winner {
		party := models.PartyFromAP(rec.Party)
		race.Winner = partyPtr(party)
		b.data.NationalSummary.H.grant(party)
	}
	return nil
}

func (b *NationalBuilder) stateSummary(state string) GeographySummary {
	summary, ok := b.data.StateSummaries[state]
	if !ok {
		summary = newStateSummary()
		b.data.StateSummaries[state] = summary
	}
	return summary
}

func (b *NationalBuilder) published(office models.Office, geo string) bool {
	return b.calls != nil && b.calls.Published(office, geo)
}

// BuildNational folds a run's national, state and district records into the national
// document and attaches comments. Records may arrive in any order.
func BuildNational(records []models.ResultRecord, hist Historicals, calls CallGate, comments Comments) (*NationalData, error) {
	b := NewNationalBuilder(hist, calls)
	for _, rec := range byVotesDescending(records) {
		if err := b.Add(rec); err != nil {
			return nil, err
		}
	}
	data := b.Build()
	comments.AttachNational(data)
	return data, nil
}

func partyPtr(p models.Party) *models.Party {
	return &p
}
