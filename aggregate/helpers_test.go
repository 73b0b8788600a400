package aggregate

import (
	"enip/models"
)

type gate map[models.Office]map[string]bool

func (g gate) Published(office models.Office, geo string) bool {
	return g[office][geo]
}

func publish(g gate, office models.Office, geos ...string) gate {
	if g[office] == nil {
		g[office] = map[string]bool{}
	}
	for _, geo := range geos {
		g[office][geo] = true
	}
	return g
}

func defaultName(party string) (string, string) {
	switch party {
	case "Dem":
		return "Joe", "Biden"
	case "GOP":
		return "Donald", "Trump"
	default:
		return "Foo", "Barson"
	}
}

func record(level models.Level, office models.Office, state, party string, votes int64, pct float64) models.ResultRecord {
	first, last := defaultName(party)
	return models.ResultRecord{
		IngestID:    1,
		ElexID:      "elex-" + state + "-" + string(office) + "-" + party,
		StatePostal: state,
		Level:       level,
		OfficeID:    office,
		Party:       party,
		First:       first,
		Last:        last,
		VoteCount:   votes,
		VotePct:     pct,
	}
}

func resPNational(party string, votes int64, pct float64) models.ResultRecord {
	r := record(models.LevelNational, models.OfficePresident, "US", party, votes, pct)
	r.ElectTotal = 538
	return r
}

func resPState(state, party string, votes int64, pct float64, electors int) models.ResultRecord {
	r := record(models.LevelState, models.OfficePresident, state, party, votes, pct)
	r.ElectTotal = electors
	return r
}

func resPDistrict(state, unit, party string, votes int64, pct float64) models.ResultRecord {
	r := record(models.LevelDistrict, models.OfficePresident, state, party, votes, pct)
	r.ReportingUnitName = unit
	r.ElectTotal = 1
	return r
}

func resS(state string, seat int, party string, votes int64, pct float64) models.ResultRecord {
	r := record(models.LevelState, models.OfficeSenate, state, party, votes, pct)
	if seat != 0 {
		r.SeatNum = &seat
	}
	return r
}

func resH(state string, seat int, party, first, last string, votes int64, pct float64) models.ResultRecord {
	r := record(models.LevelState, models.OfficeHouse, state, party, votes, pct)
	r.SeatNum = &seat
	r.First, r.Last = first, last
	return r
}

func county(r models.ResultRecord, fips string) models.ResultRecord {
	r.Level = models.LevelCounty
	r.FIPSCode = fips
	r.ElexID = r.ElexID + "-" + fips
	return r
}

func won(r models.ResultRecord) models.ResultRecord {
	r.Winner = true
	return r
}

func withElex(r models.ResultRecord, id string) models.ResultRecord {
	r.ElexID = id
	return r
}

func withName(r models.ResultRecord, first, last string) models.ResultRecord {
	r.First, r.Last = first, last
	return r
}

func party(p models.Party) *models.Party {
	return &p
}
