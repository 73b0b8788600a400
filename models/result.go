package models

// Level is the reporting granularity of a result record
type Level string

const (
	LevelNational Level = "national"
	LevelState    Level = "state"
	LevelDistrict Level = "district"
	LevelCounty   Level = "county"
)

// Office identifies the contest a record belongs to
type Office string

const (
	OfficePresident Office = "P"
	OfficeSenate    Office = "S"
	OfficeHouse     Office = "H"
)

// Valid reports whether l is one of the known levels
func (l Level) Valid() bool {
	switch l {
	case LevelNational, LevelState, LevelDistrict, LevelCounty:
		return true
	}
	return false
}

// AllOffices lists the offices requested from the feed
var AllOffices = []Office{OfficePresident, OfficeSenate, OfficeHouse}

// ResultRecord is one candidate's result in one race at one reporting granularity
type ResultRecord struct {
	IngestID          int64   `db:"ingest_id"`
	ElexID            string  `db:"elex_id"`
	StatePostal       string  `db:"statepostal"`
	FIPSCode          string  `db:"fipscode"`
	Level             Level   `db:"level"`
	ReportingUnitName string  `db:"reportingunitname"`
	OfficeID          Office  `db:"officeid"`
	SeatNum           *int    `db:"seatnum"`
	Party             string  `db:"party"`
	First             string  `db:"first"`
	Last              string  `db:"last"`
	ElectTotal        int     `db:"electtotal"`
	VoteCount         int64   `db:"votecount"`
	VotePct           float64 `db:"votepct"`
	Winner            bool    `db:"winner"`
}

// ResultColumns is the column order used when copying records into ap_result
var ResultColumns = []string{
	"ingest_id", "elex_id", "statepostal", "fipscode", "level", "reportingunitname",
	"officeid", "seatnum", "party", "first", "last", "electtotal", "votecount", "votepct", "winner",
}

// Values returns the record's fields in ResultColumns order
func (r ResultRecord) Values() []any {
	var ru, fips any
	if r.ReportingUnitName != "" {
		ru = r.ReportingUnitName
	}
	if r.FIPSCode != "" {
		fips = r.FIPSCode
	}
	return []any{
		r.IngestID, r.ElexID, r.StatePostal, fips, string(r.Level), ru,
		string(r.OfficeID), r.SeatNum, r.Party, r.First, r.Last, r.ElectTotal,
		r.VoteCount, r.VotePct, r.Winner,
	}
}

// Seat returns the seat number, or 0 when the feed did not provide one
func (r ResultRecord) Seat() int {
	if r.SeatNum == nil {
		return 0
	}
	return *r.SeatNum
}
