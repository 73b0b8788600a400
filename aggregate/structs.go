package aggregate

import (
	"time"

	"enip/models"
)

// Candidate is a named tally for the leading candidate of a major party
type Candidate struct {
	FirstName      string  `json:"firstName"`
	LastName       string  `json:"lastName"`
	PopVote        int64   `json:"popVote"`
	PopPct         float64 `json:"popPct"`
	PopVoteHistory History `json:"popVoteHistory"`
}

// NationalCandidate is a named presidential tally with electors won
type NationalCandidate struct {
	Candidate
	ElectWon int `json:"electWon"`
}

// Other sums every candidate that is not a named tally
type Other struct {
	PopVote        int64   `json:"popVote"`
	PopPct         float64 `json:"popPct"`
	PopVoteHistory History `json:"popVoteHistory"`
}

func (o *Other) absorb(votes int64, pct float64, history History) {
	o.PopVote += votes
	o.PopPct += pct
	if o.PopVoteHistory == nil {
		o.PopVoteHistory = History{}
	}
	o.PopVoteHistory.merge(history)
}

// NationalOther is the unnamed presidential tally with electors won
type NationalOther struct {
	Other
	ElectWon int `json:"electWon"`
}

// Tallies holds the dem, gop and oth tallies shared by every race shape
type Tallies[N any, O any] struct {
	Dem *N `json:"dem"`
	Gop *N `json:"gop"`
	Oth O  `json:"oth"`
}

// Multiples flags races where more than one candidate of a major party ran
type Multiples struct {
	MultipleDem bool `json:"multipleDem"`
	MultipleGop bool `json:"multipleGop"`
}

// Comment is an editorial note as published
type Comment struct {
	Timestamp time.Time `json:"timestamp"`
	Author    string    `json:"author"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
}

// NationalPresident is the nationwide presidential race
type NationalPresident struct {
	Tallies[NationalCandidate, NationalOther]
	Winner *models.Party `json:"winner"`
}

// StatePresident is the presidential race in a state or congressional district
type StatePresident struct {
	Tallies[Candidate, Other]
	Winner   *models.Party `json:"winner"`
	Comments []Comment     `json:"comments"`
}

// CongressionalResult is a senate race or a single house seat
type CongressionalResult struct {
	Tallies[Candidate, Other]
	Multiples
	Winner   *models.Party `json:"winner"`
	Comments []Comment     `json:"comments"`
}

// SeatCount is the number of races a party has won
type SeatCount struct {
	Won int `json:"won"`
}

// WinnerCount tallies race wins per party across the country
type WinnerCount struct {
	Dem SeatCount `json:"dem"`
	Gop SeatCount `json:"gop"`
	Oth SeatCount `json:"oth"`
}

func (w *WinnerCount) grant(p models.Party) {
	switch p {
	case models.PartyDem:
		w.Dem.Won++
	case models.PartyGOP:
		w.Gop.Won++
	default:
		w.Oth.Won++
	}
}

// NationalSummary is the top of the national document
type NationalSummary struct {
	P        NationalPresident `json:"P"`
	S        WinnerCount       `json:"S"`
	H        WinnerCount       `json:"H"`
	Comments []Comment         `json:"comments"`
}

// GeographySummary is one entry of NationalData.StateSummaries. The set of
// implementations is closed: StateSummary, PresidentialCDSummary and SenateSpecialSummary.
type GeographySummary interface {
	// president returns the presidential race, or nil when the shape has none.
	president() *StatePresident
	// senate returns the senate race, creating it on first use, or nil when the shape has none.
	senate() *CongressionalResult
	// house returns the house seat map, or nil when the shape has none.
	house() map[string]*CongressionalResult
}

// StateSummary is a full state: president, senate and house
type StateSummary struct {
	P StatePresident                  `json:"P"`
	S *CongressionalResult            `json:"S"`
	H map[string]*CongressionalResult `json:"H"`
}

func newStateSummary() *StateSummary {
	return &StateSummary{H: make(map[string]*CongressionalResult)}
}

func (s *StateSummary) president() *StatePresident { return &s.P }

func (s *StateSummary) senate() *CongressionalResult {
	if s.S == nil {
		s.S = &CongressionalResult{}
	}
	return s.S
}

func (s *StateSummary) house() map[string]*CongressionalResult { return s.H }

// PresidentialCDSummary is a congressional district that awards its own elector
type PresidentialCDSummary struct {
	P StatePresident `json:"P"`
}

func (s *PresidentialCDSummary) president() *StatePresident { return &s.P }

func (s *PresidentialCDSummary) senate() *CongressionalResult { return nil }

func (s *PresidentialCDSummary) house() map[string]*CongressionalResult { return nil }

// SenateSpecialSummary is a special senate election held alongside the regular one
type SenateSpecialSummary struct {
	S *CongressionalResult `json:"S"`
}

func (s *SenateSpecialSummary) president() *StatePresident { return nil }

func (s *SenateSpecialSummary) senate() *CongressionalResult {
	if s.S == nil {
		s.S = &CongressionalResult{}
	}
	return s.S
}

func (s *SenateSpecialSummary) house() map[string]*CongressionalResult { return nil }

// NationalData is the national document
type NationalData struct {
	NationalSummary NationalSummary             `json:"nationalSummary"`
	StateSummaries  map[string]GeographySummary `json:"stateSummaries"`
}

// CountyPresident is the presidential race within one county
type CountyPresident struct {
	Tallies[Candidate, Other]
}

// CountyCongressional is a senate race or house seat within one county
type CountyCongressional struct {
	Tallies[Candidate, Other]
	Multiples
}

// County holds every race reported for one county. S is keyed by effective
// geography so a county can carry both GA and GA-S; H is keyed by seat.
type County struct {
	P CountyPresident                 `json:"P"`
	S map[string]*CountyCongressional `json:"S"`
	H map[string]*CountyCongressional `json:"H"`
}

func newCounty() *County {
	return &County{
		S: make(map[string]*CountyCongressional),
		H: make(map[string]*CountyCongressional),
	}
}

// StateData is a per-state document keyed by county FIPS code
type StateData struct {
	Counties map[string]*County `json:"counties"`
}
