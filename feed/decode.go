package feed

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"enip/models"
)

// generalElection is the only race type the aggregation understands
const generalElection = "G"

type apResponse struct {
	ElectionDate string   `json:"electionDate"`
	Races        []apRace `json:"races"`
}

type apRace struct {
	RaceID         string             `json:"raceID"`
	RaceTypeID     string             `json:"raceTypeID"`
	OfficeID       string             `json:"officeID"`
	SeatNum        string             `json:"seatNum"`
	ReportingUnits []apReportingUnit `json:"reportingUnits"`
}

type apReportingUnit struct {
	ReportingUnitID   string        `json:"reportingunitID"`
	StatePostal       string        `json:"statePostal"`
	FIPSCode          string        `json:"fipsCode"`
	Level             string        `json:"level"`
	ReportingUnitName string        `json:"reportingunitName"`
	ElectTotal        int           `json:"electTotal"`
	Candidates        []apCandidate `json:"candidates"`
}

type apCandidate struct {
	CandidateID string `json:"candidateID"`
	PolID       string `json:"polID"`
	First       string `json:"first"`
	Last        string `json:"last"`
	Party       string `json:"party"`
	VoteCount   int64  `json:"voteCount"`
	Winner      string `json:"winner"`
}

// Decode reads an AP results response and flattens it into one record per
// candidate per reporting unit. Vote percentages are computed per reporting unit
// as fractions.
func Decode(r io.Reader) ([]models.ResultRecord, error) {
	var resp apResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode results feed: %w", err)
	}
	return flatten(resp)
}

func flatten(resp apResponse) ([]models.ResultRecord, error) {
	var records []models.ResultRecord
	for _, race := range resp.Races {
		if race.RaceTypeID != "" && race.RaceTypeID != generalElection {
			continue
		}

		office := models.Office(race.OfficeID)
		switch office {
		case models.OfficePresident, models.OfficeSenate, models.OfficeHouse:
		default:
			continue
		}

		seat, err := parseSeat(race.SeatNum)
		if err != nil {
			return nil, fmt.Errorf("race %s: %w", race.RaceID, err)
		}

		units, err := raceUnits(race, office)
		if err != nil {
			return nil, fmt.Errorf("race %s: %w", race.RaceID, err)
		}
		for _, u := range units {
			records = append(records, unitRecords(race, office, seat, u.unit, u.level)...)
		}
	}
	return records, nil
}

type levelledUnit struct {
	unit  apReportingUnit
	level models.Level
}

// raceUnits resolves the reporting units of one race to the levels the
// aggregation understands. Congressional district units are the race's own
// statewide figure, and township subunits are rolled up into their county.
func raceUnits(race apRace, office models.Office) ([]levelledUnit, error) {
	var out []levelledUnit
	hasState := false
	counties := make(map[string]bool)
	subunits := make(map[string][]apReportingUnit)
	var subunitFIPS []string

	levels := make([]models.Level, len(race.ReportingUnits))
	subunit := make([]bool, len(race.ReportingUnits))
	for i, ru := range race.ReportingUnits {
		level, err := parseLevel(ru.Level)
		if err != nil {
			return nil, err
		}
		levels[i] = level
		subunit[i] = strings.EqualFold(ru.Level, "subunit")
		switch {
		case level == models.LevelState:
			hasState = true
		case level == models.LevelCounty && !subunit[i]:
			counties[ru.FIPSCode] = true
		}
	}

	for i, ru := range race.ReportingUnits {
		level := levels[i]
		switch {
		case level == models.LevelDistrict && office != models.OfficePresident:
			// A house or senate race has one statewide figure; prefer the state unit
			if hasState {
				continue
			}
			out = append(out, levelledUnit{unit: ru, level: models.LevelState})
		case subunit[i]:
			if ru.FIPSCode == "" {
				return nil, fmt.Errorf("subunit %q without a FIPS code", ru.ReportingUnitName)
			}
			if counties[ru.FIPSCode] {
				continue
			}
			if _, seen := subunits[ru.FIPSCode]; !seen {
				subunitFIPS = append(subunitFIPS, ru.FIPSCode)
			}
			subunits[ru.FIPSCode] = append(subunits[ru.FIPSCode], ru)
		default:
			out = append(out, levelledUnit{unit: ru, level: level})
		}
	}

	for _, fips := range subunitFIPS {
		out = append(out, levelledUnit{unit: rollUpSubunits(fips, subunits[fips]), level: models.LevelCounty})
	}
	return out, nil
}

// rollUpSubunits sums the townships sharing a FIPS code into one county unit
func rollUpSubunits(fips string, units []apReportingUnit) apReportingUnit {
	county := apReportingUnit{
		ReportingUnitID: "county:" + fips,
		StatePostal:     units[0].StatePostal,
		FIPSCode:        fips,
		Level:           "county",
	}

	index := make(map[string]int)
	for _, ru := range units {
		for _, c := range ru.Candidates {
			key := candidateKey(c)
			i, ok := index[key]
			if !ok {
				index[key] = len(county.Candidates)
				county.Candidates = append(county.Candidates, apCandidate{
					CandidateID: c.CandidateID,
					PolID:       c.PolID,
					First:       c.First,
					Last:        c.Last,
					Party:       c.Party,
				})
				i = index[key]
			}
			county.Candidates[i].VoteCount += c.VoteCount
		}
	}
	return county
}

func unitRecords(race apRace, office models.Office, seat *int, ru apReportingUnit, level models.Level) []models.ResultRecord {
	var total int64
	for _, c := range ru.Candidates {
		total += c.VoteCount
	}

	fips := ""
	if level == models.LevelCounty {
		fips = ru.FIPSCode
	}

	records := make([]models.ResultRecord, 0, len(ru.Candidates))
	for _, c := range ru.Candidates {
		var pct float64
		if total > 0 {
			pct = float64(c.VoteCount) / float64(total)
		}
		records = append(records, models.ResultRecord{
			ElexID:            elexID(ru, race, c),
			StatePostal:       ru.StatePostal,
			FIPSCode:          fips,
			Level:             level,
			ReportingUnitName: ru.ReportingUnitName,
			OfficeID:          office,
			SeatNum:           seat,
			Party:             c.Party,
			First:             c.First,
			Last:              c.Last,
			ElectTotal:        ru.ElectTotal,
			VoteCount:         c.VoteCount,
			VotePct:           pct,
			Winner:            c.Winner == "X",
		})
	}
	return records
}

func candidateKey(c apCandidate) string {
	if c.PolID != "" {
		return c.PolID
	}
	return c.CandidateID
}

// elexID identifies one candidate in one reporting unit, stable across runs
func elexID(ru apReportingUnit, race apRace, c apCandidate) string {
	candidate := candidateKey(c)
	unit := ru.ReportingUnitID
	if unit == "" {
		unit = ru.Level + ":" + ru.FIPSCode + ":" + ru.ReportingUnitName
	}
	return fmt.Sprintf("%s%s-%s-%s", ru.StatePostal, race.RaceID, candidate, unit)
}

func parseSeat(raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid seat number %q", raw)
	}
	return &n, nil
}

func parseLevel(raw string) (models.Level, error) {
	switch strings.ToLower(raw) {
	case "national":
		return models.LevelNational, nil
	case "state":
		return models.LevelState, nil
	case "district":
		return models.LevelDistrict, nil
	case "county", "fipscode", "subunit":
		return models.LevelCounty, nil
	}
	return "", fmt.Errorf("unknown reporting unit level %q", raw)
}
