package testutil

import (
	"fmt"
	"time"

	"enip/models"
)

// CreateTestIngestRun returns an unsaved run at dt with the given waypoints
func CreateTestIngestRun(dt time.Time, waypoints map[string]time.Time) *models.IngestRun {
	return &models.IngestRun{
		IngestDT:  dt,
		Waypoints: waypoints,
	}
}

// CreateTestResult returns a state-level presidential record for one candidate
func CreateTestResult(ingestID int64, state, party string, votes int64) models.ResultRecord {
	return models.ResultRecord{
		IngestID:          ingestID,
		ElexID:            fmt.Sprintf("%s-%s-P", state, party),
		StatePostal:       state,
		Level:             models.LevelState,
		ReportingUnitName: state,
		OfficeID:          models.OfficePresident,
		Party:             party,
		First:             "Test",
		Last:              party + " Candidate",
		ElectTotal:        10,
		VoteCount:         votes,
	}
}

// CreateTestCountyResult returns a county-level presidential record
func CreateTestCountyResult(ingestID int64, state, fips, party string, votes int64) models.ResultRecord {
	rec := CreateTestResult(ingestID, state, party, votes)
	rec.ElexID = fmt.Sprintf("%s-%s-%s-P", state, fips, party)
	rec.Level = models.LevelCounty
	rec.FIPSCode = fips
	rec.ReportingUnitName = "County " + fips
	return rec
}

// CreateTestComment returns an unsaved comment
func CreateTestComment(ts time.Time, office, race, title string) models.Comment {
	return models.Comment{
		Timestamp:   ts,
		SubmittedBy: "desk@example.test",
		OfficeID:    office,
		Race:        race,
		Title:       title,
		Body:        title + " body",
	}
}
