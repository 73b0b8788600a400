package aggregate

import (
	"enip/geography"
	"enip/models"
)

type commentKey struct {
	office string
	race   string
}

// Comments groups editorial comments by office and race, keeping their input order
type Comments map[commentKey][]Comment

// GroupComments indexes comments by office and race. The input order, most recent
// first, is kept within each race.
func GroupComments(comments []models.Comment) Comments {
	out := make(Comments)
	for _, c := range comments {
		key := commentKey{office: c.OfficeID, race: c.Race}
		out[key] = append(out[key], Comment{
			Timestamp: c.Timestamp.UTC(),
			Author:    c.SubmittedBy,
			Title:     c.Title,
			Body:      c.Body,
		})
	}
	return out
}

func (c Comments) lookup(office, race string) []Comment {
	found := c[commentKey{office: office, race: race}]
	out := make([]Comment, len(found))
	copy(out, found)
	return out
}

// AttachNational fills the comments of every race in data, and the national
// summary's own comments
func (c Comments) AttachNational(data *NationalData) {
	data.NationalSummary.Comments = c.lookup(models.NationalCommentOffice, models.NationalCommentRace)

	for geo, summary := range data.StateSummaries {
		if p := summary.president(); p != nil {
			p.Comments = c.lookup(string(models.OfficePresident), geo)
		}

		switch s := summary.(type) {
		case *StateSummary:
			if s.S != nil {
				s.S.Comments = c.lookup(string(models.OfficeSenate), geo)
			}
		case *SenateSpecialSummary:
			if s.S != nil {
				s.S.Comments = c.lookup(string(models.OfficeSenate), geo)
			}
		}

		for seat, race := range summary.house() {
			race.Comments = c.lookup(string(models.OfficeHouse), geography.HouseRace(geo, seat))
		}
	}
}
