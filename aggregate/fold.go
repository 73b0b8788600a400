package aggregate

import (
	"sort"

	"enip/models"
)

// unnamed is satisfied by the pointer to every unnamed tally shape
type unnamed[O any] interface {
	*O
	absorb(votes int64, pct float64, history History)
}

// fold merges one record into a race. The first Dem and first GOP record become the
// named tallies; every later one of those parties, and every other party, is summed
// into oth. multiples may be nil for shapes that do not track split parties.
// Records must arrive in vote-count-descending order.
func fold[N any, O any, PO unnamed[O]](t *Tallies[N, O], multiples *Multiples, rec models.ResultRecord, hist Historicals, named func(Candidate) *N) {
	switch models.PartyFromAP(rec.Party) {
	case models.PartyDem:
		if t.Dem == nil {
			t.Dem = named(newCandidate(rec, hist))
			return
		}
		if multiples != nil {
			multiples.MultipleDem = true
		}
	case models.PartyGOP:
		if t.Gop == nil {
			t.Gop = named(newCandidate(rec, hist))
			return
		}
		if multiples != nil {
			multiples.MultipleGop = true
		}
	}

	PO(&t.Oth).absorb(rec.VoteCount, rec.VotePct, hist[rec.ElexID])
}

func newCandidate(rec models.ResultRecord, hist Historicals) Candidate {
	return Candidate{
		FirstName:      rec.First,
		LastName:       rec.Last,
		PopVote:        rec.VoteCount,
		PopPct:         rec.VotePct,
		PopVoteHistory: hist[rec.ElexID].clone(),
	}
}

func asCandidate(c Candidate) *Candidate {
	return &c
}

func asNationalCandidate(c Candidate) *NationalCandidate {
	return &NationalCandidate{Candidate: c}
}

// byVotesDescending returns a copy of records stably sorted by vote count, highest first
func byVotesDescending(records []models.ResultRecord) []models.ResultRecord {
	sorted := make([]models.ResultRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].VoteCount > sorted[j].VoteCount
	})
	return sorted
}
