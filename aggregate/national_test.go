package aggregate

import (
	"errors"
	"testing"

	"enip/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildNational(t *testing.T, g gate, records ...models.ResultRecord) *NationalData {
	t.Helper()
	data, err := BuildNational(records, nil, g, nil)
	require.NoError(t, err)
	return data
}

func TestBuildNational_NationalResult(t *testing.T) {
	data := buildNational(t, gate{},
		resPNational("GOP", 456, 0.456),
		resPNational("Dem", 123, 0.123),
		resPNational("Lib", 50, 0.05),
		resPNational("Grn", 25, 0.025),
	)

	p := data.NationalSummary.P
	require.NotNil(t, p.Dem)
	require.NotNil(t, p.Gop)
	assert.Equal(t, "Biden", p.Dem.LastName)
	assert.Equal(t, int64(456), p.Gop.PopVote)
	assert.Equal(t, int64(75), p.Oth.PopVote)
	assert.InDelta(t, 0.075, p.Oth.PopPct, 1e-9)
	assert.Nil(t, p.Winner)
	assert.Empty(t, data.StateSummaries)
}

func TestBuildNational_OrdersByVotes(t *testing.T) {
	// The lower-polling Democrat arrives first but the leader still gets the named tally
	data := buildNational(t, gate{},
		withName(resPState("CA", "Dem", 10, 0.1, 55), "Second", "Place"),
		withName(resPState("CA", "Dem", 90, 0.9, 55), "First", "Place"),
	)

	p := data.StateSummaries["CA"].(*StateSummary).P
	require.NotNil(t, p.Dem)
	assert.Equal(t, "First", p.Dem.FirstName)
	assert.Equal(t, int64(10), p.Oth.PopVote)
}

func TestBuildNational_StatePresidentCall(t *testing.T) {
	records := []models.ResultRecord{
		resPNational("Dem", 1000, 0.5),
		resPNational("GOP", 900, 0.45),
		won(resPState("PA", "Dem", 500, 0.5, 20)),
		resPState("PA", "GOP", 490, 0.49, 20),
	}

	t.Run("unpublished call shows no winner", func(t *testing.T) {
		data := buildNational(t, gate{}, records...)

		pa := data.StateSummaries["PA"].(*StateSummary)
		assert.Nil(t, pa.P.Winner)
		assert.Equal(t, int64(500), pa.P.Dem.PopVote)
		assert.Equal(t, 0, data.NationalSummary.P.Dem.ElectWon)
	})

	t.Run("published call credits electors", func(t *testing.T) {
		data := buildNational(t, publish(gate{}, models.OfficePresident, "PA"), records...)

		pa := data.StateSummaries["PA"].(*StateSummary)
		assert.Equal(t, party(models.PartyDem), pa.P.Winner)
		assert.Equal(t, 20, data.NationalSummary.P.Dem.ElectWon)
		assert.Equal(t, 0, data.NationalSummary.P.Gop.ElectWon)
	})

	t.Run("published entry without a feed winner", func(t *testing.T) {
		data := buildNational(t, publish(gate{}, models.OfficePresident, "PA"),
			resPState("PA", "Dem", 500, 0.5, 20),
		)
		assert.Nil(t, data.StateSummaries["PA"].(*StateSummary).P.Winner)
	})

	t.Run("third party electors", func(t *testing.T) {
		data := buildNational(t, publish(gate{}, models.OfficePresident, "UT"),
			resPNational("Dem", 1000, 0.5),
			won(resPState("UT", "Ind", 500, 0.5, 6)),
		)
		assert.Equal(t, party(models.PartyOther), data.StateSummaries["UT"].(*StateSummary).P.Winner)
		assert.Equal(t, 6, data.NationalSummary.P.Oth.ElectWon)
	})
}

func TestBuildNational_ElectoralThreshold(t *testing.T) {
	g := publish(gate{}, models.OfficePresident, "CA", "MA", "WA")

	t.Run("270 wins", func(t *testing.T) {
		data := buildNational(t, g,
			resPNational("Dem", 123, 0.123),
			resPNational("GOP", 456, 0.456),
			won(resPState("CA", "Dem", 111, 0.111, 200)),
			won(resPState("MA", "Dem", 222, 0.222, 70)),
			won(resPState("WA", "GOP", 333, 0.333, 200)),
			won(resPState("WY", "GOP", 444, 0.444, 70)),
		)

		p := data.NationalSummary.P
		assert.Equal(t, 270, p.Dem.ElectWon)
		assert.Equal(t, 200, p.Gop.ElectWon)
		assert.Equal(t, party(models.PartyDem), p.Winner)
		assert.Nil(t, data.StateSummaries["WY"].(*StateSummary).P.Winner)
	})

	t.Run("269 does not", func(t *testing.T) {
		data := buildNational(t, g,
			resPNational("Dem", 123, 0.123),
			resPNational("GOP", 456, 0.456),
			won(resPState("CA", "Dem", 111, 0.111, 200)),
			won(resPState("MA", "Dem", 222, 0.222, 69)),
		)

		assert.Equal(t, 269, data.NationalSummary.P.Dem.ElectWon)
		assert.Nil(t, data.NationalSummary.P.Winner)
	})

	t.Run("gop reaching 270", func(t *testing.T) {
		data := buildNational(t, g,
			resPNational("Dem", 123, 0.123),
			resPNational("GOP", 456, 0.456),
			won(resPState("CA", "GOP", 111, 0.111, 200)),
			won(resPState("WA", "GOP", 333, 0.333, 80)),
		)
		assert.Equal(t, party(models.PartyGOP), data.NationalSummary.P.Winner)
	})

	t.Run("dem is checked before gop", func(t *testing.T) {
		data := buildNational(t, g,
			resPNational("Dem", 123, 0.123),
			resPNational("GOP", 456, 0.456),
			won(resPState("CA", "GOP", 111, 0.111, 300)),
			won(resPState("MA", "Dem", 222, 0.222, 300)),
		)
		assert.Equal(t, party(models.PartyDem), data.NationalSummary.P.Winner)
	})
}

func TestBuildNational_SplitElectorStates(t *testing.T) {
	t.Run("statewide record is skipped", func(t *testing.T) {
		data := buildNational(t, gate{}, resPState("ME", "Dem", 100, 0.5, 4))
		assert.NotContains(t, data.StateSummaries, "ME")
	})

	t.Run("at large is the statewide figure", func(t *testing.T) {
		data := buildNational(t, gate{},
			resPState("ME", "Dem", 999, 0.5, 4),
			resPDistrict("ME", "At Large", "Dem", 100, 0.5),
		)
		me, ok := data.StateSummaries["ME"].(*StateSummary)
		require.True(t, ok)
		assert.Equal(t, int64(100), me.P.Dem.PopVote)
	})

	t.Run("numbered district becomes a pseudo-state", func(t *testing.T) {
		data := buildNational(t, gate{}, resPDistrict("NE", "District 2", "GOP", 100, 0.5))
		ne2, ok := data.StateSummaries["NE-02"].(*PresidentialCDSummary)
		require.True(t, ok)
		assert.Equal(t, int64(100), ne2.P.Gop.PopVote)
	})

	t.Run("district call is gated by its own geography", func(t *testing.T) {
		records := []models.ResultRecord{
			resPNational("Dem", 1000, 0.5),
			won(resPDistrict("ME", "District 1", "Dem", 100, 0.5)),
		}

		data := buildNational(t, publish(gate{}, models.OfficePresident, "ME"), records...)
		assert.Nil(t, data.StateSummaries["ME-01"].(*PresidentialCDSummary).P.Winner)

		data = buildNational(t, publish(gate{}, models.OfficePresident, "ME-01"), records...)
		assert.Equal(t, party(models.PartyDem), data.StateSummaries["ME-01"].(*PresidentialCDSummary).P.Winner)
		assert.Equal(t, 1, data.NationalSummary.P.Dem.ElectWon)
	})

	t.Run("unknown district is fatal", func(t *testing.T) {
		_, err := BuildNational([]models.ResultRecord{
			resPDistrict("NE", "District 9", "Dem", 100, 0.5),
		}, nil, gate{}, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUncategorizable))

		var catErr *CategorizationError
		require.True(t, errors.As(err, &catErr))
		assert.Equal(t, "NE", catErr.State)
		assert.Contains(t, catErr.Error(), "District 9")
	})
}

func TestBuildNational_Senate(t *testing.T) {
	t.Run("regular race", func(t *testing.T) {
		data := buildNational(t, gate{},
			resS("CO", 0, "Dem", 300, 0.55),
			resS("CO", 0, "GOP", 200, 0.4),
		)
		co := data.StateSummaries["CO"].(*StateSummary)
		require.NotNil(t, co.S)
		assert.Equal(t, int64(300), co.S.Dem.PopVote)
	})

	t.Run("georgia seat 2 is the special", func(t *testing.T) {
		data := buildNational(t, gate{},
			resS("GA", 0, "GOP", 100, 0.5),
			withName(resS("GA", 2, "GOP", 90, 0.3), "Kelly", "Loeffler"),
			withName(resS("GA", 2, "GOP", 80, 0.2), "Doug", "Collins"),
		)

		special, ok := data.StateSummaries["GA-S"].(*SenateSpecialSummary)
		require.True(t, ok)
		assert.Equal(t, "Loeffler", special.S.Gop.LastName)
		assert.True(t, special.S.MultipleGop)

		ga := data.StateSummaries["GA"].(*StateSummary)
		assert.Equal(t, int64(100), ga.S.Gop.PopVote)
		assert.False(t, ga.S.MultipleGop)
	})

	t.Run("published call grants a seat", func(t *testing.T) {
		records := []models.ResultRecord{
			won(resS("GA", 2, "Dem", 100, 0.5)),
			won(resS("AZ", 0, "Dem", 100, 0.5)),
			won(resS("ME", 0, "GOP", 100, 0.5)),
		}

		data := buildNational(t, publish(gate{}, models.OfficeSenate, "GA-S", "ME"), records...)
		assert.Equal(t, party(models.PartyDem), data.StateSummaries["GA-S"].(*SenateSpecialSummary).S.Winner)
		assert.Nil(t, data.StateSummaries["AZ"].(*StateSummary).S.Winner)
		assert.Equal(t, WinnerCount{Dem: SeatCount{Won: 1}, Gop: SeatCount{Won: 1}}, data.NationalSummary.S)
	})

	t.Run("a published georgia call does not publish the special", func(t *testing.T) {
		data := buildNational(t, publish(gate{}, models.OfficeSenate, "GA"),
			won(resS("GA", 2, "Dem", 100, 0.5)),
		)
		assert.Nil(t, data.StateSummaries["GA-S"].(*SenateSpecialSummary).S.Winner)
		assert.Equal(t, 0, data.NationalSummary.S.Dem.Won)
	})
}

func TestBuildNational_House(t *testing.T) {
	t.Run("numbered seat", func(t *testing.T) {
		data := buildNational(t, gate{}, resH("GA", 4, "Dem", "Hank", "Johnson", 12345, 0.234))
		ga := data.StateSummaries["GA"].(*StateSummary)
		require.Contains(t, ga.H, "04")
		assert.Equal(t, "Johnson", ga.H["04"].Dem.LastName)
	})

	t.Run("at large seat", func(t *testing.T) {
		data := buildNational(t, gate{}, resH("AK", 1, "GOP", "Don", "Young", 12345, 0.234))
		ak := data.StateSummaries["AK"].(*StateSummary)
		require.Contains(t, ak.H, "AL")
		assert.NotContains(t, ak.H, "01")
		assert.Equal(t, "Young", ak.H["AL"].Gop.LastName)
	})

	t.Run("calls bypass the register", func(t *testing.T) {
		data := buildNational(t, gate{},
			won(resH("AK", 1, "GOP", "Don", "Young", 200, 0.6)),
			resH("AK", 1, "Dem", "Alyse", "Galvin", 100, 0.4),
			won(resH("GA", 4, "Dem", "Hank", "Johnson", 300, 0.8)),
			won(resH("GA", 5, "Ind", "Some", "One", 300, 0.8)),
		)

		assert.Equal(t, party(models.PartyGOP), data.StateSummaries["AK"].(*StateSummary).H["AL"].Winner)
		assert.Equal(t, WinnerCount{
			Dem: SeatCount{Won: 1},
			Gop: SeatCount{Won: 1},
			Oth: SeatCount{Won: 1},
		}, data.NationalSummary.H)
	})
}

func TestBuildNational_Uncategorizable(t *testing.T) {
	cases := map[string]models.ResultRecord{
		"national senate":    record(models.LevelNational, models.OfficeSenate, "US", "Dem", 1, 0.1),
		"national not US":    record(models.LevelNational, models.OfficePresident, "CA", "Dem", 1, 0.1),
		"district house":     record(models.LevelDistrict, models.OfficeHouse, "NE", "Dem", 1, 0.1),
		"county in national": record(models.LevelCounty, models.OfficePresident, "CA", "Dem", 1, 0.1),
		"unknown office":     record(models.LevelState, models.Office("G"), "CA", "Dem", 1, 0.1),
	}

	for name, rec := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := BuildNational([]models.ResultRecord{rec}, nil, gate{}, nil)
			assert.ErrorIs(t, err, ErrUncategorizable)
		})
	}
}

func TestBuildNational_Historicals(t *testing.T) {
	hist := Historicals{}
	hist["elex-US-P-Dem"] = History{"2020-11-03T20:00:00Z": 10, "2020-11-03T20:30:00Z": 20}
	hist["lib"] = History{"2020-11-03T20:30:00Z": 5}
	hist["grn"] = History{"2020-11-03T20:30:00Z": 1, "2020-11-03T21:00:00Z": 2}

	data, err := BuildNational([]models.ResultRecord{
		resPNational("Dem", 30, 0.6),
		withElex(resPNational("Lib", 6, 0.1), "lib"),
		withElex(resPNational("Grn", 3, 0.05), "grn"),
	}, hist, gate{}, nil)
	require.NoError(t, err)

	p := data.NationalSummary.P
	assert.Equal(t, History{"2020-11-03T20:00:00Z": 10, "2020-11-03T20:30:00Z": 20}, p.Dem.PopVoteHistory)
	assert.Equal(t, History{"2020-11-03T20:30:00Z": 6, "2020-11-03T21:00:00Z": 2}, p.Oth.PopVoteHistory)
}
