package geography

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresidentialDistrict(t *testing.T) {
	geo, atLarge, err := PresidentialDistrict("ME", "At Large")
	require.NoError(t, err)
	assert.Equal(t, "ME", geo)
	assert.True(t, atLarge)

	geo, atLarge, err = PresidentialDistrict("NE", "District 2")
	require.NoError(t, err)
	assert.Equal(t, "NE-02", geo)
	assert.False(t, atLarge)

	_, _, err = PresidentialDistrict("NE", "District 9")
	assert.Error(t, err)
}

func TestSenate(t *testing.T) {
	assert.Equal(t, "GA-S", Senate("GA", 2))
	assert.Equal(t, "GA", Senate("GA", 0))
	assert.Equal(t, "AZ", Senate("AZ", 2))
	assert.True(t, IsSenateSpecial("GA-S"))
	assert.False(t, IsSenateSpecial("GA"))
}

func TestHouseSeat(t *testing.T) {
	assert.Equal(t, "AL", HouseSeat("AK", 1))
	assert.Equal(t, "04", HouseSeat("GA", 4))
	assert.Equal(t, "12", HouseSeat("CA", 12))
	assert.Equal(t, "GA-04", HouseRace("GA", HouseSeat("GA", 4)))
}

func TestPresidentialGeographies(t *testing.T) {
	geos := PresidentialGeographies()
	assert.Len(t, geos, 56)
	assert.Contains(t, geos, "ME-02")
	assert.Contains(t, geos, "NE-03")
	assert.Contains(t, geos, "DC")
	assert.True(t, SplitsElectors("ME"))
	assert.False(t, SplitsElectors("PA"))
}
