package phases

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfromano/schedule-creator/internal/models"
)

func TestResolveSamplers_CoversNFGap(t *testing.T) {
	// An R1 holds Msamp in block 3 (weeks 9-12) while an R3 peer on Mnuc is
	// pulled to Mnf in week 10: the sampler's Mnuc weeks land on 10 and 11.
	r1 := models.NewResident("Young, Yui", 2)
	r3 := models.NewResident("Cole, Cam", 4)

	b := newTestBuilder(t, Input{Residents: []*models.Resident{r1, r3}})

	for _, w := range models.BlockWeeks(3) {
		require.NoError(t, b.assign(models.PhaseR1, r1, w, "Msamp"))
		require.NoError(t, b.assign(models.PhaseR3, r3, w, "Mnuc"))
	}
	require.NoError(t, b.Grid().AssignNF(r3.Name, 10, "Mnf"))

	require.NoError(t, b.resolveSamplers())

	g := b.Grid()
	assert.Equal(t, "Mnuc", g.Base(r1.Name, 10))
	assert.Equal(t, "Mnuc", g.Base(r1.Name, 11))
	assert.Equal(t, "Pcbi", g.Base(r1.Name, 9))
	assert.Equal(t, "Mucic", g.Base(r1.Name, 12), "elective defaults to Mucic")

	rewrites := b.Result().SamplerRewrites[r1.Name]
	require.Len(t, rewrites, 4)
}

func TestResolveSamplers_MirPreference(t *testing.T) {
	r1 := models.NewResident("Young, Yui", 2)
	r1.SamplerPrefs = &models.SamplerPrefs{Rankings: map[string]int{"Mir": 1, "Mucic": 2}}

	b := newTestBuilder(t, Input{Residents: []*models.Resident{r1}})
	for _, w := range models.BlockWeeks(1) {
		require.NoError(t, b.assign(models.PhaseR1, r1, w, "Msamp"))
	}
	require.NoError(t, b.resolveSamplers())

	g := b.Grid()
	mir := 0
	for _, w := range models.BlockWeeks(1) {
		if g.Base(r1.Name, w) == "Mir" {
			mir++
		}
	}
	assert.Equal(t, 1, mir, "ranked Mir over Mucic")
}

func TestResolveSamplers_NoGapDefaultsEarly(t *testing.T) {
	// Without an NF gap the bundle starts at the top of the block: Mnuc
	// window first two weeks by the tie-break, Pcbi on the next open week.
	r1 := models.NewResident("Young, Yui", 2)
	b := newTestBuilder(t, Input{Residents: []*models.Resident{r1}})
	for _, w := range models.BlockWeeks(2) {
		require.NoError(t, b.assign(models.PhaseR1, r1, w, "Msamp"))
	}
	require.NoError(t, b.resolveSamplers())

	g := b.Grid()
	assert.Equal(t, "Mnuc", g.Base(r1.Name, 5))
	assert.Equal(t, "Mnuc", g.Base(r1.Name, 6))
	assert.Equal(t, "Pcbi", g.Base(r1.Name, 7))
	assert.Equal(t, "Mucic", g.Base(r1.Name, 8))
}

func TestResolveSamplers_AlternateSpellings(t *testing.T) {
	r1 := models.NewResident("Young, Yui", 2)
	b := newTestBuilder(t, Input{Residents: []*models.Resident{r1}})
	require.NoError(t, b.assign(models.PhaseR1, r1, 1, "SSamplerCh2"))
	require.NoError(t, b.assign(models.PhaseR1, r1, 2, "SSamplerCh2"))
	require.NoError(t, b.resolveSamplers())

	g := b.Grid()
	assert.False(t, models.IsSampler(g.Base(r1.Name, 1)), "placeholder rewritten")
	assert.False(t, models.IsSampler(g.Base(r1.Name, 2)), "placeholder rewritten")
}
