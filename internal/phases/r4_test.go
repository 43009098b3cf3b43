package phases

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfromano/schedule-creator/internal/models"
)

func r4Named(name string) *models.Resident {
	return models.NewResident(name, 5) // rising R4
}

func weeksOf(g *models.Grid, name, code string) int {
	return g.CountRotationWeeks(name, code)
}

func TestBuildR4_NRDREnforcement(t *testing.T) {
	// NRDR R4 with 16 historical Mnuc weeks and no complement history: the
	// builder schedules the 6-block Mnuc sextet plus one block each of
	// Mai/Mch/Mb/Mucic.
	r := r4Named("Roe, Pat")
	r.Pathway = models.PathwayNRDR
	r.History["Mnuc"] = 16

	b := newTestBuilder(t, Input{Residents: []*models.Resident{r}})
	require.NoError(t, b.buildR4())

	g := b.Grid()
	assert.Equal(t, 24, weeksOf(g, r.Name, "Mnuc"), "6 Mnuc blocks")
	for _, code := range models.NRDRComplementCodes {
		assert.Equal(t, 4, weeksOf(g, r.Name, code), "one %s block", code)
	}
	assert.Equal(t, 24, b.Result().R4Meta[r.Name].NRDRMnucBlocks*4)
}

func TestBuildR4_NRDRHonorsCompletedComplement(t *testing.T) {
	r := r4Named("Roe, Pat")
	r.Pathway = models.PathwayNRDR
	r.History["Mnuc"] = 16
	r.History["Mai"] = 4 // already completed

	b := newTestBuilder(t, Input{Residents: []*models.Resident{r}})
	require.NoError(t, b.buildR4())

	g := b.Grid()
	assert.Zero(t, weeksOf(g, r.Name, "Mai"), "completed complement honored from history")
	assert.Equal(t, 4, weeksOf(g, r.Name, "Mch"))
}

func TestBuildR4_NucMedSubstitution(t *testing.T) {
	// Non-NRDR with a 2-week NucMed remainder: substitute blocks, one credited
	// week each, close it out instead of a full Mnuc block.
	r := r4Named("Doe, Jane")
	r.History["Mnuc"] = 14
	r.History["Pcbi"] = 12 // breast done

	b := newTestBuilder(t, Input{Residents: []*models.Resident{r}})
	require.NoError(t, b.buildR4())

	g := b.Grid()
	assert.Zero(t, weeksOf(g, r.Name, "Mnuc"), "deficit under a block: no direct Mnuc")
	assert.Equal(t, 4, weeksOf(g, r.Name, "Mai"), "first substitute credits one of the two missing weeks")
}

func TestBuildR4_ResearchCapAndT32(t *testing.T) {
	capped := r4Named("Doe, Jane")
	capped.ResearchMonths = 4 // over the cap, no supplemental funding

	funded := r4Named("Poe, Max")
	funded.ResearchMonths = 3
	funded.SupplementalFunding = true

	t32 := r4Named("Quil, Sam")
	t32.Pathway = models.PathwayT32
	t32.ResearchMonths = 2

	b := newTestBuilder(t, Input{Residents: []*models.Resident{capped, funded, t32}})
	require.NoError(t, b.buildR4())

	meta := b.Result().R4Meta
	assert.Equal(t, 2, meta["Doe, Jane"].ResearchBlocks, "capped at two months")
	assert.Equal(t, 3, meta["Poe, Max"].ResearchBlocks, "supplemental funding lifts the cap")
	assert.Zero(t, meta["Quil, Sam"].ResearchBlocks, "T32 ineligible for research months")
}

func TestBuildR4_ESIROctetAndESNRWindow(t *testing.T) {
	esir := r4Named("Irons, Ida")
	esir.Pathway = models.PathwayESIR
	esir.History["Pcbi"] = 12
	esir.History["Mnuc"] = 16

	esnr := r4Named("Nero, Ned")
	esnr.Pathway = models.PathwayESNR
	esnr.History["Pcbi"] = 12
	esnr.History["Mnuc"] = 16

	b := newTestBuilder(t, Input{Residents: []*models.Resident{esir, esnr}})
	require.NoError(t, b.buildR4())

	g := b.Grid()
	assert.Equal(t, 32, weeksOf(g, esir.Name, "Mir"), "Mir octet")

	assert.Equal(t, 20, weeksOf(g, esnr.Name, "Zai"))
	assert.Equal(t, 4, weeksOf(g, esnr.Name, "Smr"), "exactly one Smr block in the window")
	// The six neuro blocks are contiguous.
	var neuroBlocks []int
	for block := 1; block <= 13; block++ {
		codes := esnr.BlockCodes(block)
		if codes[0] == "Zai" || codes[0] == "Smr" {
			neuroBlocks = append(neuroBlocks, block)
		}
	}
	require.Len(t, neuroBlocks, 6)
	assert.Equal(t, neuroBlocks[0]+5, neuroBlocks[5], "window is contiguous")
}

func TestBuildR4_FSEPartitionAndLength(t *testing.T) {
	breast := r4Named("Adams, Amy")
	breast.FSEPrefs = &models.FSEPrefs{Specialties: []string{"Breast Imaging"}, Organization: "Contiguous"}
	breast.History["Pcbi"] = 12
	breast.History["Mnuc"] = 16

	chest := r4Named("Baker, Bo")
	chest.FSEPrefs = &models.FSEPrefs{Specialties: []string{"Chest"}}
	chest.History["Pcbi"] = 12
	chest.History["Mnuc"] = 16

	b := newTestBuilder(t, Input{Residents: []*models.Resident{breast, chest}})
	require.NoError(t, b.buildR4())

	meta := b.Result().R4Meta
	assert.Equal(t, 6, meta["Adams, Amy"].FSEBlocks, "breast FSE runs six months")
	assert.Equal(t, 2, meta["Baker, Bo"].FSEBlocks)

	// Deterministic halving by name: Adams (even index) first half, Baker
	// second half.
	g := b.Grid()
	assert.NotEmpty(t, g.Base("Adams, Amy", 1))
	firstHalfFSE := false
	for w := 1; w <= 24; w++ {
		if g.Base("Adams, Amy", w) == "FSE-Bre" {
			firstHalfFSE = true
		}
	}
	assert.True(t, firstHalfFSE, "first cohort half takes FSE in the first half of the year")
	for w := 1; w <= 24; w++ {
		assert.NotEqual(t, "FSE-Che", g.Base("Baker, Bo", w), "second cohort half waits")
	}
}

func TestBuildR4_CapacityFill(t *testing.T) {
	plain := r4Named("Doe, Jane")
	plain.History["Pcbi"] = 12
	plain.History["Mnuc"] = 16
	plain.History["Peds"] = 4 // only one historical block
	plain.History["Vb"] = 12  // MSK complete

	t32 := r4Named("Quil, Sam")
	t32.Pathway = models.PathwayT32 | models.PathwayNRDR // dual and T32: no Mx
	t32.History["Mnuc"] = 48
	t32.History["Pcbi"] = 12

	harsh := r4Named("Hale, Hal")
	harsh.HarshR2Year = true
	harsh.History["Pcbi"] = 12
	harsh.History["Mnuc"] = 16
	harsh.History["Peds"] = 8
	harsh.History["Vb"] = 12

	b := newTestBuilder(t, Input{Residents: []*models.Resident{plain, t32, harsh}})
	require.NoError(t, b.buildR4())

	g := b.Grid()
	assert.GreaterOrEqual(t, weeksOf(g, plain.Name, "Mx"), 4, "every plain R4 gets an Mx block")
	assert.Zero(t, weeksOf(g, t32.Name, "Mx"), "T32/dual-pathway exempt from Mx")
	assert.GreaterOrEqual(t, weeksOf(g, harsh.Name, "Mx"), 8, "unfilled quota lands on the harsh-R2 resident")
	assert.GreaterOrEqual(t, weeksOf(g, plain.Name, "Peds"), 4, "single historical Peds block earns another")
}
