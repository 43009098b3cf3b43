package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfromano/schedule-creator/internal/models"
)

func mustAssign(t *testing.T, g *models.Grid, phase models.BuildPhase, name string, week int, code string) {
	t.Helper()
	require.NoError(t, g.Assign(phase, name, week, code))
}

func envOf(label string, minReq, maxReq int, codes ...string) models.Envelope {
	set := map[string]bool{}
	for _, c := range codes {
		set[c] = true
	}
	return models.Envelope{Bounds: []models.StaffingBound{
		{Label: label, Codes: set, Min: minReq, Max: maxReq},
	}}
}

func TestCheckStaffing_UnderAndOver(t *testing.T) {
	g := models.NewGrid(2)
	mustAssign(t, g, models.PhaseR3, "Doe, Jane", 1, "Mai")
	mustAssign(t, g, models.PhaseR3, "Roe, Pat", 1, "Mai")
	mustAssign(t, g, models.PhaseR3, "Poe, Max", 1, "Mai")
	// Week 2 left empty.

	findings := CheckStaffing(g, envOf("Moffitt AI", 1, 2, "Mai"), 2)
	require.Len(t, findings, 2)

	var under, over *Finding
	for i := range findings {
		switch findings[i].Severity {
		case SeverityError:
			under = &findings[i]
		case SeverityWarning:
			over = &findings[i]
		}
	}
	require.NotNil(t, under)
	require.NotNil(t, over)
	assert.Contains(t, under.Message, "week 2")
	assert.Contains(t, over.Message, "week 1")
}

func TestCheckStaffing_Clean(t *testing.T) {
	g := models.NewGrid(1)
	mustAssign(t, g, models.PhaseR3, "Doe, Jane", 1, "Mai")
	assert.Empty(t, CheckStaffing(g, envOf("Moffitt AI", 1, 5, "Mai"), 1))
}

func TestCheckHospitalConflict_SeedScenario(t *testing.T) {
	// Mb (UCSF) and Sir (ZSFG) in the same block for one resident: exactly
	// one hospital-conflict finding and nothing else.
	g := models.NewGrid(52)
	mustAssign(t, g, models.PhaseR3, "Doe, Jane", 1, "Mb")
	mustAssign(t, g, models.PhaseR3, "Doe, Jane", 2, "Mb")
	mustAssign(t, g, models.PhaseR3, "Doe, Jane", 3, "Sir")
	mustAssign(t, g, models.PhaseR3, "Doe, Jane", 4, "Sir")

	res := models.NewResident("Doe, Jane", 4)
	findings := CheckHospitalConflicts([]*models.Resident{res}, g)
	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, "hospital-conflict", f.Check)
	assert.Equal(t, SeverityError, f.Severity)
	assert.Contains(t, f.Message, "block 1")
	assert.Contains(t, f.Message, "UCSF")
	assert.Contains(t, f.Message, "ZSFG")
	assert.Len(t, f.Cells, 4)
}

func TestCheckHospitalConflict_OtherNeverConflicts(t *testing.T) {
	g := models.NewGrid(52)
	mustAssign(t, g, models.PhaseR3, "Doe, Jane", 1, "Mb")
	mustAssign(t, g, models.PhaseR3, "Doe, Jane", 2, "AIRP")
	res := models.NewResident("Doe, Jane", 4)
	assert.Empty(t, CheckHospitalConflicts([]*models.Resident{res}, g))
}

func TestCheckGraduation(t *testing.T) {
	g := models.NewGrid(52)
	r4 := models.NewResident("Doe, Jane", 5)
	r4.History = map[string]float64{
		"Pcbi": 12,                                       // breast complete
		"Mnuc": 8, "Mai": 16, "Mch": 8, "Peds": 4, "Mx": 4, // NucMed: 8 + 32*0.25 = 16, complete
	}
	assert.Empty(t, CheckGraduation([]*models.Resident{r4}, g))

	// Same weeks under NRDR: substitutes stop counting and the NucMed
	// shortfall is the single finding. CheckGraduation does not check the
	// NRDR complement rotations (Mai/Mch/Mb/Mucic).
	nrdr := models.NewResident("Roe, Pat", 5)
	nrdr.Pathway = models.PathwayNRDR
	nrdr.History = map[string]float64{"Pcbi": 12, "Mnuc": 8, "Mai": 16, "Mch": 8, "Peds": 4, "Mx": 4}
	findings := CheckGraduation([]*models.Resident{nrdr}, g)
	require.Len(t, findings, 1)
	assert.Contains(t, findings[0].Message, "NRDR")
	assert.Equal(t, SeverityError, findings[0].Severity)
}

func TestCheckGraduation_CurrentYearAndNFExclusion(t *testing.T) {
	g := models.NewGrid(52)
	r4 := models.NewResident("Doe, Jane", 5)
	r4.History = map[string]float64{"Mnuc": 8, "Mai": 16, "Mch": 8, "Peds": 4, "Mx": 4}

	// 12 weeks of breast in the current year clears the breast target.
	for w := 1; w <= 12; w++ {
		mustAssign(t, g, models.PhaseR4, "Doe, Jane", w, "Pcbi")
	}
	// An NF overlay on a breast week must not erase its credit.
	require.NoError(t, g.AssignNF("Doe, Jane", 5, "Snf2"))

	assert.Empty(t, CheckGraduation([]*models.Resident{r4}, g))
}

func TestCheckGraduation_JuniorsAdvisory(t *testing.T) {
	g := models.NewGrid(52)
	t32 := models.NewResident("Poe, Max", 3) // rising R2
	t32.Pathway = models.PathwayT32
	findings := CheckGraduation([]*models.Resident{t32}, g)
	require.NotEmpty(t, findings)
	for _, f := range findings {
		assert.Equal(t, SeverityWarning, f.Severity, "junior deficits are advisory")
	}
}

func TestCheckNightFloat(t *testing.T) {
	rules := models.DefaultNFRules()

	r2 := models.NewResident("Baker, Bo", 3)
	r3 := models.NewResident("Cole, Cam", 4)
	r4 := models.NewResident("Dunn, Dee", 5)
	residents := []*models.Resident{r2, r3, r4}

	t.Run("clean", func(t *testing.T) {
		g := models.NewGrid(52)
		require.NoError(t, g.AssignNF("Baker, Bo", 10, "Mnf"))
		require.NoError(t, g.AssignNF("Baker, Bo", 20, "Mnf"))
		require.NoError(t, g.AssignNF("Cole, Cam", 15, "Snf2"))
		require.NoError(t, g.AssignNF("Dunn, Dee", 8, "Snf2"))
		require.NoError(t, g.AssignNF("Dunn, Dee", 30, "Snf2"))
		assert.Empty(t, CheckNightFloat(residents, g, rules, nil))
	})

	t.Run("count violations", func(t *testing.T) {
		g := models.NewGrid(52)
		require.NoError(t, g.AssignNF("Baker, Bo", 10, "Mnf")) // R2 needs 2
		require.NoError(t, g.AssignNF("Dunn, Dee", 8, "Snf2")) // R4 needs 2
		findings := CheckNightFloat(residents, g, rules, nil)
		assert.Len(t, findings, 2)
	})

	t.Run("spacing violation", func(t *testing.T) {
		g := models.NewGrid(52)
		require.NoError(t, g.AssignNF("Baker, Bo", 10, "Mnf"))
		require.NoError(t, g.AssignNF("Baker, Bo", 12, "Mnf"))
		findings := CheckNightFloat([]*models.Resident{r2}, g, rules, nil)
		require.Len(t, findings, 1)
		assert.Contains(t, findings[0].Message, "closer than 4")
	})

	t.Run("no-call violation", func(t *testing.T) {
		g := models.NewGrid(52)
		require.NoError(t, g.AssignNF("Baker, Bo", 10, "Mnf"))
		require.NoError(t, g.AssignNF("Baker, Bo", 20, "Mnf"))
		noCall := map[string]map[int]bool{"Baker, Bo": {20: true}}
		findings := CheckNightFloat([]*models.Resident{r2}, g, rules, noCall)
		require.Len(t, findings, 1)
		assert.Contains(t, findings[0].Message, "no-call")
	})

	t.Run("wrong kind for year", func(t *testing.T) {
		g := models.NewGrid(52)
		require.NoError(t, g.AssignNF("Baker, Bo", 10, "Mnf"))
		require.NoError(t, g.AssignNF("Baker, Bo", 20, "Mnf"))
		require.NoError(t, g.AssignNF("Baker, Bo", 30, "Snf2"))
		findings := CheckNightFloat([]*models.Resident{r2}, g, rules, nil)
		require.Len(t, findings, 1)
		assert.Contains(t, findings[0].Message, "Snf2 is R3/R4 only")
	})
}

func TestReport_OK(t *testing.T) {
	g := models.NewGrid(1)
	mustAssign(t, g, models.PhaseR3, "Doe, Jane", 1, "Mai")
	rep := Run(Input{
		Residents: []*models.Resident{},
		Grid:      g,
		Envelope:  envOf("Moffitt AI", 1, 5, "Mai"),
		NFRules:   models.DefaultNFRules(),
	})
	assert.True(t, rep.OK())
	assert.NotEmpty(t, rep.RunID)
	assert.Zero(t, rep.ErrorCount())

	out := rep.Render([]*models.Resident{}, g)
	assert.Contains(t, out, "RESULT: OK")
}

func TestReport_ErrorsSurface(t *testing.T) {
	g := models.NewGrid(1)
	rep := Run(Input{
		Residents: []*models.Resident{},
		Grid:      g,
		Envelope:  envOf("Moffitt AI", 1, 5, "Mai"),
		NFRules:   models.DefaultNFRules(),
	})
	assert.False(t, rep.OK())
	assert.Equal(t, 1, rep.ErrorCount())
	assert.Contains(t, rep.Render(nil, g), "ERROR finding(s)")
}
