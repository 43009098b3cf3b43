package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrid_PhaseLocks(t *testing.T) {
	g := NewGrid(52)

	require.NoError(t, g.Assign(PhaseR3, "Doe, Jane", 5, "Mai"))

	// A later phase may not rewrite an earlier phase's cell.
	err := g.Assign(PhaseR4, "Doe, Jane", 5, "Mx")
	var lockErr *LockError
	require.ErrorAs(t, err, &lockErr)
	assert.Equal(t, PhaseR3, lockErr.Owner)
	assert.Equal(t, "Mai", g.Base("Doe, Jane", 5))

	// The owning phase may rewrite its own cell.
	require.NoError(t, g.Assign(PhaseR3, "Doe, Jane", 5, "Mus"))
	assert.Equal(t, "Mus", g.Base("Doe, Jane", 5))
}

func TestGrid_SamplerRewrite(t *testing.T) {
	g := NewGrid(52)
	require.NoError(t, g.Assign(PhaseR1, "Roe, Pat", 9, "Msamp"))

	// The sampler phase may replace sampler placeholders...
	require.NoError(t, g.Assign(PhaseSampler, "Roe, Pat", 9, "Mnuc"))
	assert.Equal(t, "Mnuc", g.Base("Roe, Pat", 9))

	// ...but not ordinary R1 cells.
	require.NoError(t, g.Assign(PhaseR1, "Roe, Pat", 13, "Mai"))
	assert.Error(t, g.Assign(PhaseSampler, "Roe, Pat", 13, "Mnuc"))
}

func TestGrid_NFOverlay(t *testing.T) {
	g := NewGrid(52)
	require.NoError(t, g.Assign(PhaseR3, "Doe, Jane", 10, "Mnuc"))
	require.NoError(t, g.AssignNF("Doe, Jane", 10, "Mnf"))

	assert.Equal(t, "Mnf", g.Get("Doe, Jane", 10), "NF overlay wins")
	assert.Equal(t, "Mnuc", g.Base("Doe, Jane", 10), "base untouched")
	assert.Equal(t, 1, g.CountRotationWeeks("Doe, Jane", "Mnuc"), "base counting ignores NF")
}

func TestGrid_NFRejectsLockedBlocks(t *testing.T) {
	g := NewGrid(52)
	require.NoError(t, g.Assign(PhaseR3, "Doe, Jane", 21, "AIRP"))
	assert.Error(t, g.AssignNF("Doe, Jane", 21, "Snf2"))

	require.NoError(t, g.Assign(PhaseR3, "Doe, Jane", 25, "LC"))
	assert.Error(t, g.AssignNF("Doe, Jane", 25, "Mnf"))
}

func TestGrid_BlockConflict(t *testing.T) {
	g := NewGrid(52)
	// Mb is UCSF; Sir is ZSFG. Same block → conflict.
	require.NoError(t, g.Assign(PhaseR3, "Doe, Jane", 1, "Mb"))
	assert.True(t, g.BlockConflict("Doe, Jane", 1, "Sir"))
	assert.False(t, g.BlockConflict("Doe, Jane", 1, "Mai"), "same system ok")
	assert.False(t, g.BlockConflict("Doe, Jane", 1, "AIRP"), "OTHER never conflicts")
	assert.False(t, g.BlockConflict("Doe, Jane", 2, "Sir"), "different block ok")
}

func TestHospitalFor(t *testing.T) {
	assert.Equal(t, HospitalUCSF, HospitalFor("Mnuc"))
	assert.Equal(t, HospitalUCSF, HospitalFor("Pcbi"), "P-prefix collapses to UCSF payroll")
	assert.Equal(t, HospitalUCSF, HospitalFor("Peds"))
	assert.Equal(t, HospitalZSFG, HospitalFor("Sir"))
	assert.Equal(t, HospitalZSFG, HospitalFor("Zir"))
	assert.Equal(t, HospitalVA, HospitalFor("Vnuc"))
	assert.Equal(t, HospitalOther, HospitalFor("AIRP"))
	assert.Equal(t, HospitalOther, HospitalFor(""))
}

func TestIsSampler(t *testing.T) {
	assert.True(t, IsSampler("Msamp"))
	assert.True(t, IsSampler("Msampler"))
	assert.True(t, IsSampler("SSamplerCh2"))
	assert.False(t, IsSampler("Mnuc"))
}
