package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.CoreExamBlock)
	assert.Equal(t, 7, cfg.LCBlock())
	assert.Len(t, cfg.AIRPSessions, 5)
	assert.InDelta(t, 0.05, cfg.Weights.DeficitLambda, 1e-9)
}

func TestLoad_Override(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "year.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
year: 2027
core_exam_block: 9
airp_sessions:
  - id: "2"
    block: 2
    label: Aug Virtual
    capacity: 3
weights:
  deficit_lambda: 0.1
  preference_weight: 1
  source_reward: 5
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2027, cfg.Year)
	assert.Equal(t, 9, cfg.CoreExamBlock)
	assert.Equal(t, 8, cfg.LCBlock())
	require.Len(t, cfg.AIRPSessions, 1)
	assert.Equal(t, 3, cfg.AIRPSessions[0].Capacity)
	assert.InDelta(t, 0.1, cfg.Weights.DeficitLambda, 1e-9)

	s, ok := cfg.Session("2")
	assert.True(t, ok)
	assert.Equal(t, 2, s.Block)
	_, ok = cfg.Session("10")
	assert.False(t, ok)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()

	t.Run("core block out of range", func(t *testing.T) {
		path := filepath.Join(dir, "bad1.yaml")
		require.NoError(t, os.WriteFile(path, []byte("core_exam_block: 1\n"), 0o644))
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("duplicate airp session", func(t *testing.T) {
		path := filepath.Join(dir, "bad2.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
airp_sessions:
  - {id: "2", block: 2, capacity: 4}
  - {id: "2", block: 3, capacity: 4}
`), 0o644))
		_, err := Load(path)
		assert.Error(t, err)
	})
}
