package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPolicy_EmptyPathUsesDefaults(t *testing.T) {
	policy, err := LoadPolicy("")
	require.NoError(t, err)
	assert.Equal(t, 0, policy.MinScore)
	assert.Empty(t, policy.ExtraTransitions)
}

func TestLoadPolicy_ParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	content := `
min_score: 50
extra_transitions:
  QUALIFIED:
    - UNDER_CONTRACT
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	policy, err := LoadPolicy(path)
	require.NoError(t, err)
	assert.Equal(t, 50, policy.MinScore)
	assert.Equal(t, []string{"UNDER_CONTRACT"}, policy.ExtraTransitions["QUALIFIED"])
}

func TestLoadPolicy_RejectsNegativeMinScore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("min_score: -5\n"), 0o600))

	_, err := LoadPolicy(path)
	assert.Error(t, err)
}

func TestLoadPolicy_MissingFile(t *testing.T) {
	_, err := LoadPolicy("/nonexistent/policy.yaml")
	assert.Error(t, err)
}
