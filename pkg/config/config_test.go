package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_MatchesSpecifiedTunables(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 0.3, cfg.GoalFuzzyThreshold)
	assert.Equal(t, 4, cfg.MaxGoalDepth)
	assert.Equal(t, 0.6, cfg.Decay.PromotionThreshold)
	assert.Equal(t, "stub", cfg.LLM.Provider)
}

func TestLoad_NoFilesReturnsDefaults(t *testing.T) {
	cfg, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_YAMLOverridesLayerOverDefaults(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "ramble.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("profile: custom-profile\ngoalFuzzyThreshold: 0.5\n"), 0o644))

	cfg, err := Load("", yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "custom-profile", cfg.Profile)
	assert.Equal(t, 0.5, cfg.GoalFuzzyThreshold)
	assert.Equal(t, "default", Default().Profile, "Default() itself must stay untouched by Load")
}

func TestLoad_EnvOverridesWinOverYAML(t *testing.T) {
	t.Setenv("RAMBLE_DB_PATH", "/tmp/override.db")
	t.Setenv("RAMBLE_PROFILE", "env-profile")
	yamlPath := filepath.Join(t.TempDir(), "ramble.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("databasePath: yaml.db\nprofile: yaml-profile\n"), 0o644))

	cfg, err := Load("", yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/override.db", cfg.DatabasePath)
	assert.Equal(t, "env-profile", cfg.Profile)
}

func TestLoad_MissingYAMLFileIsNotAnError(t *testing.T) {
	cfg, err := Load("", "/no/such/file.yaml")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
