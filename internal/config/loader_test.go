package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
service:
  name: arbor-test
state:
  path: /var/lib/arbor/arbor.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "arbor-test", cfg.Service.Name)
	assert.Equal(t, "INFO", cfg.Service.LogLevel)
	assert.Equal(t, "json", cfg.Service.LogFormat)
	assert.Equal(t, "127.0.0.1:8137", cfg.API.Listen)
	assert.Equal(t, 8, cfg.API.MaxConcurrentResolves)
	assert.Equal(t, 14, cfg.Worktrees.StaleThresholdDays)
	assert.Equal(t, 6*time.Hour, cfg.Worktrees.SweepInterval.Std())
	assert.Equal(t, 2*time.Minute, cfg.Worktrees.GitTimeout.Std())
	assert.Equal(t, "/var/lib/arbor/worktrees", cfg.Worktrees.BaseDir)
	assert.NotNil(t, cfg.Codebases)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("ARBOR_TEST_API_KEY", "secret-token")

	path := writeConfig(t, `
api:
  enabled: true
  api_key: ${ARBOR_TEST_API_KEY}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "secret-token", cfg.API.APIKey)
}

func TestLoadUnsetEnvVarExpandsToEmpty(t *testing.T) {
	path := writeConfig(t, `
api:
  api_key: ${ARBOR_TEST_DEFINITELY_UNSET_VAR}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.API.APIKey)
}

func TestLoadParsesCodebases(t *testing.T) {
	path := writeConfig(t, `
codebases:
  myrepo:
    path: /repos/myrepo
    main_branch: trunk
  other:
    path: /repos/other
worktrees:
  base_dir: /srv/worktrees
  stale_threshold_days: 7
  sweep_interval: 30m
  persistent_platforms: [cron]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.Codebases, 2)
	assert.Equal(t, "/repos/myrepo", cfg.Codebases["myrepo"].Path)
	assert.Equal(t, "trunk", cfg.Codebases["myrepo"].MainBranch)
	assert.Empty(t, cfg.Codebases["other"].MainBranch)
	assert.Equal(t, "/srv/worktrees", cfg.Worktrees.BaseDir)
	assert.Equal(t, 30*time.Minute, cfg.Worktrees.SweepInterval.Std())
	assert.Equal(t, 7*24*time.Hour, cfg.Worktrees.StaleThreshold())
	assert.Equal(t, []string{"cron"}, cfg.Worktrees.PersistentPlatforms)
}

func TestLoadRejectsRelativeCodebasePath(t *testing.T) {
	path := writeConfig(t, `
codebases:
  myrepo:
    path: repos/myrepo
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not absolute")
}

func TestLoadRejectsMissingCodebasePath(t *testing.T) {
	path := writeConfig(t, `
codebases:
  myrepo:
    main_branch: main
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no path")
}

func TestLoadRejectsTooShortSweepInterval(t *testing.T) {
	path := writeConfig(t, `
worktrees:
  sweep_interval: 5s
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sweep_interval")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfig(t, "service: [unclosed")
	_, err := Load(path)
	assert.Error(t, err)
}
