package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings in
// time.ParseDuration format ("30m", "6h").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// Config represents the complete arbor configuration.
type Config struct {
	Service   ServiceConfig           `yaml:"service"`
	State     StateConfig             `yaml:"state"`
	API       APIConfig               `yaml:"api,omitempty"`
	Worktrees WorktreesConfig         `yaml:"worktrees"`
	Codebases map[string]CodebaseConf `yaml:"codebases"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name      string `yaml:"name"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	LockPath  string `yaml:"lock_path"`
}

// StateConfig defines state storage settings.
type StateConfig struct {
	Path string `yaml:"path"`
}

// APIConfig defines HTTP API server settings.
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	APIKey  string `yaml:"api_key"`
	// MaxConcurrentResolves caps distinct conversations resolving at once;
	// excess requests queue in the serializer.
	MaxConcurrentResolves int `yaml:"max_concurrent_resolves,omitempty"`
}

// WorktreesConfig defines worktree provisioning and reclamation settings.
type WorktreesConfig struct {
	// BaseDir overrides the root under which per-codebase worktree
	// directories are created. Empty means "<state dir>/worktrees".
	BaseDir string `yaml:"base_dir,omitempty"`

	StaleThresholdDays int      `yaml:"stale_threshold_days"`
	SweepInterval      Duration `yaml:"sweep_interval"`
	GitTimeout         Duration `yaml:"git_timeout"`

	// PersistentPlatforms lists origin tags whose environments are never
	// reclaimed for staleness (merged-branch reclamation still applies).
	PersistentPlatforms []string `yaml:"persistent_platforms,omitempty"`
}

// CodebaseConf defines a repository known to the service.
type CodebaseConf struct {
	Path string `yaml:"path"`
	// MainBranch overrides main-branch detection for this repository.
	MainBranch string `yaml:"main_branch,omitempty"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:      "arbor",
			LogLevel:  "INFO",
			LogFormat: "json",
			LockPath:  "/var/run/arbor/arbor.pid",
		},
		State: StateConfig{
			Path: "/var/lib/arbor/arbor.db",
		},
		API: APIConfig{
			Enabled:               true,
			Listen:                "127.0.0.1:8137",
			MaxConcurrentResolves: 8,
		},
		Worktrees: WorktreesConfig{
			StaleThresholdDays: 14,
			SweepInterval:      Duration(6 * time.Hour),
			GitTimeout:         Duration(2 * time.Minute),
		},
		Codebases: map[string]CodebaseConf{},
	}
}
