package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads and parses configuration from a YAML file. ${ENV_VAR} references
// are expanded before parsing; unset variables expand to the empty string.
func Load(configPath string) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}

	expanded := envVarPattern.ReplaceAllStringFunc(string(data), func(m string) string {
		name := envVarPattern.FindStringSubmatch(m)[1]
		return os.Getenv(name)
	})

	cfg := Defaults()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", absPath, err)
	}

	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	def := Defaults()
	if cfg.Service.Name == "" {
		cfg.Service.Name = def.Service.Name
	}
	if cfg.Service.LogLevel == "" {
		cfg.Service.LogLevel = def.Service.LogLevel
	}
	if cfg.Service.LogFormat == "" {
		cfg.Service.LogFormat = def.Service.LogFormat
	}
	if cfg.Service.LockPath == "" {
		cfg.Service.LockPath = def.Service.LockPath
	}
	if cfg.State.Path == "" {
		cfg.State.Path = def.State.Path
	}
	if cfg.API.Listen == "" {
		cfg.API.Listen = def.API.Listen
	}
	if cfg.API.MaxConcurrentResolves <= 0 {
		cfg.API.MaxConcurrentResolves = def.API.MaxConcurrentResolves
	}
	if cfg.Worktrees.StaleThresholdDays <= 0 {
		cfg.Worktrees.StaleThresholdDays = def.Worktrees.StaleThresholdDays
	}
	if cfg.Worktrees.SweepInterval <= 0 {
		cfg.Worktrees.SweepInterval = def.Worktrees.SweepInterval
	}
	if cfg.Worktrees.GitTimeout <= 0 {
		cfg.Worktrees.GitTimeout = def.Worktrees.GitTimeout
	}
	if cfg.Worktrees.BaseDir == "" {
		cfg.Worktrees.BaseDir = filepath.Join(filepath.Dir(cfg.State.Path), "worktrees")
	}
	if cfg.Codebases == nil {
		cfg.Codebases = map[string]CodebaseConf{}
	}
}

// Validate rejects configurations that would misbehave at runtime rather than
// failing at load time.
func Validate(cfg *Config) error {
	if cfg.Worktrees.SweepInterval.Std() < time.Minute {
		return fmt.Errorf("worktrees.sweep_interval %s is below the 1m minimum", cfg.Worktrees.SweepInterval)
	}
	for id, cb := range cfg.Codebases {
		if cb.Path == "" {
			return fmt.Errorf("codebase %q has no path", id)
		}
		if !filepath.IsAbs(cb.Path) {
			return fmt.Errorf("codebase %q path %q is not absolute", id, cb.Path)
		}
	}
	return nil
}

// StaleThreshold returns the staleness cutoff as a duration.
func (w WorktreesConfig) StaleThreshold() time.Duration {
	return time.Duration(w.StaleThresholdDays) * 24 * time.Hour
}
