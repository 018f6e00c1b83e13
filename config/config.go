package config

// This file contains loading of the citriage configuration file.

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	// Environment variables override the file
	EnvGitHubToken = "GH_TOKEN"
	EnvLogsDir     = "GITHUB_CI_RUN_LOGS"

	DefaultMaxDownloads = 5
	DefaultConcurrency  = 4
	DefaultStepName     = "Acceptance Tests"
)

type GitHub struct {
	Owner  string `yaml:"owner"`
	Repo   string `yaml:"repo"`
	Branch string `yaml:"branch"`
	// Workflow files, e.g. test-suite for .github/workflows/test-suite.yml
	Workflows []string `yaml:"workflows"`
	Token     string   `yaml:"-"`
}

type Config struct {
	GitHub       GitHub `yaml:"github"`
	LogsDir      string `yaml:"logs_dir"`
	HistoryDir   string `yaml:"history_dir"`
	StepName     string `yaml:"test_step_name"`
	MaxDownloads int    `yaml:"max_downloads"`
	Concurrency  int    `yaml:"concurrency"`
	// Regular expressions matched against failure signatures
	LegitErrors []string `yaml:"legit_errors"`
	// Paths copied by the build copy hook, relative to the source root
	CopyFiles []string `yaml:"copy_files"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		GitHub: GitHub{
			Branch:    "master",
			Workflows: []string{"test-suite", "terraform-compatibility-matrix"},
		},
		StepName:     DefaultStepName,
		MaxDownloads: DefaultMaxDownloads,
		Concurrency:  DefaultConcurrency,
	}
}

// Load reads the YAML file at path on top of the defaults. A missing file
// or an empty path yields the defaults. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if token := os.Getenv(EnvGitHubToken); token != "" {
		c.GitHub.Token = token
	}
	if dir := os.Getenv(EnvLogsDir); dir != "" {
		c.LogsDir = dir
	}
}

// Validate checks the values that have no sensible fallback.
func (c *Config) Validate() error {
	if c.MaxDownloads < 0 {
		return fmt.Errorf("max_downloads must not be negative: %d", c.MaxDownloads)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1: %d", c.Concurrency)
	}
	return nil
}
