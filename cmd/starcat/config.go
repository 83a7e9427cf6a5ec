package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fwojciec/starcat/gemini"
	"gopkg.in/yaml.v3"
)

// Environment variables read by the program.
const (
	homeEnv        = "STARCAT_HOME"
	githubTokenEnv = "GITHUB_TOKEN"
	geminiKeyEnv   = "GEMINI_API_KEY"
)

// Config holds the settings loaded from config.yaml.
type Config struct {
	Paths  PathsConfig  `yaml:"paths"`
	GitHub GitHubConfig `yaml:"github"`
	Gemini GeminiConfig `yaml:"gemini"`
	Enrich EnrichConfig `yaml:"enrich"`
	Serve  ServeConfig  `yaml:"serve"`
}

// PathsConfig locates the files the pipeline reads and writes.
type PathsConfig struct {
	DB      string `yaml:"db"`
	Cache   string `yaml:"cache"`
	Readmes string `yaml:"readmes"`
	Catalog string `yaml:"catalog"`
}

type GitHubConfig struct {
	Token string  `yaml:"token,omitempty"`
	User  string  `yaml:"user,omitempty"`
	RPS   float64 `yaml:"rps"`
}

type GeminiConfig struct {
	Model   string        `yaml:"model"`
	APIKey  string        `yaml:"apiKey,omitempty"`
	RPS     float64       `yaml:"rps"`
	Timeout time.Duration `yaml:"timeout"`
}

type EnrichConfig struct {
	Workers          int  `yaml:"workers"`
	FlushEvery       int  `yaml:"flushEvery"`
	MaxContentLength int  `yaml:"maxContentLength"`
	RetryFailed      bool `yaml:"retryFailed"`
}

type ServeConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns the settings used when no config file exists.
// Relative paths are resolved against the home directory on load.
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			DB:      "starcat.db",
			Cache:   "enrichments.json",
			Readmes: "readmes",
			Catalog: "catalog.json",
		},
		GitHub: GitHubConfig{RPS: 5},
		Gemini: GeminiConfig{
			Model:   gemini.DefaultModel,
			RPS:     1,
			Timeout: 2 * time.Minute,
		},
		Enrich: EnrichConfig{
			Workers:    5,
			FlushEvery: 5,
		},
		Serve: ServeConfig{Addr: "127.0.0.1:8080"},
	}
}

// LoadConfig reads the config file at path over the defaults and applies
// environment overrides. A missing file yields the defaults. Relative paths
// are resolved against home.
func LoadConfig(path, home string, getenv func(string) string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	for _, p := range []*string{&cfg.Paths.DB, &cfg.Paths.Cache, &cfg.Paths.Readmes, &cfg.Paths.Catalog} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(home, *p)
		}
	}

	if v := getenv(githubTokenEnv); v != "" {
		cfg.GitHub.Token = v
	}
	if v := getenv(geminiKeyEnv); v != "" {
		cfg.Gemini.APIKey = v
	}

	return cfg, nil
}

// defaultHome returns the directory holding the config file and the
// pipeline's state.
func defaultHome(getenv func(string) string) string {
	if dir := getenv(homeEnv); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".starcat"
	}
	return filepath.Join(home, ".starcat")
}
