// Package config loads linguaflow.yaml and applies environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the default config file name.
const FileName = "linguaflow.yaml"

type Config struct {
	Database Database `yaml:"database"`
	GitHub   GitHub   `yaml:"github"`
	Sync     Sync     `yaml:"sync"`
	Publish  Publish  `yaml:"publish"`
	Log      Log      `yaml:"log"`
}

type Database struct {
	Path string `yaml:"path"`
}

type GitHub struct {
	APIURL         string `yaml:"api_url"`
	Token          string `yaml:"token,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type Sync struct {
	// FetchConcurrency bounds parallel file downloads.
	FetchConcurrency int `yaml:"fetch_concurrency"`
	// ApplyConcurrency bounds parallel resolution writes.
	ApplyConcurrency int `yaml:"apply_concurrency"`
}

type Publish struct {
	BranchPrefix  string `yaml:"branch_prefix"`
	PRTitle       string `yaml:"pr_title"`
	CommitMessage string `yaml:"commit_message"`
	AuthorName    string `yaml:"author_name,omitempty"`
	AuthorEmail   string `yaml:"author_email,omitempty"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() Config {
	return Config{
		Database: Database{Path: "data/linguaflow.db"},
		GitHub:   GitHub{APIURL: "https://api.github.com", TimeoutSeconds: 30},
		Sync:     Sync{FetchConcurrency: 4, ApplyConcurrency: 4},
		Publish: Publish{
			BranchPrefix:  "linguaflow",
			PRTitle:       "Update translations from LinguaFlow",
			CommitMessage: "Update translations",
		},
		Log: Log{Level: "info", Format: "text"},
	}
}

// Load reads path on top of the defaults. A missing file is not an error
// unless required is set. Environment overrides are applied last.
func Load(path string, required bool) (Config, error) {
	cfg := Default()
	if path == "" {
		path = FileName
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing %s: %w", path, err)
		}
	case os.IsNotExist(err) && !required:
	default:
		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("LINGUAFLOW_DB"); ok && v != "" {
		c.Database.Path = v
	}
	if v, ok := lookup("GITHUB_TOKEN"); ok && v != "" {
		c.GitHub.Token = v
	}
	if v, ok := lookup("LINGUAFLOW_GITHUB_TOKEN"); ok && v != "" {
		c.GitHub.Token = v
	}
	if v, ok := lookup("LINGUAFLOW_GITHUB_API_URL"); ok && v != "" {
		c.GitHub.APIURL = v
	}
	if v, ok := lookup("LINGUAFLOW_LOG_LEVEL"); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup("LINGUAFLOW_FETCH_CONCURRENCY"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("LINGUAFLOW_FETCH_CONCURRENCY: %w", err)
		}
		c.Sync.FetchConcurrency = n
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Database.Path) == "" {
		problems = append(problems, "database.path is required")
	}
	if c.Sync.FetchConcurrency < 1 {
		problems = append(problems, "sync.fetch_concurrency must be at least 1")
	}
	if c.Sync.ApplyConcurrency < 1 {
		problems = append(problems, "sync.apply_concurrency must be at least 1")
	}
	if c.GitHub.TimeoutSeconds < 0 {
		problems = append(problems, "github.timeout_seconds must not be negative")
	}
	if strings.ContainsAny(c.Publish.BranchPrefix, " ~^:?*[\\") {
		problems = append(problems, fmt.Sprintf("publish.branch_prefix %q is not a valid ref name", c.Publish.BranchPrefix))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("log.level %q must be one of debug, info, warn, error", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("log.format %q must be text or json", c.Log.Format))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}
