package domain

import (
	"fmt"
	"path"
	"strings"
	"time"
)

const (
	ProviderGitHub = "github"
	ProviderLocal  = "local"
)

// RepoConfig binds a project to a location inside a remote repository.
type RepoConfig struct {
	Repository      string `json:"repository"`
	Branch          string `json:"branch"`
	TranslationPath string `json:"translationPath,omitempty"`
	FilePattern     string `json:"filePattern,omitempty"`
}

// Normalize trims whitespace and slashes that users tend to paste in.
func (c RepoConfig) Normalize() RepoConfig {
	c.Repository = strings.TrimSpace(c.Repository)
	c.Branch = strings.TrimSpace(c.Branch)
	c.TranslationPath = strings.Trim(strings.TrimSpace(c.TranslationPath), "/")
	c.FilePattern = strings.TrimSpace(c.FilePattern)
	return c
}

// Validate checks the config for the given provider.
func (c RepoConfig) Validate(provider string) error {
	var v ValidationError
	switch provider {
	case ProviderGitHub, "":
		owner, repo, ok := strings.Cut(c.Repository, "/")
		if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
			v.Add("repository", fmt.Sprintf("must be owner/repo, got %q", c.Repository))
		}
	case ProviderLocal:
		if c.Repository == "" {
			v.Add("repository", "must be a local repository path")
		}
	default:
		v.Add("provider", fmt.Sprintf("unsupported provider %q", provider))
	}
	if c.Branch == "" {
		v.Add("branch", "is required")
	}
	if c.TranslationPath != "" {
		clean := path.Clean(c.TranslationPath)
		if clean == ".." || strings.HasPrefix(clean, "../") {
			v.Add("translationPath", "must stay inside the repository")
		}
	}
	return v.ErrOrNil()
}

type Integration struct {
	ID           int64      `json:"id"`
	ProjectID    int64      `json:"project_id"`
	Provider     string     `json:"provider"`
	Config       RepoConfig `json:"config"`
	IsConnected  bool       `json:"is_connected"`
	LastSyncedAt *time.Time `json:"last_synced_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
