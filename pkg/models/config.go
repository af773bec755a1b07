package models

import (
	"strings"
	"time"
)

// Credentials identify the remote file a session synchronizes with.
type Credentials struct {
	Token string `yaml:"-" mapstructure:"token" validate:"required"`
	Repo  string `yaml:"repo" mapstructure:"repo" validate:"required"`
	Path  string `yaml:"path" mapstructure:"path" validate:"required"`
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (c Credentials) Trimmed() Credentials {
	return Credentials{
		Token: strings.TrimSpace(c.Token),
		Repo:  strings.TrimSpace(c.Repo),
		Path:  strings.Trim(strings.TrimSpace(c.Path), "/"),
	}
}

// GitHubConfig holds the remote settings read from .tlconfig via Viper.
type GitHubConfig struct {
	Credentials   `yaml:",inline" mapstructure:",squash"`
	APIURL        string        `yaml:"api_url" mapstructure:"api_url"`
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	CommitMessage string        `yaml:"commit_message" mapstructure:"commit_message"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// GlobalConfig holds system-wide settings read from .tlconfig via Viper.
type GlobalConfig struct {
	GitHub   GitHubConfig `yaml:"github" mapstructure:"github"`
	Format   Format       `yaml:"format" mapstructure:"format"`
	Mode     SyncMode     `yaml:"mode" mapstructure:"mode"`
	Log      LogConfig    `yaml:"log" mapstructure:"log"`
	EventLog string       `yaml:"event_log" mapstructure:"event_log"`
}

// Bookmark is the per-user session state remembered between runs. The token
// is never written.
type Bookmark struct {
	Version    string   `yaml:"version"`
	Repo       string   `yaml:"repo,omitempty"`
	Path       string   `yaml:"path,omitempty"`
	Format     Format   `yaml:"format,omitempty"`
	Mode       SyncMode `yaml:"mode,omitempty"`
	ActiveList ListID   `yaml:"active_list,omitempty"`
	Displayed  []ListID `yaml:"displayed,omitempty"`
}
