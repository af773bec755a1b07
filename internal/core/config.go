// Package core contains the task list logic: the copy-on-write store, the
// per-session selection and sync guard, the remote synchronizer and
// configuration.
package core

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/valter-silva-au/tasklists/pkg/models"
)

// ConfigFileName is the config file read from the base path. Viper accepts
// it with or without a .yaml extension.
const ConfigFileName = ".tlconfig"

// EnvPrefix prefixes every environment override, e.g. TL_GITHUB_TOKEN.
const EnvPrefix = "TL"

// ConfigurationManager loads and validates the global configuration.
type ConfigurationManager interface {
	LoadGlobalConfig() (*models.GlobalConfig, error)
	ValidateConfig(cfg *models.GlobalConfig) error
}

// viperConfigManager implements ConfigurationManager using Viper for
// reading YAML configuration files and environment overrides.
type viperConfigManager struct {
	basePath string
}

// NewConfigurationManager creates a new ConfigurationManager that reads
// configuration files relative to basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

func defaultGlobalConfig() *models.GlobalConfig {
	return &models.GlobalConfig{
		GitHub: models.GitHubConfig{
			Credentials:   models.Credentials{Path: "tasks.txt"},
			APIURL:        "https://api.github.com",
			Timeout:       15 * time.Second,
			CommitMessage: DefaultCommitMessage,
		},
		Mode: models.SyncAll,
		Log: models.LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// LoadGlobalConfig reads .tlconfig from the base path, then applies any
// TL_* environment variables, including those from a .env file in the base
// path or the working directory. A missing file yields the defaults.
func (cm *viperConfigManager) LoadGlobalConfig() (*models.GlobalConfig, error) {
	if err := loadDotEnv(cm.basePath); err != nil {
		return nil, err
	}

	cfg := defaultGlobalConfig()

	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// GITHUB_TOKEN is honoured when TL_GITHUB_TOKEN is unset.
	_ = v.BindEnv("github.token", "TL_GITHUB_TOKEN", "GITHUB_TOKEN")

	v.SetDefault("github.token", "")
	v.SetDefault("github.repo", "")
	v.SetDefault("github.path", cfg.GitHub.Path)
	v.SetDefault("github.api_url", cfg.GitHub.APIURL)
	v.SetDefault("github.timeout", cfg.GitHub.Timeout)
	v.SetDefault("github.commit_message", cfg.GitHub.CommitMessage)
	v.SetDefault("sync.format", "")
	v.SetDefault("sync.mode", string(cfg.Mode))
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("event_log", "")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading %s: %w", ConfigFileName, err)
		}
	}

	cfg.GitHub.Token = v.GetString("github.token")
	cfg.GitHub.Repo = v.GetString("github.repo")
	cfg.GitHub.Path = v.GetString("github.path")
	cfg.GitHub.APIURL = v.GetString("github.api_url")
	cfg.GitHub.Timeout = v.GetDuration("github.timeout")
	cfg.GitHub.CommitMessage = v.GetString("github.commit_message")
	cfg.Mode = models.SyncMode(strings.ToLower(v.GetString("sync.mode")))
	cfg.Log.Level = strings.ToLower(v.GetString("log.level"))
	cfg.Log.Format = strings.ToLower(v.GetString("log.format"))
	cfg.EventLog = v.GetString("event_log")

	// An unset format follows the remote file's extension.
	cfg.Format = models.Format(strings.ToLower(v.GetString("sync.format")))
	if cfg.Format == "" {
		cfg.Format = models.FormatForPath(cfg.GitHub.Path)
	}

	return cfg, nil
}

// loadDotEnv loads .env files without overriding variables already set.
func loadDotEnv(basePath string) error {
	for _, p := range []string{filepath.Join(basePath, ".env"), ".env"} {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ValidateConfig checks the configuration for invalid values and returns a
// single error listing every problem found.
func (cm *viperConfigManager) ValidateConfig(cfg *models.GlobalConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string

	if !cfg.Format.Valid() {
		errs = append(errs, fmt.Sprintf("sync.format %q is invalid, must be one of: text, json, yaml", cfg.Format))
	}
	if !cfg.Mode.Valid() {
		errs = append(errs, fmt.Sprintf("sync.mode %q is invalid, must be one of: all, active", cfg.Mode))
	}
	if cfg.GitHub.Timeout <= 0 {
		errs = append(errs, fmt.Sprintf("github.timeout must be positive, got %s", cfg.GitHub.Timeout))
	}
	if !strings.HasPrefix(cfg.GitHub.APIURL, "http://") && !strings.HasPrefix(cfg.GitHub.APIURL, "https://") {
		errs = append(errs, fmt.Sprintf("github.api_url %q must be an http(s) URL", cfg.GitHub.APIURL))
	}
	if repo := strings.TrimSpace(cfg.GitHub.Repo); repo != "" && strings.Count(repo, "/") != 1 {
		errs = append(errs, fmt.Sprintf("github.repo %q must have the form owner/name", repo))
	}
	if !validLogLevels[cfg.Log.Level] {
		errs = append(errs, fmt.Sprintf("log.level %q is invalid, must be one of: debug, info, warn, error", cfg.Log.Level))
	}
	if cfg.Log.Format != "text" && cfg.Log.Format != "json" {
		errs = append(errs, fmt.Sprintf("log.format %q is invalid, must be text or json", cfg.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
