package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/valter-silva-au/tasklists/pkg/models"
)

// --- Helper ---

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// clearEnv unsets every variable LoadGlobalConfig consults.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"GITHUB_TOKEN", "TL_GITHUB_TOKEN", "TL_GITHUB_REPO", "TL_GITHUB_PATH",
		"TL_GITHUB_API_URL", "TL_GITHUB_TIMEOUT", "TL_GITHUB_COMMIT_MESSAGE",
		"TL_SYNC_FORMAT", "TL_SYNC_MODE", "TL_LOG_LEVEL", "TL_LOG_FORMAT", "TL_EVENT_LOG",
	} {
		t.Setenv(k, "")
	}
}

// --- LoadGlobalConfig tests ---

func TestLoadGlobalConfig_Defaults_WhenNoFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cm := NewConfigurationManager(dir)

	cfg, err := cm.LoadGlobalConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.GitHub.Path != "tasks.txt" {
		t.Errorf("GitHub.Path = %q, want %q", cfg.GitHub.Path, "tasks.txt")
	}
	if cfg.GitHub.APIURL != "https://api.github.com" {
		t.Errorf("GitHub.APIURL = %q", cfg.GitHub.APIURL)
	}
	if cfg.GitHub.Timeout != 15*time.Second {
		t.Errorf("GitHub.Timeout = %v, want 15s", cfg.GitHub.Timeout)
	}
	if cfg.GitHub.CommitMessage != DefaultCommitMessage {
		t.Errorf("GitHub.CommitMessage = %q", cfg.GitHub.CommitMessage)
	}
	if cfg.Format != models.FormatText {
		t.Errorf("Format = %q, want text", cfg.Format)
	}
	if cfg.Mode != models.SyncAll {
		t.Errorf("Mode = %q, want all", cfg.Mode)
	}
	if cfg.GitHub.Token != "" || cfg.GitHub.Repo != "" {
		t.Errorf("expected empty credentials, got %+v", cfg.GitHub.Credentials)
	}
	if err := cm.ValidateConfig(cfg); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadGlobalConfig_ReadsConfigFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, ".tlconfig.yaml", `
github:
  token: file-token
  repo: octo/notes
  path: lists/tasks.json
  api_url: https://ghe.example.com/api/v3
  timeout: 3s
  commit_message: "Sync lists"
sync:
  mode: active
log:
  level: DEBUG
  format: json
event_log: /tmp/events.jsonl
`)

	cm := NewConfigurationManager(dir)
	cfg, err := cm.LoadGlobalConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := models.Credentials{Token: "file-token", Repo: "octo/notes", Path: "lists/tasks.json"}
	if cfg.GitHub.Credentials != want {
		t.Errorf("Credentials = %+v, want %+v", cfg.GitHub.Credentials, want)
	}
	if cfg.GitHub.APIURL != "https://ghe.example.com/api/v3" {
		t.Errorf("APIURL = %q", cfg.GitHub.APIURL)
	}
	if cfg.GitHub.Timeout != 3*time.Second {
		t.Errorf("Timeout = %v, want 3s", cfg.GitHub.Timeout)
	}
	if cfg.GitHub.CommitMessage != "Sync lists" {
		t.Errorf("CommitMessage = %q", cfg.GitHub.CommitMessage)
	}
	if cfg.Format != models.FormatJSON {
		t.Errorf("Format = %q, want json (from path extension)", cfg.Format)
	}
	if cfg.Mode != models.SyncActive {
		t.Errorf("Mode = %q, want active", cfg.Mode)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.EventLog != "/tmp/events.jsonl" {
		t.Errorf("EventLog = %q", cfg.EventLog)
	}
}

func TestLoadGlobalConfig_ExplicitFormatWinsOverExtension(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, ".tlconfig.yaml", `
github:
  path: tasks.json
sync:
  format: yaml
`)
	cfg, err := NewConfigurationManager(dir).LoadGlobalConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Format != models.FormatYAML {
		t.Errorf("Format = %q, want yaml", cfg.Format)
	}
}

func TestLoadGlobalConfig_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, ".tlconfig.yaml", `
github:
  token: file-token
  repo: octo/notes
`)
	t.Setenv("TL_GITHUB_TOKEN", "env-token")
	t.Setenv("TL_GITHUB_REPO", "octo/other")
	t.Setenv("TL_SYNC_MODE", "active")

	cfg, err := NewConfigurationManager(dir).LoadGlobalConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GitHub.Token != "env-token" {
		t.Errorf("Token = %q, want env-token", cfg.GitHub.Token)
	}
	if cfg.GitHub.Repo != "octo/other" {
		t.Errorf("Repo = %q, want octo/other", cfg.GitHub.Repo)
	}
	if cfg.Mode != models.SyncActive {
		t.Errorf("Mode = %q, want active", cfg.Mode)
	}
}

func TestLoadGlobalConfig_GitHubTokenFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("GITHUB_TOKEN", "gh-token")

	cfg, err := NewConfigurationManager(t.TempDir()).LoadGlobalConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GitHub.Token != "gh-token" {
		t.Errorf("Token = %q, want gh-token", cfg.GitHub.Token)
	}
}

func TestLoadGlobalConfig_DotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, ".env", "TL_GITHUB_REPO=octo/dotenv\n")
	// godotenv sets the variable for the rest of the process.
	t.Cleanup(func() { os.Unsetenv("TL_GITHUB_REPO") })
	os.Unsetenv("TL_GITHUB_REPO")

	cfg, err := NewConfigurationManager(dir).LoadGlobalConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GitHub.Repo != "octo/dotenv" {
		t.Errorf("Repo = %q, want octo/dotenv", cfg.GitHub.Repo)
	}
}

func TestLoadGlobalConfig_MalformedFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, ".tlconfig.yaml", "github: [unclosed\n")

	if _, err := NewConfigurationManager(dir).LoadGlobalConfig(); err == nil {
		t.Fatal("expected error for malformed config")
	}
}

// --- ValidateConfig tests ---

func TestValidateConfig(t *testing.T) {
	cm := NewConfigurationManager(t.TempDir())

	tests := []struct {
		name    string
		mutate  func(cfg *models.GlobalConfig)
		wantErr string
	}{
		{name: "defaults", mutate: func(cfg *models.GlobalConfig) {}},
		{name: "bad format", mutate: func(cfg *models.GlobalConfig) { cfg.Format = "xml" }, wantErr: "sync.format"},
		{name: "bad mode", mutate: func(cfg *models.GlobalConfig) { cfg.Mode = "some" }, wantErr: "sync.mode"},
		{name: "zero timeout", mutate: func(cfg *models.GlobalConfig) { cfg.GitHub.Timeout = 0 }, wantErr: "github.timeout"},
		{name: "bad api url", mutate: func(cfg *models.GlobalConfig) { cfg.GitHub.APIURL = "ftp://x" }, wantErr: "github.api_url"},
		{name: "bad repo", mutate: func(cfg *models.GlobalConfig) { cfg.GitHub.Repo = "just-a-name" }, wantErr: "github.repo"},
		{name: "good repo", mutate: func(cfg *models.GlobalConfig) { cfg.GitHub.Repo = "octo/notes" }},
		{name: "bad log level", mutate: func(cfg *models.GlobalConfig) { cfg.Log.Level = "loud" }, wantErr: "log.level"},
		{name: "bad log format", mutate: func(cfg *models.GlobalConfig) { cfg.Log.Format = "xml" }, wantErr: "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultGlobalConfig()
			cfg.Format = models.FormatText
			tt.mutate(cfg)
			err := cm.ValidateConfig(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateConfig_Nil(t *testing.T) {
	if err := NewConfigurationManager(t.TempDir()).ValidateConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}
