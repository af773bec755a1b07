// Package internal provides the App struct that wires all components of the
// tasklists system together and initializes the CLI layer.
package internal

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/valter-silva-au/tasklists/internal/cli"
	"github.com/valter-silva-au/tasklists/internal/codec"
	"github.com/valter-silva-au/tasklists/internal/core"
	"github.com/valter-silva-au/tasklists/internal/integration"
	"github.com/valter-silva-au/tasklists/internal/observability"
	"github.com/valter-silva-au/tasklists/internal/storage"
	"github.com/valter-silva-au/tasklists/pkg/models"
)

// EventLogFileName is the default event log under the base path.
const EventLogFileName = "events.jsonl"

// UserAgent is sent with every GitHub request.
const UserAgent = "tl"

// App holds all service dependencies for the tasklists system.
type App struct {
	BasePath string

	// Configuration
	ConfigMgr core.ConfigurationManager
	Config    *models.GlobalConfig
	Logger    *slog.Logger
	LogLevel  *slog.LevelVar

	// Storage layer
	Bookmarks storage.BookmarkStore
	Bookmark  models.Bookmark

	// Core services
	Remote  *integration.GitHubContents
	Syncer  *core.Syncer
	Store   *core.Store
	Session *core.Session

	// Observability
	EventLog    observability.EventLog
	MetricsCalc observability.MetricsCalculator

	stopRecording func()
}

// Option customizes NewApp.
type Option func(*appOptions)

type appOptions struct {
	fs        afero.Fs
	logOutput io.Writer
}

// WithFs replaces the filesystem used for the bookmark and event log.
func WithFs(fsys afero.Fs) Option {
	return func(o *appOptions) { o.fs = fsys }
}

// WithLogOutput sends diagnostics to w instead of stderr.
func WithLogOutput(w io.Writer) Option {
	return func(o *appOptions) { o.logOutput = w }
}

// NewApp creates and wires all components of the tasklists system.
// basePath is the directory holding .tlconfig, the session bookmark and the
// event log (typically ~/.tl).
func NewApp(basePath string, opts ...Option) (*App, error) {
	o := appOptions{fs: afero.NewOsFs(), logOutput: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	app := &App{BasePath: basePath}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	cfg, err := app.ConfigMgr.LoadGlobalConfig()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := app.ConfigMgr.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	app.Config = cfg

	// --- Logging ---
	app.LogLevel = new(slog.LevelVar)
	app.LogLevel.Set(parseLevel(cfg.Log.Level))
	app.Logger = newLogger(o.logOutput, cfg.Log.Format, app.LogLevel)
	slog.SetDefault(app.Logger)

	// --- Observability ---
	var events core.EventLogger
	app.EventLog, err = observability.NewJSONLEventLog(o.fs, eventLogPath(basePath, cfg.EventLog))
	if err != nil {
		// Non-fatal: disable observability if log can't be created.
		app.Logger.Warn("event log disabled", "error", err)
		app.EventLog = nil
	}
	if app.EventLog != nil {
		events = observability.NewRecorder(app.EventLog)
		app.MetricsCalc = observability.NewMetricsCalculator(app.EventLog)
	}

	// --- Session bookmark ---
	app.Bookmarks = storage.NewBookmarkStore(o.fs, basePath)
	app.Bookmark, err = app.Bookmarks.Load()
	if err != nil {
		// Non-fatal: start over with an empty bookmark.
		app.Logger.Warn("ignoring session bookmark", "path", app.Bookmarks.Path(), "error", err)
		app.Bookmark = models.Bookmark{}
	}
	creds, format, mode := mergeBookmark(cfg, app.Bookmark)

	// --- Core services ---
	c, err := codec.For(format)
	if err != nil {
		return nil, err
	}
	app.Remote = integration.NewGitHubContents(cfg.GitHub.APIURL, cfg.GitHub.Timeout,
		integration.WithUserAgent(UserAgent))

	syncOpts := []core.SyncerOption{
		core.WithCommitMessage(cfg.GitHub.CommitMessage),
		core.WithLogger(app.Logger),
	}
	if events != nil {
		syncOpts = append(syncOpts, core.WithEventLogger(events))
	}
	app.Syncer = core.NewSyncer(app.Remote, c, syncOpts...)

	app.Store = core.NewStore()
	app.stopRecording = core.RecordChanges(app.Store, events, app.Logger)
	app.Session = core.NewSession(app.Store, app.Syncer, core.SessionOptions{
		ActiveList:  app.Bookmark.ActiveList,
		Mode:        mode,
		Credentials: creds,
	})

	// --- Wire CLI package-level variables ---
	cli.Session = app.Session
	cli.Bookmarks = app.Bookmarks
	cli.Bookmark = app.Bookmark
	cli.LogLevel = app.LogLevel
	cli.EventLog = app.EventLog
	cli.MetricsCalc = app.MetricsCalc

	return app, nil
}

// Close releases resources held by the App, such as the event log file handle.
// It is safe to call Close on an App whose EventLog is nil.
func (a *App) Close() error {
	if a.stopRecording != nil {
		a.stopRecording()
	}
	if a.EventLog != nil {
		return a.EventLog.Close()
	}
	return nil
}

// ResolveBasePath determines the data directory. It checks the TL_HOME env
// var, then falls back to ~/.tl, then to the current directory.
func ResolveBasePath() string {
	if home := os.Getenv("TL_HOME"); home != "" {
		return home
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".tl")
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return cwd
}

// mergeBookmark layers the bookmark over the config. The token always comes
// from the config or the environment.
func mergeBookmark(cfg *models.GlobalConfig, b models.Bookmark) (models.Credentials, models.Format, models.SyncMode) {
	creds := cfg.GitHub.Credentials
	format := cfg.Format
	if b.Repo != "" {
		creds.Repo = b.Repo
	}
	if b.Path != "" {
		creds.Path = b.Path
		format = models.FormatForPath(b.Path)
	}
	if b.Format != "" {
		format = b.Format
	}
	if format == "" {
		format = models.FormatText
	}
	mode := cfg.Mode
	if b.Mode != "" {
		mode = b.Mode
	}
	return creds, format, mode
}

func eventLogPath(basePath, configured string) string {
	switch {
	case configured == "":
		return filepath.Join(basePath, EventLogFileName)
	case filepath.IsAbs(configured):
		return configured
	default:
		return filepath.Join(basePath, configured)
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func newLogger(w io.Writer, format string, level slog.Leveler) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
