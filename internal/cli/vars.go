package cli

import (
	"log/slog"

	"github.com/valter-silva-au/tasklists/internal/core"
	"github.com/valter-silva-au/tasklists/internal/observability"
	"github.com/valter-silva-au/tasklists/internal/storage"
	"github.com/valter-silva-au/tasklists/pkg/models"
)

// Service instances, set during app initialization in app.go.
var (
	Session   *core.Session
	Bookmarks storage.BookmarkStore
	Bookmark  models.Bookmark
	LogLevel  *slog.LevelVar
)

// Observability service instances, set during app initialization in app.go.
var (
	EventLog    observability.EventLog
	MetricsCalc observability.MetricsCalculator
)
