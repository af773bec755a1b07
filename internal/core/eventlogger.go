package core

import "log/slog"

// EventLogger records domain events such as store changes and sync
// outcomes. Defining it here avoids importing the observability package.
type EventLogger interface {
	LogEvent(eventType string, data map[string]any) error
}

// RecordChanges subscribes events to store so that every mutation is
// written as a "store.changed" event. Write failures are logged at debug
// level on logger, or slog.Default when logger is nil. It returns the
// unsubscribe function.
func RecordChanges(store *Store, events EventLogger, logger *slog.Logger) func() {
	if events == nil {
		return func() {}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return store.Subscribe(func(s Snapshot) {
		counts := make(map[string]any)
		for id, tasks := range s.lists {
			counts[string(id)] = len(tasks)
		}
		if err := events.LogEvent("store.changed", map[string]any{
			"total": s.Total(),
			"lists": counts,
		}); err != nil {
			logger.Debug("recording event failed", "type", "store.changed", "error", err)
		}
	})
}
