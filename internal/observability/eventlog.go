package observability

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// Event types written by the store and the synchronizer.
const (
	EventStoreChanged = "store.changed"
	EventSyncSave     = "sync.save"
	EventSyncLoad     = "sync.load"
	EventSyncFailed   = "sync.failed"
)

// Event represents a single observable event in the system.
type Event struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"` // INFO, WARN, ERROR
	Type    string         `json:"type"`  // e.g. "sync.save", "store.changed"
	Message string         `json:"msg"`
	Data    map[string]any `json:"data,omitempty"`
}

// EventFilter specifies criteria for reading events.
type EventFilter struct {
	Since *time.Time
	Until *time.Time
	Type  string
	Level string
}

// EventLog defines the interface for writing and reading events.
type EventLog interface {
	Write(event Event) error
	Read(filter EventFilter) ([]Event, error)
	Close() error
}

// jsonlEventLog implements EventLog using an append-only JSONL file.
type jsonlEventLog struct {
	fs   afero.Fs
	path string
	file afero.File
	mu   sync.Mutex
}

// NewJSONLEventLog creates a new EventLog backed by a JSONL file at path on
// fsys, creating the parent directory if needed.
func NewJSONLEventLog(fsys afero.Fs, path string) (EventLog, error) {
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating event log directory: %w", err)
	}
	f, err := fsys.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	return &jsonlEventLog{
		fs:   fsys,
		path: path,
		file: f,
	}, nil
}

// Write appends a JSON-encoded event followed by a newline to the log file.
func (l *jsonlEventLog) Write(event Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}
	data = append(data, '\n')

	if _, err := l.file.Write(data); err != nil {
		return fmt.Errorf("writing event: %w", err)
	}
	return nil
}

// Read scans the log file line by line and returns the events matching
// filter. Malformed lines are skipped.
func (l *jsonlEventLog) Read(filter EventFilter) ([]Event, error) {
	f, err := l.fs.Open(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening event log for reading: %w", err)
	}
	defer func() { _ = f.Close() }()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			continue
		}

		if matchesEventFilter(event, filter) {
			events = append(events, event)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning event log: %w", err)
	}

	return events, nil
}

// Close closes the underlying log file.
func (l *jsonlEventLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.file.Close(); err != nil {
		return fmt.Errorf("closing event log: %w", err)
	}
	return nil
}

// matchesEventFilter checks whether an event satisfies all filter criteria.
func matchesEventFilter(event Event, filter EventFilter) bool {
	if filter.Since != nil && event.Time.Before(*filter.Since) {
		return false
	}
	if filter.Until != nil && event.Time.After(*filter.Until) {
		return false
	}
	if filter.Type != "" && event.Type != filter.Type {
		return false
	}
	if filter.Level != "" && event.Level != filter.Level {
		return false
	}
	return true
}

// Recorder turns domain events into log entries. It satisfies the
// EventLogger interface the core package declares.
type Recorder struct {
	log EventLog
	now func() time.Time
}

// NewRecorder returns a Recorder writing to log.
func NewRecorder(log EventLog) *Recorder {
	return &Recorder{log: log, now: time.Now}
}

// LogEvent writes one event. Failures are recorded at WARN level.
func (r *Recorder) LogEvent(eventType string, data map[string]any) error {
	level := "INFO"
	if eventType == EventSyncFailed {
		level = "WARN"
	}
	return r.log.Write(Event{
		Time:    r.now().UTC(),
		Level:   level,
		Type:    eventType,
		Message: eventMessage(eventType, data),
		Data:    data,
	})
}

func eventMessage(eventType string, data map[string]any) string {
	switch eventType {
	case EventSyncSave:
		return fmt.Sprintf("saved %v tasks", data["tasks"])
	case EventSyncLoad:
		return fmt.Sprintf("loaded %v tasks", data["tasks"])
	case EventSyncFailed:
		return fmt.Sprintf("%v failed: %v", data["action"], data["error"])
	case EventStoreChanged:
		return fmt.Sprintf("store now holds %v tasks", data["total"])
	default:
		return eventType
	}
}
