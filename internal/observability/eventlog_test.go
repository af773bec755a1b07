package observability

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func newMemLog(t *testing.T) EventLog {
	t.Helper()
	log, err := NewJSONLEventLog(afero.NewMemMapFs(), "/base/events.jsonl")
	if err != nil {
		t.Fatalf("creating event log: %v", err)
	}
	t.Cleanup(func() { _ = log.Close() })
	return log
}

func TestEventLog_WriteAndRead(t *testing.T) {
	log := newMemLog(t)

	now := time.Now().UTC().Truncate(time.Millisecond)
	events := []Event{
		{
			Time:    now,
			Level:   "INFO",
			Type:    EventSyncSave,
			Message: "saved 3 tasks",
			Data:    map[string]any{"op": "a1", "tasks": 3},
		},
		{
			Time:    now.Add(time.Second),
			Level:   "WARN",
			Type:    EventSyncFailed,
			Message: "load failed",
			Data:    map[string]any{"op": "b2", "action": "load", "status": 404},
		},
	}

	for _, e := range events {
		if err := log.Write(e); err != nil {
			t.Fatalf("writing event: %v", err)
		}
	}

	result, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}

	if len(result) != 2 {
		t.Fatalf("expected 2 events, got %d", len(result))
	}
	if result[0].Type != EventSyncSave {
		t.Errorf("expected type sync.save, got %s", result[0].Type)
	}
	if result[0].Message != "saved 3 tasks" {
		t.Errorf("expected message 'saved 3 tasks', got %s", result[0].Message)
	}
	if result[1].Level != "WARN" {
		t.Errorf("expected level WARN, got %s", result[1].Level)
	}
	// Numbers come back from JSON as float64.
	if result[1].Data["status"] != float64(404) {
		t.Errorf("expected status 404, got %v", result[1].Data["status"])
	}
}

func TestEventLog_OnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "events.jsonl")
	log, err := NewJSONLEventLog(afero.NewOsFs(), path)
	if err != nil {
		t.Fatalf("creating event log: %v", err)
	}
	if err := log.Write(Event{Time: time.Now().UTC(), Level: "INFO", Type: EventSyncLoad}); err != nil {
		t.Fatalf("writing event: %v", err)
	}
	if err := log.Close(); err != nil {
		t.Fatalf("closing: %v", err)
	}

	// Reopening appends rather than truncates.
	log, err = NewJSONLEventLog(afero.NewOsFs(), path)
	if err != nil {
		t.Fatalf("reopening event log: %v", err)
	}
	defer log.Close()
	if err := log.Write(Event{Time: time.Now().UTC(), Level: "INFO", Type: EventSyncSave}); err != nil {
		t.Fatalf("writing event: %v", err)
	}
	result, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("expected 2 events, got %d", len(result))
	}
}

func TestEventLog_FilterByType(t *testing.T) {
	log := newMemLog(t)

	now := time.Now().UTC()
	events := []Event{
		{Time: now, Level: "INFO", Type: EventSyncSave, Message: "saved"},
		{Time: now.Add(time.Second), Level: "INFO", Type: EventStoreChanged, Message: "changed"},
		{Time: now.Add(2 * time.Second), Level: "INFO", Type: EventSyncSave, Message: "saved again"},
	}

	for _, e := range events {
		if err := log.Write(e); err != nil {
			t.Fatalf("writing event: %v", err)
		}
	}

	result, err := log.Read(EventFilter{Type: EventSyncSave})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}

	if len(result) != 2 {
		t.Fatalf("expected 2 events of type sync.save, got %d", len(result))
	}
	for _, e := range result {
		if e.Type != EventSyncSave {
			t.Errorf("expected type sync.save, got %s", e.Type)
		}
	}
}

func TestEventLog_FilterByTimeRange(t *testing.T) {
	log := newMemLog(t)

	base := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	events := []Event{
		{Time: base, Level: "INFO", Type: EventSyncLoad, Message: "first"},
		{Time: base.Add(time.Hour), Level: "INFO", Type: EventSyncLoad, Message: "second"},
		{Time: base.Add(2 * time.Hour), Level: "INFO", Type: EventSyncLoad, Message: "third"},
		{Time: base.Add(3 * time.Hour), Level: "INFO", Type: EventSyncLoad, Message: "fourth"},
	}

	for _, e := range events {
		if err := log.Write(e); err != nil {
			t.Fatalf("writing event: %v", err)
		}
	}

	since := base.Add(30 * time.Minute)
	until := base.Add(2*time.Hour + 30*time.Minute)
	result, err := log.Read(EventFilter{Since: &since, Until: &until})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}

	if len(result) != 2 {
		t.Fatalf("expected 2 events in time range, got %d", len(result))
	}
	if result[0].Message != "second" {
		t.Errorf("expected 'second', got %s", result[0].Message)
	}
	if result[1].Message != "third" {
		t.Errorf("expected 'third', got %s", result[1].Message)
	}
}

func TestEventLog_FilterByLevel(t *testing.T) {
	log := newMemLog(t)

	now := time.Now().UTC()
	events := []Event{
		{Time: now, Level: "INFO", Type: EventSyncSave, Message: "info event"},
		{Time: now.Add(time.Second), Level: "WARN", Type: EventSyncFailed, Message: "warn event"},
		{Time: now.Add(2 * time.Second), Level: "INFO", Type: EventSyncLoad, Message: "another info"},
		{Time: now.Add(3 * time.Second), Level: "WARN", Type: EventSyncFailed, Message: "another warn"},
	}

	for _, e := range events {
		if err := log.Write(e); err != nil {
			t.Fatalf("writing event: %v", err)
		}
	}

	result, err := log.Read(EventFilter{Level: "WARN"})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("expected 2 WARN events, got %d", len(result))
	}
}

func TestEventLog_EmptyLog(t *testing.T) {
	log := newMemLog(t)

	result, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("reading empty log: %v", err)
	}
	if len(result) != 0 {
		t.Errorf("expected 0 events from empty log, got %d", len(result))
	}
}

func TestEventLog_SkipsMalformedLines(t *testing.T) {
	fsys := afero.NewMemMapFs()
	content := `{"time":"2025-01-15T10:00:00Z","level":"INFO","type":"sync.save","msg":"ok"}
not json at all
{"time":"2025-01-15T11:00:00Z","level":"INFO","type":"sync.load","msg":"ok"}
`
	if err := afero.WriteFile(fsys, "/events.jsonl", []byte(content), 0o644); err != nil {
		t.Fatalf("seeding log: %v", err)
	}
	log, err := NewJSONLEventLog(fsys, "/events.jsonl")
	if err != nil {
		t.Fatalf("creating event log: %v", err)
	}
	defer log.Close()

	result, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(result) != 2 {
		t.Errorf("expected 2 valid events, got %d", len(result))
	}
}

func TestEventLog_ConcurrentWrites(t *testing.T) {
	log := newMemLog(t)

	const goroutines = 10
	const eventsPerGoroutine = 20

	var wg sync.WaitGroup
	wg.Add(goroutines)

	for g := 0; g < goroutines; g++ {
		go func(id int) {
			defer wg.Done()
			for i := 0; i < eventsPerGoroutine; i++ {
				event := Event{
					Time:    time.Now().UTC(),
					Level:   "INFO",
					Type:    EventStoreChanged,
					Message: "concurrent event",
					Data:    map[string]any{"goroutine": id, "index": i},
				}
				if err := log.Write(event); err != nil {
					t.Errorf("concurrent write error: %v", err)
				}
			}
		}(g)
	}

	wg.Wait()

	result, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("reading events after concurrent writes: %v", err)
	}

	expected := goroutines * eventsPerGoroutine
	if len(result) != expected {
		t.Errorf("expected %d events, got %d", expected, len(result))
	}
}

func TestRecorder_LogEvent(t *testing.T) {
	log := newMemLog(t)
	rec := NewRecorder(log)
	fixed := time.Date(2025, 3, 1, 9, 0, 0, 0, time.FixedZone("X", 3600))
	rec.now = func() time.Time { return fixed }

	if err := rec.LogEvent(EventSyncSave, map[string]any{"tasks": 4}); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}
	if err := rec.LogEvent(EventSyncFailed, map[string]any{"action": "load", "error": "boom"}); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}

	result, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("expected 2 events, got %d", len(result))
	}
	if result[0].Level != "INFO" || result[0].Message != "saved 4 tasks" {
		t.Errorf("unexpected save event %+v", result[0])
	}
	if !result[0].Time.Equal(fixed) || result[0].Time.Location() != time.UTC {
		t.Errorf("expected UTC timestamp, got %v", result[0].Time)
	}
	if result[1].Level != "WARN" || result[1].Message != "load failed: boom" {
		t.Errorf("unexpected failure event %+v", result[1])
	}
}
