package observability

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestMetricsCalculator_Calculate(t *testing.T) {
	log := newMemLog(t)

	base := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	events := []Event{
		{Time: base, Level: "INFO", Type: EventStoreChanged, Data: map[string]any{"total": 1}},
		{Time: base.Add(time.Minute), Level: "INFO", Type: EventSyncSave, Data: map[string]any{"format": "text", "tasks": 1}},
		{Time: base.Add(2 * time.Minute), Level: "INFO", Type: EventStoreChanged, Data: map[string]any{"total": 2}},
		{Time: base.Add(3 * time.Minute), Level: "WARN", Type: EventSyncFailed, Data: map[string]any{"action": "save", "status": 409}},
		{Time: base.Add(4 * time.Minute), Level: "WARN", Type: EventSyncFailed, Data: map[string]any{"action": "load", "error": "dial tcp"}},
		{Time: base.Add(5 * time.Minute), Level: "INFO", Type: EventSyncLoad, Data: map[string]any{"format": "json", "tasks": 2, "dropped": 3}},
		{Time: base.Add(6 * time.Minute), Level: "INFO", Type: EventSyncSave, Data: map[string]any{"format": "json", "tasks": 2}},
	}
	for _, e := range events {
		if err := log.Write(e); err != nil {
			t.Fatalf("writing event: %v", err)
		}
	}

	m, err := NewMetricsCalculator(log).Calculate(base.Add(-time.Hour))
	if err != nil {
		t.Fatalf("calculating metrics: %v", err)
	}

	if m.Saves != 2 {
		t.Errorf("Saves = %d, want 2", m.Saves)
	}
	if m.Loads != 1 {
		t.Errorf("Loads = %d, want 1", m.Loads)
	}
	if m.SaveFailures != 1 || m.LoadFailures != 1 {
		t.Errorf("failures = %d/%d, want 1/1", m.SaveFailures, m.LoadFailures)
	}
	if diff := cmp.Diff(map[string]int{"409": 1, "transport": 1}, m.FailuresByStatus); diff != "" {
		t.Errorf("FailuresByStatus (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]int{"text": 1, "json": 2}, m.SyncsByFormat); diff != "" {
		t.Errorf("SyncsByFormat (-want +got):\n%s", diff)
	}
	if m.StoreChanges != 2 {
		t.Errorf("StoreChanges = %d, want 2", m.StoreChanges)
	}
	if m.DroppedOnLoad != 3 {
		t.Errorf("DroppedOnLoad = %d, want 3", m.DroppedOnLoad)
	}
	if m.EventCount != len(events) {
		t.Errorf("EventCount = %d, want %d", m.EventCount, len(events))
	}
	if m.LastSave == nil || !m.LastSave.Equal(base.Add(6*time.Minute)) {
		t.Errorf("LastSave = %v", m.LastSave)
	}
	if m.LastLoad == nil || !m.LastLoad.Equal(base.Add(5*time.Minute)) {
		t.Errorf("LastLoad = %v", m.LastLoad)
	}
	if m.OldestEvent == nil || !m.OldestEvent.Equal(base) {
		t.Errorf("OldestEvent = %v", m.OldestEvent)
	}
	if m.NewestEvent == nil || !m.NewestEvent.Equal(base.Add(6*time.Minute)) {
		t.Errorf("NewestEvent = %v", m.NewestEvent)
	}
	if got := m.SuccessRate(); got != 0.6 {
		t.Errorf("SuccessRate = %v, want 0.6", got)
	}
}

func TestMetricsCalculator_FailuresByKind(t *testing.T) {
	log := newMemLog(t)
	base := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	for i, data := range []map[string]any{
		{"action": "save", "kind": "credentials"},
		{"action": "load", "kind": "codec"},
		{"action": "load", "kind": "list"},
		{"action": "load", "kind": "status", "status": 404},
		{"action": "save", "kind": "transport"},
	} {
		e := Event{Time: base.Add(time.Duration(i) * time.Minute), Level: "WARN", Type: EventSyncFailed, Data: data}
		if err := log.Write(e); err != nil {
			t.Fatalf("writing event: %v", err)
		}
	}

	m, err := NewMetricsCalculator(log).Calculate(base.Add(-time.Hour))
	if err != nil {
		t.Fatalf("calculating metrics: %v", err)
	}
	want := map[string]int{"credentials": 1, "codec": 1, "list": 1, "404": 1, "transport": 1}
	if diff := cmp.Diff(want, m.FailuresByStatus); diff != "" {
		t.Errorf("FailuresByStatus (-want +got):\n%s", diff)
	}
}

func TestMetricsCalculator_EmptyLog(t *testing.T) {
	m, err := NewMetricsCalculator(newMemLog(t)).Calculate(time.Time{})
	if err != nil {
		t.Fatalf("calculating metrics: %v", err)
	}
	if m.EventCount != 0 || m.Saves != 0 || m.Loads != 0 {
		t.Errorf("expected zero metrics, got %+v", m)
	}
	if m.OldestEvent != nil || m.NewestEvent != nil || m.LastSave != nil {
		t.Error("expected nil timestamps for an empty log")
	}
	if m.SuccessRate() != 1 {
		t.Errorf("SuccessRate = %v, want 1", m.SuccessRate())
	}
}

func TestMetricsCalculator_FiltersBySince(t *testing.T) {
	log := newMemLog(t)

	base := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		e := Event{Time: base.Add(time.Duration(i) * 24 * time.Hour), Level: "INFO", Type: EventSyncSave}
		if err := log.Write(e); err != nil {
			t.Fatalf("writing event: %v", err)
		}
	}

	m, err := NewMetricsCalculator(log).Calculate(base.Add(36 * time.Hour))
	if err != nil {
		t.Fatalf("calculating metrics: %v", err)
	}
	if m.Saves != 2 {
		t.Errorf("Saves = %d, want 2", m.Saves)
	}
}
