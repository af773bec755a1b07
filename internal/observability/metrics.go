package observability

import (
	"fmt"
	"strconv"
	"time"
)

// Metrics holds sync and change counters derived from the event log.
type Metrics struct {
	Saves            int            `json:"saves"`
	Loads            int            `json:"loads"`
	SaveFailures     int            `json:"save_failures"`
	LoadFailures     int            `json:"load_failures"`
	FailuresByStatus map[string]int `json:"failures_by_status"` // HTTP status or failure kind
	SyncsByFormat    map[string]int `json:"syncs_by_format"`
	StoreChanges     int            `json:"store_changes"`
	DroppedOnLoad    int            `json:"dropped_on_load"`
	LastSave         *time.Time     `json:"last_save,omitempty"`
	LastLoad         *time.Time     `json:"last_load,omitempty"`
	EventCount       int            `json:"event_count"`
	OldestEvent      *time.Time     `json:"oldest_event,omitempty"`
	NewestEvent      *time.Time     `json:"newest_event,omitempty"`
}

// SuccessRate returns the fraction of sync attempts that succeeded, or 1
// when nothing was attempted.
func (m *Metrics) SuccessRate() float64 {
	ok := m.Saves + m.Loads
	total := ok + m.SaveFailures + m.LoadFailures
	if total == 0 {
		return 1
	}
	return float64(ok) / float64(total)
}

// MetricsCalculator derives metrics from the event log.
type MetricsCalculator interface {
	Calculate(since time.Time) (*Metrics, error)
}

// metricsCalculator implements MetricsCalculator by reading from an EventLog.
type metricsCalculator struct {
	eventLog EventLog
}

// NewMetricsCalculator creates a new MetricsCalculator that reads from the given EventLog.
func NewMetricsCalculator(eventLog EventLog) MetricsCalculator {
	return &metricsCalculator{eventLog: eventLog}
}

// Calculate reads all events since the given time and aggregates them into metrics.
func (mc *metricsCalculator) Calculate(since time.Time) (*Metrics, error) {
	events, err := mc.eventLog.Read(EventFilter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("reading events for metrics: %w", err)
	}

	m := &Metrics{
		FailuresByStatus: make(map[string]int),
		SyncsByFormat:    make(map[string]int),
	}

	m.EventCount = len(events)

	for i, event := range events {
		t := event.Time
		if i == 0 {
			m.OldestEvent = &t
		}
		m.NewestEvent = &t

		switch event.Type {
		case EventSyncSave:
			m.Saves++
			m.LastSave = &t
			countFormat(m, event)
		case EventSyncLoad:
			m.Loads++
			m.LastLoad = &t
			countFormat(m, event)
			m.DroppedOnLoad += intField(event.Data, "dropped")
		case EventSyncFailed:
			if action, _ := event.Data["action"].(string); action == "load" {
				m.LoadFailures++
			} else {
				m.SaveFailures++
			}
			m.FailuresByStatus[failureKey(event.Data)]++
		case EventStoreChanged:
			m.StoreChanges++
		}
	}

	return m, nil
}

// failureKey buckets a failure by HTTP status when it has one, else by its
// recorded kind. Events without either predate kinds and were transport
// failures.
func failureKey(data map[string]any) string {
	if status := intField(data, "status"); status != 0 {
		return strconv.Itoa(status)
	}
	if kind, ok := data["kind"].(string); ok && kind != "" {
		return kind
	}
	return "transport"
}

func countFormat(m *Metrics, event Event) {
	if format, ok := event.Data["format"].(string); ok && format != "" {
		m.SyncsByFormat[format]++
	}
}

// intField reads a numeric field that may have round-tripped through JSON.
func intField(data map[string]any, key string) int {
	switch v := data[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}
