package engine

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ftahirops/circuittop/model"
)

// maxCompletedEvents bounds the in-memory trip history.
const maxCompletedEvents = 100

// FuseEvent is one fuse trip on a circuit. It stays active until the circuit
// reports its fuse cleared.
type FuseEvent struct {
	ID           string          `json:"id"`
	Circuit      model.CircuitID `json:"circuit"`
	StartTime    time.Time       `json:"start_time"`
	EndTime      time.Time       `json:"end_time,omitzero"`
	Duration     int             `json:"duration_sec"`
	PeakConsumed float64         `json:"peak_consumed_mw"`
	Capacity     float64         `json:"capacity_mw"`
	Active       bool            `json:"active"`
}

// Message is the one-line notification text for the event.
func (e FuseEvent) Message() string {
	if e.Active {
		return fmt.Sprintf("Circuit %s fuse tripped (%.0fMW consumed of %.0fMW)", e.Circuit, e.PeakConsumed, e.Capacity)
	}
	return fmt.Sprintf("Circuit %s fuse cleared after %ds", e.Circuit, e.Duration)
}

// EventDetector tracks fuse transitions across accepted datasets.
type EventDetector struct {
	mu sync.Mutex

	active    map[model.CircuitID]*FuseEvent
	completed []FuseEvent
}

// NewEventDetector creates an empty detector.
func NewEventDetector() *EventDetector {
	return &EventDetector{active: make(map[model.CircuitID]*FuseEvent)}
}

// Process compares ds with the open trips and returns the events that opened
// or closed. Circuits missing from ds keep their open trips.
func (d *EventDetector) Process(ds model.Dataset, at time.Time) []FuseEvent {
	d.mu.Lock()
	defer d.mu.Unlock()

	var changed []FuseEvent
	for _, e := range ds {
		r := e.Record
		open := d.active[r.CircuitID]
		switch {
		case r.FuseTriggered && open == nil:
			ev := &FuseEvent{
				ID:           fmt.Sprintf("fuse-%s-%d", r.CircuitID, at.UnixMilli()),
				Circuit:      r.CircuitID,
				StartTime:    at,
				PeakConsumed: r.PowerConsumed,
				Capacity:     r.PowerCapacity,
				Active:       true,
			}
			d.active[r.CircuitID] = ev
			changed = append(changed, *ev)
		case r.FuseTriggered:
			if r.PowerConsumed > open.PeakConsumed {
				open.PeakConsumed = r.PowerConsumed
			}
		case open != nil:
			open.Active = false
			open.EndTime = at
			open.Duration = int(at.Sub(open.StartTime).Seconds())
			delete(d.active, r.CircuitID)
			d.completed = append(d.completed, *open)
			if len(d.completed) > maxCompletedEvents {
				d.completed = d.completed[len(d.completed)-maxCompletedEvents:]
			}
			changed = append(changed, *open)
		}
	}
	return changed
}

// ActiveCount returns the number of circuits with an open trip.
func (d *EventDetector) ActiveCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.active)
}

// Events returns completed events, newest first.
func (d *EventDetector) Events() []FuseEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]FuseEvent, len(d.completed))
	for i, e := range d.completed {
		out[len(d.completed)-1-i] = e
	}
	return out
}

// EventLogWriter appends events to a JSONL file.
type EventLogWriter struct {
	path string
	mu   sync.Mutex
}

// NewEventLogWriter creates a writer for the given path.
func NewEventLogWriter(path string) *EventLogWriter {
	return &EventLogWriter{path: path}
}

// Write appends an event to the log file.
func (w *EventLogWriter) Write(e FuseEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(e)
}

// ReadEventLog reads all events from a JSONL file. A missing file is empty.
func ReadEventLog(path string) ([]FuseEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var events []FuseEvent
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024) // 1MB line limit
	for scanner.Scan() {
		var e FuseEvent
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue // skip malformed lines
		}
		events = append(events, e)
	}
	return events, scanner.Err()
}
