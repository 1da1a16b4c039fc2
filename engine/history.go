package engine

import (
	"sync"
	"time"

	"github.com/ftahirops/circuittop/model"
)

// Totals aggregates one dataset across all circuits.
type Totals struct {
	Circuits   int
	Capacity   float64
	Production float64
	Consumed   float64
	BatteryPct float64 // mean across circuits
	Fuses      int
}

// Summarize computes the totals of ds.
func Summarize(ds model.Dataset) Totals {
	t := Totals{Circuits: len(ds)}
	var battery float64
	for _, e := range ds {
		r := e.Record
		t.Capacity += r.PowerCapacity
		t.Production += r.PowerProduction
		t.Consumed += r.PowerConsumed
		battery += r.BatteryPercent
		if r.FuseTriggered {
			t.Fuses++
		}
	}
	if t.Circuits > 0 {
		t.BatteryPct = battery / float64(t.Circuits)
	}
	return t
}

// Sample is the totals of one rendered dataset.
type Sample struct {
	At     time.Time
	Totals Totals
}

// History is a ring buffer of samples for trend display.
type History struct {
	buf  []Sample
	head int
	size int
	cap  int
	mu   sync.RWMutex
}

// NewHistory creates a ring buffer with the given capacity.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{
		buf: make([]Sample, capacity),
		cap: capacity,
	}
}

// Push adds a sample to the ring buffer.
func (h *History) Push(s Sample) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buf[h.head] = s
	h.head = (h.head + 1) % h.cap
	if h.size < h.cap {
		h.size++
	}
}

// Len returns the number of samples stored.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.size
}

// Latest returns the most recent sample.
func (h *History) Latest() (Sample, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.size == 0 {
		return Sample{}, false
	}
	return h.buf[(h.head-1+h.cap)%h.cap], true
}

// Get returns the sample at position i (0 = oldest in buffer).
func (h *History) Get(i int) (Sample, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if i < 0 || i >= h.size {
		return Sample{}, false
	}
	return h.buf[(h.head-h.size+i+h.cap)%h.cap], true
}

// Consumed returns total consumption per sample, oldest first.
func (h *History) Consumed() []float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]float64, h.size)
	for i := range out {
		out[i] = h.buf[(h.head-h.size+i+h.cap)%h.cap].Totals.Consumed
	}
	return out
}
