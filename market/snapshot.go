package market

import "sync"

// PriceSnapshot is one sampled observation of an exchange's price.
// ClientTimestamp is the local receipt clock (ms); it is the only clock
// all exchanges share consistently and is what alignment works on.
type PriceSnapshot struct {
	Price           float64
	ClientTimestamp int64
	ServerTimestamp int64
	Volume          float64
}

// PriceHistory is a fixed-capacity, time-ordered buffer of snapshots.
// A single ingestion goroutine appends; aggregation stages read copies.
type PriceHistory struct {
	mu         sync.RWMutex
	snapshots  []PriceSnapshot
	maxSize    int
	lastUpdate int64
}

// DefaultHistorySize keeps one minute of history at a 100ms sampling cadence.
const DefaultHistorySize = 600

// NewPriceHistory creates a buffer holding at most maxSize snapshots.
func NewPriceHistory(maxSize int) *PriceHistory {
	if maxSize <= 0 {
		maxSize = DefaultHistorySize
	}
	return &PriceHistory{
		snapshots: make([]PriceSnapshot, 0, maxSize),
		maxSize:   maxSize,
	}
}

// Add appends a snapshot and evicts the oldest entry once over capacity.
func (h *PriceHistory) Add(s PriceSnapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snapshots = append(h.snapshots, s)
	if len(h.snapshots) > h.maxSize {
		h.snapshots = h.snapshots[1:]
	}
	h.lastUpdate = s.ClientTimestamp
}

// Snapshot returns a copy of the current sequence so callers can iterate
// without holding a reference across concurrent eviction.
func (h *PriceHistory) Snapshot() []PriceSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]PriceSnapshot, len(h.snapshots))
	copy(out, h.snapshots)
	return out
}

// Len returns the number of buffered snapshots.
func (h *PriceHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.snapshots)
}

// LastUpdate returns the client timestamp (ms) of the newest snapshot.
func (h *PriceHistory) LastUpdate() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastUpdate
}
