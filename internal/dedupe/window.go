// Package dedupe suppresses repeated delivery of the same logical event.
//
// The backend redelivers frames on reconnect and the transport offers no
// exactly-once guarantee, so the client keeps a bounded window of recently
// seen event fingerprints. The window is a soft filter: a fingerprint that
// has been evicted may legitimately be reprocessed if redelivered later.
package dedupe

import (
	"github.com/finchley/flowdeck/internal/log"
	"github.com/finchley/flowdeck/internal/wire"
)

const (
	// DefaultCapacity is the maximum number of fingerprints retained.
	DefaultCapacity = 100
	// DefaultEvictBatch is how many of the oldest entries are dropped in one
	// pass when the window overflows. Batch eviction amortizes cleanup cost
	// instead of shifting one entry per insert.
	DefaultEvictBatch = 50

	// payloadPrefixLen bounds how much of the serialized payload goes into a
	// fingerprint. Distinct payloads sharing type, timestamp and prefix
	// collide; that risk is accepted in exchange for cheap keys.
	payloadPrefixLen = 100
)

// Window is a capacity-bounded, insertion-ordered set of event fingerprints.
// It is owned by the connection manager and not safe for concurrent use;
// the read loop is the only caller.
type Window struct {
	capacity   int
	evictBatch int
	order      []string
	seen       map[string]struct{}
}

// NewWindow creates a window with the given capacity and eviction batch size.
// Non-positive values fall back to the defaults.
func NewWindow(capacity, evictBatch int) *Window {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if evictBatch <= 0 || evictBatch > capacity {
		evictBatch = DefaultEvictBatch
		if evictBatch > capacity {
			evictBatch = capacity
		}
	}
	return &Window{
		capacity:   capacity,
		evictBatch: evictBatch,
		order:      make([]string, 0, capacity),
		seen:       make(map[string]struct{}, capacity),
	}
}

// Fingerprint derives the dedup key for an envelope: type + timestamp + a
// bounded prefix of the serialized payload.
func Fingerprint(env wire.Envelope) string {
	payload := env.Payload
	if len(payload) > payloadPrefixLen {
		payload = payload[:payloadPrefixLen]
	}
	return string(env.Type) + "|" + env.Timestamp + "|" + string(payload)
}

// ShouldProcess reports whether the envelope is a first delivery.
// A duplicate returns false without mutating the window; a new fingerprint
// is recorded and returns true.
func (w *Window) ShouldProcess(env wire.Envelope) bool {
	fp := Fingerprint(env)
	if _, dup := w.seen[fp]; dup {
		log.Debug(log.CatDedupe, "duplicate frame suppressed", "type", env.Type, "timestamp", env.Timestamp)
		return false
	}

	w.order = append(w.order, fp)
	w.seen[fp] = struct{}{}

	if len(w.order) > w.capacity {
		evicted := w.order[:w.evictBatch]
		for _, old := range evicted {
			delete(w.seen, old)
		}
		w.order = append(w.order[:0], w.order[w.evictBatch:]...)
		log.Debug(log.CatDedupe, "evicted oldest fingerprints", "count", len(evicted), "remaining", len(w.order))
	}
	return true
}

// Len returns the number of fingerprints currently tracked.
func (w *Window) Len() int {
	return len(w.order)
}

// Contains reports whether the fingerprint is currently in the window.
func (w *Window) Contains(fp string) bool {
	_, ok := w.seen[fp]
	return ok
}
