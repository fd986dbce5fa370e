// Package ledger holds the process-local mirror of pending tool calls. It
// lets the model-invocation step register a proposal synchronously without
// waiting on the durable store. It is not authoritative; the store always
// wins on conflict.
package ledger

import (
	"sync"
	"time"

	"github.com/toolgate/toolgate/internal/domain"
)

// Entry mirrors one tool call record plus an executed flag.
type Entry struct {
	Record   domain.ToolCallRecord
	Executed bool
	AddedAt  time.Time
}

// Ledger is a concurrency-safe map of call_id to entry. It is an injected
// service object shared by every request in the process.
type Ledger struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	now     func() time.Time
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		entries: make(map[string]*Entry),
		now:     time.Now,
	}
}

// Register adds a record. Returns false when the call_id is already present
// so duplicate proposals stay no-ops.
func (l *Ledger) Register(rec domain.ToolCallRecord) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries[rec.CallID]; ok {
		return false
	}
	l.entries[rec.CallID] = &Entry{Record: rec, AddedAt: l.now()}
	return true
}

// Get returns a copy of the entry for callID.
func (l *Ledger) Get(callID string) (Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[callID]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// MarkExecuted flags the entry as executed.
func (l *Ledger) MarkExecuted(callID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[callID]; ok {
		e.Executed = true
	}
}

// UpdateStatus records the latest known status for callID.
func (l *Ledger) UpdateStatus(callID string, status domain.Status) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[callID]; ok {
		e.Record.Status = status
	}
}

// Remove deletes the entry.
func (l *Ledger) Remove(callID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, callID)
}

// Prune drops entries older than maxAge and returns how many were removed.
func (l *Ledger) Prune(maxAge time.Duration) int {
	cutoff := l.now().Add(-maxAge)
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for id, e := range l.entries {
		if e.AddedAt.Before(cutoff) {
			delete(l.entries, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
