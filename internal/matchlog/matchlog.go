// package matchlog keeps the bounded, append-only record of match attempts
package matchlog

import (
	"sync"
	"time"

	"github.com/desertthunder/cloudmatch/internal/models"
	"github.com/desertthunder/cloudmatch/internal/shared"
)

// DefaultCapacity is used when a non-positive capacity is configured.
const DefaultCapacity = 500

// Log is a ring buffer of [models.MatchLogEntry] values in insertion order.
//
// Once full, each append drops the oldest entry.
type Log struct {
	mu      sync.RWMutex
	entries []models.MatchLogEntry
	start   int
	size    int
	changes chan struct{}
	now     func() time.Time
}

// New creates a log holding at most capacity entries.
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		entries: make([]models.MatchLogEntry, capacity),
		changes: make(chan struct{}, 1),
		now:     time.Now,
	}
}

// Append records entry, filling in ID and Timestamp when unset, and returns the stored value.
func (l *Log) Append(entry models.MatchLogEntry) models.MatchLogEntry {
	if entry.ID == "" {
		entry.ID = shared.GenerateID()
	}

	l.mu.Lock()
	if entry.Timestamp.IsZero() {
		entry.Timestamp = l.now()
	}

	capacity := len(l.entries)
	if l.size < capacity {
		l.entries[(l.start+l.size)%capacity] = entry
		l.size++
	} else {
		l.entries[l.start] = entry
		l.start = (l.start + 1) % capacity
	}
	l.mu.Unlock()

	select {
	case l.changes <- struct{}{}:
	default:
	}
	return entry
}

// Entries returns a copy of the log, oldest first.
func (l *Log) Entries() []models.MatchLogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.MatchLogEntry, l.size)
	capacity := len(l.entries)
	for i := range l.size {
		out[i] = l.entries[(l.start+i)%capacity]
	}
	return out
}

// Latest returns the most recent entry, used to highlight it in views.
func (l *Log) Latest() (models.MatchLogEntry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.size == 0 {
		return models.MatchLogEntry{}, false
	}
	return l.entries[(l.start+l.size-1)%len(l.entries)], true
}

// Len returns the number of stored entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.size
}

// Cap returns the maximum number of stored entries.
func (l *Log) Cap() int {
	return len(l.entries)
}

// Changes signals after appends. Signals coalesce; readers should re-read [Log.Entries].
func (l *Log) Changes() <-chan struct{} {
	return l.changes
}
