package automod

import (
	"sync"
	"time"
)

type trackedMessage struct {
	authorID  uint64
	createdAt time.Time
}

// Window is the bounded cache of recently seen messages consulted by the spam
// rule. Entries older than the lookback interval are evicted on every write so
// memory stays bounded regardless of traffic.
type Window struct {
	mu       sync.Mutex
	lookback time.Duration
	maxSize  int
	messages []trackedMessage
}

func NewWindow(lookback time.Duration, maxSize int) *Window {
	return &Window{lookback: lookback, maxSize: maxSize}
}

// Add records a message. Expired and over-capacity entries are dropped from
// the front; messages arrive in roughly chronological order.
func (w *Window) Add(authorID uint64, createdAt time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.messages = append(w.messages, trackedMessage{authorID: authorID, createdAt: createdAt})
	w.evict(time.Now())
}

// CountRecent returns how many messages the author sent within the lookback
// interval ending at now.
func (w *Window) CountRecent(authorID uint64, now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	var count int

	for _, msg := range w.messages {
		if msg.authorID == authorID && now.Sub(msg.createdAt) < w.lookback {
			count++
		}
	}

	return count
}

// Len returns the current number of tracked messages.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	return len(w.messages)
}

func (w *Window) evict(now time.Time) {
	firstLive := 0
	for firstLive < len(w.messages) && now.Sub(w.messages[firstLive].createdAt) >= w.lookback {
		firstLive++
	}

	if live := len(w.messages) - firstLive; live > w.maxSize {
		firstLive += live - w.maxSize
	}

	if firstLive > 0 {
		w.messages = append(w.messages[:0], w.messages[firstLive:]...)
	}
}
