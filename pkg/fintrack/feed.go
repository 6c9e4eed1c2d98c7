package fintrack

import (
	"sync"
)

// SnapshotFeed is a Subscription that keeps at most one undelivered snapshot.
// A newer snapshot replaces a pending one, so slow readers only see the latest set.
type SnapshotFeed struct {
	mu      sync.Mutex
	ch      chan []DocumentSnapshot
	closed  bool
	onClose func()
}

// NewSnapshotFeed creates a feed. onClose, if set, runs once on Close.
func NewSnapshotFeed(onClose func()) *SnapshotFeed {
	return &SnapshotFeed{
		ch:      make(chan []DocumentSnapshot, 1),
		onClose: onClose,
	}
}

// Publish queues snaps, dropping a snapshot that has not been read yet.
// It never blocks and is a no-op after Close.
func (f *SnapshotFeed) Publish(snaps []DocumentSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}

	select {
	case <-f.ch:
	default:
	}
	f.ch <- snaps
}

// Updates implements Subscription
func (f *SnapshotFeed) Updates() <-chan []DocumentSnapshot {
	return f.ch
}

// Close implements Subscription
func (f *SnapshotFeed) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	close(f.ch)
	onClose := f.onClose
	f.mu.Unlock()

	if onClose != nil {
		onClose()
	}
	return nil
}
