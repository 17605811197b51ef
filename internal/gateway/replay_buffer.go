package gateway

import (
	"sort"
	"sync"
)

// replayEntry holds a single broadcast envelope for replay.
type replayEntry struct {
	Seq  int64
	Data []byte
}

// ReplayBuffer keeps the most recent envelopes of one channel, oldest first.
// Seqs must be pushed in increasing order. Safe for concurrent use.
type ReplayBuffer struct {
	mu      sync.RWMutex
	entries []replayEntry
	cap     int
}

// NewReplayBuffer creates a replay buffer holding up to capacity envelopes.
func NewReplayBuffer(capacity int) *ReplayBuffer {
	if capacity <= 0 {
		capacity = 100
	}
	return &ReplayBuffer{entries: make([]replayEntry, 0, capacity), cap: capacity}
}

// Push appends an envelope, evicting the oldest when full.
func (rb *ReplayBuffer) Push(seq int64, data []byte) {
	cp := make([]byte, len(data))
	copy(cp, data)

	rb.mu.Lock()
	defer rb.mu.Unlock()
	if len(rb.entries) == rb.cap {
		copy(rb.entries, rb.entries[1:])
		rb.entries = rb.entries[:rb.cap-1]
	}
	rb.entries = append(rb.entries, replayEntry{Seq: seq, Data: cp})
}

// Range returns the entries with seq in [fromSeq, toSeq], in seq order.
func (rb *ReplayBuffer) Range(fromSeq, toSeq int64) []replayEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	lo := sort.Search(len(rb.entries), func(i int) bool { return rb.entries[i].Seq >= fromSeq })
	hi := sort.Search(len(rb.entries), func(i int) bool { return rb.entries[i].Seq > toSeq })
	if lo >= hi {
		return nil
	}
	out := make([]replayEntry, hi-lo)
	copy(out, rb.entries[lo:hi])
	return out
}

// Len returns the number of buffered envelopes.
func (rb *ReplayBuffer) Len() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return len(rb.entries)
}
