// Package backlog implements the bounded reorder buffer that lets the
// assembler recover packets that arrive ahead of the current block
// window.
package backlog

import (
	"github.com/kiranshila/grex-packet-capture/internal/payload"
	"github.com/kiranshila/grex-packet-capture/internal/xcapture"
)

// Backlog is a bounded mapping from count to payload, private to the
// capture thread. It is not safe for concurrent use.
type Backlog struct {
	entries map[uint64]payload.Payload
	cap     int
}

// New returns an empty backlog with capacity cap entries.
func New(cap int) *Backlog {
	return &Backlog{
		entries: make(map[uint64]payload.Payload, cap),
		cap:     cap,
	}
}

// Insert records p under count c. Re-inserting an already-present count
// overwrites in place without counting against capacity. Inserting a
// new count once the backlog is full returns BacklogOverflowError.
func (b *Backlog) Insert(c uint64, p payload.Payload) error {
	if _, ok := b.entries[c]; !ok && len(b.entries) >= b.cap {
		return &xcapture.BacklogOverflowError{Capacity: b.cap}
	}
	b.entries[c] = p
	return nil
}

// Take removes and returns the payload stored under c, if any.
func (b *Backlog) Take(c uint64) (payload.Payload, bool) {
	p, ok := b.entries[c]
	if ok {
		delete(b.entries, c)
	}
	return p, ok
}

// Len reports the current number of backlog entries.
func (b *Backlog) Len() int {
	return len(b.entries)
}
