// Package ring implements the bounded single-producer/single-consumer
// queue of pre-allocated block buffers that hands assembled blocks from
// the capture thread to the sink.
package ring

import (
	"context"
	"errors"
	"sync"

	"github.com/kiranshila/grex-packet-capture/internal/block"
)

// ErrRingClosed is returned by ReserveWrite/ReserveRead once the ring
// has been closed and, for ReserveRead, all previously published blocks
// have been drained. It is cooperative termination, not a fault.
var ErrRingClosed = errors.New("ring: closed")

// Ring is a fixed-capacity SPSC queue of R pre-allocated block buffers.
// Slot ownership alternates between producer and consumer via two
// buffered channels acting as free/ready lists; no slot is ever
// allocated or freed after construction.
type Ring struct {
	blocks []*block.Block
	free   chan int
	ready  chan int
	done   chan struct{}
	once   sync.Once
}

// New pre-allocates capacity block buffers of blockSize payloadSize-byte
// payloads and returns a Ring with every slot initially free.
func New(capacity, blockSize, payloadSize int) *Ring {
	r := &Ring{
		blocks: make([]*block.Block, capacity),
		free:   make(chan int, capacity),
		ready:  make(chan int, capacity),
		done:   make(chan struct{}),
	}
	for i := range r.blocks {
		r.blocks[i] = block.New(blockSize, payloadSize)
		r.free <- i
	}
	return r
}

// WriteHandle is exclusive access to the next writable slot. Release
// publishes the slot to the reader.
type WriteHandle struct {
	ring  *Ring
	idx   int
	Block *block.Block
}

// ReserveWrite blocks until a slot is free, the ring is closed, or ctx
// is canceled.
func (r *Ring) ReserveWrite(ctx context.Context) (*WriteHandle, error) {
	select {
	case idx := <-r.free:
		return &WriteHandle{ring: r, idx: idx, Block: r.blocks[idx]}, nil
	case <-r.done:
		return nil, ErrRingClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release publishes the written slot to the consumer. The release
// happens-before the matching ReserveRead's acquisition of the same
// slot.
func (h *WriteHandle) Release() {
	select {
	case h.ring.ready <- h.idx:
	case <-h.ring.done:
	}
}

// ReadHandle is exclusive access to the next readable slot. Release
// returns the slot to the writer.
type ReadHandle struct {
	ring  *Ring
	idx   int
	Block *block.Block
}

// ReserveRead blocks until a slot is ready, ctx is canceled, or the ring
// is closed and fully drained. A close with blocks still queued in
// ready is drained before ErrRingClosed is returned.
func (r *Ring) ReserveRead(ctx context.Context) (*ReadHandle, error) {
	select {
	case idx := <-r.ready:
		return &ReadHandle{ring: r, idx: idx, Block: r.blocks[idx]}, nil
	case <-r.done:
		select {
		case idx := <-r.ready:
			return &ReadHandle{ring: r, idx: idx, Block: r.blocks[idx]}, nil
		default:
			return nil, ErrRingClosed
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns the consumed slot to the writer. The release
// happens-before the next ReserveWrite of the same slot.
func (h *ReadHandle) Release() {
	select {
	case h.ring.free <- h.idx:
	case <-h.ring.done:
	}
}

// Close shuts the ring down cooperatively: any waiter, present or
// future, is unblocked with ErrRingClosed (after draining whatever was
// already queued for the reader). Safe to call more than once.
func (r *Ring) Close() {
	r.once.Do(func() { close(r.done) })
}
