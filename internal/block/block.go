// Package block implements the fixed-size, gap-filled block and the
// stateful assembler that produces one per call.
package block

import (
	"errors"
	"time"

	"github.com/kiranshila/grex-packet-capture/common/bitset"
	"github.com/kiranshila/grex-packet-capture/internal/backlog"
	"github.com/kiranshila/grex-packet-capture/internal/payload"
	"github.com/kiranshila/grex-packet-capture/internal/xcapture"
)

// Receiver is the capture source an Assembler pulls datagrams from.
// *socket.Endpoint satisfies it; tests substitute a fake source to
// drive scripted count sequences without a real socket.
type Receiver interface {
	Recv(buf []byte) (int, error)
}

// Block is a fixed-size, ordered sequence of payloads. It is
// pre-allocated once by New and reused across assembles: the Block Ring
// publishes and recycles the same backing slice, so no per-block
// allocation happens in steady state.
type Block struct {
	// BlockBase is the count assigned to slot 0.
	BlockBase uint64
	// Payloads holds exactly B payload slots.
	Payloads []payload.Payload
}

// New returns a Block with blockSize payload slots, each payloadSize
// bytes, pre-allocated and zero-initialised.
func New(blockSize, payloadSize int) *Block {
	b := &Block{
		Payloads: make([]payload.Payload, blockSize),
	}
	for i := range b.Payloads {
		b.Payloads[i] = payload.New(payloadSize)
	}
	return b
}

// Assembler maintains the running (block_base, first_packet, backlog,
// drops, processed) state across calls to Assemble.
type Assembler struct {
	endpoint    Receiver
	backlog     *backlog.Backlog
	payloadSize int
	blockSize   int

	blockBase   uint64
	firstPacket bool
	drops       uint64
	processed   uint64

	// scratch and toFill are reused across assembles so the steady
	// state allocates nothing per block.
	scratch payload.Payload
	toFill  *bitset.Bitset
}

// NewAssembler constructs an Assembler reading datagrams from endpoint,
// assembling blockSize-payload blocks of payloadSize bytes, recovering
// reordering via a backlog of the given capacity.
//
// The first count ever observed seeds the block base; the warm-up drain
// exists to make that first-seen packet representative.
func NewAssembler(endpoint Receiver, payloadSize, blockSize, backlogCapacity int) *Assembler {
	return &Assembler{
		endpoint:    endpoint,
		backlog:     backlog.New(backlogCapacity),
		payloadSize: payloadSize,
		blockSize:   blockSize,
		firstPacket: true,
		scratch:     payload.New(payloadSize),
		toFill:      bitset.New(blockSize),
	}
}

// Drops reports the number of count positions filled with a synthesised
// drop marker plus the number of packets discarded as past the current
// block window so far. Read-only outside the capture thread.
func (a *Assembler) Drops() uint64 { return a.drops }

// Processed reports the number of count positions filled from a live or
// backlogged capture so far. Read-only outside the capture thread.
func (a *Assembler) Processed() uint64 { return a.processed }

// Assemble fills block with exactly blockSize ordered payloads: slot i
// carries the payload whose count is block_base+i, or a synthesised
// drop marker for that count. Returns the accumulated per-packet
// capture time and the finalize-phase time.
func (a *Assembler) Assemble(block *Block) (packetTime, blockTime time.Duration, err error) {
	toFill := a.toFill
	toFill.SetAll()
	block.BlockBase = a.blockBase

	for captured := 0; captured < a.blockSize; {
		if _, recvErr := a.endpoint.Recv(a.scratch); recvErr != nil {
			var sizeErr *xcapture.SizeMismatchError
			if errors.As(recvErr, &sizeErr) {
				// Corrupt packet: discarded without consuming a slot or
				// incrementing either counter.
				continue
			}
			return packetTime, blockTime, recvErr
		}

		packetStart := time.Now()

		c := a.scratch.Count()

		if a.firstPacket {
			a.blockBase = c
			block.BlockBase = c
			a.firstPacket = false
		}

		switch {
		case c < a.blockBase:
			// Past: the block window has already moved beyond this count.
			a.drops++

		case c >= a.blockBase+uint64(a.blockSize):
			// Future: stash for a later block's window.
			if insErr := a.backlog.Insert(c, cloneOf(a.scratch, a.payloadSize)); insErr != nil {
				return packetTime, blockTime, insErr
			}

		default:
			idx := uint32(c - a.blockBase)
			toFill.Clear(idx)
			copy(block.Payloads[idx], a.scratch)
			a.processed++
		}

		packetTime += time.Since(packetStart)
		captured++
	}

	blockStart := time.Now()

	toFill.Traverse(func(idx uint32) bool {
		expected := a.blockBase + uint64(idx)
		if p, ok := a.backlog.Take(expected); ok {
			copy(block.Payloads[idx], p)
			a.processed++
		} else {
			block.Payloads[idx].SetDropMarker(expected)
			a.drops++
		}
		toFill.Clear(idx)
		return true
	})

	blockTime = time.Since(blockStart)

	a.blockBase += uint64(a.blockSize)

	return packetTime, blockTime, nil
}

func cloneOf(p payload.Payload, size int) payload.Payload {
	c := payload.New(size)
	copy(c, p)
	return c
}
