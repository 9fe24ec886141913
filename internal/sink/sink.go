// Package sink defines the contract the downstream consumer implements
// and a reference implementation used by tests and as the default
// consumer.
package sink

import (
	"fmt"

	"github.com/kiranshila/grex-packet-capture/internal/block"
)

// Sink is the contract the downstream consumer satisfies: consume a
// block by reference and return promptly. A Sink must not retain the
// block past Consume's return; the backing buffer is recycled for the
// next block.
type Sink interface {
	Consume(b *block.Block) error
}

// CountingSink validates block ordering as it consumes: every slot's
// decoded count must equal BlockBase+i, live or drop marker alike. It
// is the reference consumer used by tests and wired as the default
// when no other sink is configured.
type CountingSink struct {
	BlocksConsumed uint64
	PayloadsSeen   uint64
	DropsSeen      uint64
}

// Consume validates ordering across b and updates the running counters.
// It does not retain b past return.
func (s *CountingSink) Consume(b *block.Block) error {
	for i, p := range b.Payloads {
		want := b.BlockBase + uint64(i)
		if got := p.Count(); got != want {
			return fmt.Errorf("sink: slot %d carries count %d, want %d", i, got, want)
		}
		if p.IsDropMarker() {
			s.DropsSeen++
		}
	}
	s.BlocksConsumed++
	s.PayloadsSeen += uint64(len(b.Payloads))
	return nil
}
