package sink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiranshila/grex-packet-capture/internal/block"
	"github.com/kiranshila/grex-packet-capture/internal/payload"
)

func Test_ConsumeAcceptsOrderedBlock(t *testing.T) {
	b := block.New(4, 16)
	b.BlockBase = 100
	for i := range b.Payloads {
		copy(b.Payloads[i], payload.NewDropMarker(16, 100+uint64(i)))
	}

	s := &CountingSink{}
	require.NoError(t, s.Consume(b))
	assert.Equal(t, uint64(1), s.BlocksConsumed)
	assert.Equal(t, uint64(4), s.PayloadsSeen)
	assert.Equal(t, uint64(4), s.DropsSeen)
}

func Test_ConsumeRejectsOutOfOrderBlock(t *testing.T) {
	b := block.New(4, 16)
	b.BlockBase = 0
	for i := range b.Payloads {
		copy(b.Payloads[i], payload.NewDropMarker(16, uint64(i)))
	}
	// Corrupt slot 2 so it no longer matches BlockBase+2.
	copy(b.Payloads[2], payload.NewDropMarker(16, 999))

	s := &CountingSink{}
	assert.Error(t, s.Consume(b))
}
