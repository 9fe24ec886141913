package pipeline

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiranshila/grex-packet-capture/internal/block"
	"github.com/kiranshila/grex-packet-capture/internal/ring"
	"github.com/kiranshila/grex-packet-capture/internal/sink"
	"github.com/kiranshila/grex-packet-capture/internal/xcapture"
)

const testPayloadSize = 16

// fakeReceiver replays a scripted count sequence; a negative entry is
// delivered as a corrupt (short) datagram.
type fakeReceiver struct {
	counts []int64
	idx    int
}

func (f *fakeReceiver) Recv(buf []byte) (int, error) {
	if f.idx >= len(f.counts) {
		panic("fakeReceiver: script exhausted")
	}
	c := f.counts[f.idx]
	f.idx++

	if c < 0 {
		return len(buf) - 1, &xcapture.SizeMismatchError{N: len(buf) - 1}
	}

	binary.BigEndian.PutUint64(buf[0:8], uint64(c))
	// A nonzero body byte marks the payload as live data rather than a
	// synthesised gap.
	buf[8] = 0xAB
	return len(buf), nil
}

func Test_SummaryString(t *testing.T) {
	s := Summary{Drops: 3, Processed: 7, DropRate: 0.3}
	assert.Equal(t, "drops=3 processed=7 drop_rate=0.300000", s.String())
}

func Test_WarmupDiscardsCountAndCorruptPacketsAlike(t *testing.T) {
	recv := &fakeReceiver{counts: []int64{5, -1, 6, 7}}

	require.NoError(t, warmup(recv, testPayloadSize, 4))
	assert.Equal(t, 4, recv.idx)
}

// The full producer/consumer hand-off: the assembler publishes blocks
// through the ring while the consumer drains them into a CountingSink
// on another goroutine, and a close after the last block lets the
// consumer finish cleanly.
func Test_ProduceConsumeHandOff(t *testing.T) {
	const blockSize = 4
	const numBlocks = 3

	counts := make([]int64, blockSize*numBlocks)
	for i := range counts {
		counts[i] = int64(i)
	}
	recv := &fakeReceiver{counts: counts}
	asm := block.NewAssembler(recv, testPayloadSize, blockSize, blockSize)
	r := ring.New(2, blockSize, testPayloadSize)
	ctx := context.Background()

	snk := &sink.CountingSink{}
	consumerDone := make(chan error, 1)
	go func() {
		consumerDone <- consume(ctx, r, snk)
	}()

	for i := 0; i < numBlocks; i++ {
		wh, err := r.ReserveWrite(ctx)
		require.NoError(t, err)
		_, _, err = asm.Assemble(wh.Block)
		require.NoError(t, err)
		wh.Release()
	}

	r.Close()
	require.NoError(t, <-consumerDone)

	assert.Equal(t, uint64(numBlocks), snk.BlocksConsumed)
	assert.Equal(t, uint64(blockSize*numBlocks), snk.PayloadsSeen)
	assert.Equal(t, uint64(0), snk.DropsSeen)
}

// A sink error stops the consumer and surfaces the error.
type rejectingSink struct{}

func (rejectingSink) Consume(*block.Block) error {
	return assert.AnError
}

func Test_ConsumeStopsOnSinkError(t *testing.T) {
	const blockSize = 4

	r := ring.New(1, blockSize, testPayloadSize)
	ctx := context.Background()

	wh, err := r.ReserveWrite(ctx)
	require.NoError(t, err)
	wh.Release()

	err = consume(ctx, r, rejectingSink{})
	assert.ErrorIs(t, err, assert.AnError)
}
