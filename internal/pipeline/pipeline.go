// Package pipeline drives the capture thread: core pinning, warm-up,
// the assemble/publish loop, and the shutdown summary.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kiranshila/grex-packet-capture/internal/affinity"
	"github.com/kiranshila/grex-packet-capture/internal/block"
	"github.com/kiranshila/grex-packet-capture/internal/config"
	"github.com/kiranshila/grex-packet-capture/internal/ring"
	"github.com/kiranshila/grex-packet-capture/internal/sink"
	"github.com/kiranshila/grex-packet-capture/internal/socket"
	"github.com/kiranshila/grex-packet-capture/internal/xcapture"
)

// Summary holds the capture thread's final counters and derived drop
// rate, reported once at shutdown.
type Summary struct {
	Drops     uint64
	Processed uint64
	DropRate  float64
}

// String renders the summary as a single diagnostic line.
func (s Summary) String() string {
	return fmt.Sprintf("drops=%d processed=%d drop_rate=%.6f", s.Drops, s.Processed, s.DropRate)
}

// Driver owns the capture thread's lifecycle: pin, construct, warm up,
// loop, shut down.
type Driver struct {
	cfg *config.Config
	log *zap.SugaredLogger
	snk sink.Sink
}

// New returns a Driver that will run according to cfg, logging via log
// and handing finished blocks to snk.
func New(cfg *config.Config, log *zap.SugaredLogger, snk sink.Sink) *Driver {
	return &Driver{cfg: cfg, log: log, snk: snk}
}

// Run pins the calling goroutine's OS thread to the configured capture
// core, opens the endpoint and ring, warms up, then assembles blocks
// until ctx is canceled or cfg.BlockLimit blocks have been produced (0 =
// unbounded). It spawns the consumer on its own pinned goroutine,
// feeding it from the ring, and returns the final Summary once both
// sides have shut down.
func (d *Driver) Run(ctx context.Context) (Summary, error) {
	if err := affinity.Pin(d.cfg.CaptureCoreID); err != nil {
		return Summary{}, err
	}

	ep, err := socket.New(d.cfg.Port, int(d.cfg.RcvBufferBytes))
	if err != nil {
		return Summary{}, err
	}
	defer ep.Close()

	r := ring.New(d.cfg.RingCapacity, d.cfg.BlockSize, d.cfg.PayloadSize)

	d.log.Infow("warming up", "packets", d.cfg.WarmupPackets)
	if err := warmup(ep, d.cfg.PayloadSize, d.cfg.WarmupPackets); err != nil {
		return Summary{}, err
	}
	d.log.Info("warm-up complete")

	consumerDone := make(chan error, 1)
	go func() {
		consumerDone <- runConsumer(ctx, d.cfg.ConsumerCoreID, r, d.snk)
	}()

	asm := block.NewAssembler(ep, d.cfg.PayloadSize, d.cfg.BlockSize, d.cfg.BacklogCapacity)

	var blocksProduced int
	var runErr error
loop:
	for d.cfg.BlockLimit == 0 || blocksProduced < d.cfg.BlockLimit {
		select {
		case <-ctx.Done():
			break loop
		default:
		}

		wh, reserveErr := r.ReserveWrite(ctx)
		if reserveErr != nil {
			break loop
		}

		packetTime, blockTime, asmErr := asm.Assemble(wh.Block)
		if asmErr != nil {
			// A partially assembled block is never published.
			runErr = asmErr
			break loop
		}
		blockBase := wh.Block.BlockBase
		wh.Release()

		d.log.Debugw("block assembled",
			"block_base", blockBase,
			"packet_time", packetTime,
			"block_time", blockTime,
		)
		blocksProduced++
	}

	r.Close()
	<-consumerDone

	summary := Summary{Drops: asm.Drops(), Processed: asm.Processed()}
	if total := summary.Drops + summary.Processed; total > 0 {
		summary.DropRate = float64(summary.Drops) / float64(total)
	}

	d.log.Infow("shutdown", "summary", summary.String())

	return summary, runErr
}

func warmup(recv block.Receiver, payloadSize, count int) error {
	buf := make([]byte, payloadSize)
	for i := 0; i < count; i++ {
		if _, err := recv.Recv(buf); err != nil {
			// Corrupt packets during warm-up are expected and harmless;
			// only a hard I/O error aborts warm-up.
			var sizeErr *xcapture.SizeMismatchError
			if !errors.As(err, &sizeErr) {
				return err
			}
		}
	}
	return nil
}

func runConsumer(ctx context.Context, coreID int, r *ring.Ring, snk sink.Sink) error {
	if err := affinity.Pin(coreID); err != nil {
		return err
	}
	return consume(ctx, r, snk)
}

// consume drains the ring into snk until the ring is closed or ctx is
// canceled.
func consume(ctx context.Context, r *ring.Ring, snk sink.Sink) error {
	for {
		rh, err := r.ReserveRead(ctx)
		if err != nil {
			return nil
		}
		if consumeErr := snk.Consume(rh.Block); consumeErr != nil {
			rh.Release()
			return consumeErr
		}
		rh.Release()
	}
}
