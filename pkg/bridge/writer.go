package bridge

import (
	"context"
	"errors"
	"fmt"

	"agentbridge/pkg/bus"
	"agentbridge/pkg/serial"
	"agentbridge/pkg/wire"
)

// ErrChunkExhausted reports a chunk whose write retries all would-block.
// Only surfaced when Tuning.FailOnChunkLoss is set; the default mode drops
// the chunk, logs it, and moves on, matching the reference transport.
var ErrChunkExhausted = errors.New("bridge: chunk write retries exhausted")

// writeEnvelope serializes one envelope and delivers it through the paced
// writer.
func (b *Bridge) writeEnvelope(ctx context.Context, port devicePort, e wire.Envelope) error {
	return b.pacedWrite(ctx, port, []byte(wire.Encode(e)))
}

// pacedWrite pushes data through the line in ChunkSize slices, pausing
// InterChunkDelay after each so the kernel FIFO drains before more bytes
// arrive. Within a chunk, a would-block write backs off and retries up to
// WriteRetries times. Disconnection aborts the whole send immediately.
func (b *Bridge) pacedWrite(ctx context.Context, port devicePort, data []byte) error {
	for offset := 0; offset < len(data); offset += b.tuning.ChunkSize {
		end := offset + b.tuning.ChunkSize
		if end > len(data) {
			end = len(data)
		}

		if err := b.writeChunk(ctx, port, data[offset:end]); err != nil {
			return err
		}

		if err := sleepFor(ctx, b.tuning.InterChunkDelay); err != nil {
			return err
		}
	}

	return nil
}

func (b *Bridge) writeChunk(ctx context.Context, port devicePort, chunk []byte) error {
	written := 0
	retries := b.tuning.WriteRetries

	for written < len(chunk) {
		n, err := port.Write(chunk[written:])
		if err == nil {
			written += n
			continue
		}

		if !errors.Is(err, serial.ErrWouldBlock) {
			return fmt.Errorf("write chunk: %w", err)
		}

		if retries <= 0 {
			b.recordChunkLoss(ctx, len(chunk)-written)
			if b.tuning.FailOnChunkLoss {
				return ErrChunkExhausted
			}
			return nil
		}
		retries--

		if err := sleepFor(ctx, b.tuning.WriteRetryBackoff); err != nil {
			return err
		}
	}

	return nil
}

func (b *Bridge) recordChunkLoss(ctx context.Context, lostBytes int) {
	b.mu.Lock()
	b.stats.ChunksDropped++
	b.mu.Unlock()

	b.log.Warn("Chunk retries exhausted, receiver not draining", "lost_bytes", lostBytes)
	b.bus.Publish(ctx, bus.Event{
		Type:   bus.EventChunkDropped,
		Device: b.devicePath,
		Detail: fmt.Sprintf("%d bytes lost", lostBytes),
	})
}
