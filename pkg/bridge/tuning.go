package bridge

import (
	"time"

	"agentbridge/pkg/config"
)

// Transport pacing defaults. The kernel drains its UART through a 16-byte
// hardware FIFO at a 115200-baud-equivalent rate (~11 KB/s), with no flow
// control back to us; a 32-byte chunk followed by a 20 ms pause keeps the
// sender comfortably under the drain rate.
const (
	DefaultChunkSize         = 32
	DefaultInterChunkDelay   = 20 * time.Millisecond
	DefaultWriteRetryBackoff = 10 * time.Millisecond
	DefaultWriteRetries      = 3
	DefaultPollInterval      = 10 * time.Millisecond
	DefaultReconnectInterval = 2 * time.Second
	DefaultHeartbeatInterval = 10 * time.Second

	readBufferSize = 4096
)

// Tuning carries the transport constants, all operator-configurable.
type Tuning struct {
	// ChunkSize caps each paced write in bytes.
	ChunkSize int
	// InterChunkDelay is the pause after each chunk while the receiver drains.
	InterChunkDelay time.Duration
	// WriteRetryBackoff is the pause before retrying a chunk that would block.
	WriteRetryBackoff time.Duration
	// WriteRetries bounds retry attempts per chunk.
	WriteRetries int
	// PollInterval is the idle sleep between read attempts.
	PollInterval time.Duration
	// ReconnectInterval is the wait used while connecting and recovering.
	ReconnectInterval time.Duration
	// HeartbeatInterval spaces the liveness markers emitted while connected.
	HeartbeatInterval time.Duration
	// FailOnChunkLoss aborts a send when a chunk exhausts its retries.
	// Default false matches the reference best-effort behavior; the loss is
	// still logged and counted.
	FailOnChunkLoss bool
}

// DefaultTuning returns the reference transport constants.
func DefaultTuning() Tuning {
	return Tuning{
		ChunkSize:         DefaultChunkSize,
		InterChunkDelay:   DefaultInterChunkDelay,
		WriteRetryBackoff: DefaultWriteRetryBackoff,
		WriteRetries:      DefaultWriteRetries,
		PollInterval:      DefaultPollInterval,
		ReconnectInterval: DefaultReconnectInterval,
		HeartbeatInterval: DefaultHeartbeatInterval,
	}
}

// TuningFromConfig maps the bridge config section onto transport constants,
// leaving unset knobs at their reference defaults.
func TuningFromConfig(cfg config.BridgeConfig) Tuning {
	return Tuning{
		ChunkSize:         cfg.ChunkSize,
		InterChunkDelay:   time.Duration(cfg.InterChunkDelayMs) * time.Millisecond,
		WriteRetryBackoff: time.Duration(cfg.WriteRetryBackoffMs) * time.Millisecond,
		WriteRetries:      cfg.WriteRetries,
		PollInterval:      time.Duration(cfg.PollIntervalMs) * time.Millisecond,
		ReconnectInterval: time.Duration(cfg.ReconnectIntervalMs) * time.Millisecond,
		HeartbeatInterval: time.Duration(cfg.HeartbeatIntervalSec) * time.Second,
		FailOnChunkLoss:   cfg.FailOnChunkLoss,
	}.normalized()
}

// normalized fills zero values with defaults so a partial config cannot
// produce a spinning loop or unchunked writes.
func (t Tuning) normalized() Tuning {
	defaults := DefaultTuning()
	if t.ChunkSize <= 0 {
		t.ChunkSize = defaults.ChunkSize
	}
	if t.InterChunkDelay <= 0 {
		t.InterChunkDelay = defaults.InterChunkDelay
	}
	if t.WriteRetryBackoff <= 0 {
		t.WriteRetryBackoff = defaults.WriteRetryBackoff
	}
	if t.WriteRetries <= 0 {
		t.WriteRetries = defaults.WriteRetries
	}
	if t.PollInterval <= 0 {
		t.PollInterval = defaults.PollInterval
	}
	if t.ReconnectInterval <= 0 {
		t.ReconnectInterval = defaults.ReconnectInterval
	}
	if t.HeartbeatInterval <= 0 {
		t.HeartbeatInterval = defaults.HeartbeatInterval
	}
	return t
}
