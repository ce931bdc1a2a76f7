package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"agentbridge/pkg/bus"
	"agentbridge/pkg/serial"
	"agentbridge/pkg/wire"
)

// State names the bridge's position in its lifecycle.
type State string

const (
	StateConnecting State = "connecting"
	StateConnected  State = "connected"
	StateRecovering State = "recovering"
	StateClosed     State = "closed"
)

// Task is one decoded task envelope handed to the handler. The ID must come
// back unchanged on the correlated reply; the bridge takes care of that.
type Task struct {
	ID      int
	Content string
}

// Handler processes one task and returns a result for the kernel. The
// result may carry a GUI payload tag; the bridge classifies it but never
// parses the payload itself. A handler error still produces a reply, so the
// kernel gets exactly one answer for every task it sent.
type Handler func(ctx context.Context, task Task) (string, error)

// Stats is a point-in-time snapshot of bridge counters for the status
// service and the monitor.
type Stats struct {
	State            State     `json:"state"`
	Device           string    `json:"device"`
	TasksReceived    uint64    `json:"tasks_received"`
	RepliesSent      uint64    `json:"replies_sent"`
	StreamsSent      uint64    `json:"streams_sent"`
	MalformedRecords uint64    `json:"malformed_records"`
	ChunksDropped    uint64    `json:"chunks_dropped"`
	Reconnects       uint64    `json:"reconnects"`
	PendingBytes     int       `json:"pending_bytes"`
	StartedAt        time.Time `json:"started_at,omitzero"`
	LastHeartbeatAt  time.Time `json:"last_heartbeat_at,omitzero"`
}

// devicePort is the slice of *serial.Port the loop needs; tests substitute
// a scripted fake.
type devicePort interface {
	Read([]byte) (int, error)
	Write([]byte) (int, error)
	Close() error
}

// Bridge runs the serial message loop: poll the device, frame records,
// dispatch tasks, pace replies back out. Single control flow; the port is
// owned exclusively for the bridge's lifetime and at most one handler call
// is ever in flight.
type Bridge struct {
	devicePath string
	handler    Handler
	tuning     Tuning
	bus        *bus.Bus
	log        *slog.Logger

	// Seams for tests.
	open   func(path string) (devicePort, error)
	exists func(path string) bool

	framer wire.Framer

	mu    sync.RWMutex
	stats Stats
}

// New validates the wiring and returns a bridge ready to Run.
func New(devicePath string, handler Handler, tuning Tuning, eventBus *bus.Bus, log *slog.Logger) (*Bridge, error) {
	devicePath = strings.TrimSpace(devicePath)
	if devicePath == "" {
		return nil, errors.New("device path is required")
	}
	if handler == nil {
		return nil, errors.New("handler is required")
	}
	if eventBus == nil {
		eventBus = bus.New()
	}
	if log == nil {
		log = slog.Default()
	}

	return &Bridge{
		devicePath: devicePath,
		handler:    handler,
		tuning:     tuning.normalized(),
		bus:        eventBus,
		log:        log.With("component", "bridge"),
		open: func(path string) (devicePort, error) {
			return serial.Open(path)
		},
		exists: serial.Exists,
		stats:  Stats{State: StateConnecting, Device: devicePath},
	}, nil
}

// Stats returns a snapshot of the current counters.
func (b *Bridge) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.stats
}

// Run drives the bridge until the context ends or the transport is gone
// for good. The device is opened once and closed on every exit path;
// disconnection does not reopen it, the same descriptor resumes once the
// device path is seen again.
func (b *Bridge) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	port, err := b.connect(ctx)
	if err != nil {
		b.setState(StateClosed)
		return err
	}
	defer func() {
		_ = port.Close()
		b.setState(StateClosed)
		b.bus.Publish(context.WithoutCancel(ctx), bus.Event{Type: bus.EventBridgeClosed, Device: b.devicePath})
	}()

	b.mu.Lock()
	b.stats.StartedAt = time.Now().UTC()
	b.mu.Unlock()

	b.setState(StateConnected)
	b.log.Info("Bridge connected", "device", b.devicePath)
	b.bus.Publish(ctx, bus.Event{Type: bus.EventBridgeConnected, Device: b.devicePath})

	readBuf := make([]byte, readBufferSize)
	lastHeartbeat := time.Now()

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		n, readErr := port.Read(readBuf)
		switch {
		case readErr == nil:
			if err := b.drainRecords(ctx, port, readBuf[:n]); err != nil {
				if errors.Is(err, serial.ErrDisconnected) {
					if recErr := b.recover(ctx); recErr != nil {
						return recErr
					}
					continue
				}
				return err
			}
		case errors.Is(readErr, serial.ErrWouldBlock):
			// Idle; nothing arrived this poll.
		case errors.Is(readErr, serial.ErrDisconnected):
			if err := b.recover(ctx); err != nil {
				return err
			}
			continue
		default:
			return fmt.Errorf("read device: %w", readErr)
		}

		if time.Since(lastHeartbeat) >= b.tuning.HeartbeatInterval {
			lastHeartbeat = time.Now()
			b.heartbeat(ctx)
		}

		if err := sleepFor(ctx, b.tuning.PollInterval); err != nil {
			return nil
		}
	}
}

// connect opens the device, retrying while it is present but unopenable
// (the emulator may still be wiring up its end). A missing device path is
// unrecoverable at startup.
func (b *Bridge) connect(ctx context.Context) (devicePort, error) {
	b.setState(StateConnecting)

	for {
		if !b.exists(b.devicePath) {
			return nil, fmt.Errorf("transport unavailable: device %s does not exist", b.devicePath)
		}

		port, err := b.open(b.devicePath)
		if err == nil {
			return port, nil
		}

		b.log.Warn("Device open failed, retrying", "device", b.devicePath, "error", err)
		if sleepErr := sleepFor(ctx, b.tuning.ReconnectInterval); sleepErr != nil {
			return nil, fmt.Errorf("open %s: %w", b.devicePath, err)
		}
	}
}

// recover waits out a disconnection. If the device path survives, the loop
// resumes on the same descriptor with the framer's carry-over intact; if
// the path is gone the transport is finished and the bridge exits.
func (b *Bridge) recover(ctx context.Context) error {
	b.setState(StateRecovering)
	b.log.Warn("Device disconnected, waiting for it to return", "device", b.devicePath)
	b.bus.Publish(ctx, bus.Event{Type: bus.EventBridgeDisconnected, Device: b.devicePath})

	if err := sleepFor(ctx, b.tuning.ReconnectInterval); err != nil {
		return nil
	}

	if !b.exists(b.devicePath) {
		return fmt.Errorf("transport unavailable: device %s is gone", b.devicePath)
	}

	b.mu.Lock()
	b.stats.Reconnects++
	b.mu.Unlock()

	b.setState(StateConnected)
	b.log.Info("Device back, resuming", "device", b.devicePath, "pending_bytes", b.framer.Pending())
	b.bus.Publish(ctx, bus.Event{Type: bus.EventBridgeRecovered, Device: b.devicePath})
	return nil
}

// drainRecords feeds fresh bytes to the framer and processes every record
// that completed. Only transport errors escape; malformed records and
// handler failures are contained per record.
func (b *Bridge) drainRecords(ctx context.Context, port devicePort, data []byte) error {
	records := b.framer.Feed(data)

	// The framer is owned by the run loop; the shared stats copy of its
	// carry-over is what other goroutines read.
	b.mu.Lock()
	b.stats.PendingBytes = b.framer.Pending()
	b.mu.Unlock()

	for _, record := range records {
		envelope, err := wire.Decode(record)
		if err != nil {
			b.mu.Lock()
			b.stats.MalformedRecords++
			b.mu.Unlock()

			b.log.Warn("Dropping malformed record", "error", err, "record_length", len(record))
			b.bus.Publish(ctx, bus.Event{Type: bus.EventRecordMalformed, Device: b.devicePath, Error: err.Error()})
			continue
		}

		if envelope.MsgType != wire.MsgTypeTask {
			b.log.Debug("Ignoring non-task message", "msg_type", envelope.MsgType, "id", envelope.ID)
			continue
		}

		if err := b.dispatchTask(ctx, port, Task{ID: envelope.ID, Content: envelope.Content}); err != nil {
			return err
		}
	}

	return nil
}

// dispatchTask runs the handler synchronously and sends exactly one
// correlated reply. The handler gets a send capability for out-of-band
// streaming; both paths share the paced writer, so stream and reply bytes
// never interleave.
func (b *Bridge) dispatchTask(ctx context.Context, port devicePort, task Task) error {
	b.mu.Lock()
	b.stats.TasksReceived++
	b.mu.Unlock()

	b.log.Info("Task received", "id", task.ID, "content", previewText(task.Content))
	b.bus.Publish(ctx, bus.Event{Type: bus.EventTaskReceived, TaskID: task.ID, Detail: previewText(task.Content)})

	taskCtx := WithSender(ctx, func(e wire.Envelope) error {
		if err := b.writeEnvelope(ctx, port, e); err != nil {
			return err
		}

		b.mu.Lock()
		b.stats.StreamsSent++
		b.mu.Unlock()
		b.bus.Publish(ctx, bus.Event{Type: bus.EventStreamSent, TaskID: e.ID, MsgType: e.MsgType})
		return nil
	})

	result, handlerErr := b.handler(taskCtx, task)
	if handlerErr != nil {
		// The kernel always gets a correlated reply, even for a failed
		// task; the failure rides the normal response path.
		result = "Agent error: " + handlerErr.Error()
		b.log.Error("Task handler failed", "id", task.ID, "error", handlerErr)
		b.bus.Publish(ctx, bus.Event{Type: bus.EventTaskFailed, TaskID: task.ID, Error: handlerErr.Error()})
	} else {
		b.bus.Publish(ctx, bus.Event{Type: bus.EventTaskCompleted, TaskID: task.ID})
	}

	msgType, content := wire.Classify(result)
	reply := wire.Envelope{
		ID:      task.ID,
		Target:  wire.TargetShell,
		MsgType: msgType,
		Content: content,
	}

	if err := b.writeEnvelope(ctx, port, reply); err != nil {
		return err
	}

	b.mu.Lock()
	b.stats.RepliesSent++
	b.mu.Unlock()

	b.log.Info("Reply sent", "id", task.ID, "msg_type", msgType, "content_length", len(content))
	b.bus.Publish(ctx, bus.Event{Type: bus.EventReplySent, TaskID: task.ID, MsgType: msgType})
	return nil
}

// heartbeat emits the periodic liveness marker that distinguishes an idle
// healthy bridge from a stuck one.
func (b *Bridge) heartbeat(ctx context.Context) {
	b.mu.Lock()
	b.stats.LastHeartbeatAt = time.Now().UTC()
	stats := b.stats
	b.mu.Unlock()

	b.log.Debug("Bridge alive", "tasks", stats.TasksReceived, "replies", stats.RepliesSent, "pending_bytes", stats.PendingBytes)
	b.bus.Publish(ctx, bus.Event{Type: bus.EventHeartbeat, Device: b.devicePath})
}

func (b *Bridge) setState(state State) {
	b.mu.Lock()
	b.stats.State = state
	b.mu.Unlock()
}

func previewText(text string) string {
	const previewLimit = 120

	text = strings.TrimSpace(text)
	if len(text) <= previewLimit {
		return text
	}

	return text[:previewLimit] + "..."
}

// sleepFor is a context-aware sleep; all bridge pacing goes through it so
// shutdown never waits out a delay.
func sleepFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
