package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"agentbridge/pkg/agent"
	"agentbridge/pkg/bridge"
	"agentbridge/pkg/bus"
	"agentbridge/pkg/config"
	"agentbridge/pkg/logger"
	"agentbridge/pkg/provider"
	"agentbridge/pkg/serial"
	"agentbridge/pkg/status"
	"agentbridge/pkg/ui/monitor"

	"github.com/spf13/cobra"
)

var withMonitor bool

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Run the serial bridge daemon",
	Long:  "Opens the kernel's serial PTY, dispatches tasks to the agent, and serves health and status endpoints.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}

		appLogger, err := logger.New(cfg.Logging)
		if err != nil {
			fmt.Printf("failed to initialize logger: %v\n", err)
			return
		}
		slog.SetDefault(appLogger)
		log := slog.Default().With("component", "cmd.bridge")

		device, err := resolveDevice(cfg)
		if err != nil {
			log.Error("No serial device", "error", err)
			return
		}

		// A dead provider must not keep the tool fast paths offline; the
		// handler reports "Agent not initialized." on model fallbacks.
		client, err := provider.New(cfg)
		if err != nil {
			log.Warn("Provider unavailable, running tools only", "error", err)
			client = nil
		}

		handler, err := agent.New(cfg, client, log)
		if err != nil {
			log.Error("Failed to initialize agent", "error", err)
			return
		}

		runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if client != nil {
			if err := handler.StartSession(runCtx, "agentbridge"); err != nil {
				log.Warn("Provider session not started, will retry on first task", "error", err)
			}
		}

		eventBus := bus.New()
		defer eventBus.Close()

		link, err := bridge.New(device, handler.Handle, bridge.TuningFromConfig(cfg.Bridge), eventBus, log)
		if err != nil {
			log.Error("Failed to initialize bridge", "error", err)
			return
		}

		statusSvc, err := status.NewService(cfg.Status, link.Stats, client, log)
		if err != nil {
			log.Error("Failed to initialize status service", "error", err)
			return
		}
		go func() {
			if err := statusSvc.Run(runCtx); err != nil {
				log.Error("Status service failed", "error", err)
			}
		}()

		if withMonitor {
			go func() {
				if err := monitor.Run(runCtx, eventBus, link.Stats); err != nil {
					log.Error("Monitor failed", "error", err)
				}
			}()
		} else {
			go observeBridgeEvents(runCtx, eventBus)
		}

		log.Info("Bridge started", "device", device, "provider", cfg.Agents.Defaults.Provider, "model", cfg.Agents.Defaults.Model)
		if err := link.Run(runCtx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Error("Bridge stopped", "error", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(bridgeCmd)
	bridgeCmd.Flags().BoolVar(&withMonitor, "monitor", false, "render the live event monitor instead of event logs")
}

// resolveDevice returns the configured PTY path or auto-detects the newest
// match of the device pattern, the way the emulator workflow expects.
func resolveDevice(cfg *config.Config) (string, error) {
	if device := strings.TrimSpace(cfg.Serial.Device); device != "" {
		return device, nil
	}

	pattern := strings.TrimSpace(cfg.Serial.DevicePattern)
	if pattern == "" {
		pattern = serial.DefaultDevicePattern
	}

	return serial.Discover(pattern)
}

// observeBridgeEvents mirrors bus traffic into the structured log so a
// headless daemon still leaves an operator trail.
func observeBridgeEvents(ctx context.Context, eventBus *bus.Bus) {
	log := slog.Default().With("component", "bus.events")
	events, unsubscribe := eventBus.Subscribe(ctx, 32)
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			logBridgeEvent(log, event)
		}
	}
}

func logBridgeEvent(log *slog.Logger, event bus.Event) {
	// Keep a stable attribute set across event types so logs are easy to
	// grep and correlate by task id.
	attrs := []any{
		"event_type", event.Type,
		"task_id", event.TaskID,
		"device", event.Device,
	}
	if event.MsgType != "" {
		attrs = append(attrs, "msg_type", event.MsgType)
	}
	if event.Detail != "" {
		attrs = append(attrs, "detail", event.Detail)
	}

	switch event.Type {
	case bus.EventTaskFailed, bus.EventRecordMalformed, bus.EventChunkDropped:
		log.Error("Bridge event", append(attrs, "error", event.Error)...)
	case bus.EventBridgeDisconnected, bus.EventBridgeClosed:
		log.Warn("Bridge event", attrs...)
	case bus.EventHeartbeat:
		log.Debug("Bridge event", attrs...)
	default:
		log.Info("Bridge event", attrs...)
	}
}
