package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"agentbridge/pkg/agent/profile"
	"agentbridge/pkg/bridge"
	"agentbridge/pkg/config"
	"agentbridge/pkg/provider"
	"agentbridge/pkg/tools/calc"
	"agentbridge/pkg/tools/chessbattle"
	"agentbridge/pkg/tools/fs"
	"agentbridge/pkg/tools/mltrain"
	"agentbridge/pkg/tools/music"
	"agentbridge/pkg/tools/plot"
	"agentbridge/pkg/tools/psych"
	"agentbridge/pkg/tools/shell"
	"agentbridge/pkg/workspace"
)

// Handler turns kernel tasks into replies. Common requests are routed to
// the local tools directly; everything else goes to the configured provider
// with the system profile, and the model's answer is re-scanned for an
// embedded tool call to execute locally.
type Handler struct {
	client        provider.Client
	model         string
	systemProfile string
	memory        *Memory
	log           *slog.Logger

	plot  *plot.Tool
	shell *shell.Tool
	music *music.Tool
	chess *chessbattle.Tool
	psych *psych.Tool
	files *fs.Service

	mu        sync.Mutex
	sessionID string
}

var songRE = regexp.MustCompile(`play\s+["']?(.+?)["']?(?:\s+by\s+|$)`)

// New builds a handler from runtime config. The provider client may be nil;
// tool fast paths still work and only the model fallback reports the
// provider as unavailable.
func New(cfg *config.Config, client provider.Client, log *slog.Logger) (*Handler, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if log == nil {
		log = slog.Default()
	}

	systemProfile, err := profile.ResolveSystemProfile(cfg.Agents.Defaults.Provider)
	if err != nil {
		return nil, fmt.Errorf("resolve system profile: %w", err)
	}

	guard, err := workspace.NewGuardWithPolicy(cfg.Agents.Defaults.Workspace, cfg.Agents.Defaults.RestrictToWorkspace)
	if err != nil {
		return nil, fmt.Errorf("prepare workspace: %w", err)
	}

	h := &Handler{
		client:        client,
		model:         strings.TrimSpace(cfg.Agents.Defaults.Model),
		systemProfile: systemProfile,
		memory:        NewMemory(),
		log:           log.With("component", "agent"),
		plot:          plot.New(cfg.Tools.Plot),
		shell:         shell.New(cfg.Tools.Exec),
		music:         music.New(cfg.Tools.Music),
		chess:         chessbattle.New(cfg.Tools.Chess),
		files:         fs.NewService(guard),
	}

	// The evaluation drives the model directly; without a client it stays
	// disabled and reports so.
	var ask psych.AskFunc
	if client != nil {
		ask = h.askModel
	}
	h.psych = psych.New(cfg.Tools.Psych, ask)

	return h, nil
}

// StartSession checks provider health and opens the conversation session.
// Callers may skip it; Handle opens a session lazily on the first model
// fallback.
func (h *Handler) StartSession(ctx context.Context, title string) error {
	if h.client == nil {
		return errors.New("no provider client configured")
	}
	if err := h.client.Health(ctx); err != nil {
		return err
	}

	sessionID, err := h.client.CreateSession(ctx, title)
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.sessionID = sessionID
	h.mu.Unlock()
	return nil
}

// SessionID returns the provider session in use, or "" before the first
// model call.
func (h *Handler) SessionID() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.sessionID
}

// MemorySnapshot copies the conversation transcript recorded so far.
func (h *Handler) MemorySnapshot() []MemoryEntry {
	return h.memory.List()
}

// Handle processes one kernel task. It never returns an empty reply for a
// nil error; the kernel console always has something to print.
func (h *Handler) Handle(ctx context.Context, task bridge.Task) (string, error) {
	content := strings.TrimSpace(task.Content)
	if content == "" {
		return "", errors.New("task content is empty")
	}

	h.memory.Append("user", content)

	reply, err := h.route(ctx, content)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(reply) == "" {
		reply = "No response generated."
	}

	h.memory.Append("assistant", reply)
	return reply, nil
}

// route picks a direct tool for well-known request shapes and falls back to
// the model for everything else.
func (h *Handler) route(ctx context.Context, content string) (string, error) {
	lower := strings.ToLower(content)

	switch {
	case strings.Contains(lower, "plot") && (strings.Contains(lower, "=") || strings.Contains(lower, "sin") || strings.Contains(lower, "cos")):
		h.log.Debug("Routing to plot tool")
		return h.plot.Render(content)

	case strings.Contains(lower, "calculate") || (strings.Contains(lower, "what is") && containsMathOperator(content)):
		h.log.Debug("Routing to calculator")
		expr := strings.ReplaceAll(lower, "what is", "")
		expr = strings.ReplaceAll(expr, "calculate", "")
		return calc.Evaluate(strings.TrimSpace(expr)), nil

	case strings.Contains(lower, "chess"):
		h.log.Debug("Routing to chess battle")
		return h.chess.Run(ctx)

	case strings.Contains(lower, "agent test") || strings.Contains(lower, "psych test") || strings.Contains(lower, "psychology test"):
		h.log.Debug("Routing to agent evaluation")
		return h.psych.Run(ctx)

	case isMLRequest(lower):
		h.log.Debug("Routing to model trainer")
		return mltrain.Build(content)

	case strings.Contains(lower, "music") || strings.Contains(lower, "play"):
		h.log.Debug("Routing to music player")
		song := ""
		if !(strings.Contains(lower, "open") && strings.Contains(lower, "music")) {
			if m := songRE.FindStringSubmatch(lower); m != nil {
				song = strings.TrimSpace(m[1])
			}
		}
		return h.music.Play(ctx, song, ""), nil
	}

	return h.promptModel(ctx, content)
}

// promptModel sends the task to the provider and executes any tool call the
// model embedded in its answer.
func (h *Handler) promptModel(ctx context.Context, content string) (string, error) {
	if h.client == nil {
		return "Agent not initialized.", nil
	}

	sessionID, err := h.ensureSession(ctx)
	if err != nil {
		return "", fmt.Errorf("start provider session: %w", err)
	}

	result, err := h.client.Prompt(ctx, sessionID, content, h.model, h.systemProfile)
	if err != nil {
		return "", err
	}

	reply := result.Text
	if name, params, ok := extractToolCall(reply); ok {
		h.log.Info("Executing tool call from model output", "tool", name)
		if output, execErr := h.invokeTool(ctx, name, params); execErr != nil {
			h.log.Warn("Tool call failed, keeping model text", "tool", name, "error", execErr)
		} else {
			h.memory.Append("tool", output)
			reply = output
		}
	}

	return reply, nil
}

// askModel sends one standalone prompt without the system profile, for
// tools that drive the model directly.
func (h *Handler) askModel(ctx context.Context, prompt string) (string, error) {
	sessionID, err := h.ensureSession(ctx)
	if err != nil {
		return "", err
	}

	result, err := h.client.Prompt(ctx, sessionID, prompt, h.model, "")
	if err != nil {
		return "", err
	}

	return result.Text, nil
}

func (h *Handler) ensureSession(ctx context.Context) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sessionID != "" {
		return h.sessionID, nil
	}

	sessionID, err := h.client.CreateSession(ctx, "agentbridge")
	if err != nil {
		return "", err
	}

	h.sessionID = sessionID
	return sessionID, nil
}

func containsMathOperator(content string) bool {
	for _, op := range []string{"+", "-", "*", "/", "^", "sqrt", "sin", "cos"} {
		if strings.Contains(content, op) {
			return true
		}
	}
	return false
}

func isMLRequest(lower string) bool {
	if !strings.Contains(lower, "model") && !strings.Contains(lower, "pipeline") {
		return false
	}

	return strings.Contains(lower, "ml") ||
		strings.Contains(lower, "machine learning") ||
		strings.Contains(lower, "train")
}
