package provider

import (
	"context"
	"fmt"
	"log/slog"

	"agentbridge/pkg/config"
	providerfantasy "agentbridge/pkg/provider/fantasy"
	provideropenai "agentbridge/pkg/provider/openai"
	"agentbridge/pkg/provider/opencode"
	providertypes "agentbridge/pkg/provider/types"
)

// Client is the minimal surface the task handler needs from a model backend.
//
// A session groups related prompts so providers with server-side conversation
// state can thread history; providers without it keep history locally.
type Client interface {
	Health(ctx context.Context) error
	CreateSession(ctx context.Context, title string) (string, error)
	Prompt(ctx context.Context, sessionID string, prompt string, model string, systemPrompt string) (providertypes.PromptResult, error)
}

// New resolves the configured provider client.
func New(cfg *config.Config) (Client, error) {
	providerID := cfg.Agents.Defaults.Provider
	if providerID == "" {
		providerID = "opencode"
	}

	slog.Default().With("component", "provider.factory").Debug("Resolving provider client", "provider", providerID)

	switch providerID {
	case "opencode":
		return opencode.New(cfg)
	case "openai":
		return provideropenai.New(cfg)
	case "fantasy":
		return providerfantasy.New(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", providerID)
	}
}
