package monitor

import (
	"context"
	"fmt"

	"agentbridge/pkg/bridge"
	"agentbridge/pkg/bus"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Run renders the live monitor until the user quits or the context ends.
// The subscription is scoped to ctx so the bridge never blocks on a dead
// monitor.
func Run(ctx context.Context, eventBus *bus.Bus, statsFn func() bridge.Stats) error {
	if eventBus == nil {
		return fmt.Errorf("event bus is required")
	}
	if statsFn == nil {
		return fmt.Errorf("stats source is required")
	}

	events, unsubscribe := eventBus.Subscribe(ctx, 256)
	defer unsubscribe()

	model := newModel(events, statsFn)
	program := tea.NewProgram(model, tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return err
	}

	fmt.Print("\033[H\033[2J")
	fmt.Println(renderGoodbyeBanner())
	return nil
}

func renderGoodbyeBanner() string {
	style := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("230")).
		Background(lipgloss.Color("88")).
		Padding(1, 2)

	return style.Render("📟 AgentBridge monitor closed")
}
