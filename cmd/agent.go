/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	agentpkg "agentbridge/pkg/agent"
	"agentbridge/pkg/bridge"
	"agentbridge/pkg/config"
	"agentbridge/pkg/provider"
	providertypes "agentbridge/pkg/provider/types"

	"github.com/spf13/cobra"
)

var promptText string

// agentCmd represents the agent command
var agentCmd = &cobra.Command{
	Use:   "agent [prompt]",
	Short: "Send a prompt or start an interactive session",
	Long:  "Runs the task handler locally without the serial line: tool fast paths work offline, everything else goes to the configured provider.",
	Run: func(cmd *cobra.Command, args []string) {
		prompt := resolvePrompt(args)

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}

		client, err := provider.New(cfg)
		if err != nil {
			fmt.Printf("provider unavailable, tools only: %v\n", err)
			client = nil
		}

		handler, err := agentpkg.New(cfg, client, nil)
		if err != nil {
			fmt.Printf("failed to initialize agent: %v\n", err)
			return
		}

		ctx := providertypes.WithToolEventHandler(context.Background(), printToolEvent)
		if client != nil {
			if err := handler.StartSession(ctx, "agentbridge"); err != nil {
				fmt.Printf("provider session not started: %v\n", err)
			}
		}

		if prompt != "" {
			runSinglePrompt(ctx, handler, prompt)
			return
		}

		runInteractive(ctx, handler)
	},
}

func init() {
	rootCmd.AddCommand(agentCmd)
	agentCmd.Flags().StringVarP(&promptText, "prompt", "p", "", "prompt text to send")
}

func resolvePrompt(args []string) string {
	if value := strings.TrimSpace(promptText); value != "" {
		return value
	}

	if len(args) == 0 {
		return ""
	}

	value := strings.TrimSpace(strings.Join(args, " "))
	if value == "" {
		return ""
	}

	return value
}

func runSinglePrompt(ctx context.Context, handler *agentpkg.Handler, prompt string) {
	response, err := handler.Handle(ctx, bridge.Task{ID: 1, Content: prompt})
	if err != nil {
		fmt.Printf("prompt failed: %v\n", err)
		return
	}

	fmt.Println(response)
}

func runInteractive(ctx context.Context, handler *agentpkg.Handler) {
	scanner := bufio.NewScanner(os.Stdin)
	taskID := 0

	for {
		fmt.Print("👨🏻 ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				fmt.Printf("input error: %v\n", err)
			}
			return
		}

		prompt := strings.TrimSpace(scanner.Text())
		if prompt == "" {
			continue
		}
		if isExitCommand(prompt) {
			return
		}

		taskID++
		response, err := handler.Handle(ctx, bridge.Task{ID: taskID, Content: prompt})
		if err != nil {
			fmt.Printf("prompt failed: %v\n", err)
			continue
		}

		printAssistantMessage(response)
	}
}

func printToolEvent(event providertypes.ToolEvent) {
	switch event.Kind {
	case "call":
		fmt.Printf("🔧 %s %s\n", event.Tool, event.Payload)
	case "result":
		fmt.Printf("🔧 %s → %s (%dms)\n", event.Tool, event.Payload, event.DurationMs)
	}
}

func printAssistantMessage(message string) {
	lines := assistantLines(message)
	for _, line := range lines {
		fmt.Printf("📟 %s\n", line)
	}
	if len(lines) > 0 {
		fmt.Println()
	}
}

func assistantLines(message string) []string {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return nil
	}

	return strings.Split(trimmed, "\n")
}

func isExitCommand(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "exit", "quit", ":q":
		return true
	default:
		return false
	}
}
