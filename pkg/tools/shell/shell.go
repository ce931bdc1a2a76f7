// Package shell runs allow-listed commands on behalf of the agent.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"

	"agentbridge/pkg/config"
)

const defaultTimeout = 30 * time.Second

// Commands permitted when the config does not provide its own list.
var defaultAllowed = []string{
	"ls", "pwd", "whoami", "df", "free", "mkdir", "touch",
	"echo", "cat", "grep", "date", "uname",
}

type Tool struct {
	allowed map[string]struct{}
	timeout time.Duration
}

func New(cfg config.ExecConfig) *Tool {
	commands := cfg.AllowedCommands
	if len(commands) == 0 {
		commands = defaultAllowed
	}

	allowed := make(map[string]struct{}, len(commands))
	for _, command := range commands {
		if trimmed := strings.TrimSpace(command); trimmed != "" {
			allowed[trimmed] = struct{}{}
		}
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Tool{allowed: allowed, timeout: timeout}
}

// Execute runs the command through the system shell after checking the
// leading token against the allow list. Output and failures both come
// back as user-facing text.
func (t *Tool) Execute(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return fmt.Sprintf("Error: Command '' not allowed for security reasons. Allowed: %s", t.allowedList())
	}
	if _, ok := t.allowed[fields[0]]; !ok {
		return fmt.Sprintf("Error: Command '%s' not allowed for security reasons. Allowed: %s", fields[0], t.allowedList())
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "Error: Command timed out."
	}
	if err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return fmt.Sprintf("Error executing command: %s", detail)
	}

	if output := strings.TrimSpace(stdout.String()); output != "" {
		return output
	}

	return "Command executed successfully."
}

func (t *Tool) allowedList() string {
	names := make([]string, 0, len(t.allowed))
	for name := range t.allowed {
		names = append(names, name)
	}
	sort.Strings(names)

	return strings.Join(names, ", ")
}
