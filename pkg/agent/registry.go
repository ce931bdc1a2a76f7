package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"agentbridge/pkg/tools/calc"
	"agentbridge/pkg/tools/fs"
	"agentbridge/pkg/tools/mltrain"
)

// Models that cannot drive native tool calling often answer with a bare
// JSON object instead. toolCallRE finds that object anywhere in the text.
var toolCallRE = regexp.MustCompile(`(?s)(\{.*"name":\s*".*?",\s*"parameters":\s*\{.*\}\s*\})`)

type toolCall struct {
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters"`
}

// extractToolCall pulls an embedded {"name":..., "parameters":{...}} object
// out of model text. A match that fails to parse is treated as plain prose.
func extractToolCall(text string) (string, map[string]any, bool) {
	match := toolCallRE.FindStringSubmatch(text)
	if match == nil {
		return "", nil, false
	}

	var call toolCall
	if err := json.Unmarshal([]byte(match[1]), &call); err != nil {
		return "", nil, false
	}
	if strings.TrimSpace(call.Name) == "" {
		return "", nil, false
	}

	return strings.TrimSpace(call.Name), call.Parameters, true
}

// invokeTool executes one named tool with loosely-typed parameters. Tool
// names follow the profile template; unknown names are an error so the
// model's prose survives as the reply.
func (h *Handler) invokeTool(ctx context.Context, name string, params map[string]any) (string, error) {
	switch name {
	case "plot_function":
		return h.plot.Render(stringParam(params, "expression", "instructions", "query"))

	case "calculator":
		return calc.Evaluate(stringParam(params, "expression", "input")), nil

	case "safe_shell_execute":
		command := stringParam(params, "command")
		if command == "" {
			return "", fmt.Errorf("tool %s: missing command parameter", name)
		}
		return h.shell.Execute(ctx, command), nil

	case "build_ml_models":
		return mltrain.Build(stringParam(params, "instructions", "description"))

	case "chess_battle":
		return h.chess.Run(ctx)

	case "play_music":
		return h.music.Play(ctx, stringParam(params, "song"), stringParam(params, "artist")), nil

	case "read_file":
		result, err := h.files.ReadFile(ctx, stringParam(params, "path"))
		if err != nil {
			return "", err
		}
		return result.Content, nil

	case "write_file":
		result, err := h.files.WriteFile(ctx, stringParam(params, "path"), stringParam(params, "content"))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Wrote %d bytes to %s.", result.BytesWritten, result.Path), nil

	case "append_file":
		result, err := h.files.AppendFile(ctx, stringParam(params, "path"), stringParam(params, "content"))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Appended %d bytes to %s.", result.BytesAppended, result.Path), nil

	case "edit_file":
		result, err := h.files.EditFile(ctx, stringParam(params, "path"), stringParam(params, "old_text"), stringParam(params, "new_text"), boolParam(params, "replace_all"))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Replaced %d occurrence(s) in %s.", result.ReplacedCount, result.Path), nil

	case "list_directory":
		result, err := h.files.ListDir(ctx, stringParam(params, "path"))
		if err != nil {
			return "", err
		}
		return formatListing(result), nil

	case "make_directory":
		result, err := h.files.MakeDir(ctx, stringParam(params, "path"))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Created directory: %s", result.Path), nil
	}

	return "", fmt.Errorf("unknown tool %q", name)
}

func formatListing(result fs.ListResult) string {
	if len(result.Entries) == 0 {
		return fmt.Sprintf("%s is empty.", result.Path)
	}

	var b strings.Builder
	for _, entry := range result.Entries {
		if entry.IsDir {
			fmt.Fprintf(&b, "%s/\n", entry.Name)
			continue
		}
		fmt.Fprintf(&b, "%s (%d bytes)\n", entry.Name, entry.Size)
	}
	if result.Truncated {
		fmt.Fprintf(&b, "... %d more entries\n", result.Total-len(result.Entries))
	}

	return strings.TrimRight(b.String(), "\n")
}

func stringParam(params map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := params[key]; ok {
			if s, ok := value.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

func boolParam(params map[string]any, key string) bool {
	value, ok := params[key]
	if !ok {
		return false
	}

	b, ok := value.(bool)
	return ok && b
}
