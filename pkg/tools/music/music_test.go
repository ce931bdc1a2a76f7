package music

import (
	"context"
	"errors"
	"strings"
	"testing"

	"agentbridge/pkg/config"
)

type recordedCall struct {
	name string
	args []string
}

func newFakeTool(cfg config.MusicConfig, outputs map[string]string, failures map[string]error) (*Tool, *[]recordedCall) {
	calls := &[]recordedCall{}
	tool := New(cfg)
	tool.run = func(ctx context.Context, name string, args ...string) (string, error) {
		*calls = append(*calls, recordedCall{name: name, args: args})
		if err, ok := failures[name]; ok {
			return "", err
		}
		return outputs[name], nil
	}

	return tool, calls
}

func TestPlayDisabled(t *testing.T) {
	tool, calls := newFakeTool(config.MusicConfig{Enabled: false}, nil, nil)

	got := tool.Play(context.Background(), "Song", "")
	if !strings.Contains(got, "disabled") {
		t.Fatalf("Play() = %q, want disabled notice", got)
	}
	if len(*calls) != 0 {
		t.Fatalf("expected no commands, got %d", len(*calls))
	}
}

func TestPlayWithoutSongJustOpensApp(t *testing.T) {
	tool, calls := newFakeTool(config.MusicConfig{Enabled: true}, nil, nil)

	got := tool.Play(context.Background(), "", "")
	if got != "Opened Apple Music app." {
		t.Fatalf("Play() = %q", got)
	}
	if len(*calls) != 1 || (*calls)[0].name != "open" {
		t.Fatalf("unexpected calls: %+v", *calls)
	}
}

func TestPlayFromLibrary(t *testing.T) {
	tool, calls := newFakeTool(config.MusicConfig{Enabled: true}, map[string]string{
		"osascript": "Success",
	}, nil)

	got := tool.Play(context.Background(), "Yesterday", "The Beatles")
	if got != "Playing 'Yesterday' by 'The Beatles' from Library." {
		t.Fatalf("Play() = %q", got)
	}
	if len(*calls) != 2 {
		t.Fatalf("call count = %d, want 2", len(*calls))
	}
	if !strings.Contains((*calls)[1].args[1], "The Beatles") {
		t.Fatalf("script missing artist: %q", (*calls)[1].args[1])
	}
}

func TestPlayFallsBackToSpotlightOnLibraryMiss(t *testing.T) {
	tool, calls := newFakeTool(config.MusicConfig{Enabled: true}, map[string]string{
		"osascript": "Error: Track not found",
	}, nil)

	got := tool.Play(context.Background(), "Obscure Track", "")
	if !strings.Contains(got, "Spotlight/Siri") {
		t.Fatalf("Play() = %q, want spotlight fallback", got)
	}
	// open, library attempt, spotlight fallback
	if len(*calls) != 3 {
		t.Fatalf("call count = %d, want 3", len(*calls))
	}
}

func TestPlayUseSiriSkipsLibrary(t *testing.T) {
	tool, calls := newFakeTool(config.MusicConfig{Enabled: true, UseSiri: true}, nil, nil)

	got := tool.Play(context.Background(), "Song", "Artist")
	if !strings.Contains(got, "Play Song by Artist") {
		t.Fatalf("Play() = %q", got)
	}
	if len(*calls) != 2 {
		t.Fatalf("call count = %d, want 2", len(*calls))
	}
}

func TestPlayReportsLauncherFailure(t *testing.T) {
	tool, _ := newFakeTool(config.MusicConfig{Enabled: true}, nil, map[string]error{
		"open": errors.New("no such app"),
	})

	got := tool.Play(context.Background(), "Song", "")
	if !strings.HasPrefix(got, "Error executing music player:") {
		t.Fatalf("Play() = %q", got)
	}
}

func TestEscapeAppleScript(t *testing.T) {
	if got := escapeAppleScript(`My "Song"`); got != `My \"Song\"` {
		t.Fatalf("escapeAppleScript() = %q", got)
	}
}
