// Package music drives the macOS Music app through osascript, with a
// Spotlight/Siri fallback for tracks outside the local library.
package music

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"agentbridge/pkg/config"
)

type runner func(ctx context.Context, name string, args ...string) (string, error)

type Tool struct {
	enabled bool
	useSiri bool
	run     runner
}

func New(cfg config.MusicConfig) *Tool {
	return &Tool{
		enabled: cfg.Enabled,
		useSiri: cfg.UseSiri,
		run:     runCommand,
	}
}

// Play opens the Music app and, when a song is given, tries a direct
// library play first. Any library miss falls back to a Spotlight query,
// which handles natural-language requests the way Siri does.
func (t *Tool) Play(ctx context.Context, song string, artist string) string {
	if !t.enabled {
		return "Music control is disabled on this host."
	}

	if _, err := t.run(ctx, "open", "-a", "Music"); err != nil {
		return fmt.Sprintf("Error executing music player: %v", err)
	}

	song = strings.TrimSpace(song)
	artist = strings.TrimSpace(artist)
	if song == "" {
		return "Opened Apple Music app."
	}

	if t.useSiri {
		return t.spotlightPlay(ctx, song, artist)
	}

	output, err := t.run(ctx, "osascript", "-e", libraryPlayScript(song, artist))
	if err == nil && strings.Contains(output, "Success") {
		if artist != "" {
			return fmt.Sprintf("Playing '%s' by '%s' from Library.", song, artist)
		}
		return fmt.Sprintf("Playing '%s' from Library.", song)
	}

	return t.spotlightPlay(ctx, song, artist)
}

func (t *Tool) spotlightPlay(ctx context.Context, song string, artist string) string {
	query := "Play " + song
	if artist != "" {
		query += " by " + artist
	}

	if _, err := t.run(ctx, "osascript", "-e", spotlightScript(query)); err != nil {
		return fmt.Sprintf("Error executing music player: %v", err)
	}

	return fmt.Sprintf("Sent command to Spotlight/Siri: '%s'.", query)
}

func libraryPlayScript(song string, artist string) string {
	songSafe := escapeAppleScript(song)
	if artist != "" {
		artistSafe := escapeAppleScript(artist)
		return fmt.Sprintf(`tell application "Music"
	try
		set trackToPlay to (first track whose name is "%s" and artist is "%s")
		play trackToPlay
		return "Success"
	on error
		return "Error: Track not found"
	end try
end tell`, songSafe, artistSafe)
	}

	return fmt.Sprintf(`tell application "Music"
	try
		play track "%s"
		return "Success"
	on error
		return "Error: Track not found"
	end try
end tell`, songSafe)
}

// spotlightScript types a natural-language query into Spotlight. Key
// code 49 is the space bar.
func spotlightScript(query string) string {
	return fmt.Sprintf(`tell application "System Events"
	key code 49 using command down
	delay 1.0
	keystroke "%s"
	delay 1.0
	keystroke return
end tell`, escapeAppleScript(query))
}

func escapeAppleScript(value string) string {
	return strings.ReplaceAll(value, `"`, `\"`)
}

func runCommand(ctx context.Context, name string, args ...string) (string, error) {
	output, err := exec.CommandContext(ctx, name, args...).Output()
	return strings.TrimSpace(string(output)), err
}
