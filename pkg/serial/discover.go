package serial

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// DefaultDevicePattern matches the PTY names the emulator allocates when it
// redirects its serial port ("char device redirected to /dev/ttysNNN").
const DefaultDevicePattern = "/dev/ttys*"

// Discover returns the most recently modified device matching pattern. The
// emulator's PTY is almost always the newest tty on the host, so recency is
// the auto-detection heuristic when the operator does not name a path.
func Discover(pattern string) (string, error) {
	if pattern == "" {
		pattern = DefaultDevicePattern
	}

	candidates, err := filepath.Glob(pattern)
	if err != nil {
		return "", fmt.Errorf("scan devices %q: %w", pattern, err)
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no device matches %q", pattern)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return modTime(candidates[i]).After(modTime(candidates[j]))
	})

	return candidates[0], nil
}

// Exists reports whether the device path is still present. The bridge polls
// this during recovery to decide between waiting and giving up.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func modTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
