package monitor

import (
	"strings"
	"testing"
	"time"

	"agentbridge/pkg/bridge"
	"agentbridge/pkg/bus"

	tea "github.com/charmbracelet/bubbletea"
)

func testStats() bridge.Stats {
	return bridge.Stats{State: bridge.StateConnected, Device: "/dev/ttys003", TasksReceived: 2, RepliesSent: 2}
}

func newTestModel() *model {
	events := make(chan bus.Event)
	return newModel(events, testStats)
}

func TestApplyEventTracksTaskActivity(t *testing.T) {
	t.Parallel()

	m := newTestModel()

	m.applyEvent(bus.Event{Type: bus.EventTaskReceived, TaskID: 7, At: time.Now()})
	if !m.taskBusy {
		t.Fatal("expected taskBusy after task_received")
	}

	m.applyEvent(bus.Event{Type: bus.EventTaskCompleted, TaskID: 7, At: time.Now()})
	if m.taskBusy {
		t.Fatal("expected taskBusy cleared after task_completed")
	}
	if len(m.lines) != 2 {
		t.Fatalf("len(lines) = %d, want 2", len(m.lines))
	}
}

func TestApplyEventSkipsHeartbeats(t *testing.T) {
	t.Parallel()

	m := newTestModel()
	m.applyEvent(bus.Event{Type: bus.EventHeartbeat, At: time.Now()})

	if len(m.lines) != 0 {
		t.Fatalf("len(lines) = %d, want 0", len(m.lines))
	}
}

func TestApplyEventBoundsLogLength(t *testing.T) {
	t.Parallel()

	m := newTestModel()
	for i := 0; i < maxLogLines+25; i++ {
		m.applyEvent(bus.Event{Type: bus.EventReplySent, TaskID: i, At: time.Now()})
	}

	if len(m.lines) != maxLogLines {
		t.Fatalf("len(lines) = %d, want %d", len(m.lines), maxLogLines)
	}
	if got := m.lines[len(m.lines)-1].event.TaskID; got != maxLogLines+24 {
		t.Fatalf("last TaskID = %d, want %d", got, maxLogLines+24)
	}
}

func TestDescribeEvent(t *testing.T) {
	t.Parallel()

	got := describeEvent(bus.Event{Type: bus.EventReplySent, TaskID: 3, MsgType: "gui_plot"})
	if got != "#3 · gui_plot" {
		t.Fatalf("describeEvent = %q", got)
	}

	got = describeEvent(bus.Event{Type: bus.EventTaskFailed, TaskID: 4, Error: "boom"})
	if got != "#4 · error: boom" {
		t.Fatalf("describeEvent = %q", got)
	}

	if got := describeEvent(bus.Event{Type: bus.EventBridgeConnected}); got != "" {
		t.Fatalf("describeEvent = %q, want empty", got)
	}
}

func TestUpdateScrollKeysToggleFollowLog(t *testing.T) {
	t.Parallel()

	m := newTestModel()
	m.viewport.Width = 40
	m.viewport.Height = 5
	m.viewport.SetContent(strings.Repeat("line\n", 40))
	m.viewport.GotoBottom()

	m.Update(tea.KeyMsg{Type: tea.KeyPgUp})
	if m.followLog {
		t.Fatal("expected followLog disabled after page-up")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyEnd})
	if !m.followLog {
		t.Fatal("expected followLog re-enabled after end key")
	}
}

func TestUpdateClosedEventStream(t *testing.T) {
	t.Parallel()

	m := newTestModel()
	m.Update(eventMsg{ok: false})

	if !m.closed {
		t.Fatal("expected closed flag after stream close")
	}

	view := m.View()
	if !strings.Contains(view, "event stream closed") {
		t.Fatal("expected closed notice in view")
	}
}

func TestViewShowsStatsLine(t *testing.T) {
	t.Parallel()

	m := newTestModel()
	view := m.View()

	if !strings.Contains(view, "/dev/ttys003") {
		t.Fatal("expected device in header")
	}
	if !strings.Contains(view, "state:connected") {
		t.Fatal("expected state in header")
	}
}
