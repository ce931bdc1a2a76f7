package monitor

import (
	"fmt"
	"strings"

	"agentbridge/pkg/bridge"
	"agentbridge/pkg/bus"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const maxLogLines = 500

type eventMsg struct {
	event bus.Event
	ok    bool
}

type logLine struct {
	event bus.Event
}

type model struct {
	events  <-chan bus.Event
	statsFn func() bridge.Stats

	theme     theme
	spinner   spinner.Model
	viewport  viewport.Model
	lines     []logLine
	width     int
	height    int
	isReady   bool
	taskBusy  bool
	followLog bool
	closed    bool
}

func newModel(events <-chan bus.Event, statsFn func() bridge.Stats) *model {
	spin := spinner.New()
	spin.Spinner = spinner.Points
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	vp := viewport.New(80, 16)

	return &model{
		events:    events,
		statsFn:   statsFn,
		theme:     defaultTheme(),
		spinner:   spin,
		viewport:  vp,
		width:     100,
		height:    28,
		followLog: true,
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEvent(m.events))
}

func waitForEvent(events <-chan bus.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-events
		return eventMsg{event: event, ok: ok}
	}
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.height = typed.Height
		m.resizeComponents()
		m.refreshViewport()
		m.isReady = true
		return m, nil

	case tea.KeyMsg:
		switch typed.String() {
		case "ctrl+c", "esc", "q":
			return m, tea.Quit
		case "pgup", "ctrl+b":
			m.viewport.PageUp()
			m.followLog = false
			return m, nil
		case "pgdown", "ctrl+f":
			m.viewport.PageDown()
			if m.viewport.AtBottom() {
				m.followLog = true
			}
			return m, nil
		case "home":
			m.viewport.GotoTop()
			m.followLog = false
			return m, nil
		case "end":
			m.viewport.GotoBottom()
			m.followLog = true
			return m, nil
		}
		return m, nil

	case eventMsg:
		if !typed.ok {
			m.closed = true
			return m, nil
		}
		m.applyEvent(typed.event)
		m.refreshViewport()
		return m, waitForEvent(m.events)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(typed)
		return m, cmd
	}

	return m, nil
}

func (m *model) applyEvent(event bus.Event) {
	switch event.Type {
	case bus.EventTaskReceived:
		m.taskBusy = true
	case bus.EventTaskCompleted, bus.EventTaskFailed:
		m.taskBusy = false
	case bus.EventHeartbeat:
		// Heartbeats keep the stats line fresh but would flood the log.
		return
	}

	m.lines = append(m.lines, logLine{event: event})
	if len(m.lines) > maxLogLines {
		m.lines = m.lines[len(m.lines)-maxLogLines:]
	}
}

func (m *model) View() string {
	if !m.isReady {
		m.resizeComponents()
		m.refreshViewport()
	}

	stats := m.statsFn()

	header := m.theme.header.Width(m.width - 2).Render("📟 AgentBridge Monitor")
	meta := m.theme.headerMeta.Render(fmt.Sprintf(
		"device:%s · state:%s · tasks:%d · replies:%d · streams:%d · malformed:%d · dropped:%d · reconnects:%d",
		stats.Device, stats.State, stats.TasksReceived, stats.RepliesSent,
		stats.StreamsSent, stats.MalformedRecords, stats.ChunksDropped, stats.Reconnects,
	))
	line := m.theme.divider.Width(m.width - 2).Render(strings.Repeat("═", maxInt(8, m.width-2)))

	status := m.theme.status.Render("💡 PgUp/PgDn scroll  ·  End jump latest  ·  🛑 q/Ctrl+C quit")
	if m.taskBusy {
		status = m.theme.statusBusy.Render(fmt.Sprintf("%s ⚡ task in flight...", m.spinner.View()))
	}
	if m.closed {
		status = m.theme.statusErr.Render("🚨 bridge stopped - event stream closed")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header, meta, line,
		m.theme.viewport.Width(m.width-2).Render(m.viewport.View()),
		status,
	)
}

func (m *model) resizeComponents() {
	w := m.width - 6
	if w < 50 {
		w = 50
	}
	h := m.height - 8
	if h < 8 {
		h = 8
	}

	m.viewport.Width = w
	m.viewport.Height = h
}

func (m *model) refreshViewport() {
	previousOffset := m.viewport.YOffset

	rendered := make([]string, 0, len(m.lines))
	for _, item := range m.lines {
		rendered = append(rendered, m.renderLine(item.event))
	}

	m.viewport.SetContent(strings.Join(rendered, "\n"))
	if m.followLog {
		m.viewport.GotoBottom()
		return
	}

	maxOffset := m.viewport.TotalLineCount() - m.viewport.Height
	if maxOffset < 0 {
		maxOffset = 0
	}
	if previousOffset > maxOffset {
		previousOffset = maxOffset
	}
	m.viewport.SetYOffset(previousOffset)
}

func (m *model) renderLine(event bus.Event) string {
	stamp := m.theme.hint.Render(event.At.Format("15:04:05"))
	label := m.styleForEvent(event.Type).Render(string(event.Type))

	detail := describeEvent(event)
	if detail == "" {
		return fmt.Sprintf("%s %s", stamp, label)
	}

	return fmt.Sprintf("%s %s %s", stamp, label, detail)
}

func (m *model) styleForEvent(eventType bus.EventType) lipgloss.Style {
	switch eventType {
	case bus.EventTaskFailed, bus.EventRecordMalformed, bus.EventChunkDropped, bus.EventBridgeDisconnected, bus.EventBridgeClosed:
		return m.theme.eventBad
	case bus.EventBridgeConnected, bus.EventBridgeRecovered, bus.EventTaskCompleted:
		return m.theme.eventGood
	default:
		return m.theme.eventInfo
	}
}

func describeEvent(event bus.Event) string {
	parts := make([]string, 0, 3)
	if event.TaskID != 0 {
		parts = append(parts, fmt.Sprintf("#%d", event.TaskID))
	}
	if event.MsgType != "" {
		parts = append(parts, event.MsgType)
	}
	if event.Detail != "" {
		parts = append(parts, event.Detail)
	}
	if event.Error != "" {
		parts = append(parts, "error: "+event.Error)
	}

	return strings.Join(parts, " · ")
}

func maxInt(a int, b int) int {
	if a > b {
		return a
	}

	return b
}
