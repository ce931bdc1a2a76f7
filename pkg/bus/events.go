package bus

import "time"

type EventType string

// Bridge lifecycle and per-task events. These exist so an operator can tell
// "idle and healthy" from "stuck" without scraping logs: the monitor TUI and
// the status service both subscribe.
const (
	EventBridgeConnected    EventType = "bridge_connected"
	EventBridgeDisconnected EventType = "bridge_disconnected"
	EventBridgeRecovered    EventType = "bridge_recovered"
	EventBridgeClosed       EventType = "bridge_closed"
	EventHeartbeat          EventType = "heartbeat"
	EventTaskReceived       EventType = "task_received"
	EventTaskCompleted      EventType = "task_completed"
	EventTaskFailed         EventType = "task_failed"
	EventReplySent          EventType = "reply_sent"
	EventStreamSent         EventType = "stream_sent"
	EventChunkDropped       EventType = "chunk_dropped"
	EventRecordMalformed    EventType = "record_malformed"
)

// Event is one observable moment in the bridge's life.
type Event struct {
	Type    EventType `json:"type"`
	At      time.Time `json:"at"`
	Device  string    `json:"device,omitempty"`
	TaskID  int       `json:"task_id,omitempty"`
	MsgType string    `json:"msg_type,omitempty"`
	Detail  string    `json:"detail,omitempty"`
	Error   string    `json:"error,omitempty"`
}
