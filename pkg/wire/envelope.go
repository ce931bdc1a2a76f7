package wire

import (
	"encoding/json"
	"fmt"
)

// Message types the bridge understands. Inbound, only MsgTypeTask triggers
// dispatch; everything else passes through unhandled. Outbound types are
// derived from the handler result via Classify.
const (
	MsgTypeTask            = "task"
	MsgTypeResponse        = "response"
	MsgTypeGUIPlot         = "gui_plot"
	MsgTypeGUIChess        = "gui_chess"
	MsgTypeGUIMLDashboard  = "gui_ml_dashboard"
	MsgTypeGUIPipelineDiag = "gui_pipeline_diagram"
)

// Logical recipients on the kernel side of the line.
const (
	TargetShell  = "shell"
	TargetKernel = "kernel"
)

// Envelope is the JSON message unit exchanged over the serial line. ID is
// assigned by the requester and echoed unchanged on every correlated reply.
// Content is opaque to the bridge; it may carry a tagged sub-payload that
// only the handler and the kernel GUI interpret.
type Envelope struct {
	ID      int    `json:"id"`
	Target  string `json:"target"`
	MsgType string `json:"msg_type"`
	Content string `json:"content"`
}

type rawEnvelope struct {
	ID      *int    `json:"id"`
	Target  *string `json:"target"`
	MsgType *string `json:"msg_type"`
	Content *string `json:"content"`
}

// Decode parses one framed record into an Envelope. All four keys are
// required; a failure here is local to the record and never fatal to the
// read loop.
func Decode(record string) (Envelope, error) {
	var raw rawEnvelope
	if err := json.Unmarshal([]byte(record), &raw); err != nil {
		return Envelope{}, fmt.Errorf("parse record: %w", err)
	}

	switch {
	case raw.ID == nil:
		return Envelope{}, fmt.Errorf("record is missing %q", "id")
	case raw.Target == nil:
		return Envelope{}, fmt.Errorf("record is missing %q", "target")
	case raw.MsgType == nil:
		return Envelope{}, fmt.Errorf("record is missing %q", "msg_type")
	case raw.Content == nil:
		return Envelope{}, fmt.Errorf("record is missing %q", "content")
	}

	return Envelope{
		ID:      *raw.ID,
		Target:  *raw.Target,
		MsgType: *raw.MsgType,
		Content: *raw.Content,
	}, nil
}

// Encode serializes an Envelope as one newline-terminated record. Message
// boundaries on the wire are newlines and nothing else; JSON string escaping
// keeps newlines inside content off the wire, so the record itself is always
// a single line.
func Encode(e Envelope) string {
	encoded, err := json.Marshal(e)
	if err != nil {
		// Envelope contains only ints and strings; Marshal cannot fail on
		// it. Return an empty record rather than killing the loop.
		return ""
	}

	return string(encoded) + "\n"
}
