package wire

import "strings"

// payloadTags are the mutually exclusive GUI markers a handler result may
// carry, in match priority order. The longer pipeline/dashboard tags are
// checked before the plot tag so a result can never be claimed by a shorter
// marker embedded in a longer one.
var payloadTags = []struct {
	marker  string
	msgType string
}{
	{"GUI_PIPELINE_DIAGRAM:", MsgTypeGUIPipelineDiag},
	{"GUI_ML_DASHBOARD:", MsgTypeGUIMLDashboard},
	{"GUI_PLOT:", MsgTypeGUIPlot},
	{"GUI_CHESS:", MsgTypeGUIChess},
}

// Classify maps a handler result to an outbound message type and content.
//
// A result carrying a known tag produces the tag's message type with the
// marker stripped; the LLM sometimes wraps a tool payload in prose, so the
// marker is also honored mid-text, extracting the JSON object that follows
// it. Untagged results go out verbatim as a plain response.
func Classify(result string) (msgType string, content string) {
	for _, tag := range payloadTags {
		markerAt := strings.Index(result, tag.marker)
		if markerAt < 0 {
			continue
		}

		payload := result[markerAt+len(tag.marker):]
		if extracted, ok := extractJSONObject(payload); ok {
			return tag.msgType, extracted
		}
		if markerAt == 0 {
			// Tagged but not JSON-shaped: pass the raw remainder through,
			// matching the original prefix-strip fallback.
			return tag.msgType, payload
		}
	}

	return MsgTypeResponse, result
}

// extractJSONObject returns the widest brace-delimited span of text, the
// same greedy capture the reference applied to tagged payloads.
func extractJSONObject(text string) (string, bool) {
	open := strings.IndexByte(text, '{')
	if open < 0 {
		return "", false
	}

	closing := strings.LastIndexByte(text, '}')
	if closing <= open {
		return "", false
	}

	return text[open : closing+1], true
}
