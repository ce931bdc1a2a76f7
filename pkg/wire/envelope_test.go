package wire

import (
	"strings"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	want := Envelope{ID: 42, Target: TargetShell, MsgType: MsgTypeResponse, Content: `nested "quotes" and {json}`}

	record := Encode(want)
	if !strings.HasSuffix(record, "\n") {
		t.Fatalf("record %q is not newline-terminated", record)
	}
	if strings.Count(record, "\n") != 1 {
		t.Fatalf("record %q spans more than one line", record)
	}

	got, err := Decode(strings.TrimSuffix(record, "\n"))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if got != want {
		t.Fatalf("round trip = %+v, want %+v", got, want)
	}
}

func TestEncodeEscapesContentNewlines(t *testing.T) {
	record := Encode(Envelope{ID: 1, Target: TargetShell, MsgType: MsgTypeResponse, Content: "line one\nline two"})

	if strings.Count(record, "\n") != 1 {
		t.Fatalf("record %q leaks a content newline onto the wire", record)
	}

	got, err := Decode(strings.TrimSuffix(record, "\n"))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if got.Content != "line one\nline two" {
		t.Fatalf("content = %q, want the original newline preserved", got.Content)
	}
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	if _, err := Decode("not json at all"); err == nil {
		t.Fatal("expected error for malformed record")
	}
}

func TestDecodeRejectsMissingKeys(t *testing.T) {
	cases := map[string]string{
		"missing id":       `{"target":"shell","msg_type":"task","content":"hi"}`,
		"missing target":   `{"id":1,"msg_type":"task","content":"hi"}`,
		"missing msg_type": `{"id":1,"target":"shell","content":"hi"}`,
		"missing content":  `{"id":1,"target":"shell","msg_type":"task"}`,
	}

	for name, record := range cases {
		if _, err := Decode(record); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestDecodeAcceptsTaskEnvelope(t *testing.T) {
	got, err := Decode(`{"id":7,"target":"shell","msg_type":"task","content":"plot sin(x)"}`)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}

	want := Envelope{ID: 7, Target: TargetShell, MsgType: MsgTypeTask, Content: "plot sin(x)"}
	if got != want {
		t.Fatalf("envelope = %+v, want %+v", got, want)
	}
}
