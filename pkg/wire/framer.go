package wire

import (
	"bytes"
	"strings"
)

// Framer reassembles discrete newline-terminated records from an unbounded
// byte stream. The serial line gives no framing guarantee beyond newlines:
// a record may arrive split across many reads, several records may arrive in
// one read, and a multi-byte character may be cut at any byte boundary.
//
// Bytes are buffered raw and only decoded once a full line is available, so
// splitting the stream at arbitrary read boundaries yields the same record
// sequence as feeding it whole. Records have no maximum length; a runaway
// peer grows the pending buffer until memory runs out, which matches the
// reference behavior.
type Framer struct {
	pending []byte
}

// Feed appends raw bytes to the carry-over buffer and returns every complete
// record now available, in arrival order. Lines are trimmed of surrounding
// whitespace; whitespace-only lines are dropped. Invalid UTF-8 inside a
// completed line is replaced, never surfaced as an error.
func (f *Framer) Feed(p []byte) []string {
	if len(p) > 0 {
		f.pending = append(f.pending, p...)
	}

	var records []string
	for {
		newlineAt := bytes.IndexByte(f.pending, '\n')
		if newlineAt < 0 {
			return records
		}

		line := f.pending[:newlineAt]
		f.pending = f.pending[newlineAt+1:]

		record := strings.TrimSpace(strings.ToValidUTF8(string(line), "�"))
		if record == "" {
			continue
		}
		records = append(records, record)
	}
}

// Pending returns the number of buffered bytes not yet terminated by a
// newline. Exposed for status reporting only.
func (f *Framer) Pending() int {
	return len(f.pending)
}

// Reset discards the carry-over buffer.
func (f *Framer) Reset() {
	f.pending = nil
}
