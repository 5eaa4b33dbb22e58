// Package streaming turns provider byte streams into normalised StreamChunk
// sequences. One Decoder instance serves exactly one stream and is not safe
// for concurrent use; the adapter drives it from a single goroutine.
package streaming

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/BaSui01/aigate/manifest"
	"github.com/BaSui01/aigate/types"
)

// Decoder incrementally decodes one provider stream into chunks.
type Decoder struct {
	dialect    manifest.EventFormat
	doneSignal string
	prefix     string
	delimiter  []byte

	buf  []byte
	done bool

	// Cross-frame state.
	id      string
	model   string
	toolAcc map[int]*toolAccumulator
}

type toolAccumulator struct {
	id   string
	name string
	args []byte
}

// NewDecoder builds a decoder for the provider's streaming configuration.
// A nil config decodes OpenAI-compatible data_lines.
func NewDecoder(cfg *manifest.StreamingConfig) *Decoder {
	d := &Decoder{
		dialect:    manifest.EventDataLines,
		doneSignal: "[DONE]",
		prefix:     "data:",
		toolAcc:    make(map[int]*toolAccumulator),
	}
	if cfg != nil {
		if cfg.Events != "" {
			d.dialect = cfg.Events
		}
		if cfg.DoneSignal != "" {
			d.doneSignal = cfg.DoneSignal
		}
		if cfg.Prefix != "" {
			d.prefix = strings.TrimRight(cfg.Prefix, " ")
		}
		if cfg.Delimiter != "" {
			d.delimiter = []byte(cfg.Delimiter)
		}
	}
	if d.dialect == manifest.EventCohereNative && d.doneSignal == "[DONE]" {
		d.doneSignal = "stream-end"
	}
	return d
}

// Done reports whether the provider signalled stream termination.
func (d *Decoder) Done() bool { return d.done }

// Feed appends bytes from the transport and returns every chunk that became
// complete. Chunks are returned in byte-arrival order.
func (d *Decoder) Feed(p []byte) []types.StreamChunk {
	if d.done {
		return nil
	}
	d.buf = append(d.buf, p...)
	var out []types.StreamChunk
	for !d.done {
		frame, ok := d.nextFrame(false)
		if !ok {
			break
		}
		out = append(out, d.parseFrame(frame)...)
	}
	return out
}

// Finish flushes whatever remains in the buffer once the body has closed.
func (d *Decoder) Finish() []types.StreamChunk {
	if d.done {
		return nil
	}
	var out []types.StreamChunk
	for !d.done {
		frame, ok := d.nextFrame(true)
		if !ok {
			break
		}
		out = append(out, d.parseFrame(frame)...)
	}
	return out
}

// nextFrame extracts the next complete frame from the buffer. At EOF the
// remainder becomes the final frame. A frame whose tail splits a multi-byte
// codepoint is deferred until more bytes arrive.
func (d *Decoder) nextFrame(eof bool) ([]byte, bool) {
	switch d.dialect {
	case manifest.EventGeminiJSON:
		return d.nextJSONObject(eof)
	case manifest.EventCohereNative:
		return d.nextDelimited([]byte("\n"), eof)
	default:
		if len(d.delimiter) > 0 {
			return d.nextDelimited(d.delimiter, eof)
		}
		return d.nextSSEEvent(eof)
	}
}

func (d *Decoder) nextDelimited(delim []byte, eof bool) ([]byte, bool) {
	if idx := bytes.Index(d.buf, delim); idx >= 0 {
		frame := d.buf[:idx]
		d.buf = d.buf[idx+len(delim):]
		return frame, true
	}
	return d.takeRemainder(eof)
}

// nextSSEEvent finds the earlier of "\n\n" and "\r\n\r\n".
func (d *Decoder) nextSSEEvent(eof bool) ([]byte, bool) {
	lf := bytes.Index(d.buf, []byte("\n\n"))
	crlf := bytes.Index(d.buf, []byte("\r\n\r\n"))
	idx, width := -1, 0
	switch {
	case lf >= 0 && (crlf < 0 || lf < crlf):
		idx, width = lf, 2
	case crlf >= 0:
		idx, width = crlf, 4
	}
	if idx >= 0 {
		frame := d.buf[:idx]
		d.buf = d.buf[idx+width:]
		return frame, true
	}
	return d.takeRemainder(eof)
}

// nextJSONObject scans for a balanced top-level JSON object, skipping the
// array punctuation gemini wraps around concatenated objects.
func (d *Decoder) nextJSONObject(eof bool) ([]byte, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i, b := range d.buf {
		if start < 0 {
			if b == '{' {
				start = i
				depth = 1
			}
			continue
		}
		if inString {
			switch {
			case escaped:
				escaped = false
			case b == '\\':
				escaped = true
			case b == '"':
				inString = false
			}
			continue
		}
		switch b {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				frame := d.buf[start : i+1]
				d.buf = d.buf[i+1:]
				return frame, true
			}
		}
	}
	if eof {
		d.buf = nil
	}
	return nil, false
}

func (d *Decoder) takeRemainder(eof bool) ([]byte, bool) {
	if !eof || len(d.buf) == 0 {
		return nil, false
	}
	if !utf8.Valid(d.buf) {
		// Mid-codepoint tail with no more bytes coming: drop rather than
		// emit mojibake.
		d.buf = nil
		return nil, false
	}
	frame := d.buf
	d.buf = nil
	return frame, true
}
