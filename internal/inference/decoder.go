package inference

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// Detokenizer is the slice of the engine the decoder needs.
type Detokenizer interface {
	Detokenize(id int) []byte
}

// Decoder turns token ids into streamable text. It buffers raw bytes,
// holds output back while a multi-byte character is still arriving, and
// watches for anti-prompt strings. Token pieces can split characters at
// arbitrary byte offsets, so completeness is judged on bytes, never runes.
type Decoder struct {
	detok Detokenizer
	stops [][]byte

	buf      []byte
	pending  int
	emitted  int
	holdback int
	done     bool
}

// NewDecoder builds a decoder that terminates on any of antiPrompts. The
// last len(longest anti-prompt) bytes are withheld from streaming so a
// match can always be truncated before any of it reaches the caller.
func NewDecoder(detok Detokenizer, antiPrompts []string) *Decoder {
	d := &Decoder{detok: detok}
	for _, s := range antiPrompts {
		if s == "" {
			continue
		}
		d.stops = append(d.stops, []byte(s))
		if len(s) > d.holdback {
			d.holdback = len(s)
		}
	}
	return d
}

// Consume appends one token's bytes and returns the newly safe-to-emit text
// along with whether an anti-prompt terminated the stream. Once terminated,
// further calls return ("", true).
func (d *Decoder) Consume(id int) (delta string, stop bool) {
	if d.done {
		return "", true
	}
	d.buf = append(d.buf, d.detok.Detokenize(id)...)

	// Recompute the incomplete-character countdown from the last three
	// buffered bytes. A lead byte seen closer to the end than its sequence
	// length means continuation bytes are still owed.
	d.pending = 0
	tail := d.buf[max(len(d.buf)-3, 0):]
	for i, b := range tail {
		fromEnd := len(tail) - i
		for _, lead := range [...]struct {
			need    int
			pattern byte
		}{{2, 0xC0}, {3, 0xE0}, {4, 0xF0}} {
			if lead.need > fromEnd && b&lead.pattern == lead.pattern {
				d.pending = lead.need - fromEnd
			}
		}
	}
	if d.pending > 0 {
		return "", false
	}

	for _, s := range d.stops {
		if idx := bytes.Index(d.buf, s); idx >= 0 {
			delta = decodeSafe(d.buf[d.emitted:idx])
			d.buf = d.buf[:idx]
			d.emitted = idx
			d.done = true
			return delta, true
		}
	}

	limit := len(d.buf) - d.holdback
	for limit > d.emitted && limit < len(d.buf) && d.buf[limit]&0xC0 == 0x80 {
		limit--
	}
	if limit > d.emitted {
		delta = decodeSafe(d.buf[d.emitted:limit])
		d.emitted = limit
	}
	return delta, false
}

// Flush returns any text still withheld by the anti-prompt holdback. Call
// it once after the generation loop ends without an anti-prompt match.
func (d *Decoder) Flush() string {
	if d.emitted >= len(d.buf) {
		return ""
	}
	delta := decodeSafe(d.buf[d.emitted:])
	d.emitted = len(d.buf)
	return delta
}

// Terminated reports whether an anti-prompt ended the stream.
func (d *Decoder) Terminated() bool { return d.done }

// Text returns everything decoded so far, after anti-prompt truncation.
// Bytes that never formed a valid character are dropped rather than
// replaced, so a trailing partial sequence cannot corrupt the result.
func (d *Decoder) Text() string { return decodeSafe(d.buf) }

func decodeSafe(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	var sb strings.Builder
	sb.Grow(len(b))
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r != utf8.RuneError || size > 1 {
			sb.Write(b[:size])
		}
		b = b[size:]
	}
	return sb.String()
}
