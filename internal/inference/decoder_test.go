package inference

import "testing"

type byteDetok struct{}

func (byteDetok) Detokenize(id int) []byte {
	if id < 0 || id >= 256 {
		return nil
	}
	return []byte{byte(id)}
}

// pieceDetok maps ids to arbitrary byte pieces, the way a real vocabulary
// does.
type pieceDetok map[int][]byte

func (m pieceDetok) Detokenize(id int) []byte { return m[id] }

func feed(t *testing.T, d *Decoder, bs []byte) string {
	t.Helper()
	var out string
	for _, b := range bs {
		delta, stop := d.Consume(int(b))
		out += delta
		if stop {
			break
		}
	}
	return out
}

func TestDecoderMultiByteCharByteWise(t *testing.T) {
	d := NewDecoder(byteDetok{}, nil)

	// "世" is E4 B8 96; nothing may be emitted until the third byte lands.
	delta, stop := d.Consume(0xE4)
	if delta != "" || stop {
		t.Fatalf("after lead byte: delta=%q stop=%v", delta, stop)
	}
	delta, stop = d.Consume(0xB8)
	if delta != "" || stop {
		t.Fatalf("after second byte: delta=%q stop=%v", delta, stop)
	}
	delta, stop = d.Consume(0x96)
	if stop {
		t.Fatal("complete character must not stop the stream")
	}
	if delta != "世" {
		t.Fatalf("delta = %q, want %q", delta, "世")
	}
	if d.Text() != "世" {
		t.Fatalf("Text = %q, want %q", d.Text(), "世")
	}
}

func TestDecoderFourByteCharAcrossTokens(t *testing.T) {
	d := NewDecoder(pieceDetok{
		1: []byte{0xF0, 0x9F},
		2: []byte{0x98},
		3: []byte{0x80},
	}, nil)

	if delta, _ := d.Consume(1); delta != "" {
		t.Fatalf("half emoji emitted: %q", delta)
	}
	if delta, _ := d.Consume(2); delta != "" {
		t.Fatalf("three-quarter emoji emitted: %q", delta)
	}
	delta, _ := d.Consume(3)
	if delta != "\U0001F600" {
		t.Fatalf("delta = %q, want %q", delta, "\U0001F600")
	}
}

func TestDecoderAntiPromptTruncates(t *testing.T) {
	d := NewDecoder(byteDetok{}, []string{"World"})

	out := feed(t, d, []byte("Hello World"))
	if !d.Terminated() {
		t.Fatal("anti-prompt did not terminate the stream")
	}
	if out != "Hello " {
		t.Fatalf("streamed %q, want %q", out, "Hello ")
	}
	if d.Text() != "Hello " {
		t.Fatalf("Text = %q, want %q", d.Text(), "Hello ")
	}

	// Terminated decoders swallow everything after the match.
	if delta, stop := d.Consume('x'); delta != "" || !stop {
		t.Fatalf("post-termination consume: delta=%q stop=%v", delta, stop)
	}
}

func TestDecoderAntiPromptListOrder(t *testing.T) {
	// One piece lands both anti-prompts at once; the first configured one
	// wins even though the other occurs earlier in the buffer.
	d := NewDecoder(pieceDetok{1: []byte("early and late")}, []string{"late", "ear"})
	if _, stop := d.Consume(1); !stop {
		t.Fatal("anti-prompt did not terminate the stream")
	}
	if d.Text() != "early and " {
		t.Fatalf("Text = %q, want %q", d.Text(), "early and ")
	}
}

func TestDecoderHoldbackAndFlush(t *testing.T) {
	d := NewDecoder(byteDetok{}, []string{"STOP"})

	out := feed(t, d, []byte("abcdef"))
	// The last four bytes stay withheld in case "STOP" is still arriving.
	if out != "ab" {
		t.Fatalf("streamed %q before flush, want %q", out, "ab")
	}
	if got := d.Flush(); got != "cdef" {
		t.Fatalf("Flush = %q, want %q", got, "cdef")
	}
	if got := d.Flush(); got != "" {
		t.Fatalf("second Flush = %q, want empty", got)
	}
	if d.Text() != "abcdef" {
		t.Fatalf("Text = %q, want %q", d.Text(), "abcdef")
	}
}

func TestDecoderInvalidBytesDropped(t *testing.T) {
	d := NewDecoder(byteDetok{}, nil)

	// A lone continuation byte can never complete; it is dropped, not
	// replaced with U+FFFD.
	d.Consume(0x80)
	d.Consume('a')
	if d.Text() != "a" {
		t.Fatalf("Text = %q, want %q", d.Text(), "a")
	}
}
