package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

type StreamMode string

const (
	StreamInstant    StreamMode = "instant"
	StreamTypewriter StreamMode = "typewriter"
	StreamQuiet      StreamMode = "quiet"
)

// StreamWriter renders generated tokens to the terminal. Instant mode
// prints each delta as it arrives, typewriter prints rune by rune, and
// quiet accumulates everything until Flush.
type StreamWriter struct {
	mode   StreamMode
	output io.Writer
	buffer *bufio.Writer

	mu          sync.Mutex
	accumulator strings.Builder
}

func NewStreamWriter(mode StreamMode) *StreamWriter {
	switch mode {
	case StreamInstant, StreamTypewriter, StreamQuiet:
	default:
		mode = StreamInstant
	}
	return &StreamWriter{
		mode:   mode,
		output: os.Stdout,
		buffer: bufio.NewWriterSize(os.Stdout, 4096),
	}
}

// Write handles a single delta from the generator.
func (w *StreamWriter) Write(token string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.accumulator.WriteString(token)

	switch w.mode {
	case StreamInstant:
		_, _ = w.buffer.WriteString(token)
		_ = w.buffer.Flush()
	case StreamTypewriter:
		for _, r := range token {
			fmt.Fprintf(w.buffer, "%c", r)
			_ = w.buffer.Flush()
		}
	case StreamQuiet:
	}
}

// Flush writes anything still held back and returns the text accumulated
// since the previous Flush.
func (w *StreamWriter) Flush() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	result := w.accumulator.String()
	w.accumulator.Reset()
	if w.mode == StreamQuiet {
		fmt.Fprint(w.output, result)
	}
	_ = w.buffer.Flush()
	return result
}
