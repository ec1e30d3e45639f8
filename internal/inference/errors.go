package inference

import (
	"errors"

	"github.com/samcharles93/loom/internal/logits"
)

var (
	// ErrConfiguration reports an invalid parameter or parameter combination
	// caught before any engine work starts.
	ErrConfiguration = errors.New("inference: invalid configuration")

	// ErrContextOverflow reports an append that would exceed the engine's
	// context capacity. It is raised before the evaluation is attempted, so
	// the tracker's counters stay consistent.
	ErrContextOverflow = errors.New("inference: context window overflow")

	// ErrEvaluation reports an engine forward-pass failure. The engine's
	// internal state can no longer be trusted; the session must be abandoned.
	ErrEvaluation = errors.New("inference: engine evaluation failed")

	// ErrPromptTooLong reports a prompt that fills or exceeds the context
	// window, leaving no room to generate.
	ErrPromptTooLong = errors.New("inference: prompt exceeds context capacity")
)

// ErrShape is re-exported so callers can match sampling shape violations
// without importing the logits package.
var ErrShape = logits.ErrShape
