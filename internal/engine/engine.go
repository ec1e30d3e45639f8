package engine

// Engine is the boundary to the underlying inference runtime. loom never
// looks behind it: weight loading, the forward pass, and the raw vocabulary
// all live on the other side. Implementations are not safe for concurrent
// use; one Engine handle belongs to exactly one generation at a time.
type Engine interface {
	// Tokenize converts text into token ids, optionally prepending the
	// beginning-of-sequence token and recognising special token strings.
	// The result is bounded by the context size.
	Tokenize(text string, addBOS, special bool) ([]int, error)

	// Detokenize returns the raw byte piece for a single token id. Pieces
	// are small (at most MaxPieceBytes) and may be a fragment of a
	// multi-byte character.
	Detokenize(id int) []byte

	// Evaluate runs the forward pass for ids starting at position past.
	// It returns one logits row per evaluated position when the engine is
	// in logits-all mode, otherwise a single row for the final position.
	// A non-nil error means the engine's internal state can no longer be
	// trusted for this session.
	Evaluate(ids []int, past int) ([][]float32, error)

	// VocabSize is the width of every logits row.
	VocabSize() int

	// ContextSize is the maximum number of tokens the engine can attend to.
	ContextSize() int

	BOSToken() int
	EOSToken() int
}

// MaxPieceBytes bounds the byte length of a single detokenized piece.
const MaxPieceBytes = 32
