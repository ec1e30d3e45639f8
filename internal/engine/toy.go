package engine

import (
	"fmt"
	"math/rand"
)

// Toy is a minimal byte-level language model used for testing, benchmarks,
// and the reference CLI. Token ids 0..255 map to single bytes; two special
// ids follow for BOS and EOS. Logits are produced by a seeded random
// embedding/projection pair, so output is deterministic for a given seed.
type Toy struct {
	hidden    int
	ctxSize   int
	logitsAll bool

	emb  [][]float32 // [vocab][hidden]
	w    [][]float32 // [hidden][vocab]
	h    []float32   // scratch [hidden]
	past int
}

const toyByteVocab = 256

// ToyConfig configures a Toy engine. Zero values select the defaults.
type ToyConfig struct {
	Hidden      int
	ContextSize int
	Seed        int64
	LogitsAll   bool
}

// NewToy constructs a toy engine with deterministic weights derived from
// cfg.Seed.
func NewToy(cfg ToyConfig) *Toy {
	if cfg.Hidden <= 0 {
		cfg.Hidden = 32
	}
	if cfg.ContextSize <= 0 {
		cfg.ContextSize = 512
	}
	t := &Toy{
		hidden:    cfg.Hidden,
		ctxSize:   cfg.ContextSize,
		logitsAll: cfg.LogitsAll,
		h:         make([]float32, cfg.Hidden),
	}
	vocab := t.VocabSize()
	t.emb = fillRand(vocab, cfg.Hidden, cfg.Seed+11)
	t.w = fillRand(cfg.Hidden, vocab, cfg.Seed+23)
	return t
}

func fillRand(rows, cols int, seed int64) [][]float32 {
	rng := rand.New(rand.NewSource(seed))
	m := make([][]float32, rows)
	for i := range m {
		m[i] = make([]float32, cols)
		for j := range m[i] {
			m[i][j] = rng.Float32()*2 - 1
		}
	}
	return m
}

func (t *Toy) VocabSize() int   { return toyByteVocab + 2 }
func (t *Toy) ContextSize() int { return t.ctxSize }
func (t *Toy) BOSToken() int    { return toyByteVocab }
func (t *Toy) EOSToken() int    { return toyByteVocab + 1 }

// Tokenize maps each byte of text to its own token id. The special flag is
// accepted for interface parity; the toy vocabulary has no in-band special
// strings to recognise.
func (t *Toy) Tokenize(text string, addBOS, special bool) ([]int, error) {
	_ = special
	ids := make([]int, 0, len(text)+1)
	if addBOS {
		ids = append(ids, t.BOSToken())
	}
	for i := 0; i < len(text); i++ {
		ids = append(ids, int(text[i]))
	}
	if len(ids) > t.ctxSize {
		return nil, fmt.Errorf("toy: %d tokens exceed context size %d", len(ids), t.ctxSize)
	}
	return ids, nil
}

// Detokenize returns the single byte for byte-range ids and an empty piece
// for the specials.
func (t *Toy) Detokenize(id int) []byte {
	if id < 0 || id >= toyByteVocab {
		return nil
	}
	return []byte{byte(id)}
}

// Evaluate computes logits for ids starting at position past. The toy model
// attends to nothing: each position's logits depend only on that position's
// token, which keeps the engine deterministic and stateless apart from the
// position bound.
func (t *Toy) Evaluate(ids []int, past int) ([][]float32, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("toy: evaluate called with no tokens")
	}
	if past < 0 || past+len(ids) > t.ctxSize {
		return nil, fmt.Errorf("toy: evaluate of %d tokens at past %d exceeds context size %d", len(ids), past, t.ctxSize)
	}
	rows := 1
	offset := len(ids) - 1
	if t.logitsAll {
		rows = len(ids)
		offset = 0
	}
	out := make([][]float32, rows)
	for r := 0; r < rows; r++ {
		out[r] = t.forward(ids[offset+r])
	}
	t.past = past + len(ids)
	return out, nil
}

func (t *Toy) forward(tok int) []float32 {
	vocab := t.VocabSize()
	if tok < 0 || tok >= vocab {
		tok = ((tok % vocab) + vocab) % vocab
	}
	copy(t.h, t.emb[tok])
	logits := make([]float32, vocab)
	for j := 0; j < vocab; j++ {
		var sum float32
		for i := 0; i < t.hidden; i++ {
			sum += t.h[i] * t.w[i][j]
		}
		logits[j] = sum
	}
	return logits
}
