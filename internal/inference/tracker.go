package inference

import (
	"fmt"

	"github.com/samcharles93/loom/internal/engine"
)

// Tracker owns the evaluated-token bookkeeping for one generation session:
// which ids the engine has seen, how many positions are filled, and the
// logits rows that came back. It never lets an append overflow the context
// window, and a failed evaluation poisons nothing because the counters only
// advance after the engine call succeeds.
type Tracker struct {
	eng       engine.Engine
	logitsAll bool

	tokens    []int
	scores    [][]float32
	evaluated int
}

func NewTracker(eng engine.Engine, logitsAll bool) *Tracker {
	return &Tracker{
		eng:       eng,
		logitsAll: logitsAll,
		tokens:    make([]int, 0, eng.ContextSize()),
		scores:    make([][]float32, eng.ContextSize()),
	}
}

// AppendAndEvaluate feeds ids to the engine in chunks of at most batch
// tokens. The overflow check covers the whole append and runs before any
// engine work, so a rejected call leaves the session usable.
func (t *Tracker) AppendAndEvaluate(ids []int, batch int) error {
	if len(ids) == 0 {
		return nil
	}
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	capacity := t.eng.ContextSize()
	if t.evaluated+len(ids) > capacity {
		return fmt.Errorf("%w: %d evaluated + %d new > capacity %d",
			ErrContextOverflow, t.evaluated, len(ids), capacity)
	}

	for off := 0; off < len(ids); off += batch {
		chunk := ids[off:min(off+batch, len(ids))]
		past := min(capacity-len(chunk), t.evaluated)

		rows, err := t.eng.Evaluate(chunk, past)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrEvaluation, err)
		}

		if t.logitsAll {
			for i, row := range rows {
				t.scores[t.evaluated+i] = row
			}
		} else if len(rows) > 0 {
			t.scores[t.evaluated+len(chunk)-1] = rows[len(rows)-1]
		}

		t.tokens = append(t.tokens, chunk...)
		t.evaluated += len(chunk)
	}
	return nil
}

// LatestRow returns the logits row for the most recently evaluated position,
// or nil before the first evaluation.
func (t *Tracker) LatestRow() []float32 {
	if t.evaluated == 0 {
		return nil
	}
	return t.scores[t.evaluated-1]
}

// Row returns the logits row for an absolute position. Positions other than
// chunk-final ones are only populated in logits-all mode.
func (t *Tracker) Row(pos int) []float32 {
	if pos < 0 || pos >= t.evaluated {
		return nil
	}
	return t.scores[pos]
}

// Tokens returns the accepted token ids in evaluation order. The slice
// aliases internal state and must not be mutated.
func (t *Tracker) Tokens() []int { return t.tokens }

// Evaluated returns the number of context positions filled so far.
func (t *Tracker) Evaluated() int { return t.evaluated }

// Remaining returns how many positions are still free.
func (t *Tracker) Remaining() int { return t.eng.ContextSize() - t.evaluated }

// Reset clears the session so the tracker can start a fresh generation
// against the same engine handle.
func (t *Tracker) Reset() {
	t.tokens = t.tokens[:0]
	for i := 0; i < t.evaluated; i++ {
		t.scores[i] = nil
	}
	t.evaluated = 0
}
