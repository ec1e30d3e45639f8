package inference

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/samcharles93/loom/internal/engine"
	"github.com/samcharles93/loom/internal/logits"
)

// StreamFunc receives decoded text deltas as they become safe to emit.
type StreamFunc func(token string)

type Stats struct {
	PromptTokens    int
	TokensGenerated int
	Duration        time.Duration
	TPS             float64
}

type Result struct {
	Text         string
	FinishReason string
	Seed         int64
	Stats        Stats
}

// Instruct fine-tunes emit these end-of-turn ids in addition to the
// vocabulary EOS; both must end generation.
var reservedStopIDs = []int{32001, 32002}

// Generator drives one generation session: evaluate queued tokens, sample,
// decode, repeat. A Generator is single-use; build a new one per run.
type Generator struct {
	eng     engine.Engine
	cfg     Config
	tracker *Tracker
	sampler *logits.Sampler
	dec     *Decoder

	pending      []int
	stopIDs      []int
	promptTokens int
	generated    int
}

// NewGenerator validates cfg, tokenizes the prompt and prepares the session.
// An empty prompt falls back to a lone BOS token so the engine always has at
// least one position to condition on. A prompt that fills the context window
// is rejected outright.
func NewGenerator(eng engine.Engine, cfg Config) (*Generator, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var ids []int
	if cfg.Prompt == "" {
		ids = []int{eng.BOSToken()}
	} else {
		var err error
		ids, err = eng.Tokenize(cfg.Prompt, true, true)
		if err != nil {
			return nil, fmt.Errorf("tokenize prompt: %w", err)
		}
	}
	if len(ids) >= eng.ContextSize() {
		return nil, fmt.Errorf("%w: %d prompt tokens, capacity %d",
			ErrPromptTooLong, len(ids), eng.ContextSize())
	}

	sampling := cfg.Sampling
	sampling.Seed = cfg.Seed
	sampling.VocabSize = eng.VocabSize()

	return &Generator{
		eng:          eng,
		cfg:          cfg,
		tracker:      NewTracker(eng, cfg.LogitsAll),
		sampler:      logits.NewSampler(sampling),
		dec:          NewDecoder(eng, cfg.AntiPrompts),
		pending:      ids,
		stopIDs:      append([]int{eng.EOSToken()}, reservedStopIDs...),
		promptTokens: len(ids),
	}, nil
}

// Seed returns the resolved sampler seed for this session.
func (g *Generator) Seed() int64 { return g.cfg.Seed }

// Step evaluates every queued token, then samples the next id from the
// latest logits row. Ids passed in inject are queued behind the sampled
// token and enter the context on the following step, which lets a caller
// steer the session between steps.
func (g *Generator) Step(inject []int) (int, error) {
	if err := g.tracker.AppendAndEvaluate(g.pending, g.cfg.BatchSize); err != nil {
		return 0, err
	}
	g.pending = g.pending[:0]

	id, err := g.sampler.Sample(g.tracker.LatestRow(), g.tracker.Tokens())
	if err != nil {
		return 0, err
	}
	g.pending = append(g.pending, id)
	g.pending = append(g.pending, inject...)
	return id, nil
}

// Run executes the loop until a stop token, an anti-prompt match, or the
// new-token budget, in that order of precedence. A stop token ends the run
// without entering the context or the output.
func (g *Generator) Run(ctx context.Context, stream StreamFunc) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	g.sampler.Reset()
	start := time.Now()

	finish := "length"
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id, err := g.Step(nil)
		if err != nil {
			return nil, err
		}
		if slices.Contains(g.stopIDs, id) {
			finish = "stop"
			break
		}
		g.generated++

		delta, hit := g.dec.Consume(id)
		if delta != "" && stream != nil {
			stream(delta)
		}
		if hit {
			finish = "stop"
			break
		}
		if g.generated >= g.cfg.MaxNewTokens {
			break
		}
	}

	if !g.dec.Terminated() {
		if tail := g.dec.Flush(); tail != "" && stream != nil {
			stream(tail)
		}
	}

	stats := Stats{
		PromptTokens:    g.promptTokens,
		TokensGenerated: g.generated,
		Duration:        time.Since(start),
	}
	if stats.Duration.Seconds() > 0 {
		stats.TPS = float64(stats.TokensGenerated) / stats.Duration.Seconds()
	}

	return &Result{
		Text:         g.dec.Text(),
		FinishReason: finish,
		Seed:         g.cfg.Seed,
		Stats:        stats,
	}, nil
}
