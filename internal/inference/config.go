package inference

import (
	"fmt"
	"time"

	"github.com/samcharles93/loom/internal/logits"
)

const (
	// DefaultBatchSize is the evaluation chunk size used when the caller
	// does not set one.
	DefaultBatchSize = 64

	// DefaultMaxNewTokens bounds a generation when the caller does not.
	DefaultMaxNewTokens = 256

	// RecommendedThreads is the advisory floor for engine thread counts.
	// Fewer threads work but are worth a warning at startup.
	RecommendedThreads = 6
)

// Config bundles everything a single generation needs. The engine-facing
// fields (Threads, GPULayers, MainGPU, ContextSize) are pass-through hints
// recorded here so one struct describes the whole run.
type Config struct {
	Prompt string

	Threads     int
	GPULayers   int
	MainGPU     int
	ContextSize int

	// Seed drives the sampler. Zero or negative selects a time-derived
	// seed at generator construction.
	Seed int64

	BatchSize    int
	MaxNewTokens int
	LogitsAll    bool

	// AntiPrompts terminate generation when they appear in the decoded
	// output. Matching is in list order; output is truncated before the
	// match.
	AntiPrompts []string

	Sampling logits.SamplerConfig
}

// withDefaults fills unset fields. Seed resolution happens here so the
// resolved value can be reported alongside the output.
func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.MaxNewTokens <= 0 {
		c.MaxNewTokens = DefaultMaxNewTokens
	}
	if c.Seed <= 0 {
		c.Seed = time.Now().UnixNano()
	}
	return c
}

// Validate rejects parameter values that cannot be normalised away. It runs
// before any engine call so a bad request never touches engine state.
func (c Config) Validate() error {
	if c.Sampling.Temperature < 0 {
		return fmt.Errorf("%w: temperature %v must be >= 0", ErrConfiguration, c.Sampling.Temperature)
	}
	if c.Sampling.Mirostat < logits.MirostatOff || c.Sampling.Mirostat > logits.MirostatV2 {
		return fmt.Errorf("%w: mirostat mode %d must be 0, 1 or 2", ErrConfiguration, c.Sampling.Mirostat)
	}
	if c.Sampling.TopP < 0 || c.Sampling.TopP > 1 {
		return fmt.Errorf("%w: top_p %v must be in [0, 1]", ErrConfiguration, c.Sampling.TopP)
	}
	if c.Sampling.TypicalP < 0 || c.Sampling.TypicalP > 1 {
		return fmt.Errorf("%w: typical_p %v must be in [0, 1]", ErrConfiguration, c.Sampling.TypicalP)
	}
	if c.Sampling.TailFreeZ < 0 {
		return fmt.Errorf("%w: tail_free_z %v must be >= 0", ErrConfiguration, c.Sampling.TailFreeZ)
	}
	if c.Sampling.Mirostat != logits.MirostatOff && c.Sampling.MirostatEta < 0 {
		return fmt.Errorf("%w: mirostat_eta %v must be >= 0", ErrConfiguration, c.Sampling.MirostatEta)
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("%w: batch size %d must be >= 0", ErrConfiguration, c.BatchSize)
	}
	if c.MaxNewTokens < 0 {
		return fmt.Errorf("%w: max new tokens %d must be >= 0", ErrConfiguration, c.MaxNewTokens)
	}
	return nil
}

// Options carries per-request overrides; nil fields fall back to the
// defaults baked into Resolve. The API layer decodes request bodies into
// this shape.
type Options struct {
	Prompt *string

	Seed         *int64
	MaxNewTokens *int
	BatchSize    *int

	Temperature      *float64
	TopK             *int
	TopP             *float64
	TailFreeZ        *float64
	RepeatPenalty    *float64
	FrequencyPenalty *float64
	PresencePenalty  *float64
	PenaltyLastN     *int

	Mirostat    *int
	MirostatTau *float64
	MirostatEta *float64

	LogitBias map[int]float32

	AntiPrompts []string
}

// Resolve merges opts over base and returns the effective Config. base is
// typically the server's startup configuration.
func Resolve(opts Options, base Config) Config {
	cfg := base
	if cfg.Sampling.Temperature == 0 && cfg.Sampling.TopK == 0 && cfg.Sampling.TopP == 0 {
		cfg.Sampling = logits.SamplerConfig{
			Temperature:   0.8,
			TopK:          40,
			TopP:          0.95,
			TailFreeZ:     1.0,
			TypicalP:      1.0,
			RepeatPenalty: 1.1,
			PenaltyLastN:  64,
			MirostatTau:   5.0,
			MirostatEta:   0.1,
		}
	}

	if opts.Prompt != nil {
		cfg.Prompt = *opts.Prompt
	}
	if opts.Seed != nil {
		cfg.Seed = *opts.Seed
	}
	if opts.MaxNewTokens != nil {
		cfg.MaxNewTokens = *opts.MaxNewTokens
	}
	if opts.BatchSize != nil {
		cfg.BatchSize = *opts.BatchSize
	}
	if opts.Temperature != nil {
		cfg.Sampling.Temperature = float32(*opts.Temperature)
	}
	if opts.TopK != nil {
		cfg.Sampling.TopK = *opts.TopK
	}
	if opts.TopP != nil {
		cfg.Sampling.TopP = float32(*opts.TopP)
	}
	if opts.TailFreeZ != nil {
		cfg.Sampling.TailFreeZ = float32(*opts.TailFreeZ)
	}
	if opts.RepeatPenalty != nil {
		cfg.Sampling.RepeatPenalty = float32(*opts.RepeatPenalty)
	}
	if opts.FrequencyPenalty != nil {
		cfg.Sampling.FrequencyPenalty = float32(*opts.FrequencyPenalty)
	}
	if opts.PresencePenalty != nil {
		cfg.Sampling.PresencePenalty = float32(*opts.PresencePenalty)
	}
	if opts.PenaltyLastN != nil {
		cfg.Sampling.PenaltyLastN = *opts.PenaltyLastN
	}
	if opts.Mirostat != nil {
		cfg.Sampling.Mirostat = *opts.Mirostat
	}
	if opts.MirostatTau != nil {
		cfg.Sampling.MirostatTau = float32(*opts.MirostatTau)
	}
	if opts.MirostatEta != nil {
		cfg.Sampling.MirostatEta = float32(*opts.MirostatEta)
	}
	if len(opts.LogitBias) > 0 {
		cfg.Sampling.LogitBias = opts.LogitBias
	}
	if opts.AntiPrompts != nil {
		cfg.AntiPrompts = opts.AntiPrompts
	}
	return cfg
}
