package logits

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// ErrShape reports a logits row whose length does not match the configured
// vocabulary size. It indicates a broken engine contract and is always fatal.
var ErrShape = errors.New("logits: row length does not match vocabulary size")

// Mirostat modes.
const (
	MirostatOff = 0
	MirostatV1  = 1
	MirostatV2  = 2
)

// mirostatM is the candidate pool size used by the v1 surprise estimate.
const mirostatM = 100

// SamplerConfig configures the behaviour of a Sampler.
//
// LogitBias is multiplicative: the biased logit is logit*bias, not
// logit+bias. This matches the policy loom was ported from; callers relying
// on additive OpenAI-style bias must convert first.
type SamplerConfig struct {
	Seed        int64
	VocabSize   int
	Temperature float32
	TopK        int
	TopP        float32
	TailFreeZ   float32
	TypicalP    float32

	RepeatPenalty    float32
	FrequencyPenalty float32
	PresencePenalty  float32
	// PenaltyLastN is the window of recent tokens the penalties consider.
	// -1 means the full history. Shorter histories are left-padded with
	// token id 0.
	PenaltyLastN int

	Mirostat    int
	MirostatTau float32
	MirostatEta float32

	LogitBias map[int]float32
}

// candidate pairs a token id with its current logit and derived probability.
// The candidate set is rebuilt from the raw logits row on every decision.
type candidate struct {
	id    int
	logit float32
	p     float32
}

type Sampler struct {
	rng    *rand.Rand
	cfg    SamplerConfig
	greedy bool
	mu     float32

	cand   []candidate
	window []int
	counts map[int]int
}

// NewSampler returns a sampler with the provided configuration. Out-of-range
// values are normalised to their disabled equivalents; a temperature of zero
// selects greedy decoding regardless of the mirostat mode.
func NewSampler(cfg SamplerConfig) *Sampler {
	greedy := cfg.Temperature <= 0
	if cfg.TopP <= 0 || cfg.TopP > 1 {
		cfg.TopP = 1
	}
	if cfg.TailFreeZ <= 0 {
		cfg.TailFreeZ = 1
	}
	if cfg.TypicalP <= 0 {
		cfg.TypicalP = 1
	}
	if cfg.RepeatPenalty <= 0 {
		cfg.RepeatPenalty = 1
	}
	if cfg.PenaltyLastN == 0 {
		cfg.PenaltyLastN = 64
	}
	if cfg.Mirostat < MirostatOff || cfg.Mirostat > MirostatV2 {
		cfg.Mirostat = MirostatOff
	}
	s := &Sampler{
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		cfg:    cfg,
		greedy: greedy,
		counts: make(map[int]int),
	}
	s.Reset()
	return s
}

// Reset re-initialises the mirostat surprise estimate to 2*tau. It is called
// once per generation; mu never survives across generations.
func (s *Sampler) Reset() {
	s.mu = 2 * s.cfg.MirostatTau
}

// Mu returns the current mirostat surprise estimate.
func (s *Sampler) Mu() float32 { return s.mu }

// Sample draws the next token id from a raw logits row. The decision is made
// in three passes:
//
//  1. Per-token logit bias (multiplicative, see SamplerConfig).
//  2. Repeat, frequency and presence penalties over the last PenaltyLastN
//     tokens of history.
//  3. One of greedy, mirostat v1, mirostat v2 or the composite nucleus
//     pipeline (top-k, tail-free, typical, top-p, temperature, weighted
//     draw), in that priority order.
//
// Sample never mutates row or cfg. The only nondeterminism is the seeded
// weighted draw.
func (s *Sampler) Sample(row []float32, history []int) (int, error) {
	if s.cfg.VocabSize > 0 && len(row) != s.cfg.VocabSize {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrShape, len(row), s.cfg.VocabSize)
	}
	if len(row) == 0 {
		return 0, fmt.Errorf("%w: empty row", ErrShape)
	}

	s.rebuild(row)
	s.applyBias()
	s.applyPenalties(history)

	switch {
	case s.greedy:
		return s.argmax(), nil
	case s.cfg.Mirostat == MirostatV1:
		s.temperature(s.cfg.Temperature)
		return s.mirostatV1(), nil
	case s.cfg.Mirostat == MirostatV2:
		s.temperature(s.cfg.Temperature)
		return s.mirostatV2(), nil
	default:
		s.topK(s.cfg.TopK, 1)
		s.tailFree(s.cfg.TailFreeZ, 1)
		s.typical(s.cfg.TypicalP, 1)
		s.topP(s.cfg.TopP, 1)
		s.temperature(s.cfg.Temperature)
		return s.cand[s.draw()].id, nil
	}
}

// rebuild refills the candidate buffer from the raw row, one candidate per
// vocabulary id. The buffer is reused across decisions.
func (s *Sampler) rebuild(row []float32) {
	if cap(s.cand) < len(row) {
		s.cand = make([]candidate, len(row))
	}
	s.cand = s.cand[:len(row)]
	for i, l := range row {
		s.cand[i] = candidate{id: i, logit: l}
	}
}

func (s *Sampler) applyBias() {
	for id, bias := range s.cfg.LogitBias {
		if id >= 0 && id < len(s.cand) {
			s.cand[id].logit *= bias
		}
	}
}

// applyPenalties builds the last-N window (left-padded with token id 0 when
// the history is shorter) and applies the three penalties to every candidate
// that occurs in it.
func (s *Sampler) applyPenalties(history []int) {
	repeat := s.cfg.RepeatPenalty
	freq := s.cfg.FrequencyPenalty
	presence := s.cfg.PresencePenalty
	if repeat == 1 && freq == 0 && presence == 0 {
		return
	}

	lastN := s.cfg.PenaltyLastN
	s.window = s.window[:0]
	if lastN < 0 {
		s.window = append(s.window, history...)
	} else {
		for i := len(history); i < lastN; i++ {
			s.window = append(s.window, 0)
		}
		start := max(len(history)-lastN, 0)
		s.window = append(s.window, history[start:]...)
	}

	clear(s.counts)
	for _, id := range s.window {
		if id >= 0 && id < len(s.cand) {
			s.counts[id]++
		}
	}

	for id, count := range s.counts {
		c := &s.cand[id]
		if c.logit <= 0 {
			c.logit *= repeat
		} else {
			c.logit /= repeat
		}
		c.logit -= float32(count)*freq + presence
	}
}

// argmax returns the id with the highest logit; ties go to the lowest id.
func (s *Sampler) argmax() int {
	best := 0
	for i := 1; i < len(s.cand); i++ {
		if s.cand[i].logit > s.cand[best].logit {
			best = i
		}
	}
	return s.cand[best].id
}

// softmax sorts the candidates by descending logit and fills in normalised
// probabilities.
func (s *Sampler) softmax() {
	sort.SliceStable(s.cand, func(i, j int) bool {
		return s.cand[i].logit > s.cand[j].logit
	})
	maxLogit := s.cand[0].logit
	var sum float64
	for i := range s.cand {
		e := math.Exp(float64(s.cand[i].logit - maxLogit))
		s.cand[i].p = float32(e)
		sum += e
	}
	inv := float32(1 / sum)
	for i := range s.cand {
		s.cand[i].p *= inv
	}
}

// topK keeps the k highest-logit candidates. k<=0 disables the filter.
func (s *Sampler) topK(k, minKeep int) {
	if k <= 0 || k >= len(s.cand) {
		return
	}
	if k < minKeep {
		k = minKeep
	}
	sort.SliceStable(s.cand, func(i, j int) bool {
		return s.cand[i].logit > s.cand[j].logit
	})
	s.cand = s.cand[:k]
}

// tailFree drops the tail of the distribution whose normalised second
// derivative of sorted probabilities exceeds z.
func (s *Sampler) tailFree(z float32, minKeep int) {
	if z >= 1 || len(s.cand) <= 2 {
		return
	}
	s.softmax()

	first := make([]float32, len(s.cand)-1)
	for i := range first {
		first[i] = s.cand[i].p - s.cand[i+1].p
	}
	second := make([]float32, len(first)-1)
	var sum float32
	for i := range second {
		second[i] = float32(math.Abs(float64(first[i] - first[i+1])))
		sum += second[i]
	}
	if sum > 0 {
		for i := range second {
			second[i] /= sum
		}
	} else {
		for i := range second {
			second[i] = 1 / float32(len(second))
		}
	}

	cut := len(s.cand)
	var cum float32
	for i := range second {
		cum += second[i]
		if cum > z && i >= minKeep {
			cut = i
			break
		}
	}
	s.cand = s.cand[:cut]
}

// typical keeps the locally typical candidates: those whose surprise is
// closest to the entropy of the distribution, up to cumulative mass p.
// The generation pipeline runs this with p fixed at 1.0, which keeps
// everything; the full filter is implemented for callers that lower it.
func (s *Sampler) typical(p float32, minKeep int) {
	if p >= 1 {
		return
	}
	s.softmax()

	var entropy float64
	for i := range s.cand {
		pi := float64(s.cand[i].p)
		if pi > 0 {
			entropy += -pi * math.Log(pi)
		}
	}

	shifted := make([]float64, len(s.cand))
	for i := range s.cand {
		shifted[i] = math.Abs(-math.Log(float64(s.cand[i].p)) - entropy)
	}
	order := make([]int, len(s.cand))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return shifted[order[a]] < shifted[order[b]]
	})

	kept := make([]candidate, 0, len(order))
	var cum float32
	for i, idx := range order {
		cum += s.cand[idx].p
		kept = append(kept, s.cand[idx])
		if cum > p && i+1 >= minKeep {
			break
		}
	}
	n := copy(s.cand, kept)
	s.cand = s.cand[:n]
}

// topP keeps the smallest prefix of the sorted distribution whose cumulative
// probability reaches p.
func (s *Sampler) topP(p float32, minKeep int) {
	if p >= 1 {
		return
	}
	s.softmax()

	cut := len(s.cand)
	var cum float32
	for i := range s.cand {
		cum += s.cand[i].p
		if cum >= p && i+1 >= minKeep {
			cut = i + 1
			break
		}
	}
	s.cand = s.cand[:cut]
}

func (s *Sampler) temperature(t float32) {
	if t <= 0 || t == 1 {
		return
	}
	inv := 1 / t
	for i := range s.cand {
		s.cand[i].logit *= inv
	}
}

// draw renormalises the surviving candidates and samples one, returning its
// index into the candidate buffer.
func (s *Sampler) draw() int {
	s.softmax()
	r := s.rng.Float64()
	var cum float64
	for i := range s.cand {
		cum += float64(s.cand[i].p)
		if r <= cum {
			return i
		}
	}
	return len(s.cand) - 1
}

// mirostatV1 estimates the Zipf exponent from the top candidates, derives a
// cutoff k targeting the surprise tau, samples from the truncated
// distribution and nudges mu by the observed surprise error.
func (s *Sampler) mirostatV1() int {
	tau := float64(s.cfg.MirostatTau)
	eta := float64(s.cfg.MirostatEta)
	n := float64(len(s.cand))

	s.softmax()

	var sumTB, sumTT float64
	pool := min(mirostatM, len(s.cand))
	for i := 0; i < pool-1; i++ {
		t := math.Log(float64(i+2) / float64(i+1))
		b := math.Log(float64(s.cand[i].p) / float64(s.cand[i+1].p))
		sumTB += t * b
		sumTT += t * t
	}
	sHat := sumTB / sumTT

	eps := sHat - 1
	k := math.Pow((eps*math.Pow(2, float64(s.mu)))/(1-math.Pow(n, -eps)), 1/sHat)
	if math.IsNaN(k) || k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	s.topK(int(k), 1)

	idx := s.draw()
	id := s.cand[idx].id
	surprise := -math.Log2(float64(s.cand[idx].p))
	s.mu -= float32(eta * (surprise - tau))
	return id
}

// mirostatV2 truncates to candidates whose surprise does not exceed mu,
// samples, and applies the same mu update as v1.
func (s *Sampler) mirostatV2() int {
	tau := float64(s.cfg.MirostatTau)
	eta := float64(s.cfg.MirostatEta)

	s.softmax()

	cut := len(s.cand)
	for i := range s.cand {
		if -math.Log2(float64(s.cand[i].p)) > float64(s.mu) {
			cut = i
			break
		}
	}
	if cut < 1 {
		cut = 1
	}
	s.cand = s.cand[:cut]

	idx := s.draw()
	id := s.cand[idx].id
	surprise := -math.Log2(float64(s.cand[idx].p))
	s.mu -= float32(eta * (surprise - tau))
	return id
}
