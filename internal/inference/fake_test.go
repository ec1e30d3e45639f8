package inference

import "fmt"

// fakeEngine is a scripted engine for tests. Token ids 0..255 are bytes,
// followed by BOS and EOS. Each Evaluate call returns a logits row that
// makes the next scripted id the greedy winner; once the script runs out it
// favours EOS.
type fakeEngine struct {
	ctxSize   int
	logitsAll bool
	script    []int
	evalErr   error
	errOnCall int

	calls  int
	chunks [][]int
	pasts  []int
}

const (
	fakeVocab = 258
	fakeBOS   = 256
	fakeEOS   = 257
)

func (f *fakeEngine) VocabSize() int   { return fakeVocab }
func (f *fakeEngine) ContextSize() int { return f.ctxSize }
func (f *fakeEngine) BOSToken() int    { return fakeBOS }
func (f *fakeEngine) EOSToken() int    { return fakeEOS }

func (f *fakeEngine) Tokenize(text string, addBOS, special bool) ([]int, error) {
	var ids []int
	if addBOS {
		ids = append(ids, fakeBOS)
	}
	for i := 0; i < len(text); i++ {
		ids = append(ids, int(text[i]))
	}
	return ids, nil
}

func (f *fakeEngine) Detokenize(id int) []byte {
	if id < 0 || id >= 256 {
		return nil
	}
	return []byte{byte(id)}
}

func (f *fakeEngine) Evaluate(ids []int, past int) ([][]float32, error) {
	if f.evalErr != nil && f.calls >= f.errOnCall {
		return nil, f.evalErr
	}
	f.chunks = append(f.chunks, append([]int(nil), ids...))
	f.pasts = append(f.pasts, past)

	favoured := fakeEOS
	if f.calls < len(f.script) {
		favoured = f.script[f.calls]
	}
	f.calls++

	row := make([]float32, fakeVocab)
	if favoured < 0 || favoured >= fakeVocab {
		panic(fmt.Sprintf("script id %d out of vocabulary", favoured))
	}
	row[favoured] = 100
	rows := 1
	if f.logitsAll {
		rows = len(ids)
	}
	out := make([][]float32, rows)
	for i := range out {
		out[i] = row
	}
	return out, nil
}
