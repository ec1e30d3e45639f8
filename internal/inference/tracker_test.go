package inference

import (
	"errors"
	"testing"
)

func TestTrackerBatchedEvaluation(t *testing.T) {
	f := &fakeEngine{ctxSize: 64}
	tr := NewTracker(f, false)

	ids := make([]int, 10)
	for i := range ids {
		ids[i] = i + 1
	}
	if err := tr.AppendAndEvaluate(ids, 4); err != nil {
		t.Fatalf("AppendAndEvaluate: %v", err)
	}

	wantChunks := [][]int{{1, 2, 3, 4}, {5, 6, 7, 8}, {9, 10}}
	if len(f.chunks) != len(wantChunks) {
		t.Fatalf("got %d chunks, want %d", len(f.chunks), len(wantChunks))
	}
	for i, want := range wantChunks {
		got := f.chunks[i]
		if len(got) != len(want) {
			t.Fatalf("chunk %d: got %v, want %v", i, got, want)
		}
		for j := range want {
			if got[j] != want[j] {
				t.Fatalf("chunk %d: got %v, want %v", i, got, want)
			}
		}
	}
	wantPasts := []int{0, 4, 8}
	for i, want := range wantPasts {
		if f.pasts[i] != want {
			t.Fatalf("past for chunk %d = %d, want %d", i, f.pasts[i], want)
		}
	}

	if tr.Evaluated() != 10 {
		t.Fatalf("Evaluated = %d, want 10", tr.Evaluated())
	}
	if got := tr.Tokens(); len(got) != 10 || got[0] != 1 || got[9] != 10 {
		t.Fatalf("Tokens = %v", got)
	}
	if tr.LatestRow() == nil {
		t.Fatal("LatestRow is nil after evaluation")
	}
	if tr.Remaining() != 54 {
		t.Fatalf("Remaining = %d, want 54", tr.Remaining())
	}
}

func TestTrackerOverflowBeforeEvaluation(t *testing.T) {
	f := &fakeEngine{ctxSize: 8}
	tr := NewTracker(f, false)

	ids := make([]int, 9)
	err := tr.AppendAndEvaluate(ids, 4)
	if !errors.Is(err, ErrContextOverflow) {
		t.Fatalf("expected ErrContextOverflow, got %v", err)
	}
	if f.calls != 0 {
		t.Fatalf("engine was called %d times before the overflow check", f.calls)
	}
	if tr.Evaluated() != 0 {
		t.Fatalf("Evaluated = %d after rejected append", tr.Evaluated())
	}

	// Exactly filling the window is allowed.
	if err := tr.AppendAndEvaluate(ids[:8], 4); err != nil {
		t.Fatalf("AppendAndEvaluate at capacity: %v", err)
	}
	if err := tr.AppendAndEvaluate([]int{1}, 4); !errors.Is(err, ErrContextOverflow) {
		t.Fatalf("expected overflow on full window, got %v", err)
	}
}

func TestTrackerEvaluationFailure(t *testing.T) {
	f := &fakeEngine{ctxSize: 64, evalErr: errors.New("backend died"), errOnCall: 1}
	tr := NewTracker(f, false)

	ids := make([]int, 8)
	err := tr.AppendAndEvaluate(ids, 4)
	if !errors.Is(err, ErrEvaluation) {
		t.Fatalf("expected ErrEvaluation, got %v", err)
	}
	// The first chunk succeeded; the counter reflects only accepted work.
	if tr.Evaluated() != 4 {
		t.Fatalf("Evaluated = %d, want 4", tr.Evaluated())
	}
}

func TestTrackerLogitsAllRows(t *testing.T) {
	f := &fakeEngine{ctxSize: 16, logitsAll: true}
	tr := NewTracker(f, true)

	if err := tr.AppendAndEvaluate([]int{1, 2, 3, 4, 5}, 2); err != nil {
		t.Fatalf("AppendAndEvaluate: %v", err)
	}
	for pos := 0; pos < 5; pos++ {
		if tr.Row(pos) == nil {
			t.Fatalf("Row(%d) is nil in logits-all mode", pos)
		}
	}
	if tr.Row(5) != nil {
		t.Fatal("Row past the evaluated range must be nil")
	}
}

func TestTrackerReset(t *testing.T) {
	f := &fakeEngine{ctxSize: 16}
	tr := NewTracker(f, false)
	if err := tr.AppendAndEvaluate([]int{1, 2, 3}, 0); err != nil {
		t.Fatalf("AppendAndEvaluate: %v", err)
	}
	tr.Reset()
	if tr.Evaluated() != 0 || len(tr.Tokens()) != 0 || tr.LatestRow() != nil {
		t.Fatal("Reset did not clear the session")
	}
}
