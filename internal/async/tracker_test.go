package async

import (
	"errors"
	"sync"
	"testing"
)

func TestCommitCurrentToken(t *testing.T) {
	tr := NewTracker()
	tok := tr.Begin("upload")
	ran := false
	if err := tr.Commit(tok, func() error { ran = true; return nil }); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if !ran {
		t.Fatalf("expected fn to run")
	}
}

func TestNewerTokenMakesOlderStale(t *testing.T) {
	tr := NewTracker()
	first := tr.Begin("analysis")
	second := tr.Begin("analysis")
	if err := tr.Commit(first, func() error { t.Fatal("stale fn ran"); return nil }); !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}
	if !tr.Current(second) {
		t.Fatalf("expected second token current")
	}
}

func TestCancelAndScopesAreIndependent(t *testing.T) {
	tr := NewTracker()
	a := tr.Begin("a")
	b := tr.Begin("b")
	tr.Cancel("a")
	if tr.Current(a) {
		t.Fatalf("cancelled token still current")
	}
	if !tr.Current(b) {
		t.Fatalf("cancel leaked into another scope")
	}
	if tr.Current(Token{Scope: "never"}) {
		t.Fatalf("zero token must never be current")
	}
}

func TestCommitPropagatesError(t *testing.T) {
	tr := NewTracker()
	boom := errors.New("boom")
	if err := tr.Commit(tr.Begin("x"), func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestConcurrentBeginsYieldOneWinner(t *testing.T) {
	tr := NewTracker()
	var wg sync.WaitGroup
	tokens := make([]Token, 32)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i] = tr.Begin("race")
		}(i)
	}
	wg.Wait()
	current := 0
	for _, tok := range tokens {
		if tr.Current(tok) {
			current++
		}
	}
	if current != 1 {
		t.Fatalf("expected exactly one current token, got %d", current)
	}
}
