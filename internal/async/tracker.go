// Package async guards results of background work against the UI state that
// started it. Each scope (an open modal, a pending upload slot, an analysis
// panel) carries a generation; work started under an older generation can no
// longer commit.
package async

import (
	"errors"
	"sync"
)

// ErrStale is returned when a result arrives after its scope moved on.
var ErrStale = errors.New("async: stale result")

// Token identifies one unit of work within a scope.
type Token struct {
	Scope      string
	Generation uint64
}

// Tracker hands out tokens and arbitrates commits.
type Tracker struct {
	mu   sync.Mutex
	gens map[string]uint64
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{gens: make(map[string]uint64)}
}

// Begin starts new work in scope, invalidating earlier tokens for it.
func (t *Tracker) Begin(scope string) Token {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gens[scope]++
	return Token{Scope: scope, Generation: t.gens[scope]}
}

// Cancel invalidates every outstanding token for scope.
func (t *Tracker) Cancel(scope string) {
	t.mu.Lock()
	t.gens[scope]++
	t.mu.Unlock()
}

// Current reports whether tok is the latest token of its scope.
func (t *Tracker) Current(tok Token) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current(tok)
}

func (t *Tracker) current(tok Token) bool {
	return tok.Generation != 0 && t.gens[tok.Scope] == tok.Generation
}

// Commit runs fn only while tok is current. The tracker lock is held for the
// duration of fn so a concurrent Cancel cannot interleave; fn must not call
// back into the tracker.
func (t *Tracker) Commit(tok Token, fn func() error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.current(tok) {
		return ErrStale
	}
	return fn()
}
