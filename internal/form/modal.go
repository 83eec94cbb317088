package form

import (
	"sync"

	"deskcore/internal/async"
)

// Modal tracks the single open modal and the record it edits. Opening or
// closing moves the modal's async scope forward so work started from a
// previous opening cannot commit.
type Modal struct {
	mu      sync.Mutex
	tracker *async.Tracker
	name    string
	editing string
	token   async.Token
}

// NewModal returns a closed modal controller backed by tracker.
func NewModal(tracker *async.Tracker) *Modal {
	if tracker == nil {
		tracker = async.NewTracker()
	}
	return &Modal{tracker: tracker}
}

// Open shows modal name for record id (empty for a new record) and returns
// the token async work in the modal should commit with. Opening over another
// modal closes it first.
func (m *Modal) Open(name, id string) async.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.name != "" {
		m.tracker.Cancel(scope(m.name))
	}
	m.name, m.editing = name, id
	m.token = m.tracker.Begin(scope(name))
	return m.token
}

// Close hides the modal and invalidates its pending work.
func (m *Modal) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.name == "" {
		return
	}
	m.tracker.Cancel(scope(m.name))
	m.name, m.editing, m.token = "", "", async.Token{}
}

// State reports the open modal and edited record id.
func (m *Modal) State() (name, editing string, open bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.name, m.editing, m.name != ""
}

// Token returns the token of the current opening.
func (m *Modal) Token() async.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// Tracker exposes the underlying tracker for committing results.
func (m *Modal) Tracker() *async.Tracker { return m.tracker }

func scope(name string) string { return "modal:" + name }
