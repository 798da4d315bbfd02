package classify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/receiptlab/receiptlab/internal/parsing"
)

// SessionState tracks the lifecycle of a lazily-loaded backend.
type SessionState int

const (
	StateNotLoaded SessionState = iota
	StateLoading
	StateLoaded
	StateFailed
)

func (s SessionState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "not-loaded"
	}
}

// Session owns one classifier backend as an explicit resource. Loading is
// lazy and idempotent: the first EnsureLoaded call runs the loader, later
// calls reuse the outcome. A failed load sticks until Reset.
type Session struct {
	mu      sync.Mutex
	state   SessionState
	backend Backend
	loadErr error
	load    func() (Backend, error)
}

// NewSession wraps a loader without invoking it.
func NewSession(load func() (Backend, error)) *Session {
	return &Session{load: load}
}

// EnsureLoaded acquires the backend, loading it on first use.
func (s *Session) EnsureLoaded() (Backend, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateLoaded:
		return s.backend, nil
	case StateFailed:
		return nil, s.loadErr
	}

	s.state = StateLoading
	backend, err := s.load()
	if err != nil {
		s.state = StateFailed
		s.loadErr = err
		return nil, err
	}
	s.state = StateLoaded
	s.backend = backend
	return backend, nil
}

// State reports the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the sticky load error, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}

// Reset returns a failed or loaded session to NotLoaded so the next
// EnsureLoaded retries the loader.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backend != nil {
		s.backend.Close()
	}
	s.state = StateNotLoaded
	s.backend = nil
	s.loadErr = nil
}

// Close releases the loaded backend.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backend == nil {
		return nil
	}
	err := s.backend.Close()
	s.backend = nil
	s.state = StateNotLoaded
	return err
}

// Adapter guards a session-backed classifier for the parsing engine. Load or
// inference failures are caught here and degrade to all-Other labels for that
// call, so classification problems never abort a parse.
type Adapter struct {
	session *Session
}

// NewAdapter wraps a session.
func NewAdapter(session *Session) *Adapter {
	return &Adapter{session: session}
}

func (a *Adapter) Classify(ctx context.Context, lines []string, features [][]float64) ([]parsing.LineClass, error) {
	backend, err := a.session.EnsureLoaded()
	if err != nil {
		slog.Warn("classifier unavailable, labeling all lines Other", "error", err)
		return allOther(len(lines)), nil
	}

	labels, err := backend.Classify(ctx, lines, features)
	if err != nil {
		slog.Warn("classifier inference failed, labeling all lines Other", "error", err)
		return allOther(len(lines)), nil
	}
	if len(labels) != len(lines) {
		slog.Warn("classifier label count mismatch, labeling all lines Other",
			"labels", len(labels), "lines", len(lines))
		return allOther(len(lines)), nil
	}
	return labels, nil
}

func (a *Adapter) Version() string {
	backend, err := a.session.EnsureLoaded()
	if err != nil {
		return ""
	}
	return backend.Version()
}

// Close closes the underlying session.
func (a *Adapter) Close() error {
	return a.session.Close()
}
