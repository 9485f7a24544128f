// Package enginetest provides a scriptable in-memory engine.Engine that
// records every call it receives.
package enginetest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/use-agent/purify-render/engine"
)

// Call is one recorded engine or session operation.
type Call struct {
	Op       string // "new_session", "navigate", "execute", "source", "quit"
	Endpoint string
	Caps     engine.Capabilities
	URL      string
	Script   string
	Args     []json.RawMessage
}

// Engine is a fake backend. By default every session stores the first
// argument of the last executed script as its document and returns it
// verbatim from PageSource.
//
// Set the error fields to make the matching step fail, and HangSource to
// make PageSource block until its context is canceled.
type Engine struct {
	SessionErr  error
	NavigateErr error
	ExecuteErr  error
	SourceErr   error
	QuitErr     error
	HangSource  bool

	mu    sync.Mutex
	calls []Call
}

// New returns a fake engine with default behavior.
func New() *Engine { return &Engine{} }

func (e *Engine) Name() string { return "fake" }

func (e *Engine) NewSession(ctx context.Context, endpoint string, caps engine.Capabilities) (engine.Session, error) {
	e.record(Call{Op: "new_session", Endpoint: endpoint, Caps: caps})
	if e.SessionErr != nil {
		return nil, e.SessionErr
	}
	return &session{eng: e}, nil
}

// Calls returns a copy of the recorded calls in order.
func (e *Engine) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Call, len(e.calls))
	copy(out, e.calls)
	return out
}

// Ops returns just the operation names of the recorded calls.
func (e *Engine) Ops() []string {
	calls := e.Calls()
	ops := make([]string, len(calls))
	for i, c := range calls {
		ops[i] = c.Op
	}
	return ops
}

// Count returns how many times op was recorded.
func (e *Engine) Count(op string) int {
	n := 0
	for _, c := range e.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}

func (e *Engine) record(c Call) {
	e.mu.Lock()
	e.calls = append(e.calls, c)
	e.mu.Unlock()
}

type session struct {
	eng      *Engine
	document string
}

func (s *session) Navigate(ctx context.Context, url string) error {
	s.eng.record(Call{Op: "navigate", URL: url})
	return s.eng.NavigateErr
}

func (s *session) ExecuteScript(ctx context.Context, script string, args ...json.RawMessage) error {
	s.eng.record(Call{Op: "execute", Script: script, Args: args})
	if s.eng.ExecuteErr != nil {
		return s.eng.ExecuteErr
	}
	if len(args) == 0 {
		return nil
	}
	var doc string
	if err := json.Unmarshal(args[0], &doc); err != nil {
		return errors.New("enginetest: first script argument is not a JSON string")
	}
	s.document = doc
	return nil
}

func (s *session) PageSource(ctx context.Context) (string, error) {
	s.eng.record(Call{Op: "source"})
	if s.eng.HangSource {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if s.eng.SourceErr != nil {
		return "", s.eng.SourceErr
	}
	return s.document, nil
}

func (s *session) Quit(ctx context.Context) error {
	s.eng.record(Call{Op: "quit"})
	return s.eng.QuitErr
}
