// Package simulation implements per-path fault and delay injection. A
// simulation short-circuits normal dispatch: when one is active for a
// request's path the configured delay is applied and the configured
// status/body/headers are returned instead of running any handler.
package simulation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Simulation is an active fault override for one endpoint path.
type Simulation struct {
	// Path is the endpoint path the simulation applies to. It may be a
	// literal request path or an OpenAPI template path like /pet/{petId}.
	Path string `json:"path"`

	// OperationID names the targeted operation, informational only.
	OperationID string `json:"operationId,omitempty"`

	// Status is the forced response status code.
	Status int `json:"status"`

	// DelayMs is an optional artificial delay in milliseconds applied
	// before responding.
	DelayMs int `json:"delayMs,omitempty"`

	// Body optionally overrides the response body.
	Body any `json:"body,omitempty"`

	// Headers optionally override/add response headers.
	Headers map[string]string `json:"headers,omitempty"`

	// When is an optional expr predicate evaluated against the request
	// ({method, path, query, headers}); the simulation fires only when it
	// evaluates to true. Empty means always fire.
	When string `json:"when,omitempty"`
}

type slot struct {
	sim     *Simulation
	program *vm.Program
}

// Manager holds at most one active simulation per path. Setting a new
// simulation for a path replaces the previous one (last write wins).
type Manager struct {
	mu    sync.RWMutex
	slots map[string]*slot
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{slots: make(map[string]*slot)}
}

// Set installs or replaces the simulation for sim.Path. A non-empty When
// predicate is compiled here so a malformed expression is rejected up front
// instead of failing on every request.
func (m *Manager) Set(sim *Simulation) error {
	if sim == nil || sim.Path == "" {
		return fmt.Errorf("simulation requires a path")
	}

	var program *vm.Program
	if sim.When != "" {
		var err error
		program, err = expr.Compile(sim.When, expr.AsBool())
		if err != nil {
			return fmt.Errorf("compile when predicate %q: %w", sim.When, err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[sim.Path] = &slot{sim: sim, program: program}
	return nil
}

// Get returns the simulation registered for exactly the given path.
func (m *Manager) Get(path string) *Simulation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.slots[path]; ok {
		return s.sim
	}
	return nil
}

// Remove clears the slot for a path and reports whether a simulation was
// actually removed.
func (m *Manager) Remove(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.slots[path]; !ok {
		return false
	}
	delete(m.slots, path)
	return true
}

// List returns a snapshot of every active simulation, used to seed newly
// connected inspector clients.
func (m *Manager) List() []*Simulation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Simulation, 0, len(m.slots))
	for _, s := range m.slots {
		out = append(out, s.sim)
	}
	return out
}

// Clear removes all active simulations.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots = make(map[string]*slot)
}

// RequestInfo carries the request attributes a When predicate can inspect.
type RequestInfo struct {
	Method  string
	Path    string
	Query   map[string]string
	Headers map[string]string
}

// Match finds the simulation applicable to a request. Matching rule: an
// exact literal match on the request path wins; otherwise a simulation
// whose path contains {param} segments matches by OpenAPI template rules
// (segment count equal, non-parameter segments equal). When a predicate is
// configured it must evaluate to true; evaluation errors disable the match
// for that request.
func (m *Manager) Match(req RequestInfo) *Simulation {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if s, ok := m.slots[req.Path]; ok && m.allows(s, req) {
		return s.sim
	}
	for path, s := range m.slots {
		if !strings.Contains(path, "{") {
			continue
		}
		if templateMatches(path, req.Path) && m.allows(s, req) {
			return s.sim
		}
	}
	return nil
}

func (m *Manager) allows(s *slot, req RequestInfo) bool {
	if s.program == nil {
		return true
	}
	env := map[string]any{
		"method":  req.Method,
		"path":    req.Path,
		"query":   req.Query,
		"headers": req.Headers,
	}
	out, err := expr.Run(s.program, env)
	if err != nil {
		return false
	}
	ok, _ := out.(bool)
	return ok
}

// ApplyDelay sleeps for the simulation's configured delay, honoring context
// cancellation. Returns the context error when cancelled mid-delay.
func ApplyDelay(ctx context.Context, sim *Simulation) error {
	if sim.DelayMs <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(sim.DelayMs) * time.Millisecond):
		return nil
	}
}

// templateMatches reports whether a literal request path matches an OpenAPI
// template path such as /pet/{petId}.
func templateMatches(template, path string) bool {
	tSegs := strings.Split(strings.Trim(template, "/"), "/")
	pSegs := strings.Split(strings.Trim(path, "/"), "/")
	if len(tSegs) != len(pSegs) {
		return false
	}
	for i, seg := range tSegs {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			if pSegs[i] == "" {
				return false
			}
			continue
		}
		if seg != pSegs[i] {
			return false
		}
	}
	return true
}
