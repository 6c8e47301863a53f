package gate

import (
	"context"
	"sync"
)

// hardHopLimit bounds Navigate when the gate's own redirect guard is disabled.
const hardHopLimit = 16

// Machine tracks one visitor's navigation: the admin gate state and the number of consecutive
// redirects. Its methods are safe for concurrent use.
type Machine struct {
	gate  *Gate
	store CredentialStore

	mu    sync.Mutex
	state State
	hops  int
}

// NewMachine returns a Machine in StateUnknown for the visitor whose credentials are in store.
func (g *Gate) NewMachine(store CredentialStore) *Machine {
	return &Machine{gate: g, store: store}
}

// State returns the admin gate state after the last entry.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Hops returns the current count of consecutive redirects.
func (m *Machine) Hops() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hops
}

// Enter checks path. A redirect increments the hop count; anything else resets it.
func (m *Machine) Enter(ctx context.Context, path string) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if route, _ := m.gate.Classify(path); route == RouteAdmin {
		m.state = StateChecking
	}

	res, err := m.gate.Check(ctx, m.store, Request{Path: path, Hops: m.hops})
	if res.Route == RouteAdmin {
		m.state = res.State
	}
	if res.Decision.Redirect() {
		m.hops++
	} else {
		m.hops = 0
	}
	return res, err
}

// Navigate enters path and follows redirects until a route is allowed. It returns every
// result in order. It stops at the first error.
func (m *Machine) Navigate(ctx context.Context, path string) ([]Result, error) {
	var trail []Result
	for i := 0; i < hardHopLimit; i++ {
		if err := ctx.Err(); err != nil {
			return trail, err
		}
		res, err := m.Enter(ctx, path)
		trail = append(trail, res)
		if err != nil || !res.Decision.Redirect() {
			return trail, err
		}
		path = res.Location
	}
	return trail, ErrTooManyRedirects
}

// Logout clears both credentials and resets the machine.
func (m *Machine) Logout(ctx context.Context) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = StateUnknown
	m.hops = 0
	return m.gate.Logout(ctx, m.store)
}
