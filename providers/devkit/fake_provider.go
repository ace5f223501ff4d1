// Package devkit ships a scripted in-memory connection provider for
// exercising the lifecycle orchestrator without a real messaging network.
package devkit

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-sessions/core"
)

// ConnectionScript drives one FakeConnection: whether the identity is
// already registered with the remote network, the pairing code to hand
// out, and any scripted failures.
type ConnectionScript struct {
	Registered bool
	PairCode   string
	PairErr    error
	OpenErr    error
	CloseErr   error
	LogoutErr  error
}

// FakeProvider opens FakeConnections from a per-call script list. Calls
// past the end of the list reuse the last script; an empty list yields
// unregistered connections with a default code.
type FakeProvider struct {
	mu       sync.Mutex
	scripts  []ConnectionScript
	requests []core.OpenConnectionRequest
	opened   []*FakeConnection
}

func NewFakeProvider(scripts ...ConnectionScript) *FakeProvider {
	return &FakeProvider{
		scripts: append([]ConnectionScript(nil), scripts...),
	}
}

func (p *FakeProvider) Open(_ context.Context, req core.OpenConnectionRequest) (core.Connection, error) {
	if p == nil {
		return nil, fmt.Errorf("devkit: fake provider is nil")
	}
	if strings.TrimSpace(req.Number) == "" {
		return nil, fmt.Errorf("devkit: identity number is required")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests = append(p.requests, req)
	script := ConnectionScript{PairCode: "DEVKIT-0000"}
	index := len(p.requests) - 1
	if index < len(p.scripts) {
		script = p.scripts[index]
	} else if len(p.scripts) > 0 {
		script = p.scripts[len(p.scripts)-1]
	}
	if script.OpenErr != nil {
		return nil, script.OpenErr
	}

	conn := newFakeConnection(req, script)
	p.opened = append(p.opened, conn)
	return conn, nil
}

// Requests returns every open request the provider has seen, in order.
func (p *FakeProvider) Requests() []core.OpenConnectionRequest {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]core.OpenConnectionRequest, len(p.requests))
	copy(out, p.requests)
	return out
}

// Opened returns every connection the provider has handed out, in order.
func (p *FakeProvider) Opened() []*FakeConnection {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*FakeConnection, len(p.opened))
	copy(out, p.opened)
	return out
}

// LastOpened returns the most recently opened connection, or nil.
func (p *FakeProvider) LastOpened() *FakeConnection {
	opened := p.Opened()
	if len(opened) == 0 {
		return nil
	}
	return opened[len(opened)-1]
}

var _ core.Provider = (*FakeProvider)(nil)
