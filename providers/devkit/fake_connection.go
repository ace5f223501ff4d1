package devkit

import (
	"context"
	"fmt"
	"sync"

	"github.com/goliatone/go-sessions/core"
)

// FakeConnection is one scripted connection. Tests drive the provider
// side with EmitCredentials, EmitOpened, and EmitClosed; Calls records
// every interaction in order so tests can assert sequencing.
type FakeConnection struct {
	number string
	script ConnectionScript

	mu        sync.Mutex
	events    chan core.ConnectionEvent
	closeOnce sync.Once
	closed    bool
	calls     []string
}

func newFakeConnection(req core.OpenConnectionRequest, script ConnectionScript) *FakeConnection {
	return &FakeConnection{
		number: req.Number,
		script: script,
		events: make(chan core.ConnectionEvent, 16),
	}
}

func (c *FakeConnection) Registered() bool {
	if c == nil {
		return false
	}
	c.record("registered")
	return c.script.Registered
}

func (c *FakeConnection) RequestPairingCode(_ context.Context, number string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("devkit: fake connection is nil")
	}
	c.record("request_pairing_code:" + number)
	if c.script.PairErr != nil {
		return "", c.script.PairErr
	}
	return c.script.PairCode, nil
}

func (c *FakeConnection) Events() <-chan core.ConnectionEvent {
	return c.events
}

func (c *FakeConnection) Close(context.Context) error {
	if c == nil {
		return nil
	}
	c.record("close")
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.closeOnce.Do(func() { close(c.events) })
	return c.script.CloseErr
}

func (c *FakeConnection) Logout(context.Context) error {
	if c == nil {
		return nil
	}
	c.record("logout")
	if c.script.LogoutErr != nil {
		return c.script.LogoutErr
	}
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.closeOnce.Do(func() { close(c.events) })
	return nil
}

// EmitCredentials delivers a credentials-updated notification.
func (c *FakeConnection) EmitCredentials(payload []byte) {
	c.record("emit_credentials")
	c.events <- core.ConnectionEvent{
		Kind:        core.EventCredentialsUpdated,
		Credentials: append([]byte(nil), payload...),
	}
}

// EmitOpened delivers the open notification.
func (c *FakeConnection) EmitOpened() {
	c.record("emit_opened")
	c.events <- core.ConnectionEvent{Kind: core.EventOpened}
}

// EmitClosed delivers a close notification. A terminal close also closes
// the event channel, matching the provider contract.
func (c *FakeConnection) EmitClosed(terminal bool, reason string) {
	c.record("emit_closed")
	c.events <- core.ConnectionEvent{
		Kind:     core.EventClosed,
		Terminal: terminal,
		Reason:   reason,
	}
	if terminal {
		c.closeOnce.Do(func() { close(c.events) })
	}
}

func (c *FakeConnection) Number() string {
	if c == nil {
		return ""
	}
	return c.number
}

func (c *FakeConnection) Closed() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Calls returns the interaction log in order.
func (c *FakeConnection) Calls() []string {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	copy(out, c.calls)
	return out
}

func (c *FakeConnection) record(call string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
}

var _ core.Connection = (*FakeConnection)(nil)
