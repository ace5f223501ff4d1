package devkit

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-sessions/core"
)

func TestFakeProviderFollowsScripts(t *testing.T) {
	provider := NewFakeProvider(
		ConnectionScript{PairCode: "AAAA-1111"},
		ConnectionScript{Registered: true},
	)

	ctx := context.Background()
	first, err := provider.Open(ctx, core.OpenConnectionRequest{Number: "447700900000", WorkspacePath: "/w"})
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	code, err := first.RequestPairingCode(ctx, "447700900000")
	if err != nil {
		t.Fatalf("pairing code: %v", err)
	}
	if code != "AAAA-1111" {
		t.Fatalf("code = %q, want AAAA-1111", code)
	}
	if first.Registered() {
		t.Fatal("first connection should be unregistered")
	}

	second, err := provider.Open(ctx, core.OpenConnectionRequest{Number: "447700900000"})
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	if !second.Registered() {
		t.Fatal("second connection should be registered")
	}

	// Past the end of the script list the last entry repeats.
	third, err := provider.Open(ctx, core.OpenConnectionRequest{Number: "447700900000"})
	if err != nil {
		t.Fatalf("third open: %v", err)
	}
	if !third.Registered() {
		t.Fatal("third connection should reuse the last script")
	}

	if got := len(provider.Requests()); got != 3 {
		t.Fatalf("recorded requests = %d, want 3", got)
	}
}

func TestFakeProviderScriptedOpenFailure(t *testing.T) {
	openErr := errors.New("devkit: handshake refused")
	provider := NewFakeProvider(ConnectionScript{OpenErr: openErr})

	if _, err := provider.Open(context.Background(), core.OpenConnectionRequest{Number: "447700900000"}); !errors.Is(err, openErr) {
		t.Fatalf("open error = %v, want scripted failure", err)
	}
	if provider.LastOpened() != nil {
		t.Fatal("failed open must not record a connection")
	}
}

func TestFakeConnectionEventDelivery(t *testing.T) {
	provider := NewFakeProvider()
	conn, err := provider.Open(context.Background(), core.OpenConnectionRequest{Number: "447700900000"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	fake := provider.LastOpened()

	fake.EmitCredentials([]byte("creds"))
	fake.EmitOpened()
	fake.EmitClosed(true, "logged out")

	var kinds []core.ConnectionEventKind
	for event := range conn.Events() {
		kinds = append(kinds, event.Kind)
	}
	want := []core.ConnectionEventKind{
		core.EventCredentialsUpdated,
		core.EventOpened,
		core.EventClosed,
	}
	if len(kinds) != len(want) {
		t.Fatalf("event kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("event[%d] = %v, want %v", i, kinds[i], want[i])
		}
	}
}

func TestFakeConnectionCloseIsIdempotent(t *testing.T) {
	provider := NewFakeProvider()
	ctx := context.Background()
	conn, err := provider.Open(ctx, core.OpenConnectionRequest{Number: "447700900000"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if err := conn.Close(ctx); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := conn.Close(ctx); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if !provider.LastOpened().Closed() {
		t.Fatal("connection should report closed")
	}

	// The event channel is closed exactly once.
	if _, open := <-conn.Events(); open {
		t.Fatal("events channel should be closed after close")
	}
}

func TestFakeConnectionRecordsCallOrder(t *testing.T) {
	provider := NewFakeProvider(ConnectionScript{PairCode: "BBBB-2222"})
	ctx := context.Background()
	conn, err := provider.Open(ctx, core.OpenConnectionRequest{Number: "447700900000"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	_ = conn.Registered()
	if _, err := conn.RequestPairingCode(ctx, "447700900000"); err != nil {
		t.Fatalf("pairing code: %v", err)
	}
	_ = conn.Close(ctx)

	calls := provider.LastOpened().Calls()
	want := []string{"registered", "request_pairing_code:447700900000", "close"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("calls[%d] = %q, want %q", i, calls[i], want[i])
		}
	}
}
