package sessions_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gocmd "github.com/goliatone/go-command"
	sessions "github.com/goliatone/go-sessions"
	sessionscommand "github.com/goliatone/go-sessions/command"
	"github.com/goliatone/go-sessions/core"
	"github.com/goliatone/go-sessions/inbound"
	"github.com/goliatone/go-sessions/providers/devkit"
)

type memorySessionStore struct {
	mu      sync.Mutex
	records map[string]core.Session
}

func newMemorySessionStore() *memorySessionStore {
	return &memorySessionStore{records: map[string]core.Session{}}
}

func (s *memorySessionStore) UpsertCredentials(_ context.Context, in core.UpsertCredentialsInput) (core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[in.Number]
	now := time.Now().UTC()
	if !ok {
		record = core.Session{Number: in.Number, SessionID: "mem-" + in.Number, CreatedAt: now}
	}
	record.Credentials = append([]byte(nil), in.Credentials...)
	record.Active = true
	record.UpdatedAt = now
	s.records[in.Number] = record
	return record, nil
}

func (s *memorySessionStore) MarkLinked(_ context.Context, in core.MarkLinkedInput) (core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record := s.records[in.Number]
	record.Number = in.Number
	record.IsNewSession = in.IsNewSession
	record.Active = true
	now := time.Now().UTC()
	record.ConnectedAt = &now
	record.UpdatedAt = now
	s.records[in.Number] = record
	return record, nil
}

func (s *memorySessionStore) Deactivate(_ context.Context, number string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[number]
	if !ok {
		return nil
	}
	record.Active = false
	s.records[number] = record
	return nil
}

func (s *memorySessionStore) Delete(_ context.Context, number string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, number)
	return nil
}

func (s *memorySessionStore) Get(_ context.Context, number string) (core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[number]
	if !ok {
		return core.Session{}, core.ErrSessionNotFound
	}
	return record, nil
}

func (s *memorySessionStore) GetActive(ctx context.Context, number string) (core.Session, error) {
	record, err := s.Get(ctx, number)
	if err != nil {
		return core.Session{}, err
	}
	if !record.Active {
		return core.Session{}, core.ErrSessionNotFound
	}
	return record, nil
}

func (s *memorySessionStore) ListActive(context.Context) ([]core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var active []core.Session
	for _, record := range s.records {
		if record.Active {
			active = append(active, record)
		}
	}
	return active, nil
}

func newComposedService(t *testing.T, provider core.Provider) *sessions.Service {
	t.Helper()
	service, err := sessions.NewService(sessions.Config{WorkspaceRoot: t.TempDir()},
		sessions.WithProvider(provider),
		sessions.WithSessionStore(newMemorySessionStore()),
		sessions.WithSleeper(func(context.Context, time.Duration) error { return nil }),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service
}

func TestComposition_CommandDispatchThroughFacade(t *testing.T) {
	provider := devkit.NewFakeProvider(devkit.ConnectionScript{PairCode: "COMP-0001"})
	service := newComposedService(t, provider)

	facade, err := sessions.NewFacade(service)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	collector := gocmd.NewResult[core.PairingResult]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)
	if err := facade.Commands().GenerateCode.Execute(ctx, sessionscommand.GenerateCodeMessage{
		Request: core.GenerateCodeRequest{Number: "447700900000"},
	}); err != nil {
		t.Fatalf("execute generate code: %v", err)
	}

	result, ok := collector.Load()
	if !ok {
		t.Fatalf("expected pairing result stored")
	}
	if result.PairCode != "COMP-0001" {
		t.Fatalf("expected scripted pair code, got %q", result.PairCode)
	}
	if result.Number != "447700900000" {
		t.Fatalf("expected sanitized number, got %q", result.Number)
	}
}

func TestComposition_HTTPSurfaceOverLiveService(t *testing.T) {
	provider := devkit.NewFakeProvider(devkit.ConnectionScript{PairCode: "COMP-0002"})
	service := newComposedService(t, provider)
	handler := inbound.NewHandler(service, nil)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/generate-code",
		strings.NewReader(`{"number":"44 7700 900000"}`)))
	if recorder.Code != http.StatusOK {
		t.Fatalf("generate-code status = %d, body %s", recorder.Code, recorder.Body.String())
	}
	var payload map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if payload["pairCode"] != "COMP-0002" {
		t.Fatalf("expected scripted pair code, got %v", payload)
	}

	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/status/447700900000", nil))
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode status body: %v", err)
	}
	if payload["connected"] != false {
		t.Fatalf("pairing slot must not report connected, got %v", payload)
	}

	// Linking promotes the slot and flips the reported status.
	conn := provider.LastOpened()
	if conn == nil {
		t.Fatalf("expected opened connection")
	}
	conn.EmitCredentials([]byte(`{"creds":"blob"}`))
	conn.EmitOpened()

	deadline := time.Now().Add(2 * time.Second)
	for {
		recorder = httptest.NewRecorder()
		handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/status/447700900000", nil))
		if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
			t.Fatalf("decode status body: %v", err)
		}
		if payload["connected"] == true {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("slot never promoted to live, last payload %v", payload)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
