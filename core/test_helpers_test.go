package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

type callRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *callRecorder) record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *callRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

type stubConnection struct {
	name       string
	registered bool
	pairCode   string
	pairErr    error
	recorder   *callRecorder

	mu        sync.Mutex
	events    chan ConnectionEvent
	closeOnce sync.Once
	closed    bool
	logouts   int
}

func newStubConnection(name string, recorder *callRecorder) *stubConnection {
	return &stubConnection{
		name:     name,
		recorder: recorder,
		events:   make(chan ConnectionEvent, 8),
	}
}

func (c *stubConnection) Registered() bool {
	return c.registered
}

func (c *stubConnection) RequestPairingCode(_ context.Context, number string) (string, error) {
	if c.recorder != nil {
		c.recorder.record(c.name + ".pair:" + number)
	}
	if c.pairErr != nil {
		return "", c.pairErr
	}
	return c.pairCode, nil
}

func (c *stubConnection) Events() <-chan ConnectionEvent {
	return c.events
}

func (c *stubConnection) Close(context.Context) error {
	if c.recorder != nil {
		c.recorder.record(c.name + ".close")
	}
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.closeOnce.Do(func() { close(c.events) })
	return nil
}

func (c *stubConnection) Logout(context.Context) error {
	if c.recorder != nil {
		c.recorder.record(c.name + ".logout")
	}
	c.mu.Lock()
	c.logouts++
	c.mu.Unlock()
	c.closeOnce.Do(func() { close(c.events) })
	return nil
}

func (c *stubConnection) wasClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *stubConnection) emit(event ConnectionEvent) {
	c.events <- event
	if event.Kind == EventClosed && event.Terminal {
		c.closeOnce.Do(func() { close(c.events) })
	}
}

type stubProvider struct {
	mu          sync.Mutex
	recorder    *callRecorder
	openErr     error
	connections []*stubConnection
	next        func(req OpenConnectionRequest) *stubConnection
	openCalls   []OpenConnectionRequest
}

func newStubProvider(recorder *callRecorder) *stubProvider {
	p := &stubProvider{recorder: recorder}
	p.next = func(OpenConnectionRequest) *stubConnection {
		p.mu.Lock()
		defer p.mu.Unlock()
		return newStubConnection(fmt.Sprintf("conn-%d", len(p.connections)+1), recorder)
	}
	return p
}

func (p *stubProvider) Open(_ context.Context, req OpenConnectionRequest) (Connection, error) {
	if p.recorder != nil {
		p.recorder.record("provider.open:" + req.Number)
	}
	if p.openErr != nil {
		return nil, p.openErr
	}
	conn := p.next(req)
	p.mu.Lock()
	p.openCalls = append(p.openCalls, req)
	p.connections = append(p.connections, conn)
	p.mu.Unlock()
	return conn, nil
}

func (p *stubProvider) openCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.openCalls)
}

func (p *stubProvider) lastConnection() *stubConnection {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.connections) == 0 {
		return nil
	}
	return p.connections[len(p.connections)-1]
}

type stubSessionStore struct {
	mu       sync.Mutex
	records  map[string]Session
	failNext error
}

func newStubSessionStore() *stubSessionStore {
	return &stubSessionStore{records: map[string]Session{}}
}

func (s *stubSessionStore) seed(session Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[session.Number] = session
}

func (s *stubSessionStore) get(number string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[number]
	return record, ok
}

func (s *stubSessionStore) takeFailure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.failNext
	s.failNext = nil
	return err
}

func (s *stubSessionStore) UpsertCredentials(_ context.Context, in UpsertCredentialsInput) (Session, error) {
	if err := s.takeFailure(); err != nil {
		return Session{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[in.Number]
	now := time.Now().UTC()
	if !ok {
		record = Session{Number: in.Number, CreatedAt: now}
	}
	record.Credentials = append([]byte(nil), in.Credentials...)
	record.Active = true
	record.UpdatedAt = now
	s.records[in.Number] = record
	return record, nil
}

func (s *stubSessionStore) MarkLinked(_ context.Context, in MarkLinkedInput) (Session, error) {
	if err := s.takeFailure(); err != nil {
		return Session{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[in.Number]
	if !ok {
		return Session{}, fmt.Errorf("%w: %q", ErrSessionNotFound, in.Number)
	}
	now := time.Now().UTC()
	record.SessionID = fmt.Sprintf("session-%s-%d", in.Number, now.UnixNano())
	record.IsNewSession = in.IsNewSession
	record.Active = true
	record.ConnectedAt = &now
	record.UpdatedAt = now
	s.records[in.Number] = record
	return record, nil
}

func (s *stubSessionStore) Deactivate(_ context.Context, number string) error {
	if err := s.takeFailure(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[number]
	if !ok {
		return nil
	}
	record.Active = false
	record.UpdatedAt = time.Now().UTC()
	s.records[number] = record
	return nil
}

func (s *stubSessionStore) Delete(_ context.Context, number string) error {
	if err := s.takeFailure(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, number)
	return nil
}

func (s *stubSessionStore) Get(_ context.Context, number string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[number]
	if !ok {
		return Session{}, fmt.Errorf("%w: %q", ErrSessionNotFound, number)
	}
	return record, nil
}

func (s *stubSessionStore) GetActive(_ context.Context, number string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[number]
	if !ok || !record.Active {
		return Session{}, fmt.Errorf("%w: %q", ErrSessionNotFound, number)
	}
	return record, nil
}

func (s *stubSessionStore) ListActive(context.Context) ([]Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Session{}
	for _, record := range s.records {
		if record.Active {
			out = append(out, record)
		}
	}
	return out, nil
}

type stubWorkspaces struct {
	mu      sync.Mutex
	ensured map[string]int
	written map[string][]byte
	removed map[string]int
}

func newStubWorkspaces() *stubWorkspaces {
	return &stubWorkspaces{
		ensured: map[string]int{},
		written: map[string][]byte{},
		removed: map[string]int{},
	}
}

func (w *stubWorkspaces) Ensure(number string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ensured[number]++
	return w.pathLocked(number), nil
}

func (w *stubWorkspaces) WriteCredentials(number string, payload []byte) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ensured[number]++
	w.written[number] = append([]byte(nil), payload...)
	return w.pathLocked(number), nil
}

func (w *stubWorkspaces) Remove(number string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.removed[number]++
	delete(w.written, number)
	return nil
}

func (w *stubWorkspaces) Path(number string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pathLocked(number)
}

func (w *stubWorkspaces) pathLocked(number string) string {
	return "/tmp/sessions-test/session_" + number
}

func (w *stubWorkspaces) removeCount(number string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.removed[number]
}

type stubEnqueuer struct {
	mu       sync.Mutex
	messages []JobExecutionMessage
	err      error
}

func (e *stubEnqueuer) Enqueue(_ context.Context, msg *JobExecutionMessage) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	if msg != nil {
		e.messages = append(e.messages, *msg)
	}
	return nil
}

func (e *stubEnqueuer) enqueued() []JobExecutionMessage {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]JobExecutionMessage, len(e.messages))
	copy(out, e.messages)
	return out
}

type serviceFixture struct {
	service    *Service
	provider   *stubProvider
	store      *stubSessionStore
	workspaces *stubWorkspaces
	registry   *SlotRegistry
	recorder   *callRecorder
}

func newServiceFixture(t *testing.T, options ...Option) *serviceFixture {
	t.Helper()

	recorder := &callRecorder{}
	fixture := &serviceFixture{
		provider:   newStubProvider(recorder),
		store:      newStubSessionStore(),
		workspaces: newStubWorkspaces(),
		registry:   NewSlotRegistry(),
		recorder:   recorder,
	}

	base := []Option{
		WithProvider(fixture.provider),
		WithSessionStore(fixture.store),
		WithWorkspaces(fixture.workspaces),
		WithSlotRegistry(fixture.registry),
		WithSleeper(func(ctx context.Context, _ time.Duration) error {
			return ctx.Err()
		}),
	}
	base = append(base, options...)

	service, err := NewService(Config{}, base...)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	fixture.service = service
	return fixture
}

func waitForCondition(t *testing.T, label string, check func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if check() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", label)
}
