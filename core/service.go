package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

const (
	MessagePairingInstructions = "Enter this code in your messaging app: Settings > Linked Devices > Link a Device"
	MessageSessionRestoring    = "Session already exists and is being restored"
	MessageConnectionInitiated = "Connection initiated successfully"
	MessageAlreadyConnected    = "Already connected for this number"
	MessageDisconnected        = "Disconnected successfully"
	MessageSessionDeleted      = "Session deleted successfully"
	MessageConnected           = "Connection is active"
	MessageNotConnected        = "Not connected"

	messageNoActiveConnection = "No active connection found for this number"
	messageNoSavedSession     = "No saved session found. Please generate a pair code first."
)

// Service is the per-identity connection lifecycle orchestrator. Every
// mutating operation holds the identity's exclusive lock for its entire
// duration, settle delays included; provider notifications take the same
// lock before touching the registry or the store.
type Service struct {
	config          Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorMapper     ErrorMapper
	provider        Provider
	sessionStore    SessionStore
	workspaces      WorkspaceManager
	locker          IdentityLocker
	registry        *SlotRegistry
	enqueuer        JobEnqueuer
	clock           func() time.Time
	sleep           func(ctx context.Context, d time.Duration) error
}

func NewService(cfg Config, options ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("sessions", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("sessions"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.locker == nil {
		builder.locker = NewMemoryIdentityLocker()
	}
	if builder.registry == nil {
		builder.registry = NewSlotRegistry()
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, builder.errorMapper(err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, builder.errorMapper(err)
	}

	if builder.workspaces == nil {
		workspaces, wsErr := NewFSWorkspaces(finalConfig.WorkspaceRoot)
		if wsErr != nil {
			return nil, builder.errorMapper(wsErr)
		}
		builder.workspaces = workspaces
	}
	if builder.provider == nil {
		return nil, builder.errorMapper(fmt.Errorf("core: connection provider is required"))
	}
	if builder.sessionStore == nil {
		return nil, builder.errorMapper(fmt.Errorf("core: session store is required"))
	}

	return &Service{
		config:          finalConfig,
		logger:          logger,
		loggerProvider:  builder.loggerProvider,
		metricsRecorder: builder.metricsRecorder,
		errorMapper:     builder.errorMapper,
		provider:        builder.provider,
		sessionStore:    builder.sessionStore,
		workspaces:      builder.workspaces,
		locker:          builder.locker,
		registry:        builder.registry,
		enqueuer:        builder.enqueuer,
		clock:           builder.clock,
		sleep:           builder.sleep,
	}, nil
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

type GenerateCodeRequest struct {
	Number string
}

type PairingResult struct {
	Number        string
	PairCode      string
	Message       string
	Restored      bool
	IsForceRepair bool
}

type ConnectRequest struct {
	Number string
	Force  bool
}

type ConnectResult struct {
	Number           string
	AlreadyConnected bool
	Message          string
}

type DisconnectRequest struct {
	Number string
}

type DisconnectResult struct {
	Number  string
	Message string
}

type DeleteRequest struct {
	Number string
}

type DeleteResult struct {
	Number  string
	Message string
}

type StatusResult struct {
	Number    string
	Connected bool
	Message   string
}

type SessionSummary struct {
	Number    string
	SessionID string
	Connected bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GenerateCode starts a fresh pairing attempt for the identity. Any
// existing slot is torn down first, the durable record and workspace are
// purged, and a handshake-stage connection is opened. When the connection
// is not yet registered with the remote network the pairing code is
// requested and returned; otherwise the existing registration is restored.
func (s *Service) GenerateCode(ctx context.Context, req GenerateCodeRequest) (PairingResult, error) {
	startedAt := s.now()
	number, err := NormalizeIdentity(req.Number)
	if err != nil {
		return PairingResult{}, s.mapError(err)
	}

	handle, err := s.locker.TryAcquire(ctx, number, s.config.Timing.LockTTL)
	if err != nil {
		return PairingResult{}, s.mapError(err)
	}
	defer func() { _ = handle.Unlock(ctx) }()

	result, err := s.generateCodeLocked(ctx, number, false)
	s.observeOperation(ctx, startedAt, "generate_code", err, map[string]any{"number": number})
	if err != nil {
		return PairingResult{}, s.mapError(err)
	}
	return result, nil
}

// ForceRepair tears down whatever the identity currently holds, purges the
// durable record and workspace, waits the longer repair settle delay, and
// runs the pairing creation path. The next successful link is flagged as a
// new session. A failure after teardown leaves the identity absent.
func (s *Service) ForceRepair(ctx context.Context, req GenerateCodeRequest) (PairingResult, error) {
	startedAt := s.now()
	number, err := NormalizeIdentity(req.Number)
	if err != nil {
		return PairingResult{}, s.mapError(err)
	}

	handle, err := s.locker.TryAcquire(ctx, number, s.config.Timing.LockTTL)
	if err != nil {
		return PairingResult{}, s.mapError(err)
	}
	defer func() { _ = handle.Unlock(ctx) }()

	result, err := s.generateCodeLocked(ctx, number, true)
	s.observeOperation(ctx, startedAt, "force_repair", err, map[string]any{"number": number})
	if err != nil {
		return PairingResult{}, s.mapError(err)
	}
	result.IsForceRepair = true
	return result, nil
}

func (s *Service) generateCodeLocked(ctx context.Context, number string, forceRepair bool) (PairingResult, error) {
	hadSlot := s.teardownSlot(ctx, number, forceRepair)

	if err := s.sessionStore.Delete(ctx, number); err != nil {
		return PairingResult{}, fmt.Errorf("core: purge session record for %q: %w", number, err)
	}
	if err := s.workspaces.Remove(number); err != nil {
		return PairingResult{}, err
	}

	settle := time.Duration(0)
	if forceRepair {
		settle = s.config.Timing.RepairSettleDelay
	} else if hadSlot {
		settle = s.config.Timing.SettleDelay
	}
	if err := s.wait(ctx, settle); err != nil {
		return PairingResult{}, err
	}

	workspacePath, err := s.workspaces.Ensure(number)
	if err != nil {
		return PairingResult{}, err
	}
	conn, err := s.provider.Open(ctx, OpenConnectionRequest{Number: number, WorkspacePath: workspacePath})
	if err != nil {
		return PairingResult{}, s.providerError("open handshake connection", number, err)
	}

	slot, err := s.registry.Acquire(number, SlotPairing, conn, workspacePath)
	if err != nil {
		s.closeConn(ctx, number, conn, false)
		return PairingResult{}, err
	}
	go s.pumpEvents(number, slot.Generation, conn, pumpConfig{deleteRecordOnLogout: true, markNewSession: forceRepair})

	if conn.Registered() {
		return PairingResult{Number: number, Restored: true, Message: MessageSessionRestoring}, nil
	}

	if err := s.wait(ctx, s.config.Timing.PairingRequestDelay); err != nil {
		s.closeConn(ctx, number, conn, false)
		s.registry.ReleaseGeneration(number, slot.Generation)
		return PairingResult{}, err
	}
	code, err := conn.RequestPairingCode(ctx, number)
	if err != nil {
		s.closeConn(ctx, number, conn, false)
		s.registry.ReleaseGeneration(number, slot.Generation)
		return PairingResult{}, s.providerError("request pairing code", number, err)
	}

	return PairingResult{Number: number, PairCode: code, Message: MessagePairingInstructions}, nil
}

// Connect restores a previously paired session from its durable record.
// Without force, an already-live identity is reported as such and no
// provider call is made; with force the prior connection is closed before
// the new one is opened.
func (s *Service) Connect(ctx context.Context, req ConnectRequest) (ConnectResult, error) {
	startedAt := s.now()
	number, err := NormalizeIdentity(req.Number)
	if err != nil {
		return ConnectResult{}, s.mapError(err)
	}

	handle, err := s.locker.TryAcquire(ctx, number, s.config.Timing.LockTTL)
	if err != nil {
		return ConnectResult{}, s.mapError(err)
	}
	defer func() { _ = handle.Unlock(ctx) }()

	result, err := s.connectLocked(ctx, number, req.Force)
	s.observeOperation(ctx, startedAt, "connect", err, map[string]any{"number": number, "force": req.Force})
	if err != nil {
		return ConnectResult{}, s.mapError(err)
	}
	return result, nil
}

func (s *Service) connectLocked(ctx context.Context, number string, force bool) (ConnectResult, error) {
	if slot, ok := s.registry.Get(number); ok {
		if !force {
			if slot.Kind == SlotLive {
				return ConnectResult{Number: number, AlreadyConnected: true, Message: MessageAlreadyConnected}, nil
			}
			return ConnectResult{}, fmt.Errorf("%w: pairing in progress for %q", ErrSlotConflict, number)
		}
		s.teardownSlot(ctx, number, false)
		if err := s.wait(ctx, s.config.Timing.SettleDelay); err != nil {
			return ConnectResult{}, err
		}
	}

	record, err := s.sessionStore.GetActive(ctx, number)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return ConnectResult{}, goerrors.New(messageNoSavedSession, goerrors.CategoryNotFound).
				WithCode(http.StatusNotFound).
				WithTextCode(SessionErrorNotFound)
		}
		return ConnectResult{}, err
	}

	workspacePath, err := s.workspaces.WriteCredentials(number, record.Credentials)
	if err != nil {
		return ConnectResult{}, err
	}
	conn, err := s.provider.Open(ctx, OpenConnectionRequest{Number: number, WorkspacePath: workspacePath})
	if err != nil {
		return ConnectResult{}, s.providerError("open connection", number, err)
	}

	// Live-pending: the slot starts as Pairing and is promoted once the
	// provider reports the connection open.
	slot, err := s.registry.Acquire(number, SlotPairing, conn, workspacePath)
	if err != nil {
		s.closeConn(ctx, number, conn, false)
		return ConnectResult{}, err
	}
	go s.pumpEvents(number, slot.Generation, conn, pumpConfig{deleteRecordOnLogout: false})

	return ConnectResult{Number: number, Message: MessageConnectionInitiated}, nil
}

// Disconnect closes the identity's live connection. The durable record is
// left untouched so a later connect works without re-pairing.
func (s *Service) Disconnect(ctx context.Context, req DisconnectRequest) (DisconnectResult, error) {
	startedAt := s.now()
	number, err := NormalizeIdentity(req.Number)
	if err != nil {
		return DisconnectResult{}, s.mapError(err)
	}

	handle, err := s.locker.TryAcquire(ctx, number, s.config.Timing.LockTTL)
	if err != nil {
		return DisconnectResult{}, s.mapError(err)
	}
	defer func() { _ = handle.Unlock(ctx) }()

	result, err := s.disconnectLocked(ctx, number)
	s.observeOperation(ctx, startedAt, "disconnect", err, map[string]any{"number": number})
	if err != nil {
		return DisconnectResult{}, s.mapError(err)
	}
	return result, nil
}

func (s *Service) disconnectLocked(ctx context.Context, number string) (DisconnectResult, error) {
	slot, ok := s.registry.Get(number)
	if !ok || slot.Kind != SlotLive {
		return DisconnectResult{}, goerrors.New(messageNoActiveConnection, goerrors.CategoryNotFound).
			WithCode(http.StatusNotFound).
			WithTextCode(SessionErrorNotFound)
	}
	s.closeConn(ctx, number, slot.Conn, false)
	s.registry.Release(number)
	return DisconnectResult{Number: number, Message: MessageDisconnected}, nil
}

// Delete removes every trace of the identity: slot, durable record, and
// workspace. Deleting an identity that has no state still succeeds.
func (s *Service) Delete(ctx context.Context, req DeleteRequest) (DeleteResult, error) {
	startedAt := s.now()
	number, err := NormalizeIdentity(req.Number)
	if err != nil {
		return DeleteResult{}, s.mapError(err)
	}

	handle, err := s.locker.TryAcquire(ctx, number, s.config.Timing.LockTTL)
	if err != nil {
		return DeleteResult{}, s.mapError(err)
	}
	defer func() { _ = handle.Unlock(ctx) }()

	s.teardownSlot(ctx, number, false)
	if err := s.sessionStore.Delete(ctx, number); err != nil {
		err = fmt.Errorf("core: delete session record for %q: %w", number, err)
		s.observeOperation(ctx, startedAt, "delete", err, map[string]any{"number": number})
		return DeleteResult{}, s.mapError(err)
	}
	if err := s.workspaces.Remove(number); err != nil {
		s.observeOperation(ctx, startedAt, "delete", err, map[string]any{"number": number})
		return DeleteResult{}, s.mapError(err)
	}

	s.observeOperation(ctx, startedAt, "delete", nil, map[string]any{"number": number})
	return DeleteResult{Number: number, Message: MessageSessionDeleted}, nil
}

// Status is a pure registry read; unknown identities normalize to
// disconnected and the call never fails.
func (s *Service) Status(_ context.Context, rawNumber string) StatusResult {
	number := sanitizeDigits(rawNumber)
	if s == nil || s.registry == nil || !s.registry.Live(number) {
		return StatusResult{Number: number, Connected: false, Message: MessageNotConnected}
	}
	return StatusResult{Number: number, Connected: true, Message: MessageConnected}
}

// ListSessions reads every active durable record and cross-references the
// registry for a connected flag. Read-only.
func (s *Service) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	records, err := s.sessionStore.ListActive(ctx)
	if err != nil {
		return nil, s.mapError(err)
	}
	out := make([]SessionSummary, 0, len(records))
	for _, record := range records {
		out = append(out, SessionSummary{
			Number:    record.Number,
			SessionID: record.SessionID,
			Connected: s.registry.Live(record.Number),
			CreatedAt: record.CreatedAt,
			UpdatedAt: record.UpdatedAt,
		})
	}
	return out, nil
}

// teardownSlot closes and releases whatever slot the identity holds.
// Sub-failures are logged, never surfaced: teardown is best-effort cleanup
// ahead of a new attempt. Reports whether a slot existed.
func (s *Service) teardownSlot(ctx context.Context, number string, useLogout bool) bool {
	slot, ok := s.registry.Get(number)
	if !ok {
		return false
	}
	s.closeConn(ctx, number, slot.Conn, useLogout)
	s.registry.Release(number)
	return true
}

// closeConn is the single idempotent close-if-present path. Close has two
// outcomes, closed or already-closed; anything else is logged as a warning
// and never propagated.
func (s *Service) closeConn(ctx context.Context, number string, conn Connection, useLogout bool) {
	if conn == nil {
		return
	}
	if useLogout {
		if err := conn.Logout(ctx); err == nil {
			return
		} else {
			s.logInfo(ctx, "protocol logout failed, falling back to close", map[string]any{
				"number": number,
				"error":  err.Error(),
			})
		}
	}
	if err := conn.Close(ctx); err != nil {
		s.logInfo(ctx, "close on torn-down connection reported error", map[string]any{
			"number": number,
			"error":  err.Error(),
		})
	}
}

func (s *Service) providerError(operation string, number string, source error) error {
	return goerrors.Wrap(source, goerrors.CategoryExternal, fmt.Sprintf("core: %s for %q failed", operation, number)).
		WithCode(http.StatusInternalServerError).
		WithTextCode(SessionErrorProviderFailed)
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return nil
	}
	return mapped
}

func (s *Service) now() time.Time {
	if s == nil || s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock()
}

func (s *Service) wait(ctx context.Context, d time.Duration) error {
	if s == nil || s.sleep == nil {
		return waitWithContext(ctx, d)
	}
	return s.sleep(ctx, d)
}

func sanitizeDigits(raw string) string {
	out := make([]rune, 0, len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			out = append(out, r)
		}
	}
	return string(out)
}
