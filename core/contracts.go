package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// Provider is the external messaging-protocol engine. It performs the
// handshake, encryption, and framing; the orchestrator only drives it.
type Provider interface {
	Open(ctx context.Context, req OpenConnectionRequest) (Connection, error)
}

type OpenConnectionRequest struct {
	Number        string
	WorkspacePath string
}

// Connection is one live or handshake-stage protocol connection.
//
// Close must be idempotent: closing an already-closed handle is a no-op.
// Logout performs a protocol-level logout when the link is still valid and
// falls back to closing the transport. The events channel is closed by the
// provider after a terminal close.
type Connection interface {
	Registered() bool
	RequestPairingCode(ctx context.Context, number string) (string, error)
	Events() <-chan ConnectionEvent
	Close(ctx context.Context) error
	Logout(ctx context.Context) error
}

type ConnectionEventKind string

const (
	EventCredentialsUpdated ConnectionEventKind = "credentials_updated"
	EventOpened             ConnectionEventKind = "opened"
	EventClosed             ConnectionEventKind = "closed"
)

// ConnectionEvent is a provider lifecycle notification. Terminal is only
// meaningful for EventClosed and signals the remote side revoked the link.
type ConnectionEvent struct {
	Kind        ConnectionEventKind
	Credentials []byte
	Terminal    bool
	Reason      string
}

type UpsertCredentialsInput struct {
	Number      string
	Credentials []byte
}

type MarkLinkedInput struct {
	Number       string
	IsNewSession bool
}

// SessionStore is the durable record store facade. Implementations return
// ErrSessionNotFound (wrapped or bare) when no matching record exists.
type SessionStore interface {
	UpsertCredentials(ctx context.Context, in UpsertCredentialsInput) (Session, error)
	MarkLinked(ctx context.Context, in MarkLinkedInput) (Session, error)
	Deactivate(ctx context.Context, number string) error
	Delete(ctx context.Context, number string) error
	Get(ctx context.Context, number string) (Session, error)
	GetActive(ctx context.Context, number string) (Session, error)
	ListActive(ctx context.Context) ([]Session, error)
}

// WorkspaceManager owns the per-identity on-disk area holding the
// provider's serialized credential material.
type WorkspaceManager interface {
	Ensure(number string) (string, error)
	WriteCredentials(number string, payload []byte) (string, error)
	Remove(number string) error
	Path(number string) string
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

// LockHandle releases a held identity lock. Unlock is safe to call more
// than once.
type LockHandle interface {
	Unlock(ctx context.Context) error
}

// IdentityLocker serializes all lifecycle work for one identity.
// TryAcquire fails fast with ErrLockBusy so pairing-code requests never
// pile up behind each other; Acquire waits, and is reserved for provider
// notifications, which must not be dropped.
type IdentityLocker interface {
	TryAcquire(ctx context.Context, number string, ttl time.Duration) (LockHandle, error)
	Acquire(ctx context.Context, number string, ttl time.Duration) (LockHandle, error)
}

type JobExecutionMessage struct {
	JobID          string
	ScriptPath     string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

// JobEnqueuer hands reconnect retries to an external job queue. Optional;
// recovery works without one.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}

type JobWorkerEvent struct {
	Message   *JobExecutionMessage
	Attempt   int
	Delay     time.Duration
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

// JobWorkerHook observes reconnect job execution on the worker side.
type JobWorkerHook interface {
	OnStart(ctx context.Context, event JobWorkerEvent)
	OnSuccess(ctx context.Context, event JobWorkerEvent)
	OnFailure(ctx context.Context, event JobWorkerEvent)
	OnRetry(ctx context.Context, event JobWorkerEvent)
}
