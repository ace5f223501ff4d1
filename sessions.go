// Package sessions manages per-identity messaging connection lifecycles:
// pairing, restore, recovery, and teardown, backed by a durable
// credential store.
package sessions

import "github.com/goliatone/go-sessions/core"

type Config = core.Config

type TimingConfig = core.TimingConfig

type Option = core.Option

type Service = core.Service

type Provider = core.Provider
type Connection = core.Connection
type ConnectionEvent = core.ConnectionEvent
type SessionStore = core.SessionStore
type WorkspaceManager = core.WorkspaceManager
type MetricsRecorder = core.MetricsRecorder
type IdentityLocker = core.IdentityLocker
type JobEnqueuer = core.JobEnqueuer

type Session = core.Session
type SessionSummary = core.SessionSummary

type GenerateCodeRequest = core.GenerateCodeRequest
type PairingResult = core.PairingResult
type ConnectRequest = core.ConnectRequest
type ConnectResult = core.ConnectResult
type DisconnectRequest = core.DisconnectRequest
type DisconnectResult = core.DisconnectResult
type DeleteRequest = core.DeleteRequest
type DeleteResult = core.DeleteResult
type StatusResult = core.StatusResult
type RecoveryReport = core.RecoveryReport

var (
	WithLogger          = core.WithLogger
	WithLoggerProvider  = core.WithLoggerProvider
	WithMetricsRecorder = core.WithMetricsRecorder
	WithErrorMapper     = core.WithErrorMapper
	WithConfigProvider  = core.WithConfigProvider
	WithOptionsResolver = core.WithOptionsResolver
	WithProvider        = core.WithProvider
	WithSessionStore    = core.WithSessionStore
	WithWorkspaces      = core.WithWorkspaces
	WithIdentityLocker  = core.WithIdentityLocker
	WithSlotRegistry    = core.WithSlotRegistry
	WithJobEnqueuer     = core.WithJobEnqueuer
	WithClock           = core.WithClock
	WithSleeper         = core.WithSleeper
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}
