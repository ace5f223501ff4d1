package core

import (
	"context"
)

type pumpConfig struct {
	// deleteRecordOnLogout marks pairing-origin connections: a terminal
	// close during pairing means the handshake never completed, so the
	// durable record is purged instead of deactivated.
	deleteRecordOnLogout bool
	markNewSession       bool
}

// pumpEvents drains one connection's event channel. Every event is handled
// under the identity's exclusive lock, and every slot mutation is guarded
// by the generation captured at registration: once a newer attempt owns
// the identity this pump goes inert and only drains until the provider
// closes the channel.
func (s *Service) pumpEvents(number string, generation uint64, conn Connection, cfg pumpConfig) {
	ctx := context.Background()
	for event := range conn.Events() {
		switch event.Kind {
		case EventCredentialsUpdated:
			s.handleCredentialsUpdated(ctx, number, generation, event.Credentials)
		case EventOpened:
			s.handleOpened(ctx, number, generation, cfg)
		case EventClosed:
			s.handleClosed(ctx, number, generation, event, cfg)
		}
	}
}

func (s *Service) withEventLock(ctx context.Context, number string, fn func(ctx context.Context)) {
	handle, err := s.locker.Acquire(ctx, number, s.config.Timing.LockTTL)
	if err != nil {
		s.logError(ctx, "event handler could not take identity lock", map[string]any{
			"number": number,
			"error":  err.Error(),
		})
		return
	}
	defer func() { _ = handle.Unlock(ctx) }()
	fn(ctx)
}

func (s *Service) ownsSlot(number string, generation uint64) bool {
	slot, ok := s.registry.Get(number)
	return ok && slot.Generation == generation
}

func (s *Service) handleCredentialsUpdated(ctx context.Context, number string, generation uint64, payload []byte) {
	s.withEventLock(ctx, number, func(ctx context.Context) {
		if !s.ownsSlot(number, generation) {
			return
		}
		if _, err := s.sessionStore.UpsertCredentials(ctx, UpsertCredentialsInput{
			Number:      number,
			Credentials: payload,
		}); err != nil {
			s.logError(ctx, "persist updated credentials failed", map[string]any{
				"number": number,
				"error":  err.Error(),
			})
			return
		}
		s.logInfo(ctx, "credentials persisted", map[string]any{"number": number})
	})
}

func (s *Service) handleOpened(ctx context.Context, number string, generation uint64, cfg pumpConfig) {
	s.withEventLock(ctx, number, func(ctx context.Context) {
		if _, ok := s.registry.Promote(number, generation); !ok {
			return
		}
		linked, err := s.sessionStore.MarkLinked(ctx, MarkLinkedInput{
			Number:       number,
			IsNewSession: cfg.markNewSession,
		})
		if err != nil {
			s.logError(ctx, "mark session linked failed", map[string]any{
				"number": number,
				"error":  err.Error(),
			})
			return
		}
		s.logInfo(ctx, "connection open, session live", map[string]any{
			"number":     number,
			"session_id": linked.SessionID,
		})
	})
}

func (s *Service) handleClosed(ctx context.Context, number string, generation uint64, event ConnectionEvent, cfg pumpConfig) {
	s.withEventLock(ctx, number, func(ctx context.Context) {
		if _, ok := s.registry.ReleaseGeneration(number, generation); !ok {
			return
		}
		if !event.Terminal {
			s.logInfo(ctx, "connection closed, record kept for reconnect", map[string]any{
				"number": number,
				"reason": event.Reason,
			})
			return
		}
		if cfg.deleteRecordOnLogout {
			if err := s.sessionStore.Delete(ctx, number); err != nil {
				s.logError(ctx, "purge record after logged-out pairing failed", map[string]any{
					"number": number,
					"error":  err.Error(),
				})
			}
		} else {
			if err := s.sessionStore.Deactivate(ctx, number); err != nil {
				s.logError(ctx, "deactivate record after logout failed", map[string]any{
					"number": number,
					"error":  err.Error(),
				})
			}
		}
		if err := s.workspaces.Remove(number); err != nil {
			s.logError(ctx, "remove workspace after logout failed", map[string]any{
				"number": number,
				"error":  err.Error(),
			})
		}
		s.logInfo(ctx, "remote side revoked the link", map[string]any{
			"number": number,
			"reason": event.Reason,
		})
	})
}
