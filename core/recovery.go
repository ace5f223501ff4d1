package core

import (
	"context"
	"fmt"
)

// JobIDReconnect names the queued retry job produced when a recovery
// sweep fails to reconnect an identity.
const JobIDReconnect = "sessions.reconnect"

// RecoveryFailure records one identity that could not be reconnected
// during a recovery sweep.
type RecoveryFailure struct {
	Number string
	Err    error
}

// RecoveryReport summarizes one sweep over the active durable records.
type RecoveryReport struct {
	Attempted int
	Connected int
	Skipped   int
	Failures  []RecoveryFailure
}

// RecoverActive replays every active durable record through the connect
// path. Identities that already hold a slot are skipped, and one failure
// never stops the sweep; failed identities are reported and, when a job
// enqueuer is wired, queued for a deduplicated retry.
func (s *Service) RecoverActive(ctx context.Context) (RecoveryReport, error) {
	if s == nil {
		return RecoveryReport{}, fmt.Errorf("core: service is not initialized")
	}

	records, err := s.sessionStore.ListActive(ctx)
	if err != nil {
		return RecoveryReport{}, s.mapError(err)
	}

	report := RecoveryReport{}
	for _, record := range records {
		if _, ok := s.registry.Get(record.Number); ok {
			report.Skipped++
			continue
		}
		report.Attempted++
		if _, err := s.Connect(ctx, ConnectRequest{Number: record.Number}); err != nil {
			report.Failures = append(report.Failures, RecoveryFailure{Number: record.Number, Err: err})
			s.logError(ctx, "recovery reconnect failed", map[string]any{
				"number": record.Number,
				"error":  err.Error(),
			})
			s.enqueueReconnect(ctx, record.Number)
			continue
		}
		report.Connected++
	}

	s.logInfo(ctx, "recovery sweep finished", map[string]any{
		"attempted": report.Attempted,
		"connected": report.Connected,
		"skipped":   report.Skipped,
		"failed":    len(report.Failures),
	})
	return report, nil
}

func (s *Service) enqueueReconnect(ctx context.Context, number string) {
	if s.enqueuer == nil {
		return
	}
	msg := JobExecutionMessage{
		JobID:          JobIDReconnect,
		Parameters:     map[string]any{"number": number},
		IdempotencyKey: fmt.Sprintf("%s:%s", JobIDReconnect, number),
	}
	if err := s.enqueuer.Enqueue(ctx, &msg); err != nil {
		s.logError(ctx, "enqueue reconnect retry failed", map[string]any{
			"number": number,
			"error":  err.Error(),
		})
	}
}
