package gojob

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-sessions/core"
)

// Connector is the slice of the lifecycle service the reconnect worker
// needs.
type Connector interface {
	Connect(ctx context.Context, req core.ConnectRequest) (core.ConnectResult, error)
}

// ReconnectHandler drains queued reconnect jobs produced by recovery
// sweeps and replays them through the connect path.
type ReconnectHandler struct {
	connector  Connector
	policy     RetryPolicy
	retryDelay time.Duration
}

func NewReconnectHandler(connector Connector, policy RetryPolicy) *ReconnectHandler {
	return &ReconnectHandler{
		connector:  connector,
		policy:     policy,
		retryDelay: 30 * time.Second,
	}
}

// Handle processes one delivery. Malformed messages are dead-lettered,
// connect failures are nacked for a bounded requeue.
func (h *ReconnectHandler) Handle(ctx context.Context, delivery core.JobDelivery, attempt int) error {
	if h == nil || h.connector == nil {
		return fmt.Errorf("gojob: reconnect handler is not configured")
	}
	if delivery == nil {
		return fmt.Errorf("gojob: delivery is required")
	}
	msg := delivery.Message()
	if msg == nil || msg.JobID != core.JobIDReconnect {
		return delivery.Nack(ctx, core.JobNackOptions{
			DeadLetter: true,
			Reason:     "unexpected job id",
		})
	}
	number := reconnectNumber(msg)
	if number == "" {
		return delivery.Nack(ctx, core.JobNackOptions{
			DeadLetter: true,
			Reason:     "missing number parameter",
		})
	}
	if _, err := h.connector.Connect(ctx, core.ConnectRequest{Number: number}); err != nil {
		nack := h.policy.NormalizeAttempt(core.JobNackOptions{
			Delay:   h.retryDelay,
			Requeue: true,
			Reason:  err.Error(),
		}, attempt)
		if nackErr := delivery.Nack(ctx, nack); nackErr != nil {
			return nackErr
		}
		return err
	}
	return delivery.Ack(ctx)
}

func reconnectNumber(msg *core.JobExecutionMessage) string {
	if msg == nil || msg.Parameters == nil {
		return ""
	}
	number, _ := msg.Parameters["number"].(string)
	return strings.TrimSpace(number)
}
