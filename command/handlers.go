package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-sessions/core"
)

// MutatingService is the slice of the lifecycle orchestrator the command
// handlers drive.
type MutatingService interface {
	GenerateCode(ctx context.Context, req core.GenerateCodeRequest) (core.PairingResult, error)
	Connect(ctx context.Context, req core.ConnectRequest) (core.ConnectResult, error)
	ForceRepair(ctx context.Context, req core.GenerateCodeRequest) (core.PairingResult, error)
	Disconnect(ctx context.Context, req core.DisconnectRequest) (core.DisconnectResult, error)
	Delete(ctx context.Context, req core.DeleteRequest) (core.DeleteResult, error)
}

type GenerateCodeCommand struct {
	service MutatingService
}

func NewGenerateCodeCommand(service MutatingService) *GenerateCodeCommand {
	return &GenerateCodeCommand{service: service}
}

func (c *GenerateCodeCommand) Execute(ctx context.Context, msg GenerateCodeMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: generate-code service is required")
	}
	out, err := c.service.GenerateCode(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ConnectCommand struct {
	service MutatingService
}

func NewConnectCommand(service MutatingService) *ConnectCommand {
	return &ConnectCommand{service: service}
}

func (c *ConnectCommand) Execute(ctx context.Context, msg ConnectMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: connect service is required")
	}
	out, err := c.service.Connect(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ForceRepairCommand struct {
	service MutatingService
}

func NewForceRepairCommand(service MutatingService) *ForceRepairCommand {
	return &ForceRepairCommand{service: service}
}

func (c *ForceRepairCommand) Execute(ctx context.Context, msg ForceRepairMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: force-repair service is required")
	}
	out, err := c.service.ForceRepair(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type DisconnectCommand struct {
	service MutatingService
}

func NewDisconnectCommand(service MutatingService) *DisconnectCommand {
	return &DisconnectCommand{service: service}
}

func (c *DisconnectCommand) Execute(ctx context.Context, msg DisconnectMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: disconnect service is required")
	}
	out, err := c.service.Disconnect(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type DeleteCommand struct {
	service MutatingService
}

func NewDeleteCommand(service MutatingService) *DeleteCommand {
	return &DeleteCommand{service: service}
}

func (c *DeleteCommand) Execute(ctx context.Context, msg DeleteMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: delete service is required")
	}
	out, err := c.service.Delete(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
