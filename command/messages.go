package command

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-sessions/core"
)

const (
	TypeGenerateCode = "sessions.command.generate_code"
	TypeConnect      = "sessions.command.connect"
	TypeForceRepair  = "sessions.command.force_repair"
	TypeDisconnect   = "sessions.command.disconnect"
	TypeDelete       = "sessions.command.delete"
)

type GenerateCodeMessage struct {
	Request core.GenerateCodeRequest
}

func (GenerateCodeMessage) Type() string { return TypeGenerateCode }

func (m GenerateCodeMessage) Validate() error {
	return validateNumber(m.Request.Number)
}

type ConnectMessage struct {
	Request core.ConnectRequest
}

func (ConnectMessage) Type() string { return TypeConnect }

func (m ConnectMessage) Validate() error {
	return validateNumber(m.Request.Number)
}

type ForceRepairMessage struct {
	Request core.GenerateCodeRequest
}

func (ForceRepairMessage) Type() string { return TypeForceRepair }

func (m ForceRepairMessage) Validate() error {
	return validateNumber(m.Request.Number)
}

type DisconnectMessage struct {
	Request core.DisconnectRequest
}

func (DisconnectMessage) Type() string { return TypeDisconnect }

func (m DisconnectMessage) Validate() error {
	return validateNumber(m.Request.Number)
}

type DeleteMessage struct {
	Request core.DeleteRequest
}

func (DeleteMessage) Type() string { return TypeDelete }

func (m DeleteMessage) Validate() error {
	return validateNumber(m.Request.Number)
}

func validateNumber(number string) error {
	if strings.TrimSpace(number) == "" {
		return fmt.Errorf("command: identity number is required")
	}
	return nil
}
