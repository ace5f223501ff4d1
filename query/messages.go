// Package query exposes the read-side lifecycle operations as go-command
// query messages.
package query

import (
	"fmt"
	"strings"
)

const (
	TypeStatus       = "sessions.query.status"
	TypeListSessions = "sessions.query.list"
	TypeGetSession   = "sessions.query.get"
)

type StatusMessage struct {
	Number string
}

func (StatusMessage) Type() string { return TypeStatus }

type ListSessionsMessage struct{}

func (ListSessionsMessage) Type() string { return TypeListSessions }

type GetSessionMessage struct {
	Number string
}

func (GetSessionMessage) Type() string { return TypeGetSession }

func (m GetSessionMessage) Validate() error {
	if strings.TrimSpace(m.Number) == "" {
		return fmt.Errorf("query: number is required")
	}
	return nil
}
