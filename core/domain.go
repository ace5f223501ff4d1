package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidIdentity = errors.New("core: invalid identity")
	ErrSessionNotFound = errors.New("core: session not found")
	ErrSlotConflict    = errors.New("core: identity slot already occupied")
	ErrLockBusy        = errors.New("core: operation already in progress for identity")
)

// NormalizeIdentity strips every non-digit rune from raw. Any digit
// sequence is a valid identity; every operation keys on the normalized
// value.
func NormalizeIdentity(raw string) (string, error) {
	var builder strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			builder.WriteRune(r)
		}
	}
	digits := builder.String()
	if digits == "" {
		return "", fmt.Errorf("%w: no digits in %q", ErrInvalidIdentity, raw)
	}
	return digits, nil
}

// Session is the durable record for one identity. SessionID is regenerated
// on every successful link; IsNewSession marks a link made through the
// force-repair path.
type Session struct {
	Number       string
	SessionID    string
	Credentials  []byte
	Active       bool
	IsNewSession bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ConnectedAt  *time.Time
}

type SlotKind string

const (
	SlotPairing SlotKind = "pairing"
	SlotLive    SlotKind = "live"
)

// Slot is the in-memory view of an identity's connection attempt. An
// identity occupies at most one slot at any instant.
type Slot struct {
	Number        string
	Kind          SlotKind
	Conn          Connection
	WorkspacePath string
	Generation    uint64
	CreatedAt     time.Time
}
