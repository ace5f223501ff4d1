package sqlstore

import (
	"time"

	"github.com/goliatone/go-sessions/core"
	"github.com/uptrace/bun"
)

type sessionRecord struct {
	bun.BaseModel `bun:"table:provider_sessions,alias:ps"`

	ID           string     `bun:"id,pk"`
	Number       string     `bun:"number,notnull,unique"`
	SessionID    string     `bun:"session_id,notnull"`
	Credentials  []byte     `bun:"credentials"`
	Active       bool       `bun:"active,notnull"`
	IsNewSession bool       `bun:"is_new_session,notnull"`
	ConnectedAt  *time.Time `bun:"connected_at,nullzero"`
	CreatedAt    time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func (r *sessionRecord) toDomain() core.Session {
	if r == nil {
		return core.Session{}
	}
	session := core.Session{
		Number:       r.Number,
		SessionID:    r.SessionID,
		Credentials:  append([]byte(nil), r.Credentials...),
		Active:       r.Active,
		IsNewSession: r.IsNewSession,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.ConnectedAt != nil {
		connectedAt := r.ConnectedAt.UTC()
		session.ConnectedAt = &connectedAt
	}
	return session
}
