package sqlstore

import "github.com/goliatone/go-sessions/core"

var (
	_ core.SessionStore = (*SessionStore)(nil)
	_ core.SessionStore = (*CachedSessionStore)(nil)
)
