package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-sessions/core"
)

var (
	_ gocmd.Querier[StatusMessage, core.StatusResult]           = (*StatusQuery)(nil)
	_ gocmd.Querier[ListSessionsMessage, []core.SessionSummary] = (*ListSessionsQuery)(nil)
	_ gocmd.Querier[GetSessionMessage, core.Session]            = (*GetSessionQuery)(nil)
)
