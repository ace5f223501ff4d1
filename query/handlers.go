package query

import (
	"context"

	"github.com/goliatone/go-sessions/core"
)

type StatusReader interface {
	Status(ctx context.Context, number string) core.StatusResult
}

type SessionLister interface {
	ListSessions(ctx context.Context) ([]core.SessionSummary, error)
}

// RecordReader exposes the durable record lookup for inspection
// tooling; stores satisfy it directly.
type RecordReader interface {
	Get(ctx context.Context, number string) (core.Session, error)
}

type StatusQuery struct {
	reader StatusReader
}

func NewStatusQuery(reader StatusReader) *StatusQuery {
	return &StatusQuery{reader: reader}
}

func (q *StatusQuery) Query(ctx context.Context, msg StatusMessage) (core.StatusResult, error) {
	if q == nil || q.reader == nil {
		return core.StatusResult{}, queryDependencyError("query: status reader is required")
	}
	return q.reader.Status(ctx, msg.Number), nil
}

type ListSessionsQuery struct {
	lister SessionLister
}

func NewListSessionsQuery(lister SessionLister) *ListSessionsQuery {
	return &ListSessionsQuery{lister: lister}
}

func (q *ListSessionsQuery) Query(ctx context.Context, _ ListSessionsMessage) ([]core.SessionSummary, error) {
	if q == nil || q.lister == nil {
		return nil, queryDependencyError("query: session lister is required")
	}
	return q.lister.ListSessions(ctx)
}

type GetSessionQuery struct {
	reader RecordReader
}

func NewGetSessionQuery(reader RecordReader) *GetSessionQuery {
	return &GetSessionQuery{reader: reader}
}

func (q *GetSessionQuery) Query(ctx context.Context, msg GetSessionMessage) (core.Session, error) {
	if q == nil || q.reader == nil {
		return core.Session{}, queryDependencyError("query: record reader is required")
	}
	if err := msg.Validate(); err != nil {
		return core.Session{}, queryWrapValidation(err, "query: invalid get session message")
	}
	return q.reader.Get(ctx, msg.Number)
}
