package query

import (
	"context"
	"net/http"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-sessions/core"
)

type stubReadService struct {
	statusResult core.StatusResult
	summaries    []core.SessionSummary
	listErr      error
}

func (s *stubReadService) Status(_ context.Context, number string) core.StatusResult {
	result := s.statusResult
	if result.Number == "" {
		result.Number = number
	}
	return result
}

func (s *stubReadService) ListSessions(context.Context) ([]core.SessionSummary, error) {
	return s.summaries, s.listErr
}

type stubRecordReader struct {
	session core.Session
	err     error
	numbers []string
}

func (s *stubRecordReader) Get(_ context.Context, number string) (core.Session, error) {
	s.numbers = append(s.numbers, number)
	if s.err != nil {
		return core.Session{}, s.err
	}
	return s.session, nil
}

func TestStatusQueryDelegatesToReader(t *testing.T) {
	service := &stubReadService{
		statusResult: core.StatusResult{Number: "447700900000", Connected: true, Message: core.MessageConnected},
	}
	result, err := NewStatusQuery(service).Query(context.Background(), StatusMessage{Number: "447700900000"})
	if err != nil {
		t.Fatalf("status query: %v", err)
	}
	if !result.Connected {
		t.Fatalf("expected connected result, got %+v", result)
	}
}

func TestListSessionsQueryDelegatesToLister(t *testing.T) {
	now := time.Now().UTC()
	service := &stubReadService{
		summaries: []core.SessionSummary{
			{Number: "447700900000", SessionID: "s-1", Connected: true, CreatedAt: now, UpdatedAt: now},
		},
	}
	summaries, err := NewListSessionsQuery(service).Query(context.Background(), ListSessionsMessage{})
	if err != nil {
		t.Fatalf("list query: %v", err)
	}
	if len(summaries) != 1 || summaries[0].SessionID != "s-1" {
		t.Fatalf("unexpected summaries %+v", summaries)
	}
}

func TestGetSessionQueryValidatesNumber(t *testing.T) {
	reader := &stubRecordReader{session: core.Session{Number: "447700900000"}}
	qry := NewGetSessionQuery(reader)

	if _, err := qry.Query(context.Background(), GetSessionMessage{Number: "  "}); err == nil {
		t.Fatalf("expected validation error for blank number")
	} else {
		var rich *goerrors.Error
		if !goerrors.As(err, &rich) {
			t.Fatalf("expected rich error, got %T", err)
		}
		if rich.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rich.Code)
		}
	}
	if len(reader.numbers) != 0 {
		t.Fatalf("reader must not run for invalid message")
	}

	session, err := qry.Query(context.Background(), GetSessionMessage{Number: "447700900000"})
	if err != nil {
		t.Fatalf("get query: %v", err)
	}
	if session.Number != "447700900000" {
		t.Fatalf("unexpected session %+v", session)
	}
}

func TestQueriesRequireDependencies(t *testing.T) {
	var status *StatusQuery
	if _, err := status.Query(context.Background(), StatusMessage{}); err == nil {
		t.Fatalf("expected dependency error on nil status query")
	}
	if _, err := NewListSessionsQuery(nil).Query(context.Background(), ListSessionsMessage{}); err == nil {
		t.Fatalf("expected dependency error on nil lister")
	}
	if _, err := NewGetSessionQuery(nil).Query(context.Background(), GetSessionMessage{Number: "447700900000"}); err == nil {
		t.Fatalf("expected dependency error on nil reader")
	}
}
