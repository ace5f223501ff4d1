package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-sessions/core"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SessionStore persists one durable record per identity in the
// provider_sessions table.
type SessionStore struct {
	db   *bun.DB
	repo repository.Repository[*sessionRecord]
}

func (s *SessionStore) UpsertCredentials(ctx context.Context, in core.UpsertCredentialsInput) (core.Session, error) {
	if s == nil || s.repo == nil {
		return core.Session{}, fmt.Errorf("sqlstore: session store is not configured")
	}
	number := strings.TrimSpace(in.Number)
	if number == "" {
		return core.Session{}, fmt.Errorf("sqlstore: identity number is required")
	}

	now := time.Now().UTC()
	existing, err := s.findByNumber(ctx, number)
	if err == nil {
		existing.Credentials = append([]byte(nil), in.Credentials...)
		existing.Active = true
		existing.UpdatedAt = now
		updated, updateErr := s.repo.Update(ctx, existing, repository.UpdateByID(existing.ID))
		if updateErr != nil {
			return core.Session{}, updateErr
		}
		return updated.toDomain(), nil
	}
	if !isNotFound(err) {
		return core.Session{}, err
	}

	record := &sessionRecord{
		ID:          uuid.NewString(),
		Number:      number,
		SessionID:   uuid.NewString(),
		Credentials: append([]byte(nil), in.Credentials...),
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return core.Session{}, err
	}
	return created.toDomain(), nil
}

// MarkLinked stamps a successful link: a fresh session id, the new-session
// flag, and the link time.
func (s *SessionStore) MarkLinked(ctx context.Context, in core.MarkLinkedInput) (core.Session, error) {
	if s == nil || s.repo == nil {
		return core.Session{}, fmt.Errorf("sqlstore: session store is not configured")
	}
	record, err := s.findByNumber(ctx, strings.TrimSpace(in.Number))
	if err != nil {
		return core.Session{}, err
	}

	now := time.Now().UTC()
	record.SessionID = uuid.NewString()
	record.IsNewSession = in.IsNewSession
	record.Active = true
	record.ConnectedAt = &now
	record.UpdatedAt = now

	updated, err := s.repo.Update(ctx, record, repository.UpdateByID(record.ID))
	if err != nil {
		return core.Session{}, err
	}
	return updated.toDomain(), nil
}

func (s *SessionStore) Deactivate(ctx context.Context, number string) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: session store is not configured")
	}
	record, err := s.findByNumber(ctx, strings.TrimSpace(number))
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}
	record.Active = false
	record.UpdatedAt = time.Now().UTC()
	_, err = s.repo.Update(ctx, record, repository.UpdateByID(record.ID))
	return err
}

// Delete removes the identity's record. Deleting a missing record is a
// no-op so the operation stays idempotent.
func (s *SessionStore) Delete(ctx context.Context, number string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: session store is not configured")
	}
	number = strings.TrimSpace(number)
	if number == "" {
		return fmt.Errorf("sqlstore: identity number is required")
	}
	_, err := s.db.NewDelete().
		Model((*sessionRecord)(nil)).
		Where("number = ?", number).
		Exec(ctx)
	return err
}

func (s *SessionStore) Get(ctx context.Context, number string) (core.Session, error) {
	if s == nil || s.repo == nil {
		return core.Session{}, fmt.Errorf("sqlstore: session store is not configured")
	}
	record, err := s.findByNumber(ctx, strings.TrimSpace(number))
	if err != nil {
		return core.Session{}, err
	}
	return record.toDomain(), nil
}

func (s *SessionStore) GetActive(ctx context.Context, number string) (core.Session, error) {
	session, err := s.Get(ctx, number)
	if err != nil {
		return core.Session{}, err
	}
	if !session.Active {
		return core.Session{}, fmt.Errorf("%w: %q has no active record", core.ErrSessionNotFound, number)
	}
	return session, nil
}

func (s *SessionStore) ListActive(ctx context.Context) ([]core.Session, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: session store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.active = ?", true)
		}),
		repository.OrderBy("created_at ASC"),
	)
	if err != nil {
		return nil, err
	}
	out := make([]core.Session, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func (s *SessionStore) findByNumber(ctx context.Context, number string) (*sessionRecord, error) {
	if number == "" {
		return nil, fmt.Errorf("sqlstore: identity number is required")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("number", "=", number),
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Limit(1)
		}),
	)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 || records[0] == nil {
		return nil, fmt.Errorf("%w: %q", core.ErrSessionNotFound, number)
	}
	return records[0], nil
}

func isNotFound(err error) bool {
	return errors.Is(err, core.ErrSessionNotFound)
}
