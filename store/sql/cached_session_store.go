package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-sessions/core"
)

const sessionCacheKeyPrefix = "go-sessions::session::v1"

// CachedSessionStore fronts a SessionStore with a read-through cache keyed
// by identity. Every write path invalidates the identity's entry, so reads
// after a write always refetch.
type CachedSessionStore struct {
	base  core.SessionStore
	cache repositorycache.CacheService
}

func NewCachedSessionStore(base core.SessionStore, cacheService repositorycache.CacheService) (*CachedSessionStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base session store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: session cache service is required")
	}
	return &CachedSessionStore{base: base, cache: cacheService}, nil
}

// SessionCacheKey returns the cache key contract for session reads:
// go-sessions::session::v1::<number>, with the number URL-path escaped.
func SessionCacheKey(number string) (string, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return "", fmt.Errorf("sqlstore: identity number is required for cache key")
	}
	return sessionCacheKeyPrefix + "::" + url.PathEscape(number), nil
}

func (s *CachedSessionStore) Get(ctx context.Context, number string) (core.Session, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Session{}, fmt.Errorf("sqlstore: cached session store is not configured")
	}
	cacheKey, err := SessionCacheKey(number)
	if err != nil {
		return core.Session{}, err
	}
	session, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.Session, error) {
		fetched, fetchErr := s.base.Get(ctx, number)
		if fetchErr != nil {
			return core.Session{}, fetchErr
		}
		return cloneSession(fetched), nil
	})
	if err != nil {
		return core.Session{}, err
	}
	return cloneSession(session), nil
}

func (s *CachedSessionStore) GetActive(ctx context.Context, number string) (core.Session, error) {
	session, err := s.Get(ctx, number)
	if err != nil {
		return core.Session{}, err
	}
	if !session.Active {
		return core.Session{}, fmt.Errorf("%w: %q has no active record", core.ErrSessionNotFound, number)
	}
	return session, nil
}

// ListActive always hits the base store; the sweep is rare and must see
// every record.
func (s *CachedSessionStore) ListActive(ctx context.Context) ([]core.Session, error) {
	if s == nil || s.base == nil {
		return nil, fmt.Errorf("sqlstore: cached session store is not configured")
	}
	return s.base.ListActive(ctx)
}

func (s *CachedSessionStore) UpsertCredentials(ctx context.Context, in core.UpsertCredentialsInput) (core.Session, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Session{}, fmt.Errorf("sqlstore: cached session store is not configured")
	}
	session, err := s.base.UpsertCredentials(ctx, in)
	if err != nil {
		return core.Session{}, err
	}
	if err := s.invalidate(ctx, in.Number); err != nil {
		return core.Session{}, err
	}
	return session, nil
}

func (s *CachedSessionStore) MarkLinked(ctx context.Context, in core.MarkLinkedInput) (core.Session, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Session{}, fmt.Errorf("sqlstore: cached session store is not configured")
	}
	session, err := s.base.MarkLinked(ctx, in)
	if err != nil {
		return core.Session{}, err
	}
	if err := s.invalidate(ctx, in.Number); err != nil {
		return core.Session{}, err
	}
	return session, nil
}

func (s *CachedSessionStore) Deactivate(ctx context.Context, number string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached session store is not configured")
	}
	if err := s.base.Deactivate(ctx, number); err != nil {
		return err
	}
	return s.invalidate(ctx, number)
}

func (s *CachedSessionStore) Delete(ctx context.Context, number string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached session store is not configured")
	}
	if err := s.base.Delete(ctx, number); err != nil {
		return err
	}
	return s.invalidate(ctx, number)
}

func (s *CachedSessionStore) invalidate(ctx context.Context, number string) error {
	cacheKey, err := SessionCacheKey(number)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}

func cloneSession(session core.Session) core.Session {
	cloned := session
	cloned.Credentials = append([]byte(nil), session.Credentials...)
	if session.ConnectedAt != nil {
		connectedAt := session.ConnectedAt.UTC()
		cloned.ConnectedAt = &connectedAt
	}
	return cloned
}
