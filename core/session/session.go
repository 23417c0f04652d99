// Package session holds the authenticated state of the admin: tokens and user,
// mirrored to a durable storage.
package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/lms"
)

// storage keys
const (
	KeyToken        = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUser         = "user"
)

// DefaultRefreshMargin is the minimum remaining lifetime of a token considered valid.
const DefaultRefreshMargin = 5 * time.Minute

// NowFunc is mocked in tests.
var NowFunc = time.Now

type Store struct {
	storage core.Storage
	margin  time.Duration

	mu           sync.RWMutex
	token        string
	refreshToken string
	user         *lms.User
}

type Option func(*Store)

func WithRefreshMargin(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.margin = d
		}
	}
}

// NewStore returns a Store hydrated from `storage`.
// A stored user that cannot be decoded is dropped.
func NewStore(ctx context.Context, storage core.Storage, opts ...Option) (*Store, error) {
	s := &Store{storage: storage, margin: DefaultRefreshMargin}
	for _, opt := range opts {
		opt(s)
	}

	var err error
	if s.token, err = s.get(ctx, KeyToken); err != nil {
		return nil, err
	}
	if s.refreshToken, err = s.get(ctx, KeyRefreshToken); err != nil {
		return nil, err
	}
	raw, err := s.get(ctx, KeyUser)
	if err != nil {
		return nil, err
	}
	if raw != "" {
		var usr lms.User
		if json.Unmarshal([]byte(raw), &usr) == nil {
			s.user = &usr
		}
	}
	return s, nil
}

func (s *Store) get(ctx context.Context, key string) (string, error) {
	val, err := s.storage.Get(ctx, key)
	if err != nil {
		if errors.Is(err, core.ErrStorageKeyNotFound) {
			return "", nil
		}
		return "", errors.Wrapf(err, "reading %s", key)
	}
	return val, nil
}

func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Store) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// User returns the signed in user, or nil.
func (s *Store) User() *lms.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	usr := *s.user
	return &usr
}

// SetAuth stores the tokens and user obtained by signing in.
func (s *Store) SetAuth(ctx context.Context, tokens lms.AuthTokens) error {
	data, err := json.Marshal(tokens.User)
	if err != nil {
		return errors.Wrap(err, "encoding user")
	}
	usr := tokens.User

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.refreshToken, s.user = tokens.Access, tokens.Refresh, &usr

	if err := s.storage.Set(ctx, KeyToken, tokens.Access); err != nil {
		return errors.Wrap(err, "storing token")
	}
	if err := s.storage.Set(ctx, KeyRefreshToken, tokens.Refresh); err != nil {
		return errors.Wrap(err, "storing refresh token")
	}
	return errors.Wrap(s.storage.Set(ctx, KeyUser, string(data)), "storing user")
}

// SetToken stores a refreshed access token.
func (s *Store) SetToken(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return errors.Wrap(s.storage.Set(ctx, KeyToken, token), "storing token")
}

// Clear signs out: the in-memory state is always cleared, even if the storage fails.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.refreshToken, s.user = "", "", nil
	return errors.Wrap(s.storage.Delete(ctx, KeyToken, KeyRefreshToken, KeyUser), "clearing session")
}

// ExpiresAt decodes the expiry of the access token, without verifying its signature.
// ok is false when there is no token or it carries no expiry.
func (s *Store) ExpiresAt() (exp time.Time, ok bool) {
	return TokenExpiry(s.Token())
}

// TokenExpiry decodes the expiry of `token` without verifying its signature.
func TokenExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := new(jwt.StandardClaims)
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == 0 {
		return time.Time{}, false
	}
	return time.Unix(claims.ExpiresAt, 0), true
}

// IsAuthenticated reports whether the access token is valid for more than the refresh margin.
func (s *Store) IsAuthenticated() bool {
	exp, ok := s.ExpiresAt()
	return ok && exp.Sub(NowFunc()) > s.margin
}

func (s *Store) IsSuperuser() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.user.IsSuperuser
}
