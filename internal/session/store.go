package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/me/rtodash/internal/logging"
	"github.com/me/rtodash/internal/store"
)

// Store owns the auth token in durable client storage. It is the only code
// that reads or writes store.KeyAuthToken.
//
// None of its methods return errors: a storage failure on read is treated as
// "no token" and write failures are logged.
type Store struct {
	kv     store.KV
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a session store over kv.
func New(kv store.KV, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		kv:     kv,
		logger: logger.With("component", "session"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Token reads the stored token. Pure read: an expired token is returned as is.
func (s *Store) Token(ctx context.Context) (string, bool) {
	tok, ok, err := s.kv.Get(ctx, store.KeyAuthToken)
	if err != nil {
		s.logger.Warn("read token failed", "error", err)
		return "", false
	}
	if !ok || tok == "" {
		return "", false
	}
	return tok, true
}

// SetToken persists tok. No validation happens here.
func (s *Store) SetToken(ctx context.Context, tok string) {
	if err := s.kv.Set(ctx, store.KeyAuthToken, tok); err != nil {
		s.logger.Error("write token failed", "error", err)
		return
	}
	s.logger.Debug("token stored", "token", logging.Redact(tok))
}

// ClearToken removes the stored token.
func (s *Store) ClearToken(ctx context.Context) {
	if err := s.kv.Delete(ctx, store.KeyAuthToken); err != nil {
		s.logger.Error("clear token failed", "error", err)
	}
}

// IsExpired checks tok against the store's clock.
func (s *Store) IsExpired(tok string) bool {
	return IsExpired(tok, s.now())
}

// ValidToken returns the stored token only if it is unexpired. An expired or
// undecodable token is removed before returning, so it is never sent.
func (s *Store) ValidToken(ctx context.Context) (string, bool) {
	tok, ok := s.Token(ctx)
	if !ok {
		return "", false
	}
	if s.IsExpired(tok) {
		s.logger.Info("stored token expired; clearing", "token", logging.Redact(tok))
		s.ClearToken(ctx)
		return "", false
	}
	return tok, true
}
