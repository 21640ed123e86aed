package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cashcount/internal/core"
	"cashcount/internal/ports"
	"cashcount/internal/session"
)

// AuthService verifies credentials against the API and keeps the resulting
// credential record in a session store.
type AuthService struct {
	auth  ports.Authenticator
	store session.Store
	ttl   time.Duration
	now   func() time.Time
}

func NewAuthService(auth ports.Authenticator, store session.Store, ttl time.Duration) *AuthService {
	return &AuthService{auth: auth, store: store, ttl: ttl, now: time.Now}
}

// Login checks creds and stores a new session for them.
func (s *AuthService) Login(ctx context.Context, creds core.Credentials) (session.Session, error) {
	creds.Username = strings.TrimSpace(creds.Username)
	if err := creds.Validate(); err != nil {
		return session.Session{}, err
	}
	if err := s.auth.Login(ctx, creds); err != nil {
		slog.WarnContext(ctx, "Login rejected", "user", creds.Username, "error", err)
		return session.Session{}, fmt.Errorf("login: %w", err)
	}

	sess := session.New(creds, s.now(), s.ttl)
	if err := s.store.Save(ctx, sess); err != nil {
		return session.Session{}, fmt.Errorf("login: %w", err)
	}
	slog.InfoContext(ctx, "User logged in", "user", creds.Username)
	return sess, nil
}

// Resolve loads the session for a cookie id. Unknown, malformed and
// expired ids all report session.ErrNotFound or session.ErrExpired.
func (s *AuthService) Resolve(ctx context.Context, id string) (session.Session, error) {
	if !session.ValidID(id) {
		return session.Session{}, session.ErrNotFound
	}
	return s.store.Load(ctx, id)
}

// Logout clears the credential record. Unknown ids are ignored.
func (s *AuthService) Logout(ctx context.Context, id string) error {
	if !session.ValidID(id) {
		return nil
	}
	if err := s.store.Delete(ctx, id); err != nil && !errors.Is(err, session.ErrNotFound) {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}
