// Package session manages shopper sessions: the opaque identifier handed to the
// browser and the remote access token it stands for.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
	"ordercloud-storefront/internal/domain"
	"ordercloud-storefront/internal/ordercloud"
	sessionrepo "ordercloud-storefront/internal/repository/session"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

const tokenKeySuffix = "oc_access_token"

type authenticator interface {
	PasswordGrant(ctx context.Context, username, password string) (*ordercloud.Token, error)
}

type tokenStore interface {
	Get(ctx context.Context, key string) (sessionrepo.Entry, error)
	Set(ctx context.Context, key, value string) (int64, error)
	Delete(ctx context.Context, key string) error
}

type tokenRecord struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Service issues and validates shopper sessions.
type Service struct {
	auth   authenticator
	store  tokenStore
	ttl    time.Duration
	logger *log.Logger
	now    func() time.Time
}

func New(auth authenticator, store tokenStore, ttl time.Duration, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{auth: auth, store: store, ttl: ttl, logger: logger, now: time.Now}
}

func tokenKey(sessionID string) string {
	return "session:" + sessionID + ":" + tokenKeySuffix
}

// Login authenticates the shopper remotely and opens a new session.
func (s *Service) Login(ctx context.Context, username, password string) (sessionID string, expiresAt time.Time, err error) {
	if username == "" || password == "" {
		return "", time.Time{}, ErrInvalidCredentials
	}
	tok, err := s.auth.PasswordGrant(ctx, username, password)
	if err != nil {
		if domain.IsRemoteKind(err, domain.KindBadRequest, domain.KindUnauthorized) {
			return "", time.Time{}, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return "", time.Time{}, err
	}

	expiresAt = s.now().Add(s.ttl)
	if !tok.ExpiresAt.IsZero() && tok.ExpiresAt.Before(expiresAt) {
		expiresAt = tok.ExpiresAt
	}
	raw, err := json.Marshal(tokenRecord{AccessToken: tok.AccessToken, ExpiresAt: expiresAt.UTC()})
	if err != nil {
		return "", time.Time{}, err
	}

	sessionID = uuid.NewString()
	if _, err := s.store.Set(ctx, tokenKey(sessionID), string(raw)); err != nil {
		s.logger.Printf("session: store token session=%s error=%v", sessionID, err)
		return "", time.Time{}, err
	}
	return sessionID, expiresAt, nil
}

// Lookup returns the access token behind sessionID. Unknown, malformed and
// expired sessions all yield domain.ErrInvalidSession.
func (s *Service) Lookup(ctx context.Context, sessionID string) (string, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return "", domain.ErrInvalidSession
	}
	key := tokenKey(sessionID)
	entry, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.ErrInvalidSession
		}
		s.logger.Printf("session: lookup session=%s error=%v", sessionID, err)
		return "", err
	}

	var rec tokenRecord
	if err := json.Unmarshal([]byte(entry.Value), &rec); err != nil || rec.AccessToken == "" {
		return "", domain.ErrInvalidSession
	}
	if !s.now().Before(rec.ExpiresAt) {
		if err := s.store.Delete(ctx, key); err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.logger.Printf("session: drop expired session=%s error=%v", sessionID, err)
		}
		return "", domain.ErrInvalidSession
	}
	return rec.AccessToken, nil
}

// Logout forgets the session token. Logging out twice is not an error.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if err := s.store.Delete(ctx, tokenKey(sessionID)); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}
