// Package jwt issues short-lived bearer tokens for the push gateway.
package jwt

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// PushTokenService signs and caches gateway access tokens
type PushTokenService struct {
	secret []byte
	ttl    time.Duration

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewPushTokenService creates a PushTokenService signing with the given secret
func NewPushTokenService(secret string, ttl time.Duration) *PushTokenService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &PushTokenService{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// GetToken returns a valid bearer token, reusing the cached one until it
// nears expiry
func (s *PushTokenService) GetToken() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && time.Now().Add(time.Minute).Before(s.expiresAt) {
		return s.token, nil
	}

	now := time.Now()
	expiresAt := now.Add(s.ttl)
	claims := jwt.MapClaims{
		"sub": "campaigns-backend",
		"iat": now.Unix(),
		"exp": expiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign gateway token: %w", err)
	}

	s.token = signed
	s.expiresAt = expiresAt
	return signed, nil
}
