package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/meridian-bi/meridian/internal/shared"
)

// TokenStore keeps opaque bearer tokens in Redis with a sliding TTL.
type TokenStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTokenStore constructs a TokenStore.
func NewTokenStore(client *redis.Client, ttl time.Duration) *TokenStore {
	return &TokenStore{client: client, ttl: ttl}
}

// ErrTokenInvalid indicates an unknown or expired token.
var ErrTokenInvalid = errors.New("auth: token invalid or expired")

func (s *TokenStore) key(token string) string {
	return "auth:token:" + token
}

// Issue stores the identity under a fresh random token.
func (s *TokenStore) Issue(ctx context.Context, id shared.Identity) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("auth: token entropy: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)

	payload, err := json.Marshal(id)
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, s.key(token), payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("auth: store token: %w", err)
	}
	return token, nil
}

// Resolve loads the identity for a token and refreshes its TTL.
func (s *TokenStore) Resolve(ctx context.Context, token string) (*shared.Identity, error) {
	if token == "" {
		return nil, ErrTokenInvalid
	}
	payload, err := s.client.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}
	var id shared.Identity
	if err := json.Unmarshal(payload, &id); err != nil {
		return nil, err
	}
	_ = s.client.Expire(ctx, s.key(token), s.ttl).Err()
	return &id, nil
}

// Revoke deletes the token.
func (s *TokenStore) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.client.Del(ctx, s.key(token)).Err()
}
