// internal/common/backend/tokens.go
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

// TokenPair is the session held for the backend.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

func (p TokenPair) Empty() bool {
	return p.AccessToken == "" && p.RefreshToken == ""
}

// TokenStore persists the token pair between requests. Load returns an
// empty pair when nothing is stored.
type TokenStore interface {
	Load(ctx context.Context) (TokenPair, error)
	Save(ctx context.Context, pair TokenPair) error
	Clear(ctx context.Context) error
}

// MemoryTokenStore keeps the pair in process.
type MemoryTokenStore struct {
	mu   sync.RWMutex
	pair TokenPair
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (s *MemoryTokenStore) Load(_ context.Context) (TokenPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair, nil
}

func (s *MemoryTokenStore) Save(_ context.Context, pair TokenPair) error {
	s.mu.Lock()
	s.pair = pair
	s.mu.Unlock()
	return nil
}

func (s *MemoryTokenStore) Clear(_ context.Context) error {
	s.mu.Lock()
	s.pair = TokenPair{}
	s.mu.Unlock()
	return nil
}

// RedisTokenStore shares one session between worker replicas and the CLI.
type RedisTokenStore struct {
	client redis.Cmdable
	key    string
	now    func() time.Time
}

func NewRedisTokenStore(client redis.Cmdable, key string) *RedisTokenStore {
	if key == "" {
		key = "backend:tokens"
	}
	return &RedisTokenStore{client: client, key: key, now: time.Now}
}

func (s *RedisTokenStore) Load(ctx context.Context) (TokenPair, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
		return TokenPair{}, nil
	}
	if err != nil {
		return TokenPair{}, fmt.Errorf("load tokens: %w", err)
	}

	var pair TokenPair
	if err := json.Unmarshal(data, &pair); err != nil {
		return TokenPair{}, fmt.Errorf("decode tokens: %w", err)
	}
	return pair, nil
}

// Save stores the pair until the refresh token expires. A pair whose
// refresh token is already expired is dropped.
func (s *RedisTokenStore) Save(ctx context.Context, pair TokenPair) error {
	ttl := TokenTTL(pair.RefreshToken, s.now())
	if ttl < 0 {
		return s.Clear(ctx)
	}

	data, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("encode tokens: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, ttl).Err(); err != nil {
		return fmt.Errorf("save tokens: %w", err)
	}
	return nil
}

func (s *RedisTokenStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("clear tokens: %w", err)
	}
	return nil
}

// TokenTTL reads the exp claim of token without verifying the signature.
// It returns 0 (no expiry) when the token is empty, opaque or has no exp,
// and a negative duration when it is already expired.
func TokenTTL(token string, now time.Time) time.Duration {
	if token == "" {
		return 0
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return 0
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return 0
	}

	ttl := exp.Sub(now)
	if ttl <= 0 {
		return -1
	}
	if ttl < time.Second {
		return time.Second
	}
	return ttl.Truncate(time.Second)
}
