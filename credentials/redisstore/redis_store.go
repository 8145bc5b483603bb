// Package redisstore keeps the bearer credential in Redis, for kiosk and shared
// devices where the local filesystem is wiped between sessions.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jrsteele09/callscreen-client/credentials"
	clienterrors "github.com/jrsteele09/callscreen-client/internal/errors"
)

const defaultOpTimeout = 3 * time.Second

var _ credentials.Store = (*Store)(nil)

// Store persists the credential under a single key and mirrors it in memory.
// The key expires together with the credential.
type Store struct {
	client    *redis.Client
	key       string
	opTimeout time.Duration
	nowFunc   func() time.Time

	cred credentials.Credential
	ok   bool
	lock sync.RWMutex
}

type Option func(*Store)

func WithOpTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.opTimeout = d
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(s *Store) {
		s.nowFunc = now
	}
}

// NewClient configures a Redis client from a URL and verifies connectivity.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, fmt.Errorf("redis url is required")
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// New loads the current credential from key. Loading happens once here so Get
// never touches the network.
func New(ctx context.Context, client *redis.Client, key string, options ...Option) (*Store, error) {
	s := &Store{
		client:    client,
		key:       key,
		opTimeout: defaultOpTimeout,
		nowFunc:   time.Now,
	}
	for _, opt := range options {
		opt(s)
	}

	data, err := client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	var cred credentials.Credential
	if err := json.Unmarshal(data, &cred); err != nil || cred.IsZero() {
		// Same policy as the file store: unreadable means logged out.
		return s, nil
	}
	s.cred = cred
	s.ok = true
	return s, nil
}

func (s *Store) Get() (credentials.Credential, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.cred, s.ok
}

func (s *Store) Set(cred credentials.Credential) error {
	if cred.IsZero() {
		return s.Clear()
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	s.cred = cred
	s.ok = true

	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}

	var ttl time.Duration
	if !cred.ExpiresAt.IsZero() {
		ttl = cred.ExpiresAt.Sub(s.nowFunc())
		if ttl <= 0 {
			// Already past its declared expiry: memory only, the server decides.
			return clienterrors.Wrapf(s.del(), "drop expired credential")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.opTimeout)
	defer cancel()
	if err := s.client.Set(ctx, s.key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

func (s *Store) Clear() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.cred = credentials.Credential{}
	s.ok = false
	return s.del()
}

func (s *Store) del() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.opTimeout)
	defer cancel()
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", s.key, err)
	}
	return nil
}
