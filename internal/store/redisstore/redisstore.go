// Package redisstore keeps sessions and credentials as JSON strings in redis.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/DoyleJ11/bluffparty/internal/game"
	"github.com/DoyleJ11/bluffparty/internal/store"
	"github.com/redis/go-redis/v9"
)

const (
	sessionPrefix = "bluffparty:session:"
	credsPrefix   = "bluffparty:creds:"
)

type Options struct {
	Addr     string
	Password string
	DB       int
	// SessionTTL expires abandoned rooms. Zero keeps them forever.
	SessionTTL time.Duration
}

type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects and pings the server.
func New(ctx context.Context, opts Options) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return &Store{client: client, ttl: opts.SessionTTL}, nil
}

func (s *Store) SaveSession(ctx context.Context, room string, sess game.Session) error {
	return s.set(ctx, sessionPrefix+room, sess, s.ttl)
}

func (s *Store) LoadSession(ctx context.Context, room string) (game.Session, error) {
	var sess game.Session
	err := s.get(ctx, sessionPrefix+room, &sess)
	return sess, err
}

func (s *Store) SaveCredentials(ctx context.Context, profile string, c store.Credentials) error {
	return s.set(ctx, credsPrefix+profile, c, 0)
}

func (s *Store) LoadCredentials(ctx context.Context, profile string) (store.Credentials, error) {
	var c store.Credentials
	err := s.get(ctx, credsPrefix+profile, &c)
	return c, err
}

func (s *Store) ClearCredentials(ctx context.Context, profile string) error {
	if err := s.client.Del(ctx, credsPrefix+profile).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", profile, err)
	}
	return nil
}

func (s *Store) Close() error { return s.client.Close() }

func (s *Store) set(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, key string, v any) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("%s: %w", key, store.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

var _ store.Store = (*Store)(nil)
