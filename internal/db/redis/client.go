// Package redis is the Redis/Valkey implementation of db.Cache.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/DevHassanMehdi/ImageUpLift/internal/db"
)

var _ db.Cache = (*Store)(nil)

const pollInterval = 100 * time.Millisecond

// Config holds connection parameters. ReadyTimeout bounds the initial
// PING loop in Open; zero skips it.
type Config struct {
	Addrs        []string
	Username     string
	Password     string
	DB           int
	ReadyTimeout time.Duration
}

// Store is a rueidis-backed db.Cache with client-side caching disabled.
type Store struct {
	client rueidis.Client
}

// Open connects and blocks until the server answers PING or ReadyTimeout passes.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, errors.New("redis: no addrs configured")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("redis: connect %v: %w", cfg.Addrs, err)
	}

	s := &Store{client: client}
	if cfg.ReadyTimeout > 0 {
		if err := s.waitReady(ctx, cfg.ReadyTimeout); err != nil {
			client.Close()
			return nil, err
		}
	}
	return s, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Do(ctx, s.client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.client.Close()
}

func (s *Store) waitReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var last error
	for {
		if last = s.Ping(ctx); last == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("redis not ready after %s: %w (last: %v)", timeout, ctx.Err(), last)
		case <-ticker.C:
		}
	}
}
