package redisstore

import (
	"context"
	"time"

	"arbscan-service/internal/application"

	"github.com/redis/go-redis/v9"
)

var _ application.IdempotencyStore = (*Store)(nil)

// Store reserves notification keys with SET NX so that the same route is
// announced at most once per TTL across every scanner process.
type Store struct {
	Client *redis.Client
	TTL    time.Duration
	Prefix string
}

func New(client *redis.Client, ttl time.Duration) *Store {
	return &Store{Client: client, TTL: ttl, Prefix: "arbscan:"}
}

func (s *Store) TryReserve(ctx context.Context, key string) (bool, error) {
	ok, err := s.Client.SetNX(ctx, s.Prefix+key, "1", s.TTL).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}
