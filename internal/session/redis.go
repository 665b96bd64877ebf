package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/busops/ticket-counter/internal/domain"
)

const keyPrefix = "ticket-counter:session:"

// RedisStore is a Store shared by every API instance. Save uses
// WATCH/MULTI so the version check and the write are atomic.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStore constructs a RedisStore on an existing client.
func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, now: time.Now}
}

// OpenRedis parses a redis:// URL, connects and pings.
func OpenRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("session.OpenRedis: parse url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("session.OpenRedis: ping: %w", err)
	}
	return client, nil
}

func key(id uuid.UUID) string { return keyPrefix + id.String() }

func (r *RedisStore) Create(ctx context.Context, s *domain.Session) error {
	s.Version = 1
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session.RedisStore.Create: encode: %w", err)
	}
	ok, err := r.client.SetNX(ctx, key(s.ID), data, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("session.RedisStore.Create: %w", err)
	}
	if !ok {
		return fmt.Errorf("session.RedisStore.Create: %w: session %s already exists", domain.ErrConflict, s.ID)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, id uuid.UUID) (domain.Session, error) {
	data, err := r.client.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, fmt.Errorf("session.RedisStore.Get: %w", domain.ErrNotFound)
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("session.RedisStore.Get: %w", err)
	}

	var s domain.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return domain.Session{}, fmt.Errorf("session.RedisStore.Get: decode: %w", err)
	}
	return s, nil
}

func (r *RedisStore) Save(ctx context.Context, s *domain.Session) error {
	k := key(s.ID)
	next := *s

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, k).Bytes()
		if errors.Is(err, redis.Nil) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}

		var stored struct {
			Version int64 `json:"version"`
		}
		if err := json.Unmarshal(data, &stored); err != nil {
			return fmt.Errorf("decode: %w", err)
		}
		if stored.Version != s.Version {
			return domain.ErrConflict
		}

		next.Version = s.Version + 1
		next.UpdatedAt = r.now().UTC()
		out, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, out, r.ttl)
			return nil
		})
		return err
	}, k)

	switch {
	case errors.Is(err, redis.TxFailedErr):
		return fmt.Errorf("session.RedisStore.Save: %w", domain.ErrConflict)
	case err != nil:
		return fmt.Errorf("session.RedisStore.Save: %w", err)
	}
	s.Version, s.UpdatedAt = next.Version, next.UpdatedAt
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := r.client.Del(ctx, key(id)).Result()
	if err != nil {
		return fmt.Errorf("session.RedisStore.Delete: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session.RedisStore.Delete: %w", domain.ErrNotFound)
	}
	return nil
}
