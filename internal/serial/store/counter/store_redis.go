package counter

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"trackmark/pkg/domain"
)

// errCASMismatch aborts a Watch transaction when the watched counter no
// longer matches the expected value.
var errCASMismatch = errors.New("cas mismatch")

// RedisStore persists the serial ledger in Redis. Optimistic WATCH/MULTI
// transactions provide the compare-and-swap primitive.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore constructs a Redis-backed ledger store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func counterKey(key domain.PartitionKey) string {
	return "trackmark:serial:counter:" + key.String()
}

func reservedKey(key domain.PartitionKey) string {
	return "trackmark:serial:reserved:" + key.String()
}

// ReadCounter returns lastIssued; missing keys read as 0.
func (s *RedisStore) ReadCounter(ctx context.Context, key domain.PartitionKey) (int, error) {
	val, err := s.client.Get(ctx, counterKey(key)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read serial counter: %w", err)
	}
	return val, nil
}

// CompareAndSwapCounter advances the counter iff it still equals expected.
func (s *RedisStore) CompareAndSwapCounter(ctx context.Context, key domain.PartitionKey, expected, next int) (bool, error) {
	ck := counterKey(key)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		cur := 0
		val, err := tx.Get(ctx, ck).Result()
		if err != nil && err != redis.Nil {
			return err
		}
		if err == nil {
			cur, err = strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("corrupt counter value %q: %w", val, err)
			}
		}
		if cur != expected {
			return errCASMismatch
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, ck, next, 0)
			return nil
		})
		return err
	}, ck)

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errCASMismatch), errors.Is(err, redis.TxFailedErr):
		// Counter moved under us; the caller re-reads and retries.
		return false, nil
	default:
		return false, fmt.Errorf("cas serial counter: %w", err)
	}
}

// ReadReservedSerials returns the explicit reservations for a partition.
func (s *RedisStore) ReadReservedSerials(ctx context.Context, key domain.PartitionKey) (map[int]struct{}, error) {
	members, err := s.client.SMembers(ctx, reservedKey(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("read serial reservations: %w", err)
	}
	out := make(map[int]struct{}, len(members))
	for _, m := range members {
		serial, err := strconv.Atoi(m)
		if err != nil {
			return nil, fmt.Errorf("corrupt reservation %q: %w", m, err)
		}
		out[serial] = struct{}{}
	}
	return out, nil
}

// RecordReservation marks a serial as explicitly reserved.
func (s *RedisStore) RecordReservation(ctx context.Context, key domain.PartitionKey, serial int) error {
	if err := s.client.SAdd(ctx, reservedKey(key), serial).Err(); err != nil {
		return fmt.Errorf("record serial reservation: %w", err)
	}
	return nil
}
