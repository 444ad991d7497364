package ticket

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrTicketIDInUse is returned by Register when the id already has a live entry.
var ErrTicketIDInUse = errors.New("ticket: ticket id already registered")

// DefaultKeyPrefix namespaces live-ticket markers in Redis.
const DefaultKeyPrefix = "ticket:live:"

const liveMarker = "valid"

// Store records which standard tickets are still unused. An entry exists
// from Register until the first successful Consume or until its TTL lapses.
type Store interface {
	// Register creates the live entry for ticketID with the given TTL.
	Register(ctx context.Context, ticketID string, ttl time.Duration) error
	// Consume atomically removes the entry and reports whether it existed.
	// At most one concurrent caller per ticketID observes true.
	Consume(ctx context.Context, ticketID string) (bool, error)
}

// RedisStore is the Store backed by Redis key expiry.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisClient builds the client both binaries use. Context deadlines
// apply to socket I/O, so a store timeout bounds a hung server.
func NewRedisClient(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:                  addr,
		Password:              password,
		ContextTimeoutEnabled: true,
	})
}

func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) key(ticketID string) string {
	return s.prefix + ticketID
}

// Register uses SET NX EX so a live entry is never overwritten or its TTL extended.
func (s *RedisStore) Register(ctx context.Context, ticketID string, ttl time.Duration) error {
	if ticketID == "" {
		return fmt.Errorf("%w: empty ticket id", ErrValidation)
	}
	if _, err := wholeSeconds(ttl); err != nil {
		return err
	}
	set, err := s.rdb.SetNX(ctx, s.key(ticketID), liveMarker, ttl).Result()
	if err != nil {
		return fmt.Errorf("register ticket: %w", err)
	}
	if !set {
		return ErrTicketIDInUse
	}
	return nil
}

// Consume is a single GETDEL round trip.
func (s *RedisStore) Consume(ctx context.Context, ticketID string) (bool, error) {
	if ticketID == "" {
		return false, nil
	}
	_, err := s.rdb.GetDel(ctx, s.key(ticketID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("consume ticket: %w", err)
	}
	return true, nil
}
