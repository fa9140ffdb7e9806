package dedup

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

const seenSetKey = "jobsift:seen"

// SeenSet is an optional Redis-backed recently-seen set shared between
// invocations. When configured it supplements the store's trailing
// window: members are loaded into the persisted scope at start-up and
// newly persisted keys are added with a TTL-bearing sweep key.
type SeenSet struct {
	rdb    *redis.Client
	window time.Duration
}

// NewSeenSet parses redisURL, verifies connectivity, and returns a
// SeenSet with the given trailing window.
func NewSeenSet(ctx context.Context, redisURL string, window time.Duration) (*SeenSet, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, eris.Wrap(err, "dedup: parse redis url")
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, eris.Wrap(err, "dedup: redis ping")
	}
	return &SeenSet{rdb: rdb, window: window}, nil
}

// Load returns every member of the seen set.
func (s *SeenSet) Load(ctx context.Context) ([]string, error) {
	members, err := s.rdb.SMembers(ctx, seenSetKey).Result()
	if err != nil {
		return nil, eris.Wrap(err, "dedup: load seen set")
	}
	return members, nil
}

// Add inserts keys into the seen set and refreshes its expiry to the
// trailing window. Expiring the whole set approximates per-member
// ageing without a sorted-set scan on every run.
func (s *SeenSet) Add(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	members := make([]any, len(keys))
	for i, k := range keys {
		members[i] = k
	}
	if err := s.rdb.SAdd(ctx, seenSetKey, members...).Err(); err != nil {
		return eris.Wrap(err, "dedup: add to seen set")
	}
	if err := s.rdb.Expire(ctx, seenSetKey, s.window).Err(); err != nil {
		return eris.Wrap(err, "dedup: expire seen set")
	}
	return nil
}

// Close releases the underlying connection.
func (s *SeenSet) Close() error {
	return s.rdb.Close()
}
