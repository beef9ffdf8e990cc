package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/diagnosis/hotel-frontdesk/services/bookings/internal/domain"
)

const (
	statsKeyPrefix     = "rooms:stats:"
	statsGenerationKey = "rooms:stats:generation"
)

// StatsCache keeps computed occupancy figures per day for a short TTL.
// Entries are keyed by a generation counter that every write to rooms or
// bookings bumps through Invalidate, so figures computed before a write are
// never served after it.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStatsCache(client *redis.Client, ttl time.Duration) *StatsCache {
	return &StatsCache{client: client, ttl: ttl}
}

func statsKey(gen int64, day time.Time) string {
	return fmt.Sprintf("%s%d:%s", statsKeyPrefix, gen, day.Format("2006-01-02"))
}

// Generation returns the current cache generation. Read it before loading
// the figures that will be passed to Set.
func (c *StatsCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, statsGenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *StatsCache) Get(ctx context.Context, gen int64, day time.Time) (*domain.RoomStats, bool, error) {
	raw, err := c.client.Get(ctx, statsKey(gen, day)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var stats domain.RoomStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, false, err
	}
	return &stats, true, nil
}

func (c *StatsCache) Set(ctx context.Context, gen int64, day time.Time, stats *domain.RoomStats) error {
	payload, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, statsKey(gen, day), payload, c.ttl).Err()
}

// Invalidate starts a new generation. Older entries expire on their TTL.
func (c *StatsCache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, statsGenerationKey).Err()
}
