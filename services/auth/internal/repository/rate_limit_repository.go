package repository

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrWindow starts the expiry on the first hit so the window is fixed.
var incrWindow = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

type RateLimitRepository interface {
	// Allow counts one hit against key and reports whether it is within limit
	// for the current window. On a Redis error it allows the request and
	// returns the error for logging.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type rateLimitRepository struct {
	client *redis.Client
}

func NewRateLimitRepository(client *redis.Client) RateLimitRepository {
	return &rateLimitRepository{client: client}
}

func (r *rateLimitRepository) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	// Keys carry emails and IPs; only the digest reaches Redis.
	hashedKey := fmt.Sprintf("ratelimit:%x", sha256.Sum256([]byte(key)))

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	count, err := incrWindow.Run(ctx, r.client, []string{hashedKey}, window.Milliseconds()).Int64()
	if err != nil {
		return true, err
	}

	return count <= int64(limit), nil
}
