package streambus

import (
	"context"
	"fmt"
	"time"

	"conflict-resolution-be/pkg/textstream"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const leaseKeyPrefix = "stream_lease:"

// releaseScript deletes the lease only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLease grants producer leases that hold across instances.
type RedisLease struct {
	rdb *redis.Client
}

var _ textstream.Lease = (*RedisLease)(nil)

func NewRedisLease(rdb *redis.Client) *RedisLease {
	return &RedisLease{rdb: rdb}
}

func (l *RedisLease) Acquire(ctx context.Context, id string, ttl time.Duration) (func(), error) {
	key := leaseKeyPrefix + id
	token := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lease for stream %s: %w", id, err)
	}
	if !ok {
		return nil, textstream.ErrLeaseHeld
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		releaseScript.Run(ctx, l.rdb, []string{key}, token)
	}, nil
}
