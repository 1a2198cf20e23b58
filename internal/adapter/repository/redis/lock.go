package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only when it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// TickLock implements usecase.TickLock with SET NX PX so that only one
// process runs a sweep tick at a time.
type TickLock struct {
	client redis.Cmdable
	prefix string
	token  string
}

// NewTickLock creates a new TickLock. The token identifies this process as
// the lock owner.
func NewTickLock(client redis.Cmdable, token string) *TickLock {
	return &TickLock{
		client: client,
		prefix: "lock:",
		token:  token,
	}
}

// Acquire takes the lock if no other holder has it.
func (l *TickLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, l.prefix+key, l.token, ttl).Result()
}

// Release drops the lock if this process still owns it.
func (l *TickLock) Release(ctx context.Context, key string) error {
	return releaseScript.Run(ctx, l.client, []string{l.prefix + key}, l.token).Err()
}
