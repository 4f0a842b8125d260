package mem

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const leaseKeyPrefix = "hairsim:lease:"

// releaseScript deletes the key only when it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

type RedisLeases struct {
	client *redis.Client
}

func NewRedisLeases(client *redis.Client) *RedisLeases {
	return &RedisLeases{client: client}
}

func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func (r *RedisLeases) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, leaseKeyPrefix+key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("acquire lease %s: %w", key, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (r *RedisLeases) Release(ctx context.Context, key, token string) error {
	if err := releaseScript.Run(ctx, r.client, []string{leaseKeyPrefix + key}, token).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("release lease %s: %w", key, err)
	}
	return nil
}
