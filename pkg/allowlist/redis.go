package allowlist

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const DefaultRedisKey = "chatbot-relay:businesses"

// RedisChecker checks membership in a Redis set, so several relay instances can share
// one allow-list. Members are managed outside the relay (for example with SADD).
type RedisChecker struct {
	client redis.UniversalClient
	key    string
}

var _ Checker = &RedisChecker{}

func NewRedisChecker(client redis.UniversalClient, key string) (*RedisChecker, error) {
	if client == nil {
		return nil, errors.New("redis allow-list: client is nil")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisChecker{client: client, key: key}, nil
}

// NewRedisCheckerForAddr dials a single Redis node at addr.
func NewRedisCheckerForAddr(addr, key string) (*RedisChecker, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, errors.New("redis allow-list: empty address")
	}
	return NewRedisChecker(redis.NewClient(&redis.Options{Addr: addr}), key)
}

func (c *RedisChecker) Key() string { return c.key }

func (c *RedisChecker) IsValidBusiness(ctx context.Context, businessID string) (bool, error) {
	if businessID == "" {
		return false, nil
	}
	ok, err := c.client.SIsMember(ctx, c.key, businessID).Result()
	if err != nil {
		return false, errors.Wrapf(err, "redis allow-list: SISMEMBER %s", c.key)
	}
	return ok, nil
}

func (c *RedisChecker) Close() error {
	return c.client.Close()
}
