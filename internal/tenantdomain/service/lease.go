package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const leaseReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// VerifyLease serializes concurrent verify calls per (tenant, domain). A nil
// lease disables serialization, matching single-node deployments without
// redis.
type VerifyLease struct {
	client *redis.Client
	script *redis.Script
}

func NewVerifyLease(client *redis.Client) *VerifyLease {
	if client == nil {
		return nil
	}
	return &VerifyLease{
		client: client,
		script: redis.NewScript(leaseReleaseScript),
	}
}

// TryAcquire returns a release token and whether the lease was obtained.
func (l *VerifyLease) TryAcquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if l == nil || l.client == nil {
		return "", true, nil
	}
	if key == "" {
		return "", false, errors.New("lease key is empty")
	}
	if ttl <= 0 {
		return "", false, errors.New("lease ttl must be positive")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// Release frees the lease if the token still owns it.
func (l *VerifyLease) Release(ctx context.Context, key, token string) error {
	if l == nil || l.client == nil {
		return nil
	}
	if key == "" || token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{key}, token).Err()
}
