package membership

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrLoginBlocked is returned by a LoginGuard when the subject is currently
// locked out.
var ErrLoginBlocked = errors.New("login temporarily blocked")

// LoginGuard is the pluggable lockout policy hook consulted by Login. A nil
// guard disables enforcement entirely; the engine mandates no particular
// policy.
type LoginGuard interface {
	// Check returns ErrLoginBlocked when the subject may not attempt a
	// login right now. Other errors are treated as guard unavailability
	// and do not block the attempt.
	Check(ctx context.Context, login, ip string) error
	// RecordFailure notes one failed credential check.
	RecordFailure(ctx context.Context, login, ip string) error
	// Reset clears the failure history after a successful login.
	Reset(ctx context.Context, login, ip string) error
}

// RedisLoginGuard implements LoginGuard with a fixed-window failure counter
// and a temporary block key, both keyed by login identifier and IP.
type RedisLoginGuard struct {
	rdb         *redis.Client
	maxAttempts int
	lockout     time.Duration
}

// NewRedisLoginGuard builds a guard blocking after maxAttempts failures
// within the lockout window.
func NewRedisLoginGuard(rdb *redis.Client, maxAttempts, lockoutMinutes int) *RedisLoginGuard {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if lockoutMinutes <= 0 {
		lockoutMinutes = 30
	}
	return &RedisLoginGuard{
		rdb:         rdb,
		maxAttempts: maxAttempts,
		lockout:     time.Duration(lockoutMinutes) * time.Minute,
	}
}

func (g *RedisLoginGuard) failKey(login, ip string) string {
	return fmt.Sprintf("authguard:fail:%s:%s", login, ip)
}

func (g *RedisLoginGuard) blockKey(login, ip string) string {
	return fmt.Sprintf("authguard:block:%s:%s", login, ip)
}

func (g *RedisLoginGuard) Check(ctx context.Context, login, ip string) error {
	n, err := g.rdb.Exists(ctx, g.blockKey(login, ip)).Result()
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrLoginBlocked
	}
	return nil
}

func (g *RedisLoginGuard) RecordFailure(ctx context.Context, login, ip string) error {
	key := g.failKey(login, ip)
	count, err := g.rdb.Incr(ctx, key).Result()
	if err != nil {
		return err
	}
	if count == 1 {
		// First failure opens the counting window.
		if err := g.rdb.Expire(ctx, key, g.lockout).Err(); err != nil {
			return err
		}
	}
	if count >= int64(g.maxAttempts) {
		pipe := g.rdb.TxPipeline()
		pipe.Set(ctx, g.blockKey(login, ip), "1", g.lockout)
		pipe.Del(ctx, key)
		_, err = pipe.Exec(ctx)
		return err
	}
	return nil
}

func (g *RedisLoginGuard) Reset(ctx context.Context, login, ip string) error {
	return g.rdb.Del(ctx, g.failKey(login, ip), g.blockKey(login, ip)).Err()
}
