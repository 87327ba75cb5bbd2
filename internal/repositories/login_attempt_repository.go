package repositories

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// MaxLoginAttempts failed logins lock a username for LoginLockout
	MaxLoginAttempts = 5
	LoginLockout     = 15 * time.Minute

	loginAttemptsSweepInterval = time.Minute
)

// LoginAttemptRepository counts failed logins per username
type LoginAttemptRepository interface {
	IsLockedOut(ctx context.Context, username string) (bool, error)
	IncrementLoginAttempts(ctx context.Context, username string) error
	ResetLoginAttempts(ctx context.Context, username string) error
}

// RedisLoginAttemptRepository keeps counters in redis so every instance shares them
type RedisLoginAttemptRepository struct {
	rdb *redis.Client
}

// NewRedisLoginAttemptRepository creates a new RedisLoginAttemptRepository
func NewRedisLoginAttemptRepository(rdb *redis.Client) *RedisLoginAttemptRepository {
	return &RedisLoginAttemptRepository{rdb: rdb}
}

func loginAttemptsKey(username string) string {
	return "warbler:login_attempts:" + strings.ToLower(username)
}

func (r *RedisLoginAttemptRepository) IsLockedOut(ctx context.Context, username string) (bool, error) {
	n, err := r.rdb.Get(ctx, loginAttemptsKey(username)).Int()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return n >= MaxLoginAttempts, nil
}

func (r *RedisLoginAttemptRepository) IncrementLoginAttempts(ctx context.Context, username string) error {
	key := loginAttemptsKey(username)
	pipe := r.rdb.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, LoginLockout)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisLoginAttemptRepository) ResetLoginAttempts(ctx context.Context, username string) error {
	return r.rdb.Del(ctx, loginAttemptsKey(username)).Err()
}

type loginAttempts struct {
	count     int
	expiresAt time.Time
}

// MemoryLoginAttemptRepository is the single-instance fallback when redis is not configured
type MemoryLoginAttemptRepository struct {
	mu        sync.Mutex
	attempts  map[string]loginAttempts
	lastSweep time.Time
	now       func() time.Time
}

// NewMemoryLoginAttemptRepository creates a new MemoryLoginAttemptRepository
func NewMemoryLoginAttemptRepository() *MemoryLoginAttemptRepository {
	return &MemoryLoginAttemptRepository{attempts: make(map[string]loginAttempts), now: time.Now}
}

func (r *MemoryLoginAttemptRepository) IsLockedOut(_ context.Context, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[strings.ToLower(username)]
	if !ok {
		return false, nil
	}
	if r.now().After(a.expiresAt) {
		delete(r.attempts, strings.ToLower(username))
		return false, nil
	}
	return a.count >= MaxLoginAttempts, nil
}

func (r *MemoryLoginAttemptRepository) IncrementLoginAttempts(_ context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	r.sweep(now)

	key := strings.ToLower(username)
	a := r.attempts[key]
	if now.After(a.expiresAt) {
		a.count = 0
	}
	a.count++
	a.expiresAt = now.Add(LoginLockout)
	r.attempts[key] = a
	return nil
}

// sweep drops expired counters, at most once per loginAttemptsSweepInterval.
// r.mu must be held.
func (r *MemoryLoginAttemptRepository) sweep(now time.Time) {
	if now.Sub(r.lastSweep) < loginAttemptsSweepInterval {
		return
	}
	r.lastSweep = now
	for key, a := range r.attempts {
		if now.After(a.expiresAt) {
			delete(r.attempts, key)
		}
	}
}

func (r *MemoryLoginAttemptRepository) ResetLoginAttempts(_ context.Context, username string) error {
	r.mu.Lock()
	delete(r.attempts, strings.ToLower(username))
	r.mu.Unlock()
	return nil
}
