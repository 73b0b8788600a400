package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// ErrNotHeld is returned when releasing or extending a lease that has expired or
// been taken over by another holder
var ErrNotHeld = errors.New("lock not held")

// DefaultKey is the key guarding the ingest and export cycle
const DefaultKey = "enip:run-lock"

// Only the holder that set the token may delete or extend it.
var (
	releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

	extendScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
)

// RunLock is a lease in redis that keeps overlapping schedulers from running the
// same cycle twice
type RunLock struct {
	rdb *goredis.Client
	key string
	ttl time.Duration
}

// Lease is a held RunLock
type Lease struct {
	lock  *RunLock
	token string
}

// Connect opens a redis client for addr and checks it responds
func Connect(ctx context.Context, addr string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(addr)
	if err != nil {
		opts = &goredis.Options{Addr: addr}
	}
	opts.DialTimeout = 5 * time.Second

	rdb := goredis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func New(rdb *goredis.Client, key string, ttl time.Duration) *RunLock {
	return &RunLock{rdb: rdb, key: key, ttl: ttl}
}

// TryAcquire takes the lock if nobody holds it. A nil lease with a nil error means
// another holder has it.
func (l *RunLock) TryAcquire(ctx context.Context) (*Lease, error) {
	token := uuid.New().String()
	ok, err := l.rdb.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !ok {
		log.WithField("key", l.key).Debug("Run lock held elsewhere")
		return nil, nil
	}
	return &Lease{lock: l, token: token}, nil
}

// Extend pushes the lease expiry out by the lock's TTL
func (le *Lease) Extend(ctx context.Context) error {
	n, err := extendScript.Run(ctx, le.lock.rdb, []string{le.lock.key}, le.token, le.lock.ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("failed to extend run lock: %w", err)
	}
	if n == 0 {
		return ErrNotHeld
	}
	return nil
}

// KeepAlive extends the lease every third of the TTL until the returned stop
// function is called or ctx ends. A lease that was lost stays lost; KeepAlive logs
// it and stops extending.
func (le *Lease) KeepAlive(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(le.lock.ttl / 3)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				err := le.Extend(ctx)
				if errors.Is(err, ErrNotHeld) {
					log.WithField("key", le.lock.key).Warn("Run lock lost while the cycle was running")
					return
				}
				if err != nil && ctx.Err() == nil {
					log.WithError(err).WithField("key", le.lock.key).Warn("Failed to extend run lock")
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

// Release gives the lock up if this lease still holds it
func (le *Lease) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, le.lock.rdb, []string{le.lock.key}, le.token).Int64()
	if err != nil {
		return fmt.Errorf("failed to release run lock: %w", err)
	}
	if n == 0 {
		return ErrNotHeld
	}
	return nil
}
