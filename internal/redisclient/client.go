package redisclient

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"time"

	"pos-service/internal/util"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

//go:embed scripts/release_lock.lua
var releaseLockScript string

// ErrLockNotAcquired is returned when every lock attempt found the key held
var ErrLockNotAcquired = errors.New("lock not acquired")

// LockOptions controls lock expiry and retry behaviour
type LockOptions struct {
	TTL           time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

type Client struct {
	rdb           *redis.Client
	releaseScript *redis.Script
	lockOpts      LockOptions
	logger        *zap.Logger
}

// NewClient creates a new Redis client with the lock script loaded
func NewClient(addr, password string, db int, opts LockOptions) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return newClient(rdb, opts), nil
}

func newClient(rdb *redis.Client, opts LockOptions) *Client {
	if opts.RetryAttempts < 1 {
		opts.RetryAttempts = 1
	}
	return &Client{
		rdb:           rdb,
		releaseScript: redis.NewScript(releaseLockScript),
		lockOpts:      opts,
		logger:        util.GetLogger(),
	}
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Ping checks the connection for the readiness check
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func lockKey(key string) string {
	return fmt.Sprintf("lock:%s", key)
}

func stockKey(productID int64) string {
	return fmt.Sprintf("stock:%d", productID)
}

// Acquire takes the named lock with SET NX PX and a random owner token,
// retrying a bounded number of times. The returned func releases the lock
// only if it is still owned by this caller.
func (c *Client) Acquire(ctx context.Context, key string) (func(), error) {
	k := lockKey(key)
	token := uuid.New().String()

	for attempt := 0; attempt < c.lockOpts.RetryAttempts; attempt++ {
		ok, err := c.rdb.SetNX(ctx, k, token, c.lockOpts.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			return func() { c.release(k, token) }, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.lockOpts.RetryDelay):
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrLockNotAcquired, key)
}

func (c *Client) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := c.releaseScript.Run(ctx, c.rdb, []string{key}, token).Err(); err != nil {
		c.logger.Error("Failed to release lock", zap.String("key", key), zap.Error(err))
	}
}

// SetStock caches a product's reconciled stock
func (c *Client) SetStock(ctx context.Context, productID int64, stock int) error {
	return c.rdb.Set(ctx, stockKey(productID), stock, 0).Err()
}

// GetStock reads a cached stock value. The bool is false on a cache miss.
func (c *Client) GetStock(ctx context.Context, productID int64) (int, bool, error) {
	val, err := c.rdb.Get(ctx, stockKey(productID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	stock, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, fmt.Errorf("invalid cached stock for product %d: %w", productID, err)
	}
	return stock, true, nil
}
