package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/solitary-pixels/hotspotx/pkg/logging"
	"github.com/solitary-pixels/hotspotx/pkg/utils"
)

// DefaultStreamMaxLen caps the snapshot stream.
const DefaultStreamMaxLen = 4320 // 30 days of 10 minute cycles

// Client wraps the Redis client used for the status store and snapshot stream.
type Client struct {
	client       *redis.Client
	logger       *zap.Logger
	streamMaxLen int64 // 0 = unlimited
}

// NewClient creates a new Redis client using environment variables for configuration.
// Environment variables:
//   - REDIS_URL: full redis:// URL; when set the variables below are ignored
//   - REDIS_HOST: Redis host (default: "localhost")
//   - REDIS_PORT: Redis port (default: "6379")
//   - REDIS_PASSWORD: Redis password (default: "")
//   - REDIS_DB: Redis database number (default: "0")
//   - REDIS_STREAM_MAXLEN: Max entries in the snapshot stream (default: 4320, 0 = unlimited)
func NewClient(ctx context.Context, logger *zap.Logger) (*Client, error) {
	logger = logging.OrNop(logger)
	streamMaxLen := utils.EnvInt64("REDIS_STREAM_MAXLEN", DefaultStreamMaxLen)

	var opts *redis.Options
	if u := utils.Env("REDIS_URL", ""); u != "" {
		parsed, err := redis.ParseURL(u)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     fmt.Sprintf("%s:%s", utils.Env("REDIS_HOST", "localhost"), utils.Env("REDIS_PORT", "6379")),
			Password: utils.Env("REDIS_PASSWORD", ""),
			DB:       utils.EnvInt("REDIS_DB", 0),
		}
	}

	// One poll cycle at a time needs very few connections.
	opts.PoolSize = 4
	opts.MinIdleConns = 1
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}

	logger.Info("Connected to Redis",
		zap.String("addr", opts.Addr),
		zap.Int("db", opts.DB),
		zap.Int64("streamMaxLen", streamMaxLen))

	return NewFromClient(rdb, logger, streamMaxLen), nil
}

// NewFromClient wraps an existing go-redis client.
func NewFromClient(rdb *redis.Client, logger *zap.Logger, streamMaxLen int64) *Client {
	return &Client{
		client:       rdb,
		logger:       logging.OrNop(logger),
		streamMaxLen: streamMaxLen,
	}
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// GetClient returns the underlying Redis client.
func (c *Client) GetClient() *redis.Client {
	return c.client
}

// Health checks if Redis is healthy.
func (c *Client) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// XAdd appends an entry to stream, trimming it to the configured MAXLEN
// (approximate for performance). Returns the entry ID.
func (c *Client) XAdd(ctx context.Context, stream string, values map[string]interface{}) (string, error) {
	args := &redis.XAddArgs{
		Stream: stream,
		Values: values,
	}
	if c.streamMaxLen > 0 {
		args.MaxLen = c.streamMaxLen
		args.Approx = true
	}

	id, err := c.client.XAdd(ctx, args).Result()
	if err != nil {
		return "", fmt.Errorf("xadd %s: %w", stream, err)
	}
	return id, nil
}

// XRange returns entries from a stream between two IDs (inclusive).
// Use "-" and "+" for the earliest and latest entries.
func (c *Client) XRange(ctx context.Context, stream, start, end string, count int64) ([]redis.XMessage, error) {
	return c.client.XRangeN(ctx, stream, start, end, count).Result()
}
