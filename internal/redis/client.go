package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/trogers1052/flexbot/internal/config"
	"github.com/trogers1052/flexbot/internal/models"
)

// Client wraps the Redis client with price-cache operations
type Client struct {
	rdb *redis.Client
}

// New creates a new Redis client
func New(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// NewWithClient wraps an existing go-redis client
func NewWithClient(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks if Redis is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func quoteKey(coinID string) string {
	return fmt.Sprintf("coingecko:%s:quote", strings.ToLower(coinID))
}

const coinListKey = "coingecko:coins:list"

// SetQuotes caches quotes keyed by CoinGecko coin id
func (c *Client) SetQuotes(ctx context.Context, quotes map[string]models.Quote, ttl time.Duration) error {
	if len(quotes) == 0 {
		return nil
	}
	pipe := c.rdb.Pipeline()
	for id, q := range quotes {
		data, err := json.Marshal(q)
		if err != nil {
			return fmt.Errorf("failed to marshal quote %s: %w", id, err)
		}
		pipe.Set(ctx, quoteKey(id), data, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache quotes: %w", err)
	}
	return nil
}

// GetQuotes returns the cached quotes for the given coin ids.
// Ids that are not cached are omitted from the result.
func (c *Client) GetQuotes(ctx context.Context, coinIDs []string) (map[string]models.Quote, error) {
	result := make(map[string]models.Quote, len(coinIDs))
	if len(coinIDs) == 0 {
		return result, nil
	}

	keys := make([]string, len(coinIDs))
	for i, id := range coinIDs {
		keys[i] = quoteKey(id)
	}
	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get cached quotes: %w", err)
	}

	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var q models.Quote
		if err := json.Unmarshal([]byte(s), &q); err != nil {
			continue
		}
		result[coinIDs[i]] = q
	}
	return result, nil
}

// SetCoinList caches the raw CoinGecko coin list
func (c *Client) SetCoinList(ctx context.Context, data []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, coinListKey, data, ttl).Err()
}

// GetCoinList returns the cached coin list, or nil when absent
func (c *Client) GetCoinList(ctx context.Context) ([]byte, error) {
	data, err := c.rdb.Get(ctx, coinListKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached coin list: %w", err)
	}
	return data, nil
}
