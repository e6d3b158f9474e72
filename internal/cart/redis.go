package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const defaultRedisPrefix = "storefront:cart:"

// RedisSnapshots stores cart lines as JSON under one key per session.
type RedisSnapshots struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisClient accepts either a redis:// URL or a bare host:port address.
func NewRedisClient(addr string) *redis.Client {
	addr = strings.TrimSpace(addr)
	opts, err := redis.ParseURL(addr)
	if err != nil {
		opts = &redis.Options{
			Addr:         addr,
			MinIdleConns: 1,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  2 * time.Second,
			WriteTimeout: 2 * time.Second,
			PoolSize:     10,
		}
	}
	return redis.NewClient(opts)
}

// NewRedisSnapshots wraps client. Keys expire ttl after the last save.
func NewRedisSnapshots(client *redis.Client, prefix string, ttl time.Duration) (*RedisSnapshots, error) {
	if client == nil {
		return nil, errors.New("cart: redis client is required")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	if ttl <= 0 {
		ttl = defaultIdleTTL
	}
	return &RedisSnapshots{client: client, prefix: prefix, ttl: ttl}, nil
}

// Ping checks connectivity.
func (s *RedisSnapshots) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Load returns the persisted lines, or nil when the session has none.
func (s *RedisSnapshots) Load(ctx context.Context, sessionID string) ([]Item, error) {
	raw, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cart: redis get: %w", err)
	}
	return decodeSnapshot(raw)
}

// Save replaces the persisted lines and refreshes the expiry.
func (s *RedisSnapshots) Save(ctx context.Context, sessionID string, items []Item) error {
	raw, err := encodeSnapshot(items)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(sessionID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("cart: redis set: %w", err)
	}
	return nil
}

// Delete removes the persisted lines.
func (s *RedisSnapshots) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("cart: redis del: %w", err)
	}
	return nil
}

func (s *RedisSnapshots) key(sessionID string) string {
	return s.prefix + sessionID
}

type snapshot struct {
	Version int    `json:"v"`
	Items   []Item `json:"items"`
}

const snapshotVersion = 1

func encodeSnapshot(items []Item) ([]byte, error) {
	if items == nil {
		items = []Item{}
	}
	raw, err := json.Marshal(snapshot{Version: snapshotVersion, Items: items})
	if err != nil {
		return nil, fmt.Errorf("cart: encode snapshot: %w", err)
	}
	return raw, nil
}

// decodeSnapshot drops lines that could not have come from a Store.
func decodeSnapshot(raw []byte) ([]Item, error) {
	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("cart: decode snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("cart: unsupported snapshot version %d", snap.Version)
	}
	items := make([]Item, 0, len(snap.Items))
	for _, it := range snap.Items {
		if strings.TrimSpace(it.SKU) == "" || it.Quantity < 1 || it.Price < 0 {
			continue
		}
		items = append(items, it)
	}
	return items, nil
}
