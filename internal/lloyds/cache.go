package lloyds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"seacert/internal/platform/redis"
)

const (
	statusTTL      = 30 * time.Minute
	certificateTTL = 30 * 24 * time.Hour
)

// StatusCache keeps recently fetched LR data so reconciliation ticks don't
// hammer the remote service. A miss returns (nil, nil).
type StatusCache interface {
	GetStatus(ctx context.Context, trackingID string) (*Status, error)
	PutStatus(ctx context.Context, status *Status) error
	GetCertificate(ctx context.Context, trackingID string) (*Certificate, error)
	PutCertificate(ctx context.Context, cert *Certificate) error
}

type memoryCacheEntry struct {
	payload   any
	expiresAt time.Time
}

// MemoryCache is the in-process cache used when Redis is not configured.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryCacheEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryCacheEntry),
		now:     time.Now,
	}
}

func (c *MemoryCache) get(key string) (any, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.payload, true
}

func (c *MemoryCache) put(key string, payload any, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = memoryCacheEntry{payload: payload, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
}

func (c *MemoryCache) GetStatus(_ context.Context, trackingID string) (*Status, error) {
	payload, ok := c.get(statusKey(trackingID))
	if !ok {
		return nil, nil
	}
	status := payload.(Status)
	return &status, nil
}

func (c *MemoryCache) PutStatus(_ context.Context, status *Status) error {
	c.put(statusKey(status.TrackingID), *status, statusTTL)
	return nil
}

func (c *MemoryCache) GetCertificate(_ context.Context, trackingID string) (*Certificate, error) {
	payload, ok := c.get(certificateKey(trackingID))
	if !ok {
		return nil, nil
	}
	cert := payload.(Certificate)
	return &cert, nil
}

func (c *MemoryCache) PutCertificate(_ context.Context, cert *Certificate) error {
	c.put(certificateKey(cert.TrackingID), *cert, certificateTTL)
	return nil
}

// RedisCache stores LR data as JSON under TTL'd keys.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) GetStatus(ctx context.Context, trackingID string) (*Status, error) {
	var status Status
	ok, err := c.getJSON(ctx, statusKey(trackingID), &status)
	if err != nil || !ok {
		return nil, err
	}
	return &status, nil
}

func (c *RedisCache) PutStatus(ctx context.Context, status *Status) error {
	return c.putJSON(ctx, statusKey(status.TrackingID), status, statusTTL)
}

func (c *RedisCache) GetCertificate(ctx context.Context, trackingID string) (*Certificate, error) {
	var cert Certificate
	ok, err := c.getJSON(ctx, certificateKey(trackingID), &cert)
	if err != nil || !ok {
		return nil, err
	}
	return &cert, nil
}

func (c *RedisCache) PutCertificate(ctx context.Context, cert *Certificate) error {
	return c.putJSON(ctx, certificateKey(cert.TrackingID), cert, certificateTTL)
}

func (c *RedisCache) getJSON(ctx context.Context, key string, out any) (bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lloyds cache get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("lloyds cache decode %s: %w", key, err)
	}
	return true, nil
}

func (c *RedisCache) putJSON(ctx context.Context, key string, payload any, ttl time.Duration) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("lloyds cache encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("lloyds cache set %s: %w", key, err)
	}
	return nil
}

func statusKey(trackingID string) string      { return "lloyds:status:" + trackingID }
func certificateKey(trackingID string) string { return "lloyds:cert:" + trackingID }
