package lloyds

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheStatusTTL(t *testing.T) {
	cache := NewMemoryCache()
	clock := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return clock }
	ctx := context.Background()

	miss, err := cache.GetStatus(ctx, "LR0011223344")
	require.NoError(t, err)
	assert.Nil(t, miss, "empty cache misses with nil, nil")

	status := &Status{TrackingID: "LR0011223344", State: "monitoring_active"}
	require.NoError(t, cache.PutStatus(ctx, status))

	hit, err := cache.GetStatus(ctx, "LR0011223344")
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, "monitoring_active", hit.State)

	t.Run("expires after thirty minutes", func(t *testing.T) {
		clock = clock.Add(31 * time.Minute)
		expired, err := cache.GetStatus(ctx, "LR0011223344")
		require.NoError(t, err)
		assert.Nil(t, expired)
	})
}

func TestMemoryCacheCertificateTTL(t *testing.T) {
	cache := NewMemoryCache()
	clock := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return clock }
	ctx := context.Background()

	cert := &Certificate{ID: "CERT-AB12CD34", TrackingID: "LR0011223344", Kind: "safe_delivery"}
	require.NoError(t, cache.PutCertificate(ctx, cert))

	clock = clock.Add(29 * 24 * time.Hour)
	hit, err := cache.GetCertificate(ctx, "LR0011223344")
	require.NoError(t, err)
	require.NotNil(t, hit, "certificates live for thirty days")
	assert.Equal(t, "CERT-AB12CD34", hit.ID)

	clock = clock.Add(2 * 24 * time.Hour)
	expired, err := cache.GetCertificate(ctx, "LR0011223344")
	require.NoError(t, err)
	assert.Nil(t, expired)
}

func TestMemoryCacheCopiesValues(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	status := &Status{TrackingID: "LR0011223344", State: "registered"}
	require.NoError(t, cache.PutStatus(ctx, status))
	status.State = "mutated"

	hit, err := cache.GetStatus(ctx, "LR0011223344")
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, "registered", hit.State)
}
