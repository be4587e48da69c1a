package redisclient

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"storefront/internal/cart"
	"storefront/internal/models"
)

func setupRedis(t *testing.T) *Client {
	if testing.Short() {
		t.Skip("Integration test - requires docker")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client, err := NewClient(fmt.Sprintf("%s:%s", host, port.Port()), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func TestCartPersistence(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	empty, err := client.LoadCart(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())

	crt := cart.New()
	crt.Add(&models.Product{ID: 1, Price: decimal.RequireFromString("10.00")}, 2, false)
	crt.Add(&models.Product{ID: 2, Price: decimal.RequireFromString("5.50")}, 1, false)
	require.NoError(t, client.SaveCart(ctx, "sess-1", crt, time.Minute))

	loaded, err := client.LoadCart(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, loaded.ProductIDs())
	assert.True(t, decimal.RequireFromString("25.50").Equal(loaded.TotalPrice()))

	ttl, err := client.GetClient().TTL(ctx, "cart:sess-1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	// other sessions are isolated
	other, err := client.LoadCart(ctx, "sess-2")
	require.NoError(t, err)
	assert.True(t, other.IsEmpty())

	require.NoError(t, client.DeleteCart(ctx, "sess-1"))
	cleared, err := client.LoadCart(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, cleared.IsEmpty())
}

func TestSaveEmptyCartDeletesKey(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	crt := cart.New()
	crt.Add(&models.Product{ID: 1, Price: decimal.NewFromInt(1)}, 1, false)
	require.NoError(t, client.SaveCart(ctx, "s", crt, time.Minute))

	crt.Remove(1)
	require.NoError(t, client.SaveCart(ctx, "s", crt, time.Minute))

	n, err := client.GetClient().Exists(ctx, "cart:s").Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestClaimIdempotencyKey(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	first, err := client.ClaimIdempotencyKey(ctx, "stripe:evt_1", time.Minute)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := client.ClaimIdempotencyKey(ctx, "stripe:evt_1", time.Minute)
	require.NoError(t, err)
	assert.False(t, second)

	require.NoError(t, client.ReleaseIdempotencyKey(ctx, "stripe:evt_1"))
	again, err := client.ClaimIdempotencyKey(ctx, "stripe:evt_1", time.Minute)
	require.NoError(t, err)
	assert.True(t, again)
}

func TestLockReleasedOnlyByOwner(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	token, ok, err := client.AcquireLock(ctx, "checkout:s1", 50*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = client.AcquireLock(ctx, "checkout:s1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// first owner overruns its ttl and someone else takes the lock
	time.Sleep(100 * time.Millisecond)
	next, ok, err := client.AcquireLock(ctx, "checkout:s1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	assert.ErrorIs(t, client.ReleaseLock(ctx, "checkout:s1", token), ErrLockNotHeld)
	held, err := client.GetClient().Get(ctx, "lock:checkout:s1").Result()
	require.NoError(t, err)
	assert.Equal(t, next, held)

	require.NoError(t, client.ReleaseLock(ctx, "checkout:s1", next))
	n, err := client.GetClient().Exists(ctx, "lock:checkout:s1").Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}
