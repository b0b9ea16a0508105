package reservation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smarte-commerce/inventory-engine/internal/domain/region"
	"github.com/smarte-commerce/inventory-engine/internal/domain/reservation"
)

func TestSweeperReleasesExpiredReservations(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, 1, 1, "SKU-A", region.US, 1999, 10)
	ctx := context.Background()

	// 两张立即过期的单,一张未过期的单
	expired1, err := env.service.Reserve(ctx, usContext(), ReserveRequest{
		Items: []ReserveItem{{ProductID: 1, VariantID: 1, Quantity: 2}},
		TTL:   ttlOf(0),
	})
	require.NoError(t, err)
	expired2, err := env.service.Reserve(ctx, usContext(), ReserveRequest{
		Items: []ReserveItem{{ProductID: 1, VariantID: 1, Quantity: 3}},
		TTL:   ttlOf(0),
	})
	require.NoError(t, err)
	alive, err := env.service.Reserve(ctx, usContext(), ReserveRequest{
		Items: []ReserveItem{{ProductID: 1, VariantID: 1, Quantity: 1}},
	})
	require.NoError(t, err)

	rec := env.stock(t, region.US, "SKU-A")
	require.Equal(t, 6, rec.Reserved)

	sweeper := NewSweeper(env.service, time.Minute, 100)
	sweeper.SweepOnce(ctx)

	// 过期的两张被转为EXPIRED并释放,未过期的不受影响
	for _, id := range []string{expired1.ID, expired2.ID} {
		stored, err := env.repos[region.US].Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, reservation.StatusExpired, stored.Status)
	}
	stored, err := env.repos[region.US].Get(ctx, alive.ID)
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusPending, stored.Status)

	rec = env.stock(t, region.US, "SKU-A")
	assert.Equal(t, 9, rec.Available)
	assert.Equal(t, 1, rec.Reserved)

	assert.Contains(t, env.publisher.keys(), "reservation.expired")
}

func TestSweeperBatchLimit(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, 1, 1, "SKU-A", region.US, 1999, 10)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := env.service.Reserve(ctx, usContext(), ReserveRequest{
			Items: []ReserveItem{{ProductID: 1, VariantID: 1, Quantity: 1}},
			TTL:   ttlOf(0),
		})
		require.NoError(t, err)
	}

	// 每轮最多处理2张,一轮后还剩1张PENDING
	sweeper := NewSweeper(env.service, time.Minute, 2)
	sweeper.SweepOnce(ctx)

	remaining, err := env.repos[region.US].ListExpired(ctx, time.Now(), 10)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)

	sweeper.SweepOnce(ctx)
	remaining, err = env.repos[region.US].ListExpired(ctx, time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}
