package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/checkout-service/models"
	"github.com/yashrajoria/checkout-service/repository"
)

func newOrder(gatewayID string, userID *uuid.UUID, createdAt time.Time) *models.Order {
	return &models.Order{
		GatewayOrderID: gatewayID,
		Receipt:        "receipt_1",
		Items:          []models.LineItem{{ProductID: "p1", Name: "Tee", Quantity: 1, Price: 499.99}},
		Total:          499.99,
		Amount:         49999,
		Currency:       "INR",
		Status:         models.OrderStatusCreated,
		UserID:         userID,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
}

func TestMemoryOrderRepository_CreateAndFind(t *testing.T) {
	repo := repository.NewMemoryOrderRepository()
	ctx := context.Background()

	order := newOrder("order_1", nil, time.Now())
	require.NoError(t, repo.Create(ctx, order))
	assert.NotEqual(t, uuid.Nil, order.ID)

	found, err := repo.FindByGatewayOrderID(ctx, "order_1")
	require.NoError(t, err)
	assert.Equal(t, int64(49999), found.Amount)
	assert.Equal(t, models.OrderStatusCreated, found.Status)

	_, err = repo.FindByGatewayOrderID(ctx, "order_missing")
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)

	err = repo.Create(ctx, newOrder("order_1", nil, time.Now()))
	assert.ErrorIs(t, err, repository.ErrDuplicateOrder)
}

func TestMemoryOrderRepository_UpdatePaymentStatus(t *testing.T) {
	repo := repository.NewMemoryOrderRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newOrder("order_1", nil, time.Now())))

	at := time.Now()
	err := repo.UpdatePaymentStatus(ctx, "order_1", models.PaymentUpdate{
		Status: models.OrderStatusPaid, PaymentID: "pay_1", Signature: "sig", At: at,
	})
	require.NoError(t, err)

	found, err := repo.FindByGatewayOrderID(ctx, "order_1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, found.Status)
	assert.Equal(t, "pay_1", found.PaymentID)
	require.NotNil(t, found.PaidAt)
	assert.Nil(t, found.FailedAt)

	// A paid order cannot be flipped to failed.
	err = repo.UpdatePaymentStatus(ctx, "order_1", models.PaymentUpdate{Status: models.OrderStatusFailed, At: at})
	assert.ErrorIs(t, err, repository.ErrOrderFinalized)

	err = repo.UpdatePaymentStatus(ctx, "order_missing", models.PaymentUpdate{Status: models.OrderStatusPaid, At: at})
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)
}

func TestMemoryOrderRepository_ConcurrentVerificationHasOneWinner(t *testing.T) {
	repo := repository.NewMemoryOrderRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newOrder("order_1", nil, time.Now())))

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status := models.OrderStatusPaid
			if i%2 == 0 {
				status = models.OrderStatusFailed
			}
			if err := repo.UpdatePaymentStatus(ctx, "order_1", models.PaymentUpdate{Status: status, At: time.Now()}); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
}

func TestMemoryOrderRepository_FindByUserID(t *testing.T) {
	repo := repository.NewMemoryOrderRepository()
	ctx := context.Background()
	userID := uuid.New()
	otherID := uuid.New()
	base := time.Now()

	require.NoError(t, repo.Create(ctx, newOrder("order_old", &userID, base.Add(-2*time.Hour))))
	require.NoError(t, repo.Create(ctx, newOrder("order_new", &userID, base)))
	require.NoError(t, repo.Create(ctx, newOrder("order_mid", &userID, base.Add(-time.Hour))))
	require.NoError(t, repo.Create(ctx, newOrder("order_other", &otherID, base)))
	require.NoError(t, repo.Create(ctx, newOrder("order_guest", nil, base)))

	orders, total, err := repo.FindByUserID(ctx, userID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, orders, 2)
	assert.Equal(t, "order_new", orders[0].GatewayOrderID)
	assert.Equal(t, "order_mid", orders[1].GatewayOrderID)

	orders, _, err = repo.FindByUserID(ctx, userID, 2, 2)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "order_old", orders[0].GatewayOrderID)

	orders, total, err = repo.FindByUserID(ctx, userID, 5, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Empty(t, orders)
}

func TestMemoryUserRepository(t *testing.T) {
	repo := repository.NewMemoryUserRepository()
	ctx := context.Background()

	user := &models.User{GoogleID: "google-sub-1", Email: "asha@example.com", Name: "Asha", CreatedAt: time.Now(), LastLogin: time.Now()}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotEqual(t, uuid.Nil, user.ID)

	byGoogle, err := repo.FindByGoogleID(ctx, "google-sub-1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byGoogle.ID)

	_, err = repo.FindByGoogleID(ctx, "google-sub-2")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)

	err = repo.Create(ctx, &models.User{GoogleID: "google-sub-2", Email: "ASHA@example.com"})
	assert.ErrorIs(t, err, repository.ErrDuplicateUser)

	later := time.Now().Add(time.Hour)
	require.NoError(t, repo.UpdateLastLogin(ctx, user.ID, later))
	byID, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, later, byID.LastLogin, time.Second)

	assert.ErrorIs(t, repo.UpdateLastLogin(ctx, uuid.New(), later), repository.ErrUserNotFound)
}
