package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yashrajoria/checkout-service/models"
)

// MemoryOrderRepository keeps orders in process memory. It backs
// STORE_DRIVER=memory for local runs.
type MemoryOrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*models.Order
}

func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{orders: make(map[string]*models.Order)}
}

func (r *MemoryOrderRepository) Create(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.GatewayOrderID]; exists {
		return ErrDuplicateOrder
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	stored := *order
	r.orders[order.GatewayOrderID] = &stored
	return nil
}

func (r *MemoryOrderRepository) FindByGatewayOrderID(_ context.Context, gatewayOrderID string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[gatewayOrderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	found := *o
	return &found, nil
}

func (r *MemoryOrderRepository) UpdatePaymentStatus(_ context.Context, gatewayOrderID string, update models.PaymentUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[gatewayOrderID]
	if !ok {
		return ErrOrderNotFound
	}
	if o.Status.IsTerminal() {
		return ErrOrderFinalized
	}
	applyPaymentUpdate(o, update)
	return nil
}

func (r *MemoryOrderRepository) FindByUserID(_ context.Context, userID uuid.UUID, page, limit int) ([]models.Order, int64, error) {
	page, limit = normalizePage(page, limit)

	r.mu.RLock()
	var matched []models.Order
	for _, o := range r.orders {
		if o.UserID != nil && *o.UserID == userID {
			matched = append(matched, *o)
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := (page - 1) * limit
	if start >= len(matched) {
		return []models.Order{}, total, nil
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

// MemoryUserRepository keeps users in process memory.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*models.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[uuid.UUID]*models.User)}
}

func (r *MemoryUserRepository) FindByGoogleID(_ context.Context, googleID string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.GoogleID == googleID {
			found := *u
			return &found, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *MemoryUserRepository) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	found := *u
	return &found, nil
}

func (r *MemoryUserRepository) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.GoogleID == user.GoogleID || strings.EqualFold(u.Email, user.Email) {
			return ErrDuplicateUser
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *MemoryUserRepository) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.LastLogin = at.UTC()
	return nil
}
