package subscriptionrepo

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/yanqian/meteo-burkina/internal/domain/payment"
)

// MemoryRepository keeps subscriptions in process memory for tests/dev.
type MemoryRepository struct {
	mu         sync.RWMutex
	subs       map[string]payment.Subscription
	tokenIndex map[string]string
}

// NewMemoryRepository constructs an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		subs:       make(map[string]payment.Subscription),
		tokenIndex: make(map[string]string),
	}
}

// Create stores a new subscription keyed by its ID.
func (r *MemoryRepository) Create(_ context.Context, sub payment.Subscription) (payment.Subscription, error) {
	if sub.ID == "" {
		return payment.Subscription{}, errors.New("subscription id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.subs[sub.ID]; exists {
		return payment.Subscription{}, errors.New("subscription already exists")
	}
	r.subs[sub.ID] = sub
	if sub.InvoiceToken != "" {
		r.tokenIndex[sub.InvoiceToken] = sub.ID
	}
	return sub, nil
}

// GetByInvoiceToken finds the subscription opened for a checkout invoice.
func (r *MemoryRepository) GetByInvoiceToken(_ context.Context, token string) (payment.Subscription, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.tokenIndex[token]
	if !ok {
		return payment.Subscription{}, false, nil
	}
	sub, ok := r.subs[id]
	return sub, ok, nil
}

// Transition replaces the stored subscription when its status is still from.
func (r *MemoryRepository) Transition(_ context.Context, sub payment.Subscription, from payment.Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.subs[sub.ID]
	if !ok {
		return false, payment.ErrSubscriptionNotFound
	}
	if stored.Status != from {
		return false, nil
	}
	r.subs[sub.ID] = sub
	if sub.InvoiceToken != "" {
		r.tokenIndex[sub.InvoiceToken] = sub.ID
	}
	return true, nil
}

// ListByUser returns the user's subscriptions, newest first.
func (r *MemoryRepository) ListByUser(_ context.Context, userID int64) ([]payment.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]payment.Subscription, 0)
	for _, sub := range r.subs {
		if sub.UserID == userID {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

var _ payment.Repository = (*MemoryRepository)(nil)
