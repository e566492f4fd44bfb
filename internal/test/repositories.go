package test

import (
	"context"
	"sync"
	"time"

	domainErrors "github.com/tecelana/fichas/internal/domain/errors"
	"github.com/tecelana/fichas/internal/domain/model"
)

// OrderRepositoryStub provides controllable order persistence for tests.
type OrderRepositoryStub struct {
	CreateFn           func(context.Context, *model.Order) (*model.Order, error)
	GetByIDFn          func(context.Context, string) (*model.Order, error)
	TransitionFn       func(context.Context, string, string) (*model.Order, bool, error)
	RecordPreferenceFn func(context.Context, string, string) error
}

func (s OrderRepositoryStub) Create(ctx context.Context, order *model.Order) (*model.Order, error) {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, order)
	}
	return order, nil
}

func (s OrderRepositoryStub) GetByID(ctx context.Context, id string) (*model.Order, error) {
	if s.GetByIDFn != nil {
		return s.GetByIDFn(ctx, id)
	}
	return nil, domainErrors.ErrNotFound
}

func (s OrderRepositoryStub) TransitionToPaid(ctx context.Context, id, paymentRef string) (*model.Order, bool, error) {
	if s.TransitionFn != nil {
		return s.TransitionFn(ctx, id, paymentRef)
	}
	return nil, false, domainErrors.ErrNotFound
}

func (s OrderRepositoryStub) RecordPreference(ctx context.Context, id, preferenceRef string) error {
	if s.RecordPreferenceFn != nil {
		return s.RecordPreferenceFn(ctx, id, preferenceRef)
	}
	return nil
}

// TokenRepositoryStub provides controllable token persistence for tests.
type TokenRepositoryStub struct {
	IssueFn   func(context.Context, string, model.TokenScope, *int64, time.Duration, int) (*model.CapabilityToken, error)
	RedeemFn  func(context.Context, string) (*model.CapabilityToken, *model.Order, error)
	ResolveFn func(context.Context, string) (*model.CapabilityToken, *model.Order, error)
}

func (s TokenRepositoryStub) IssueOrReuse(ctx context.Context, orderID string, scope model.TokenScope, itemID *int64, ttl time.Duration, ceiling int) (*model.CapabilityToken, error) {
	if s.IssueFn != nil {
		return s.IssueFn(ctx, orderID, scope, itemID, ttl, ceiling)
	}
	return &model.CapabilityToken{Token: "STUBTOKEN", OrderID: orderID, Scope: scope, CatalogItemID: itemID, ExpiresAt: time.Now().Add(ttl), UseCeiling: ceiling}, nil
}

func (s TokenRepositoryStub) Redeem(ctx context.Context, token string) (*model.CapabilityToken, *model.Order, error) {
	if s.RedeemFn != nil {
		return s.RedeemFn(ctx, token)
	}
	return nil, nil, domainErrors.ErrNotFound
}

func (s TokenRepositoryStub) Resolve(ctx context.Context, token string) (*model.CapabilityToken, *model.Order, error) {
	if s.ResolveFn != nil {
		return s.ResolveFn(ctx, token)
	}
	return nil, nil, domainErrors.ErrNotFound
}

// CatalogRepositoryStub serves catalog items from an in-memory map.
type CatalogRepositoryStub struct {
	Items map[int64]model.CatalogItem
	Err   error
}

func (s CatalogRepositoryStub) GetByID(ctx context.Context, id int64) (*model.CatalogItem, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	item, ok := s.Items[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return &item, nil
}

func (s CatalogRepositoryStub) ListByIDs(ctx context.Context, ids []int64) ([]model.CatalogItem, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	var result []model.CatalogItem
	for _, id := range ids {
		if item, ok := s.Items[id]; ok {
			result = append(result, item)
		}
	}
	return result, nil
}

// InMemoryTokenRepository is a mutex-guarded fake mirroring the atomic
// semantics of the real store. Concurrency property tests run against it.
type InMemoryTokenRepository struct {
	mu      sync.Mutex
	tokens  map[string]*model.CapabilityToken
	orders  map[string]*model.Order
	catalog map[int64]model.CatalogItem
	seq     int
}

// NewInMemoryTokenRepository constructs the fake with the given orders known.
func NewInMemoryTokenRepository(orders ...*model.Order) *InMemoryTokenRepository {
	r := &InMemoryTokenRepository{
		tokens: make(map[string]*model.CapabilityToken),
		orders: make(map[string]*model.Order),
	}
	for _, o := range orders {
		r.orders[o.ID] = o
	}
	return r
}

// SeedCatalog makes the given items known to Redeem's downloadability check.
// Without seeding the check is skipped, matching tokens that carry no item.
func (r *InMemoryTokenRepository) SeedCatalog(items ...model.CatalogItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.catalog == nil {
		r.catalog = make(map[int64]model.CatalogItem)
	}
	for _, item := range items {
		r.catalog[item.ID] = item
	}
}

// Add seeds a token directly.
func (r *InMemoryTokenRepository) Add(t *model.CapabilityToken) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[t.Token] = t
}

// Count reports how many tokens exist for the order and scope.
func (r *InMemoryTokenRepository) Count(orderID string, scope model.TokenScope) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.tokens {
		if t.OrderID == orderID && t.Scope == scope {
			n++
		}
	}
	return n
}

func (r *InMemoryTokenRepository) IssueOrReuse(ctx context.Context, orderID string, scope model.TokenScope, itemID *int64, ttl time.Duration, ceiling int) (*model.CapabilityToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[orderID]; !ok {
		return nil, domainErrors.ErrNotFound
	}

	now := time.Now()
	for _, t := range r.tokens {
		if t.OrderID != orderID || t.Scope != scope || !sameItem(t.CatalogItemID, itemID) {
			continue
		}
		if t.Valid(now) {
			copied := *t
			return &copied, nil
		}
	}

	r.seq++
	t := &model.CapabilityToken{
		Token:         RandomASCIIString(43, 43),
		OrderID:       orderID,
		Scope:         scope,
		CatalogItemID: itemID,
		ExpiresAt:     now.Add(ttl),
		UseCeiling:    ceiling,
		CreatedAt:     now,
	}
	r.tokens[t.Token] = t
	copied := *t
	return &copied, nil
}

func (r *InMemoryTokenRepository) Redeem(ctx context.Context, token string) (*model.CapabilityToken, *model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tokens[token]
	if !ok {
		return nil, nil, domainErrors.ErrNotFound
	}
	now := time.Now()
	if !now.Before(t.ExpiresAt) {
		return nil, nil, domainErrors.ErrExpired
	}
	if t.UseCeiling != model.UnlimitedUses && t.UseCount >= t.UseCeiling {
		return nil, nil, domainErrors.ErrExhausted
	}
	order, ok := r.orders[t.OrderID]
	if !ok {
		return nil, nil, domainErrors.ErrNotFound
	}
	if order.Status != model.OrderStatusPaid {
		return nil, nil, domainErrors.ErrForbidden
	}
	if t.Scope == model.ScopeDownload && t.CatalogItemID != nil && r.catalog != nil {
		item, ok := r.catalog[*t.CatalogItemID]
		if !ok || !item.Downloadable() {
			return nil, nil, domainErrors.ErrNotFound
		}
	}

	t.UseCount++
	copied := *t
	orderCopy := *order
	return &copied, &orderCopy, nil
}

func (r *InMemoryTokenRepository) Resolve(ctx context.Context, token string) (*model.CapabilityToken, *model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tokens[token]
	if !ok {
		return nil, nil, domainErrors.ErrNotFound
	}
	now := time.Now()
	if !now.Before(t.ExpiresAt) {
		return nil, nil, domainErrors.ErrExpired
	}
	order, ok := r.orders[t.OrderID]
	if !ok {
		return nil, nil, domainErrors.ErrNotFound
	}
	if order.Status != model.OrderStatusPaid {
		return nil, nil, domainErrors.ErrForbidden
	}

	copied := *t
	orderCopy := *order
	return &copied, &orderCopy, nil
}

func sameItem(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
