package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	domainErrors "github.com/tecelana/fichas/internal/domain/errors"
	"github.com/tecelana/fichas/internal/domain/model"
	"github.com/tecelana/fichas/internal/domain/repository"
)

// OrderUseCase encapsulates the order ledger: creation with snapshotted line
// items and the forward-only status state machine.
type OrderUseCase struct {
	orders  repository.OrderRepository
	catalog repository.CatalogRepository
}

// NewOrderUseCase constructs OrderUseCase.
func NewOrderUseCase(orders repository.OrderRepository, catalog repository.CatalogRepository) *OrderUseCase {
	return &OrderUseCase{orders: orders, catalog: catalog}
}

// Create registers a pending order for the given catalog items. Prices and
// titles are snapshotted; the total is their integer sum and is never
// recomputed from the catalog afterwards.
func (u *OrderUseCase) Create(ctx context.Context, buyerEmail string, itemIDs []int64) (*model.Order, error) {
	if !ValidateEmail(buyerEmail) {
		return nil, fmt.Errorf("%w: invalid purchaser address", domainErrors.ErrValidation)
	}
	if len(itemIDs) == 0 {
		return nil, fmt.Errorf("%w: order needs at least one item", domainErrors.ErrValidation)
	}

	items, err := u.catalog.ListByIDs(ctx, itemIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]model.CatalogItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	lineItems := make([]model.LineItem, 0, len(itemIDs))
	for _, id := range itemIDs {
		item, ok := byID[id]
		if !ok || !item.Active {
			return nil, fmt.Errorf("%w: catalog item %d", domainErrors.ErrNotFound, id)
		}
		lineItems = append(lineItems, model.LineItem{
			CatalogItemID: item.ID,
			Title:         item.Title,
			UnitPrice:     item.Price,
		})
	}

	order := &model.Order{
		ID:         uuid.NewString(),
		BuyerEmail: buyerEmail,
		Status:     model.OrderStatusPending,
		Total:      model.SumPrices(lineItems),
		Items:      lineItems,
	}
	return u.orders.Create(ctx, order)
}

// Get returns the order or ErrNotFound.
func (u *OrderUseCase) Get(ctx context.Context, id string) (*model.Order, error) {
	return u.orders.GetByID(ctx, id)
}

// TransitionToPaid applies the pending→paid transition. The bool reports
// whether this call performed the transition; re-applying paid is a no-op.
func (u *OrderUseCase) TransitionToPaid(ctx context.Context, id, paymentRef string) (*model.Order, bool, error) {
	return u.orders.TransitionToPaid(ctx, id, paymentRef)
}

// RecordPreference stores the provider preference id on the order.
func (u *OrderUseCase) RecordPreference(ctx context.Context, id, preferenceRef string) error {
	return u.orders.RecordPreference(ctx, id, preferenceRef)
}
