package repository

import (
	"context"

	"github.com/tecelana/fichas/internal/domain/model"
)

// OrderRepository describes persistence operations with orders.
type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) (*model.Order, error)
	GetByID(ctx context.Context, id string) (*model.Order, error)
	// TransitionToPaid atomically moves a pending order to paid. The returned
	// bool is true only for the call that performed the transition; an
	// already-paid order is returned unchanged with false.
	TransitionToPaid(ctx context.Context, id, paymentRef string) (*model.Order, bool, error)
	RecordPreference(ctx context.Context, id, preferenceRef string) error
}
