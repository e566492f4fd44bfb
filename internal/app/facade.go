package app

import (
	"context"

	"github.com/tecelana/fichas/internal/usecase"
)

// Pinger reports durable store health.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// ShopFacade aggregates the fulfillment subsystem behind one surface for the
// HTTP layer.
type ShopFacade struct {
	checkout  *usecase.CheckoutUseCase
	payments  *usecase.PaymentUseCase
	retrieval *usecase.RetrievalUseCase
	pinger    Pinger
}

// NewShopFacade constructs ShopFacade.
func NewShopFacade(checkout *usecase.CheckoutUseCase, payments *usecase.PaymentUseCase, retrieval *usecase.RetrievalUseCase, pinger Pinger) *ShopFacade {
	return &ShopFacade{checkout: checkout, payments: payments, retrieval: retrieval, pinger: pinger}
}

// Checkout creates a pending order and its provider preference.
func (f *ShopFacade) Checkout(ctx context.Context, buyerEmail string, itemIDs []int64) (*usecase.CheckoutResult, error) {
	return f.checkout.Checkout(ctx, buyerEmail, itemIDs)
}

// ProcessPaymentNotification handles one provider callback to completion.
func (f *ShopFacade) ProcessPaymentNotification(ctx context.Context, paymentID string) {
	f.payments.ProcessNotification(ctx, paymentID)
}

// RedeemDownload consumes one use of a download token.
func (f *ShopFacade) RedeemDownload(ctx context.Context, token string) (*usecase.FileGrant, error) {
	return f.retrieval.RedeemDownload(ctx, token)
}

// ResolveOrderAccess builds the order page view for an order-access token.
func (f *ShopFacade) ResolveOrderAccess(ctx context.Context, token string) (*usecase.OrderAccessView, error) {
	return f.retrieval.ResolveOrderAccess(ctx, token)
}

// HealthCheck verifies the durable store is reachable.
func (f *ShopFacade) HealthCheck(ctx context.Context) error {
	return f.pinger.HealthCheck(ctx)
}
