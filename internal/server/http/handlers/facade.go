package handlers

import (
	"context"

	"github.com/tecelana/fichas/internal/usecase"
)

// CheckoutFacade starts purchases.
type CheckoutFacade interface {
	Checkout(ctx context.Context, buyerEmail string, itemIDs []int64) (*usecase.CheckoutResult, error)
}

// WebhookFacade consumes provider payment notifications.
type WebhookFacade interface {
	ProcessPaymentNotification(ctx context.Context, paymentID string)
}

// RetrievalFacade redeems capability tokens.
type RetrievalFacade interface {
	RedeemDownload(ctx context.Context, token string) (*usecase.FileGrant, error)
	ResolveOrderAccess(ctx context.Context, token string) (*usecase.OrderAccessView, error)
}

// HealthFacade reports service health.
type HealthFacade interface {
	HealthCheck(ctx context.Context) error
}

// ShopFacade aggregates the full set of operations used across handlers.
type ShopFacade interface {
	CheckoutFacade
	WebhookFacade
	RetrievalFacade
	HealthFacade
}
