package test

import (
	"context"
	"sync"

	"github.com/tecelana/fichas/internal/usecase"
)

// ShopFacadeStub provides controllable behaviour for HTTP handler tests.
type ShopFacadeStub struct {
	CheckoutFn func(context.Context, string, []int64) (*usecase.CheckoutResult, error)
	RedeemFn   func(context.Context, string) (*usecase.FileGrant, error)
	ResolveFn  func(context.Context, string) (*usecase.OrderAccessView, error)
	HealthFn   func(context.Context) error

	mu            sync.Mutex
	Notifications []string
}

// Checkout delegates to the provided function or returns a default result.
func (s *ShopFacadeStub) Checkout(ctx context.Context, buyerEmail string, itemIDs []int64) (*usecase.CheckoutResult, error) {
	if s.CheckoutFn != nil {
		return s.CheckoutFn(ctx, buyerEmail, itemIDs)
	}
	return &usecase.CheckoutResult{OrderID: "ord-stub", RedirectURL: "https://pay.example.com/pref-stub"}, nil
}

// ProcessPaymentNotification records each received payment id.
func (s *ShopFacadeStub) ProcessPaymentNotification(ctx context.Context, paymentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Notifications = append(s.Notifications, paymentID)
}

// NotifiedWith returns the recorded payment ids.
func (s *ShopFacadeStub) NotifiedWith() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.Notifications...)
}

// RedeemDownload delegates to the provided function or returns a default grant.
func (s *ShopFacadeStub) RedeemDownload(ctx context.Context, token string) (*usecase.FileGrant, error) {
	if s.RedeemFn != nil {
		return s.RedeemFn(ctx, token)
	}
	return &usecase.FileGrant{Title: "sheet", URL: "https://storage.example.com/signed/sheet.pdf", UsesLeft: 4}, nil
}

// ResolveOrderAccess delegates to the provided function or returns an empty view.
func (s *ShopFacadeStub) ResolveOrderAccess(ctx context.Context, token string) (*usecase.OrderAccessView, error) {
	if s.ResolveFn != nil {
		return s.ResolveFn(ctx, token)
	}
	return &usecase.OrderAccessView{OrderID: "ord-stub"}, nil
}

// HealthCheck delegates to the provided function or reports healthy.
func (s *ShopFacadeStub) HealthCheck(ctx context.Context) error {
	if s.HealthFn != nil {
		return s.HealthFn(ctx)
	}
	return nil
}
