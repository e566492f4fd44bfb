package usecase

import (
	"context"
	"fmt"

	"github.com/tecelana/fichas/internal/adapter/mercadopago"
	domainErrors "github.com/tecelana/fichas/internal/domain/errors"
)

// CheckoutResult carries what the caller needs to continue the purchase.
type CheckoutResult struct {
	OrderID     string
	RedirectURL string
}

// CheckoutUseCase creates orders and registers them with the payment provider.
type CheckoutUseCase struct {
	orders   *OrderUseCase
	payments mercadopago.Client
	baseURL  string
}

// NewCheckoutUseCase constructs CheckoutUseCase. baseURL is the explicit
// externally visible base of this service.
func NewCheckoutUseCase(orders *OrderUseCase, payments mercadopago.Client, baseURL string) *CheckoutUseCase {
	return &CheckoutUseCase{orders: orders, payments: payments, baseURL: baseURL}
}

// Checkout creates a pending order and a provider preference for it. The order
// id travels as the preference's external reference; the webhook depends on it
// to recover the order later.
func (u *CheckoutUseCase) Checkout(ctx context.Context, buyerEmail string, itemIDs []int64) (*CheckoutResult, error) {
	order, err := u.orders.Create(ctx, buyerEmail, itemIDs)
	if err != nil {
		return nil, err
	}

	req := mercadopago.PreferenceRequest{
		ExternalReference: order.ID,
		PayerEmail:        order.BuyerEmail,
		NotificationURL:   u.baseURL + "/payments/notifications",
		SuccessURL:        u.baseURL + "/orders/" + order.ID + "/success",
		FailureURL:        u.baseURL + "/orders/" + order.ID + "/failure",
	}
	for _, item := range order.Items {
		req.Items = append(req.Items, mercadopago.PreferenceItem{
			Title:     item.Title,
			Quantity:  1,
			UnitPrice: item.UnitPrice,
		})
	}

	pref, err := u.payments.CreatePreference(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: create preference: %v", domainErrors.ErrUpstream, err)
	}

	if err := u.orders.RecordPreference(ctx, order.ID, pref.ID); err != nil {
		return nil, err
	}

	return &CheckoutResult{OrderID: order.ID, RedirectURL: pref.RedirectURL}, nil
}
