package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tecelana/fichas/internal/adapter/mercadopago"
	domainErrors "github.com/tecelana/fichas/internal/domain/errors"
	"github.com/tecelana/fichas/internal/domain/model"
)

// PaymentUseCase converts an untrusted provider notification into a trusted
// state change. The inbound payload contributes nothing but a payment id; the
// status is always pulled fresh from the provider.
type PaymentUseCase struct {
	orders      *OrderUseCase
	fulfillment *FulfillmentUseCase
	payments    mercadopago.Client
	logger      *slog.Logger
}

// NewPaymentUseCase constructs PaymentUseCase.
func NewPaymentUseCase(orders *OrderUseCase, fulfillment *FulfillmentUseCase, payments mercadopago.Client, logger *slog.Logger) *PaymentUseCase {
	return &PaymentUseCase{orders: orders, fulfillment: fulfillment, payments: payments, logger: logger}
}

// ProcessNotification handles one provider callback. It never returns an
// error: the provider retries transport failures, not application outcomes,
// and every failure mode here is either self-healing on the next duplicate
// delivery or needs manual follow-up anyway. Failures are logged.
func (u *PaymentUseCase) ProcessNotification(ctx context.Context, paymentID string) {
	if paymentID == "" {
		return
	}

	payment, err := u.payments.GetPayment(ctx, paymentID)
	if err != nil {
		u.logger.Warn("authoritative payment fetch failed",
			slog.String("payment", paymentID),
			slog.String("error", err.Error()),
		)
		return
	}

	if payment.ExternalReference == "" {
		u.logger.Warn("payment carries no order reference", slog.String("payment", paymentID))
		return
	}

	if payment.Status != model.PaymentStatusApproved {
		u.logger.Info("payment not approved yet",
			slog.String("payment", paymentID),
			slog.String("order", payment.ExternalReference),
			slog.String("status", string(payment.Status)),
		)
		return
	}

	order, transitioned, err := u.orders.TransitionToPaid(ctx, payment.ExternalReference, payment.ID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			u.logger.Warn("payment references unknown order",
				slog.String("payment", paymentID),
				slog.String("order", payment.ExternalReference),
			)
			return
		}
		u.logger.Error("paid transition failed",
			slog.String("payment", paymentID),
			slog.String("order", payment.ExternalReference),
			slog.String("error", err.Error()),
		)
		return
	}

	if !transitioned {
		// Duplicate delivery, or a cancelled order paid after the fact.
		if order.Status != model.OrderStatusPaid {
			u.logger.Warn("approved payment for non-pending order",
				slog.String("order", order.ID),
				slog.String("status", string(order.Status)),
			)
		}
		return
	}

	u.logger.Info("order paid", slog.String("order", order.ID), slog.String("payment", paymentID))

	if err := u.fulfillment.Deliver(ctx, order); err != nil {
		// The paid transition is durable; the next support contact or a
		// re-issued order page recovers delivery.
		u.logger.Error("fulfillment after paid transition failed",
			slog.String("order", order.ID),
			slog.String("error", err.Error()),
		)
	}
}
