package usecase

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/tecelana/fichas/internal/adapter/mailer"
	"github.com/tecelana/fichas/internal/adapter/mercadopago"
	"github.com/tecelana/fichas/internal/adapter/objectstore"
	"github.com/tecelana/fichas/internal/config"
	"github.com/tecelana/fichas/internal/domain/repository"
)

// Module provides core business use cases to the fx container.
var Module = fx.Provide(
	NewOrderUseCase,
	newCheckout,
	newFulfillment,
	newPayment,
	newRetrieval,
)

func fulfillmentOptions(cfg *config.Config) FulfillmentOptions {
	return FulfillmentOptions{
		OrderTokenTTL:    cfg.OrderTokenTTL,
		DownloadTokenTTL: cfg.DownloadTokenTTL,
		DownloadUseLimit: cfg.DownloadUseLimit,
	}
}

type checkoutParams struct {
	fx.In

	Orders   *OrderUseCase
	Payments mercadopago.Client
	Config   *config.Config
}

func newCheckout(p checkoutParams) *CheckoutUseCase {
	return NewCheckoutUseCase(p.Orders, p.Payments, p.Config.PublicBaseURL)
}

type fulfillmentParams struct {
	fx.In

	Tokens  repository.TokenRepository
	Catalog repository.CatalogRepository
	Mail    mailer.Mailer
	Config  *config.Config
	Logger  *slog.Logger
}

func newFulfillment(p fulfillmentParams) *FulfillmentUseCase {
	return NewFulfillmentUseCase(p.Tokens, p.Catalog, p.Mail, fulfillmentOptions(p.Config), p.Config.PublicBaseURL, p.Logger)
}

type paymentParams struct {
	fx.In

	Orders      *OrderUseCase
	Fulfillment *FulfillmentUseCase
	Payments    mercadopago.Client
	Logger      *slog.Logger
}

func newPayment(p paymentParams) *PaymentUseCase {
	return NewPaymentUseCase(p.Orders, p.Fulfillment, p.Payments, p.Logger)
}

type retrievalParams struct {
	fx.In

	Tokens  repository.TokenRepository
	Catalog repository.CatalogRepository
	Signer  objectstore.Signer
	Config  *config.Config
	Logger  *slog.Logger
}

func newRetrieval(p retrievalParams) *RetrievalUseCase {
	return NewRetrievalUseCase(p.Tokens, p.Catalog, p.Signer, fulfillmentOptions(p.Config), p.Config.SignedURLTTL, p.Config.PublicBaseURL, p.Logger)
}
