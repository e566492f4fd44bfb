package mercadopago

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/tecelana/fichas/internal/config"
)

// Module exposes the payment provider client to the fx graph.
var Module = fx.Provide(newClient)

type clientParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newClient(p clientParams) (Client, error) {
	return NewHTTPClient(p.Config.PaymentAPIAddress, p.Config.PaymentAccessToken, p.Logger)
}
