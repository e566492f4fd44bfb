package di

import (
	"go.uber.org/fx"

	"github.com/tecelana/fichas/internal/adapter/mailer"
	"github.com/tecelana/fichas/internal/adapter/mercadopago"
	"github.com/tecelana/fichas/internal/adapter/objectstore"
	"github.com/tecelana/fichas/internal/app"
	"github.com/tecelana/fichas/internal/config"
	"github.com/tecelana/fichas/internal/logger"
	"github.com/tecelana/fichas/internal/pkg/token"
	"github.com/tecelana/fichas/internal/server/http/handlers"
	"github.com/tecelana/fichas/internal/server/http/router"
	"github.com/tecelana/fichas/internal/storage/postgres"
	"github.com/tecelana/fichas/internal/usecase"
)

func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		token.Module,
		postgres.Module,
		mercadopago.Module,
		objectstore.Module,
		mailer.Module,
		usecase.Module,
		fx.Provide(
			func(s *postgres.Storage) app.Pinger { return s },
			func(f *app.ShopFacade) handlers.ShopFacade { return f },
		),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
