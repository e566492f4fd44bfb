package postgres

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/tecelana/fichas/internal/config"
	"github.com/tecelana/fichas/internal/domain/repository"
	"github.com/tecelana/fichas/internal/pkg/token"
)

// Module wires PostgreSQL storage and repository adapters.
var Module = fx.Options(
	fx.Provide(newStorage),
	fx.Provide(
		func(s *Storage) repository.OrderRepository { return s.Orders() },
		func(s *Storage) repository.TokenRepository { return s.Tokens() },
		func(s *Storage) repository.CatalogRepository { return s.Catalog() },
	),
	fx.Invoke(registerLifecycle),
)

type storageParams struct {
	fx.In

	Ctx       context.Context
	Config    *config.Config
	Logger    *slog.Logger
	Generator token.Generator
}

func newStorage(p storageParams) (*Storage, error) {
	return New(p.Ctx, p.Config.DatabaseURI, p.Logger, p.Generator)
}

func registerLifecycle(lc fx.Lifecycle, storage *Storage) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			storage.Close()
			return nil
		},
	})
}
