package repository

import (
	"context"

	"github.com/tecelana/fichas/internal/domain/model"
)

// CatalogRepository provides read access to catalog items.
type CatalogRepository interface {
	GetByID(ctx context.Context, id int64) (*model.CatalogItem, error)
	ListByIDs(ctx context.Context, ids []int64) ([]model.CatalogItem, error)
}
