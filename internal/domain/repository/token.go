package repository

import (
	"context"
	"time"

	"github.com/tecelana/fichas/internal/domain/model"
)

// TokenRepository describes persistence operations with capability tokens.
type TokenRepository interface {
	// IssueOrReuse returns a still-valid token for (order, scope, item) or mints
	// a fresh one, as a single atomic decision. itemID is nil for order scope.
	IssueOrReuse(ctx context.Context, orderID string, scope model.TokenScope, itemID *int64, ttl time.Duration, ceiling int) (*model.CapabilityToken, error)
	// Redeem validates the token, atomically increments its use counter and
	// returns it together with the owning order. The increment and the ceiling
	// check form one serializable unit.
	Redeem(ctx context.Context, token string) (*model.CapabilityToken, *model.Order, error)
	// Resolve validates a token without consuming a use.
	Resolve(ctx context.Context, token string) (*model.CapabilityToken, *model.Order, error)
}
