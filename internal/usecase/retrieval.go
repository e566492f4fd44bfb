package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tecelana/fichas/internal/adapter/objectstore"
	domainErrors "github.com/tecelana/fichas/internal/domain/errors"
	"github.com/tecelana/fichas/internal/domain/model"
	"github.com/tecelana/fichas/internal/domain/repository"
)

// FileGrant is the outcome of a successful download redemption.
type FileGrant struct {
	Title     string
	URL       string
	UsesLeft  int
	Unlimited bool
}

// OrderAccessItem is one purchased sheet on the order page.
type OrderAccessItem struct {
	Title       string
	UnitPrice   int64
	DownloadURL string
}

// OrderAccessView is what an order-access token resolves to.
type OrderAccessView struct {
	OrderID string
	Total   int64
	Items   []OrderAccessItem
}

// RetrievalUseCase redeems capability tokens into time-boxed file access.
type RetrievalUseCase struct {
	tokens  repository.TokenRepository
	catalog repository.CatalogRepository
	signer  objectstore.Signer
	opts    FulfillmentOptions
	ttl     time.Duration
	baseURL string
	logger  *slog.Logger
}

// NewRetrievalUseCase constructs RetrievalUseCase. ttl bounds the signed URLs.
func NewRetrievalUseCase(tokens repository.TokenRepository, catalog repository.CatalogRepository, signer objectstore.Signer, opts FulfillmentOptions, ttl time.Duration, baseURL string, logger *slog.Logger) *RetrievalUseCase {
	return &RetrievalUseCase{tokens: tokens, catalog: catalog, signer: signer, opts: opts, ttl: ttl, baseURL: baseURL, logger: logger}
}

// RedeemDownload validates a download token, consumes one use and exchanges it
// for a short-lived signed URL. The use counter increment is the point of
// truth for the ceiling check and happens before the URL is returned.
func (u *RetrievalUseCase) RedeemDownload(ctx context.Context, tokenString string) (*FileGrant, error) {
	t, _, err := u.tokens.Redeem(ctx, tokenString)
	if err != nil {
		return nil, err
	}
	if t.Scope != model.ScopeDownload || t.CatalogItemID == nil {
		return nil, domainErrors.ErrNotFound
	}

	item, err := u.catalog.GetByID(ctx, *t.CatalogItemID)
	if err != nil {
		return nil, err
	}
	if !item.Downloadable() {
		return nil, fmt.Errorf("%w: file unavailable", domainErrors.ErrNotFound)
	}

	signed, err := u.signer.SignedURL(ctx, item.FileKey, u.ttl)
	if err != nil {
		u.logger.Error("presign failed",
			slog.String("token", t.Token),
			slog.String("key", item.FileKey),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: sign url: %v", domainErrors.ErrUpstream, err)
	}

	grant := &FileGrant{Title: item.Title, URL: signed, Unlimited: t.UseCeiling == model.UnlimitedUses}
	if !grant.Unlimited {
		grant.UsesLeft = t.UseCeiling - t.UseCount
	}
	return grant, nil
}

// ResolveOrderAccess validates an order-access token and builds the purchase
// page view. Line items missing a currently valid download token get one
// re-issued, so the long-lived page heals expired download links.
func (u *RetrievalUseCase) ResolveOrderAccess(ctx context.Context, tokenString string) (*OrderAccessView, error) {
	t, order, err := u.tokens.Resolve(ctx, tokenString)
	if err != nil {
		return nil, err
	}
	if t.Scope != model.ScopeOrder {
		return nil, domainErrors.ErrNotFound
	}

	view := &OrderAccessView{OrderID: order.ID, Total: order.Total}
	for _, item := range order.Items {
		accessItem := OrderAccessItem{Title: item.Title, UnitPrice: item.UnitPrice}

		catalogItem, err := u.catalog.GetByID(ctx, item.CatalogItemID)
		if err == nil && catalogItem.Downloadable() {
			itemID := item.CatalogItemID
			downloadToken, err := u.tokens.IssueOrReuse(ctx, order.ID, model.ScopeDownload, &itemID, u.opts.DownloadTokenTTL, u.opts.DownloadUseLimit)
			if err != nil {
				return nil, err
			}
			accessItem.DownloadURL = u.baseURL + "/download/" + downloadToken.Token
		}

		view.Items = append(view.Items, accessItem)
	}
	return view, nil
}
