package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tecelana/fichas/internal/adapter/mailer"
	"github.com/tecelana/fichas/internal/domain/model"
	"github.com/tecelana/fichas/internal/domain/repository"
)

type namedLink struct {
	title string
	url   string
}

// FulfillmentOptions bound token lifetimes and download use counts.
type FulfillmentOptions struct {
	OrderTokenTTL    time.Duration
	DownloadTokenTTL time.Duration
	DownloadUseLimit int
}

// FulfillmentUseCase turns a freshly paid order into capability tokens and a
// notification mail. Minting is issue-or-reuse, so re-running delivery for the
// same order never duplicates tokens.
type FulfillmentUseCase struct {
	tokens  repository.TokenRepository
	catalog repository.CatalogRepository
	mail    mailer.Mailer
	opts    FulfillmentOptions
	baseURL string
	logger  *slog.Logger
}

// NewFulfillmentUseCase constructs FulfillmentUseCase.
func NewFulfillmentUseCase(tokens repository.TokenRepository, catalog repository.CatalogRepository, mail mailer.Mailer, opts FulfillmentOptions, baseURL string, logger *slog.Logger) *FulfillmentUseCase {
	return &FulfillmentUseCase{tokens: tokens, catalog: catalog, mail: mail, opts: opts, baseURL: baseURL, logger: logger}
}

// Deliver mints the order-access capability and one download capability per
// deliverable line item, then mails the links. A mail failure is logged and
// swallowed: the paid transition is already durable and the order page stays
// reachable through support.
func (u *FulfillmentUseCase) Deliver(ctx context.Context, order *model.Order) error {
	orderToken, err := u.tokens.IssueOrReuse(ctx, order.ID, model.ScopeOrder, nil, u.opts.OrderTokenTTL, model.UnlimitedUses)
	if err != nil {
		return fmt.Errorf("issue order token: %w", err)
	}

	var downloads []namedLink
	for _, item := range order.Items {
		catalogItem, err := u.catalog.GetByID(ctx, item.CatalogItemID)
		if err != nil {
			u.logger.Warn("skip line item without catalog entry",
				slog.String("order", order.ID),
				slog.Int64("catalog_item", item.CatalogItemID),
			)
			continue
		}
		if !catalogItem.Downloadable() {
			continue
		}

		itemID := item.CatalogItemID
		downloadToken, err := u.tokens.IssueOrReuse(ctx, order.ID, model.ScopeDownload, &itemID, u.opts.DownloadTokenTTL, u.opts.DownloadUseLimit)
		if err != nil {
			return fmt.Errorf("issue download token for item %d: %w", itemID, err)
		}
		downloads = append(downloads, namedLink{
			title: item.Title,
			url:   u.baseURL + "/download/" + downloadToken.Token,
		})
	}

	accessURL := u.baseURL + "/order-access/" + orderToken.Token
	msg := mailer.Message{
		To:       order.BuyerEmail,
		Subject:  "Your fabric sheets are ready",
		TextBody: composeDeliveryText(accessURL, downloads),
	}

	if err := u.mail.Send(ctx, msg); err != nil {
		u.logger.Warn("delivery mail failed",
			slog.String("order", order.ID),
			slog.String("recipient", order.BuyerEmail),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

func composeDeliveryText(accessURL string, downloads []namedLink) string {
	var b strings.Builder
	b.WriteString("Thank you for your purchase!\n\n")
	b.WriteString("Your order page:\n")
	b.WriteString(accessURL)
	b.WriteString("\n")
	if len(downloads) > 0 {
		b.WriteString("\nDirect downloads:\n")
		for _, d := range downloads {
			b.WriteString("- ")
			b.WriteString(d.title)
			b.WriteString(": ")
			b.WriteString(d.url)
			b.WriteString("\n")
		}
	}
	return b.String()
}
