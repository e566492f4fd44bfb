package usecase_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	domainErrors "github.com/tecelana/fichas/internal/domain/errors"
	"github.com/tecelana/fichas/internal/domain/model"
	testhelpers "github.com/tecelana/fichas/internal/test"
	"github.com/tecelana/fichas/internal/usecase"
)

func newRetrievalUC(tokens *testhelpers.InMemoryTokenRepository, signer testhelpers.SignerStub) *usecase.RetrievalUseCase {
	catalog := catalogWithSheets()
	for _, item := range catalog.Items {
		tokens.SeedCatalog(item)
	}
	opts := usecase.FulfillmentOptions{OrderTokenTTL: time.Hour, DownloadTokenTTL: time.Hour, DownloadUseLimit: 5}
	return usecase.NewRetrievalUseCase(tokens, catalog, signer, opts, 10*time.Minute, "https://shop.example.com", discardLogger())
}

func downloadToken(token string, itemID int64, expiresAt time.Time, useCount, ceiling int) *model.CapabilityToken {
	return &model.CapabilityToken{
		Token:         token,
		OrderID:       "ord-1",
		Scope:         model.ScopeDownload,
		CatalogItemID: &itemID,
		ExpiresAt:     expiresAt,
		UseCount:      useCount,
		UseCeiling:    ceiling,
	}
}

func TestRedeemDownloadGrantsSignedURL(t *testing.T) {
	tokens := testhelpers.NewInMemoryTokenRepository(paidOrder())
	tokens.Add(downloadToken("tok-dl", 1, time.Now().Add(time.Hour), 0, 5))

	uc := newRetrievalUC(tokens, testhelpers.SignerStub{})
	grant, err := uc.RedeemDownload(context.Background(), "tok-dl")
	if err != nil {
		t.Fatalf("redeem returned error: %v", err)
	}
	if grant.Title != "linho cru" {
		t.Fatalf("unexpected title %q", grant.Title)
	}
	if grant.URL != "https://storage.example.com/signed/sheets/linho.pdf" {
		t.Fatalf("unexpected url %q", grant.URL)
	}
	if grant.UsesLeft != 4 || grant.Unlimited {
		t.Fatalf("unexpected grant accounting: %+v", grant)
	}
}

func TestRedeemDownloadConsumesUses(t *testing.T) {
	tokens := testhelpers.NewInMemoryTokenRepository(paidOrder())
	tokens.Add(downloadToken("tok-dl", 1, time.Now().Add(time.Hour), 0, 2))

	uc := newRetrievalUC(tokens, testhelpers.SignerStub{})
	for i := 0; i < 2; i++ {
		if _, err := uc.RedeemDownload(context.Background(), "tok-dl"); err != nil {
			t.Fatalf("redemption %d returned error: %v", i+1, err)
		}
	}
	if _, err := uc.RedeemDownload(context.Background(), "tok-dl"); !errors.Is(err, domainErrors.ErrExhausted) {
		t.Fatalf("expected exhausted after ceiling, got %v", err)
	}
}

func TestRedeemDownloadFailures(t *testing.T) {
	order := paidOrder()
	unpaid := &model.Order{ID: "ord-2", Status: model.OrderStatusPending}

	tests := []struct {
		name    string
		seed    func(*testhelpers.InMemoryTokenRepository)
		token   string
		wantErr error
	}{
		{name: "unknown token", token: "ghost", wantErr: domainErrors.ErrNotFound},
		{name: "expired token", seed: func(r *testhelpers.InMemoryTokenRepository) {
			r.Add(downloadToken("tok", 1, time.Now().Add(-time.Minute), 0, 5))
		}, token: "tok", wantErr: domainErrors.ErrExpired},
		{name: "exhausted token", seed: func(r *testhelpers.InMemoryTokenRepository) {
			r.Add(downloadToken("tok", 1, time.Now().Add(time.Hour), 5, 5))
		}, token: "tok", wantErr: domainErrors.ErrExhausted},
		{name: "unpaid order", seed: func(r *testhelpers.InMemoryTokenRepository) {
			tok := downloadToken("tok", 1, time.Now().Add(time.Hour), 0, 5)
			tok.OrderID = "ord-2"
			r.Add(tok)
		}, token: "tok", wantErr: domainErrors.ErrForbidden},
		{name: "order scope token", seed: func(r *testhelpers.InMemoryTokenRepository) {
			r.Add(&model.CapabilityToken{Token: "tok", OrderID: "ord-1", Scope: model.ScopeOrder, ExpiresAt: time.Now().Add(time.Hour)})
		}, token: "tok", wantErr: domainErrors.ErrNotFound},
		{name: "item no longer downloadable", seed: func(r *testhelpers.InMemoryTokenRepository) {
			r.Add(downloadToken("tok", 3, time.Now().Add(time.Hour), 0, 5))
		}, token: "tok", wantErr: domainErrors.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := testhelpers.NewInMemoryTokenRepository(order, unpaid)
			if tt.seed != nil {
				tt.seed(tokens)
			}
			uc := newRetrievalUC(tokens, testhelpers.SignerStub{})
			if _, err := uc.RedeemDownload(context.Background(), tt.token); !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRedeemDownloadDetachedFileKeepsCeiling(t *testing.T) {
	tokens := testhelpers.NewInMemoryTokenRepository(paidOrder())
	tokens.Add(downloadToken("tok-dl", 3, time.Now().Add(time.Hour), 0, 2))

	uc := newRetrievalUC(tokens, testhelpers.SignerStub{})
	// Item 3 has no file attached. Every retry must report not found without
	// burning a use; a drained ceiling would turn the fifth try into 429.
	for i := 0; i < 5; i++ {
		_, err := uc.RedeemDownload(context.Background(), "tok-dl")
		if errors.Is(err, domainErrors.ErrExhausted) {
			t.Fatalf("attempt %d drained the use ceiling", i+1)
		}
		if !errors.Is(err, domainErrors.ErrNotFound) {
			t.Fatalf("attempt %d: expected ErrNotFound, got %v", i+1, err)
		}
	}
}

func TestRedeemDownloadSignerFailure(t *testing.T) {
	tokens := testhelpers.NewInMemoryTokenRepository(paidOrder())
	tokens.Add(downloadToken("tok-dl", 1, time.Now().Add(time.Hour), 0, 5))
	signer := testhelpers.SignerStub{SignFn: func(context.Context, string, time.Duration) (string, error) {
		return "", errors.New("connection refused")
	}}

	uc := newRetrievalUC(tokens, signer)
	if _, err := uc.RedeemDownload(context.Background(), "tok-dl"); !errors.Is(err, domainErrors.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestConcurrentRedemptionsHonorCeiling(t *testing.T) {
	tokens := testhelpers.NewInMemoryTokenRepository(paidOrder())
	tokens.Add(downloadToken("tok-dl", 1, time.Now().Add(time.Hour), 0, 5))

	uc := newRetrievalUC(tokens, testhelpers.SignerStub{})

	const attempts = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	granted, exhausted := 0, 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := uc.RedeemDownload(context.Background(), "tok-dl")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				granted++
			case errors.Is(err, domainErrors.ErrExhausted):
				exhausted++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if granted != 5 {
		t.Fatalf("expected exactly 5 grants, got %d", granted)
	}
	if exhausted != attempts-5 {
		t.Fatalf("expected %d exhausted redemptions, got %d", attempts-5, exhausted)
	}
}

func TestResolveOrderAccessBuildsView(t *testing.T) {
	order := paidOrder()
	tokens := testhelpers.NewInMemoryTokenRepository(order)
	tokens.Add(&model.CapabilityToken{Token: "tok-order", OrderID: "ord-1", Scope: model.ScopeOrder, ExpiresAt: time.Now().Add(time.Hour)})

	uc := newRetrievalUC(tokens, testhelpers.SignerStub{})
	view, err := uc.ResolveOrderAccess(context.Background(), "tok-order")
	if err != nil {
		t.Fatalf("resolve returned error: %v", err)
	}
	if view.OrderID != "ord-1" || view.Total != 6980 {
		t.Fatalf("unexpected view: %+v", view)
	}
	if len(view.Items) != 2 {
		t.Fatalf("expected two items, got %d", len(view.Items))
	}
	for _, item := range view.Items {
		if !strings.HasPrefix(item.DownloadURL, "https://shop.example.com/download/") {
			t.Fatalf("expected download link for %q, got %q", item.Title, item.DownloadURL)
		}
	}
	if got := tokens.Count("ord-1", model.ScopeDownload); got != 2 {
		t.Fatalf("expected download tokens to be issued lazily, got %d", got)
	}
}

func TestResolveOrderAccessReissuesExpiredDownloads(t *testing.T) {
	order := paidOrder()
	tokens := testhelpers.NewInMemoryTokenRepository(order)
	tokens.Add(&model.CapabilityToken{Token: "tok-order", OrderID: "ord-1", Scope: model.ScopeOrder, ExpiresAt: time.Now().Add(time.Hour)})
	tokens.Add(downloadToken("tok-old", 1, time.Now().Add(-time.Minute), 0, 5))

	uc := newRetrievalUC(tokens, testhelpers.SignerStub{})
	view, err := uc.ResolveOrderAccess(context.Background(), "tok-order")
	if err != nil {
		t.Fatalf("resolve returned error: %v", err)
	}
	if view.Items[0].DownloadURL == "https://shop.example.com/download/tok-old" {
		t.Fatal("expected a fresh download token instead of the expired one")
	}
}

func TestResolveOrderAccessFailures(t *testing.T) {
	order := paidOrder()
	tokens := testhelpers.NewInMemoryTokenRepository(order)
	itemID := int64(1)
	tokens.Add(&model.CapabilityToken{Token: "tok-dl", OrderID: "ord-1", Scope: model.ScopeDownload, CatalogItemID: &itemID, ExpiresAt: time.Now().Add(time.Hour), UseCeiling: 5})
	tokens.Add(&model.CapabilityToken{Token: "tok-expired", OrderID: "ord-1", Scope: model.ScopeOrder, ExpiresAt: time.Now().Add(-time.Minute)})

	uc := newRetrievalUC(tokens, testhelpers.SignerStub{})

	if _, err := uc.ResolveOrderAccess(context.Background(), "ghost"); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := uc.ResolveOrderAccess(context.Background(), "tok-expired"); !errors.Is(err, domainErrors.ErrExpired) {
		t.Fatalf("expected expired, got %v", err)
	}
	if _, err := uc.ResolveOrderAccess(context.Background(), "tok-dl"); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected download token to be rejected, got %v", err)
	}
}
