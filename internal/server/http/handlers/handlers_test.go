package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/tecelana/fichas/internal/domain/errors"
	"github.com/tecelana/fichas/internal/server/http/dto"
	testhelpers "github.com/tecelana/fichas/internal/test"
	"github.com/tecelana/fichas/internal/usecase"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func performRequest(t *testing.T, method, path, target string, handler gin.HandlerFunc, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	router := gin.New()
	router.Handle(method, path, handler)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCheckoutHandlerCreate(t *testing.T) {
	email := testhelpers.RandomEmail()
	facade := &testhelpers.ShopFacadeStub{CheckoutFn: func(_ context.Context, gotEmail string, gotItems []int64) (*usecase.CheckoutResult, error) {
		if gotEmail != email {
			t.Fatalf("unexpected email passed to facade: %q", gotEmail)
		}
		if len(gotItems) != 2 || gotItems[0] != 3 || gotItems[1] != 7 {
			t.Fatalf("unexpected item ids passed to facade: %v", gotItems)
		}
		return &usecase.CheckoutResult{OrderID: "ord-1", RedirectURL: "https://pay.example.com/pref-1"}, nil
	}}
	body, _ := json.Marshal(dto.CheckoutRequest{Email: email, ItemIDs: []int64{3, 7}})
	resp := performRequest(t, http.MethodPost, "/api/checkout", "/api/checkout", NewCheckoutHandler(facade).Create, body, map[string]string{"Content-Type": "application/json"})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", resp.Code)
	}
	var decoded dto.CheckoutResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if decoded.OrderID != "ord-1" || decoded.RedirectURL != "https://pay.example.com/pref-1" {
		t.Fatalf("unexpected response: %+v", decoded)
	}
}

func TestCheckoutHandlerCreateFailures(t *testing.T) {
	tests := []struct {
		name   string
		facade *testhelpers.ShopFacadeStub
		body   []byte
		status int
	}{
		{name: "bad json", facade: &testhelpers.ShopFacadeStub{}, body: []byte("not json"), status: http.StatusBadRequest},
		{name: "missing items", facade: &testhelpers.ShopFacadeStub{}, body: []byte(`{"email":"a@b.com"}`), status: http.StatusBadRequest},
		{name: "invalid email", body: []byte(`{"email":"nope","item_ids":[1]}`), facade: &testhelpers.ShopFacadeStub{CheckoutFn: func(context.Context, string, []int64) (*usecase.CheckoutResult, error) {
			return nil, domainErrors.ErrValidation
		}}, status: http.StatusBadRequest},
		{name: "unknown item", body: []byte(`{"email":"a@b.com","item_ids":[99]}`), facade: &testhelpers.ShopFacadeStub{CheckoutFn: func(context.Context, string, []int64) (*usecase.CheckoutResult, error) {
			return nil, domainErrors.ErrNotFound
		}}, status: http.StatusNotFound},
		{name: "provider down", body: []byte(`{"email":"a@b.com","item_ids":[1]}`), facade: &testhelpers.ShopFacadeStub{CheckoutFn: func(context.Context, string, []int64) (*usecase.CheckoutResult, error) {
			return nil, domainErrors.ErrUpstream
		}}, status: http.StatusInternalServerError},
		{name: "internal", body: []byte(`{"email":"a@b.com","item_ids":[1]}`), facade: &testhelpers.ShopFacadeStub{CheckoutFn: func(context.Context, string, []int64) (*usecase.CheckoutResult, error) {
			return nil, errors.New("boom")
		}}, status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := performRequest(t, http.MethodPost, "/api/checkout", "/api/checkout", NewCheckoutHandler(tt.facade).Create, tt.body, map[string]string{"Content-Type": "application/json"})
			if resp.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, resp.Code)
			}
		})
	}
}

func TestWebhookHandlerNotify(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		body    []byte
		headers map[string]string
		want    []string
	}{
		{name: "data.id query", target: "/payments/notifications?type=payment&data.id=6980", want: []string{"6980"}},
		{name: "id query", target: "/payments/notifications?id=123&topic=payment", want: []string{"123"}},
		{name: "nested json body", target: "/payments/notifications", body: []byte(`{"action":"payment.updated","data":{"id":"6980"}}`), headers: map[string]string{"Content-Type": "application/json"}, want: []string{"6980"}},
		{name: "flat json body numeric id", target: "/payments/notifications", body: []byte(`{"id":6980}`), headers: map[string]string{"Content-Type": "application/json"}, want: []string{"6980"}},
		{name: "empty body", target: "/payments/notifications", want: nil},
		{name: "malformed body", target: "/payments/notifications", body: []byte("not json"), want: nil},
		{name: "no id anywhere", target: "/payments/notifications", body: []byte(`{"action":"test"}`), headers: map[string]string{"Content-Type": "application/json"}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facade := &testhelpers.ShopFacadeStub{}
			resp := performRequest(t, http.MethodPost, "/payments/notifications", tt.target, NewWebhookHandler(facade).Notify, tt.body, tt.headers)
			if resp.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", resp.Code)
			}
			got := facade.NotifiedWith()
			if len(got) != len(tt.want) {
				t.Fatalf("expected notifications %v, got %v", tt.want, got)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("expected notifications %v, got %v", tt.want, got)
				}
			}
		})
	}
}

func TestWebhookHandlerQueryWinsOverBody(t *testing.T) {
	facade := &testhelpers.ShopFacadeStub{}
	resp := performRequest(t, http.MethodPost, "/payments/notifications", "/payments/notifications?data.id=111", NewWebhookHandler(facade).Notify, []byte(`{"data":{"id":"222"}}`), map[string]string{"Content-Type": "application/json"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	got := facade.NotifiedWith()
	if len(got) != 1 || got[0] != "111" {
		t.Fatalf("expected query id to win, got %v", got)
	}
}

func TestAccessHandlerDownload(t *testing.T) {
	facade := &testhelpers.ShopFacadeStub{RedeemFn: func(_ context.Context, token string) (*usecase.FileGrant, error) {
		if token != "tok-dl" {
			t.Fatalf("unexpected token passed to facade: %q", token)
		}
		return &usecase.FileGrant{Title: "linho cru", URL: "https://storage.example.com/signed/linho.pdf?X-Amz-Expires=600", UsesLeft: 4}, nil
	}}
	resp := performRequest(t, http.MethodGet, "/download/:token", "/download/tok-dl", NewAccessHandler(facade).Download, nil, nil)
	if resp.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected status 307, got %d", resp.Code)
	}
	if loc := resp.Header().Get("Location"); loc != "https://storage.example.com/signed/linho.pdf?X-Amz-Expires=600" {
		t.Fatalf("unexpected redirect location %q", loc)
	}
}

func TestAccessHandlerDownloadFailures(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "unknown token", err: domainErrors.ErrNotFound, status: http.StatusNotFound},
		{name: "expired", err: domainErrors.ErrExpired, status: http.StatusGone},
		{name: "exhausted", err: domainErrors.ErrExhausted, status: http.StatusTooManyRequests},
		{name: "unpaid order", err: domainErrors.ErrForbidden, status: http.StatusForbidden},
		{name: "signing failed", err: domainErrors.ErrUpstream, status: http.StatusInternalServerError},
		{name: "internal", err: errors.New("boom"), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facade := &testhelpers.ShopFacadeStub{RedeemFn: func(context.Context, string) (*usecase.FileGrant, error) {
				return nil, tt.err
			}}
			resp := performRequest(t, http.MethodGet, "/download/:token", "/download/tok", NewAccessHandler(facade).Download, nil, nil)
			if resp.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, resp.Code)
			}
		})
	}
}

func TestAccessHandlerOrderAccess(t *testing.T) {
	view := &usecase.OrderAccessView{
		OrderID: "ord-1",
		Total:   6980,
		Items: []usecase.OrderAccessItem{
			{Title: "linho cru", UnitPrice: 2990, DownloadURL: "https://shop.example.com/download/tok-a"},
			{Title: "tricoline", UnitPrice: 3990, DownloadURL: "https://shop.example.com/download/tok-b"},
		},
	}
	facade := &testhelpers.ShopFacadeStub{ResolveFn: func(_ context.Context, token string) (*usecase.OrderAccessView, error) {
		if token != "tok-order" {
			t.Fatalf("unexpected token passed to facade: %q", token)
		}
		return view, nil
	}}
	resp := performRequest(t, http.MethodGet, "/order-access/:token", "/order-access/tok-order", NewAccessHandler(facade).OrderAccess, nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var decoded dto.OrderAccessResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if decoded.OrderID != "ord-1" || decoded.Total != 6980 {
		t.Fatalf("unexpected response: %+v", decoded)
	}
	if len(decoded.Items) != 2 || decoded.Items[0].DownloadURL != "https://shop.example.com/download/tok-a" {
		t.Fatalf("unexpected items: %+v", decoded.Items)
	}
}

func TestAccessHandlerOrderAccessFailures(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "unknown token", err: domainErrors.ErrNotFound, status: http.StatusNotFound},
		{name: "expired", err: domainErrors.ErrExpired, status: http.StatusGone},
		{name: "internal", err: errors.New("boom"), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facade := &testhelpers.ShopFacadeStub{ResolveFn: func(context.Context, string) (*usecase.OrderAccessView, error) {
				return nil, tt.err
			}}
			resp := performRequest(t, http.MethodGet, "/order-access/:token", "/order-access/tok", NewAccessHandler(facade).OrderAccess, nil, nil)
			if resp.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, resp.Code)
			}
		})
	}
}

func TestHealthHandler(t *testing.T) {
	resp := performRequest(t, http.MethodGet, "/health", "/health", NewHealthHandler(&testhelpers.ShopFacadeStub{}).Check, nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	degraded := &testhelpers.ShopFacadeStub{HealthFn: func(context.Context) error {
		return errors.New("database unreachable")
	}}
	resp = performRequest(t, http.MethodGet, "/health", "/health", NewHealthHandler(degraded).Check, nil, nil)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", resp.Code)
	}
}

var _ ShopFacade = (*testhelpers.ShopFacadeStub)(nil)
