package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/tecelana/fichas/internal/domain/model"
)

// Client exposes the two provider operations the service depends on: creating
// a checkout preference and pulling the authoritative state of a payment.
type Client interface {
	CreatePreference(ctx context.Context, req PreferenceRequest) (*model.Preference, error)
	GetPayment(ctx context.Context, paymentID string) (*model.Payment, error)
}

// PreferenceItem is one purchasable line sent to the provider.
type PreferenceItem struct {
	Title     string
	Quantity  int
	UnitPrice int64
}

// PreferenceRequest describes a checkout session. ExternalReference must carry
// the order id: the webhook later recovers the order through it.
type PreferenceRequest struct {
	ExternalReference string
	PayerEmail        string
	Items             []PreferenceItem
	NotificationURL   string
	SuccessURL        string
	FailureURL        string
}

// HTTPClient implements Client via the provider's REST API.
type HTTPClient struct {
	baseURL     *url.URL
	accessToken string
	httpClient  *http.Client
	logger      *slog.Logger
}

type preferenceItemPayload struct {
	Title     string  `json:"title"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type preferencePayload struct {
	ExternalReference string                  `json:"external_reference"`
	Payer             map[string]string       `json:"payer,omitempty"`
	Items             []preferenceItemPayload `json:"items"`
	NotificationURL   string                  `json:"notification_url"`
	BackURLs          map[string]string       `json:"back_urls,omitempty"`
	AutoReturn        string                  `json:"auto_return,omitempty"`
}

type preferenceResponse struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

type paymentResponse struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	ExternalReference string      `json:"external_reference"`
}

// NewHTTPClient creates a provider client with default timeout.
func NewHTTPClient(baseURL, accessToken string, logger *slog.Logger) (*HTTPClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse payment api url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("payment api url must be absolute")
	}
	if accessToken == "" {
		return nil, fmt.Errorf("payment access token must be provided")
	}
	return &HTTPClient{
		baseURL:     parsed,
		accessToken: accessToken,
		logger:      logger,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

// CreatePreference registers a checkout session with the provider and returns
// the payer-facing redirect URL.
func (c *HTTPClient) CreatePreference(ctx context.Context, req PreferenceRequest) (*model.Preference, error) {
	payload := preferencePayload{
		ExternalReference: req.ExternalReference,
		Items:             make([]preferenceItemPayload, 0, len(req.Items)),
		NotificationURL:   req.NotificationURL,
	}
	if req.PayerEmail != "" {
		payload.Payer = map[string]string{"email": req.PayerEmail}
	}
	for _, item := range req.Items {
		payload.Items = append(payload.Items, preferenceItemPayload{
			Title:     item.Title,
			Quantity:  item.Quantity,
			UnitPrice: float64(item.UnitPrice) / 100,
		})
	}
	if req.SuccessURL != "" || req.FailureURL != "" {
		payload.BackURLs = map[string]string{
			"success": req.SuccessURL,
			"failure": req.FailureURL,
		}
		payload.AutoReturn = "approved"
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	var resp preferenceResponse
	if err := c.do(ctx, http.MethodPost, "/checkout/preferences", bytes.NewReader(body), &resp); err != nil {
		return nil, err
	}
	return &model.Preference{ID: resp.ID, RedirectURL: resp.InitPoint}, nil
}

// GetPayment pulls the authoritative payment record. The webhook payload is
// never trusted for status; this call is.
func (c *HTTPClient) GetPayment(ctx context.Context, paymentID string) (*model.Payment, error) {
	var resp paymentResponse
	if err := c.do(ctx, http.MethodGet, path.Join("/v1/payments", paymentID), nil, &resp); err != nil {
		return nil, err
	}
	return &model.Payment{
		ID:                resp.ID.String(),
		Status:            model.PaymentStatus(resp.Status),
		ExternalReference: resp.ExternalReference,
	}, nil
}

func (c *HTTPClient) do(ctx context.Context, method, endpoint string, body io.Reader, out any) error {
	target := *c.baseURL
	target.Path = path.Join(target.Path, endpoint)

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("payment provider request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		data, _ := io.ReadAll(resp.Body)
		c.logger.Error("payment provider request failed",
			slog.String("endpoint", endpoint),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(data)),
		)
		return fmt.Errorf("payment provider error: %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
