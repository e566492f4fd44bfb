package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// WebhookHandler receives payment provider notifications. The payload is
// untrusted and only mined for a payment id; the authoritative status is
// pulled from the provider afterwards. The provider always gets a 200 for a
// well-formed delivery, otherwise it retries indefinitely.
type WebhookHandler struct {
	facade WebhookFacade
}

// NewWebhookHandler constructs WebhookHandler.
func NewWebhookHandler(facade WebhookFacade) *WebhookHandler {
	return &WebhookHandler{facade: facade}
}

// Notify handles POST /payments/notifications.
func (h *WebhookHandler) Notify(c *gin.Context) {
	paymentID := extractPaymentID(c)
	if paymentID != "" {
		h.facade.ProcessPaymentNotification(c.Request.Context(), paymentID)
	}
	c.Status(http.StatusOK)
}

// extractPaymentID tolerates the provider's notification shapes: the id comes
// as ?id=, ?data.id=, a JSON body {"data":{"id":...}} or a bare {"id":...},
// string or number.
func extractPaymentID(c *gin.Context) string {
	if id := c.Query("data.id"); id != "" {
		return id
	}
	if id := c.Query("id"); id != "" {
		return id
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil || len(body) == 0 {
		return ""
	}

	var payload struct {
		ID   json.Number `json:"id"`
		Data struct {
			ID json.Number `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Data.ID.String() != "" {
		return payload.Data.ID.String()
	}
	return payload.ID.String()
}
