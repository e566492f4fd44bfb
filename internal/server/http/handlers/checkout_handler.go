package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tecelana/fichas/internal/server/http/dto"
)

// CheckoutHandler starts purchases.
type CheckoutHandler struct {
	facade CheckoutFacade
}

// NewCheckoutHandler constructs CheckoutHandler.
func NewCheckoutHandler(facade CheckoutFacade) *CheckoutHandler {
	return &CheckoutHandler{facade: facade}
}

// Create handles POST /api/checkout.
func (h *CheckoutHandler) Create(c *gin.Context) {
	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	result, err := h.facade.Checkout(c.Request.Context(), req.Email, req.ItemIDs)
	if err != nil {
		c.Status(statusFromError(err))
		return
	}

	c.JSON(http.StatusCreated, dto.CheckoutResponse{
		OrderID:     result.OrderID,
		RedirectURL: result.RedirectURL,
	})
}
