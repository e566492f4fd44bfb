package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tecelana/fichas/internal/server/http/dto"
	"github.com/tecelana/fichas/internal/usecase"
)

// AccessHandler serves token-gated order pages and downloads.
type AccessHandler struct {
	facade RetrievalFacade
}

// NewAccessHandler constructs AccessHandler.
func NewAccessHandler(facade RetrievalFacade) *AccessHandler {
	return &AccessHandler{facade: facade}
}

// Download handles GET /download/:token. A successful redemption consumes one
// use and redirects to a short-lived signed URL.
func (h *AccessHandler) Download(c *gin.Context) {
	grant, err := h.facade.RedeemDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		c.Status(statusFromError(err))
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, grant.URL)
}

// OrderAccess handles GET /order-access/:token.
func (h *AccessHandler) OrderAccess(c *gin.Context) {
	view, err := h.facade.ResolveOrderAccess(c.Request.Context(), c.Param("token"))
	if err != nil {
		c.Status(statusFromError(err))
		return
	}
	c.JSON(http.StatusOK, toOrderAccessResponse(view))
}

func toOrderAccessResponse(view *usecase.OrderAccessView) dto.OrderAccessResponse {
	resp := dto.OrderAccessResponse{
		OrderID: view.OrderID,
		Total:   view.Total,
		Items:   make([]dto.OrderAccessItemResponse, 0, len(view.Items)),
	}
	for _, item := range view.Items {
		resp.Items = append(resp.Items, dto.OrderAccessItemResponse{
			Title:       item.Title,
			UnitPrice:   item.UnitPrice,
			DownloadURL: item.DownloadURL,
		})
	}
	return resp
}
