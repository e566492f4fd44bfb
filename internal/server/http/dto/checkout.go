package dto

// CheckoutRequest is the payload accepted by POST /api/checkout.
type CheckoutRequest struct {
	Email   string  `json:"email" binding:"required"`
	ItemIDs []int64 `json:"item_ids" binding:"required"`
}

// CheckoutResponse points the buyer at the provider's payment page.
type CheckoutResponse struct {
	OrderID     string `json:"order_id"`
	RedirectURL string `json:"redirect_url"`
}
