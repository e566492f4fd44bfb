package dto

// OrderAccessItemResponse is one purchased sheet on the order page.
type OrderAccessItemResponse struct {
	Title       string `json:"title"`
	UnitPrice   int64  `json:"unit_price"`
	DownloadURL string `json:"download_url,omitempty"`
}

// OrderAccessResponse represents the order page behind an access token.
type OrderAccessResponse struct {
	OrderID string                    `json:"order_id"`
	Total   int64                     `json:"total"`
	Items   []OrderAccessItemResponse `json:"items"`
}
