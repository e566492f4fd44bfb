package model

// PaymentStatus mirrors the authoritative status reported by the payment provider.
type PaymentStatus string

const (
	PaymentStatusApproved PaymentStatus = "approved"
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusRejected PaymentStatus = "rejected"
)

// Payment is the provider's record of a payment, fetched from its pull API.
// ExternalReference carries the order id embedded at preference creation time.
type Payment struct {
	ID                string
	Status            PaymentStatus
	ExternalReference string
}

// Preference is the provider-side checkout session created for an order.
type Preference struct {
	ID          string
	RedirectURL string
}
