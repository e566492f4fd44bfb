package model

import "time"

// TokenScope distinguishes whole-order access tokens from per-item download tokens.
type TokenScope string

const (
	ScopeOrder    TokenScope = "order"
	ScopeDownload TokenScope = "download"
)

// UnlimitedUses marks a token without a use ceiling.
const UnlimitedUses = 0

// CapabilityToken grants time- and use-bounded access to a resource without
// naming a user identity. Only the use counter ever mutates.
type CapabilityToken struct {
	Token         string
	OrderID       string
	Scope         TokenScope
	CatalogItemID *int64
	ExpiresAt     time.Time
	UseCount      int
	UseCeiling    int
	CreatedAt     time.Time
}

// Valid reports whether the token is usable at the given instant.
// Order status is checked separately against the owning order.
func (t CapabilityToken) Valid(now time.Time) bool {
	if !now.Before(t.ExpiresAt) {
		return false
	}
	if t.UseCeiling != UnlimitedUses && t.UseCount >= t.UseCeiling {
		return false
	}
	return true
}
