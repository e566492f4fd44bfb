package usecase

import "net/mail"

// ValidateEmail checks that the purchaser address is syntactically plausible.
func ValidateEmail(address string) bool {
	if address == "" {
		return false
	}
	parsed, err := mail.ParseAddress(address)
	return err == nil && parsed.Address == address
}
