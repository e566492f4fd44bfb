package errors

import "errors"

var (
	ErrValidation = errors.New("invalid input")
	ErrNotFound   = errors.New("not found")
	ErrExpired    = errors.New("expired")
	ErrExhausted  = errors.New("use limit reached")
	ErrForbidden  = errors.New("forbidden")
	ErrUpstream   = errors.New("upstream failure")
)
