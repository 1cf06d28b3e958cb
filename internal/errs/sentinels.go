// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

var (
	// ErrNotFound indicates the requested entity does not exist or belongs to another business.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientStock indicates a mutation that would drive stock below zero.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrDuplicateAction indicates an already-processed sync action; callers treat it as success.
	ErrDuplicateAction = errors.New("duplicate action")

	// ErrValidation indicates a malformed payload or unknown action type.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized indicates failed authentication/authorization.
	ErrUnauthorized = errors.New("unauthorized")
)
