package ledger

import "errors"

// Sentinel errors for ledger operations. Callers match with errors.Is and
// map them onto HTTP status codes; every rejected operation leaves the
// ledger untouched.
var (
	ErrValidation           = errors.New("validation failed")
	ErrNotFound             = errors.New("position not found")
	ErrInsufficientQuantity = errors.New("insufficient quantity")
)
