package ledger

import "errors"

var (
	ErrValidation            = errors.New("invalid record")
	ErrInsufficientPrecision = errors.New("amount exceeds supported decimal scale")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrNotFound              = errors.New("not found")
	ErrDuplicate             = errors.New("duplicate record")
)
