package payment

import "errors"

var (
	ErrInvalidPlan        = errors.New("unrecognized plan type")
	ErrUnsupportedChain   = errors.New("unsupported chain")
	ErrNoAddressAvailable = errors.New("no receiving address available")
	ErrOrderNotFound      = errors.New("order not found")
	ErrInvalidState       = errors.New("operation not allowed in current order state")
	ErrBelowMinimum       = errors.New("amount below minimum withdrawal")
	ErrExceedsBalance     = errors.New("amount exceeds withdrawable balance")
)
