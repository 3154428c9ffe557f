package domain

import "errors"

var (
	ErrMissingClient       = errors.New("missing_client")
	ErrEmptyCart           = errors.New("empty_cart")
	ErrInvalidDiscountCode = errors.New("invalid_discount_code")
	ErrLookupFailed        = errors.New("lookup_failed")
	ErrPersistenceFailed   = errors.New("persistence_failed")
	ErrPermissionDenied    = errors.New("permission_denied")

	ErrCommitInFlight    = errors.New("commit_in_flight")
	ErrLineNotFound      = errors.New("line_not_found")
	ErrInvalidQuantity   = errors.New("invalid_quantity")
	ErrInvalidPrice      = errors.New("invalid_price")
	ErrInvalidProduct    = errors.New("invalid_product")
	ErrInvalidClient     = errors.New("invalid_client")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrInvalidStatus     = errors.New("invalid_status")
	ErrNotFound          = errors.New("not_found")
	ErrSessionNotFound   = errors.New("session_not_found")
)
