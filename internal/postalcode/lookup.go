package postalcode

import (
	"context"
	"errors"

	"github.com/smallbiznis/orderdesk/internal/freight"
)

var (
	ErrNotFound          = errors.New("postal_code_not_found")
	ErrInvalidPostalCode = errors.New("invalid_postal_code")
	ErrLookupUnavailable = errors.New("postal_lookup_unavailable")
	ErrLookupBadResponse = errors.New("postal_lookup_bad_response")
)

// Address is the street-level data a postal code resolves to.
type Address struct {
	PostalCode   string `json:"postal_code"`
	Street       string `json:"street"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
}

// Lookup resolves an 8-digit postal code into an address.
type Lookup interface {
	Lookup(ctx context.Context, postalCode string) (Address, error)
}

func normalize(raw string) (string, error) {
	cleaned := freight.CleanPostalCode(raw)
	if len(cleaned) != 8 {
		return "", ErrInvalidPostalCode
	}
	return cleaned, nil
}
