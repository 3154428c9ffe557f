package domain

import (
	"context"
	"errors"
)

// Service is the read-only catalog lookup used while building a cart.
type Service interface {
	List(ctx context.Context, req ListRequest) ([]Product, error)
	Get(ctx context.Context, id string) (*Product, error)
}

type ListRequest struct {
	NamePrefix string
	Limit      int
}

type ListFilter struct {
	NamePrefix string
	Limit      int
}

var (
	ErrInvalidID = errors.New("invalid_id")
	ErrNotFound  = errors.New("not_found")
)
