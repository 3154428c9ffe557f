package domain

import (
	"context"
	"errors"
)

type Service interface {
	Search(ctx context.Context, req SearchRequest) ([]Entry, error)
	Get(ctx context.Context, clientType ClientType, id string) (*Entry, error)
}

type SearchRequest struct {
	NamePrefix string
	Limit      int
}

var (
	ErrInvalidType = errors.New("invalid_client_type")
	ErrInvalidID   = errors.New("invalid_id")
	ErrNotFound    = errors.New("not_found")
)
