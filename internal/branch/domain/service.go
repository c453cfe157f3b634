package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*Response, error)
	SetDefault(ctx context.Context, id string) (*Response, error)
	Delete(ctx context.Context, id string) error
}

type ListRequest struct {
	Country string
	SortBy  string
	OrderBy string
}

type CreateRequest struct {
	Name      string `json:"name"`
	Country   string `json:"country"`
	City      string `json:"city"`
	Address   string `json:"address"`
	IsDefault bool   `json:"is_default"`
}

type UpdateRequest struct {
	Name    *string `json:"name"`
	Country *string `json:"country"`
	City    *string `json:"city"`
	Address *string `json:"address"`
}

type Response struct {
	ID        string    `json:"id"`
	StoreID   string    `json:"store_id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Country   string    `json:"country"`
	City      string    `json:"city"`
	Address   string    `json:"address"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	ErrInvalidStore   = errors.New("invalid_store")
	ErrInvalidName    = errors.New("invalid_name")
	ErrInvalidCountry = errors.New("invalid_country")
	ErrDuplicateSlug  = errors.New("duplicate_slug")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidID      = errors.New("invalid_id")
	ErrDefaultBranch  = errors.New("default_branch")
)
