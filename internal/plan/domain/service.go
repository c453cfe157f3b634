package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/mercato/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
	Get(ctx context.Context, id string) (*Response, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*Response, error)
}

type ListRequest struct {
	pagination.Pagination

	Interval PlanInterval
	Active   *bool
	SortBy   string
	OrderBy  string
}

type CreateRequest struct {
	Code        string       `json:"code"`
	Name        string       `json:"name"`
	Description *string      `json:"description"`
	Interval    PlanInterval `json:"interval"`
	PriceCents  int64        `json:"price_cents"`
	Currency    string       `json:"currency"`
	TrialDays   int          `json:"trial_days"`
	Features    []string     `json:"features"`
	Active      *bool        `json:"active"`
}

type UpdateRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	PriceCents  *int64   `json:"price_cents"`
	TrialDays   *int     `json:"trial_days"`
	Features    []string `json:"features"`
	Active      *bool    `json:"active"`
}

type Response struct {
	ID          string       `json:"id"`
	StoreID     string       `json:"store_id"`
	Code        string       `json:"code"`
	Name        string       `json:"name"`
	Description *string      `json:"description,omitempty"`
	Interval    PlanInterval `json:"interval"`
	PriceCents  int64        `json:"price_cents"`
	Currency    string       `json:"currency"`
	TrialDays   int          `json:"trial_days"`
	Features    []string     `json:"features,omitempty"`
	Active      bool         `json:"active"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

type ListResponse struct {
	Plans    []Response           `json:"plans"`
	PageInfo *pagination.PageInfo `json:"page_info"`
}

var (
	ErrInvalidStore    = errors.New("invalid_store")
	ErrInvalidCode     = errors.New("invalid_code")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidInterval = errors.New("invalid_interval")
	ErrInvalidPrice    = errors.New("invalid_price")
	ErrDuplicateCode   = errors.New("duplicate_code")
	ErrNotFound        = errors.New("not_found")
	ErrInvalidID       = errors.New("invalid_id")
)
