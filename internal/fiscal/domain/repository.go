package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// ListFilter narrows FindByCriteria. Zero values mean "any".
type ListFilter struct {
	FiscalService    FiscalService
	PriceIncludesTax *bool
	Country          string
	SortBy           string
	OrderBy          string
}

// ApplicableRate is the read-model row returned by ApplicableRates: the
// effective standard rate for a region plus any reduced rates the store
// offers. The aggregate never consumes this; only the use-case layer
// does.
type ApplicableRate struct {
	Country      string        `json:"country"`
	StateRegion  string        `json:"state_region"`
	TaxType      TaxType       `json:"tax_type"`
	CollectsTax  bool          `json:"collects_tax"`
	StandardRate float64       `json:"standard_rate"`
	ReducedRates []ReducedRate `json:"reduced_rates,omitempty"`
}

type Repository interface {
	FindByStoreID(ctx context.Context, storeID snowflake.ID) (*FiscalConfiguration, error)
	ExistsByStoreID(ctx context.Context, storeID snowflake.ID) (bool, error)
	Create(ctx context.Context, cfg *FiscalConfiguration) error
	Update(ctx context.Context, cfg *FiscalConfiguration) error
	DeleteByStoreID(ctx context.Context, storeID snowflake.ID) error
	FindByCriteria(ctx context.Context, filter ListFilter) ([]FiscalConfiguration, error)
	ApplicableRates(ctx context.Context, storeID snowflake.ID, country, stateRegion string) ([]ApplicableRate, error)
}
