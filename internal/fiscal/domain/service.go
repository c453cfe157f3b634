package domain

import (
	"context"
	"time"
)

// Service is the use-case surface controllers drive. Every mutation
// loads the aggregate, applies one named operation, and persists; a
// violation propagates as a typed error and nothing is written.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Get(ctx context.Context) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	Delete(ctx context.Context) error

	CalculateTax(ctx context.Context, req CalculateTaxRequest) (*CalculateTaxResponse, error)
	ValidateIntegrity(ctx context.Context) (*IntegrityResponse, error)
	ApplicableRates(ctx context.Context, country, stateRegion string) ([]ApplicableRate, error)

	AddRegion(ctx context.Context, region FiscalRegion) (*Response, error)
	UpdateRegion(ctx context.Context, country, stateRegion string, region FiscalRegion) (*Response, error)
	RemoveRegion(ctx context.Context, country, stateRegion string) (*Response, error)

	AddReducedRate(ctx context.Context, rate ReducedRate) (*Response, error)
	UpdateReducedRate(ctx context.Context, description string, rate ReducedRate) (*Response, error)
	RemoveReducedRate(ctx context.Context, description string) (*Response, error)

	AddTariffFee(ctx context.Context, fee TariffRate) (*Response, error)
	UpdateTariffFee(ctx context.Context, index int, fee TariffRate) (*Response, error)
	RemoveTariffFee(ctx context.Context, index int) (*Response, error)

	AddCustomsCode(ctx context.Context, code CustomsCode) (*Response, error)
	UpdateCustomsCode(ctx context.Context, harmonizedCode string, code CustomsCode) (*Response, error)
	RemoveCustomsCode(ctx context.Context, harmonizedCode string) (*Response, error)
}

type CreateRequest struct {
	FiscalService    FiscalService  `json:"fiscal_service"`
	StandardRate     float64        `json:"standard_rate"`
	Regions          []FiscalRegion `json:"regions"`
	ReducedRates     []ReducedRate  `json:"reduced_rates,omitempty"`
	TariffFees       []TariffRate   `json:"tariff_fees,omitempty"`
	CustomsCodes     []CustomsCode  `json:"customs_codes,omitempty"`
	PriceIncludesTax bool           `json:"price_includes_tax"`
	DutyAtCheckout   bool           `json:"duty_at_checkout"`
	DDPAvailable     bool           `json:"ddp_available"`
	ShippingTaxed    bool           `json:"shipping_taxed"`
	DigitalGoodsVAT  bool           `json:"digital_goods_vat"`
}

// UpdateRequest replaces scalar settings by presence: nil fields keep
// their current value. Collections are managed through their own
// add/update/remove operations, not here.
type UpdateRequest struct {
	FiscalService    *FiscalService `json:"fiscal_service,omitempty"`
	StandardRate     *float64       `json:"standard_rate,omitempty"`
	PriceIncludesTax *bool          `json:"price_includes_tax,omitempty"`
	DutyAtCheckout   *bool          `json:"duty_at_checkout,omitempty"`
	DDPAvailable     *bool          `json:"ddp_available,omitempty"`
	ShippingTaxed    *bool          `json:"shipping_taxed,omitempty"`
	DigitalGoodsVAT  *bool          `json:"digital_goods_vat,omitempty"`
}

type CalculateTaxRequest struct {
	Amount      float64 `json:"amount"`
	Country     string  `json:"country"`
	StateRegion string  `json:"state_region"`
}

type CalculateTaxResponse struct {
	Amount      float64 `json:"amount"`
	Country     string  `json:"country"`
	StateRegion string  `json:"state_region"`
	Tax         float64 `json:"tax"`
}

type IntegrityResponse struct {
	StoreID string `json:"store_id"`
	Valid   bool   `json:"valid"`
	Detail  string `json:"detail,omitempty"`
}

type Response struct {
	ID               string         `json:"id"`
	StoreID          string         `json:"store_id"`
	FiscalService    FiscalService  `json:"fiscal_service"`
	StandardRate     float64        `json:"standard_rate"`
	Regions          []FiscalRegion `json:"regions"`
	ReducedRates     []ReducedRate  `json:"reduced_rates"`
	TariffFees       []TariffRate   `json:"tariff_fees"`
	CustomsCodes     []CustomsCode  `json:"customs_codes"`
	PriceIncludesTax bool           `json:"price_includes_tax"`
	DutyAtCheckout   bool           `json:"duty_at_checkout"`
	DDPAvailable     bool           `json:"ddp_available"`
	ShippingTaxed    bool           `json:"shipping_taxed"`
	DigitalGoodsVAT  bool           `json:"digital_goods_vat"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}
