package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// FiscalService selects which engine computes taxes for a store.
type FiscalService string

const (
	FiscalServiceShopifyTax FiscalService = "shopify_tax"
	FiscalServiceManual     FiscalService = "manual"
	FiscalServiceBasicTax   FiscalService = "basic_tax"
)

func (s FiscalService) Valid() bool {
	switch s {
	case FiscalServiceShopifyTax, FiscalServiceManual, FiscalServiceBasicTax:
		return true
	}
	return false
}

// TaxType classifies the tax regime a fiscal region operates under.
type TaxType string

const (
	TaxTypeVAT         TaxType = "vat"
	TaxTypeGST         TaxType = "gst"
	TaxTypePST         TaxType = "pst"
	TaxTypeHST         TaxType = "hst"
	TaxTypeSalesTax    TaxType = "sales_tax"
	TaxTypeConsumption TaxType = "consumption_tax"
	TaxTypeNone        TaxType = "none"
)

func (t TaxType) Valid() bool {
	switch t {
	case TaxTypeVAT, TaxTypeGST, TaxTypePST, TaxTypeHST, TaxTypeSalesTax, TaxTypeConsumption, TaxTypeNone:
		return true
	}
	return false
}

// TariffType determines how a tariff fee amount is interpreted.
type TariffType string

const (
	TariffTypeFixed      TariffType = "fixed"
	TariffTypePercentage TariffType = "percentage"
	TariffTypeComputed   TariffType = "computed"
)

func (t TariffType) Valid() bool {
	switch t {
	case TariffTypeFixed, TariffTypePercentage, TariffTypeComputed:
		return true
	}
	return false
}

// FiscalRegion is a (country, state/region) the store collects tax in.
// Natural key: (Country, StateRegion), compared case-insensitively.
type FiscalRegion struct {
	Country      string  `json:"country"`
	StateRegion  string  `json:"state_region"`
	TaxType      TaxType `json:"tax_type"`
	CollectsTax  bool    `json:"collects_tax"`
	StandardRate float64 `json:"standard_rate"`
}

// Matches reports whether the region's natural key equals (country, stateRegion).
func (r FiscalRegion) Matches(country, stateRegion string) bool {
	return strings.EqualFold(strings.TrimSpace(r.Country), strings.TrimSpace(country)) &&
		strings.EqualFold(strings.TrimSpace(r.StateRegion), strings.TrimSpace(stateRegion))
}

// ReducedRate is a tax percentage below the store's standard rate,
// applied to specific product categories. Natural key: Description.
type ReducedRate struct {
	Description string   `json:"description"`
	Percentage  float64  `json:"percentage"`
	Categories  []string `json:"categories,omitempty"`
}

// TariffRate is an import duty charged at checkout. Tariff fees carry no
// natural key; collections address them by position.
type TariffRate struct {
	Type                 TariffType `json:"type"`
	Amount               float64    `json:"amount"`
	Condition            *string    `json:"condition,omitempty"`
	DestinationCountries []string   `json:"destination_countries,omitempty"`
}

// CustomsCode ties a Harmonized-System classification to an origin
// country and product description. Natural key: HarmonizedCode.
type CustomsCode struct {
	OriginCountry  string  `json:"origin_country"`
	HarmonizedCode string  `json:"harmonized_code"`
	Description    string  `json:"description"`
	VariantID      *string `json:"variant_id,omitempty"`
}

// FiscalConfiguration is the store-scoped tax/tariff aggregate. At most
// one configuration exists per store.
//
// Fields are exported for persistence and JSON, but callers outside the
// package mutate exclusively through the named mutators in aggregate.go;
// every mutator re-validates the whole candidate state and commits only
// on success.
type FiscalConfiguration struct {
	ID      snowflake.ID `gorm:"primaryKey" json:"id"`
	StoreID snowflake.ID `gorm:"column:store_id;not null;uniqueIndex" json:"store_id"`

	FiscalService FiscalService `gorm:"column:fiscal_service;type:text;not null" json:"fiscal_service"`
	StandardRate  float64       `gorm:"column:standard_rate;type:numeric(6,3);not null" json:"standard_rate"`

	Regions      datatypes.JSONSlice[FiscalRegion] `gorm:"column:regions;not null" json:"regions"`
	ReducedRates datatypes.JSONSlice[ReducedRate]  `gorm:"column:reduced_rates" json:"reduced_rates"`
	TariffFees   datatypes.JSONSlice[TariffRate]   `gorm:"column:tariff_fees" json:"tariff_fees"`
	CustomsCodes datatypes.JSONSlice[CustomsCode]  `gorm:"column:customs_codes" json:"customs_codes"`

	PriceIncludesTax bool `gorm:"column:price_includes_tax;not null;default:false" json:"price_includes_tax"`
	DutyAtCheckout   bool `gorm:"column:duty_at_checkout;not null;default:false" json:"duty_at_checkout"`
	DDPAvailable     bool `gorm:"column:ddp_available;not null;default:false" json:"ddp_available"`
	ShippingTaxed    bool `gorm:"column:shipping_taxed;not null;default:false" json:"shipping_taxed"`
	DigitalGoodsVAT  bool `gorm:"column:digital_goods_vat;not null;default:false" json:"digital_goods_vat"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (FiscalConfiguration) TableName() string { return "fiscal_configurations" }
