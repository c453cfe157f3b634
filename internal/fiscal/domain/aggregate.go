package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// NewConfigurationParams carries the caller-supplied state for a fresh
// aggregate. Collections may be nil.
type NewConfigurationParams struct {
	StoreID          snowflake.ID
	FiscalService    FiscalService
	StandardRate     float64
	Regions          []FiscalRegion
	ReducedRates     []ReducedRate
	TariffFees       []TariffRate
	CustomsCodes     []CustomsCode
	PriceIncludesTax bool
	DutyAtCheckout   bool
	DDPAvailable     bool
	ShippingTaxed    bool
	DigitalGoodsVAT  bool
}

// NewConfiguration builds and validates a fresh aggregate. The id comes
// from the caller's generator and now from its clock so the factory
// stays pure. CreatedAt == UpdatedAt on success.
func NewConfiguration(id snowflake.ID, now time.Time, p NewConfigurationParams) (*FiscalConfiguration, error) {
	if p.StoreID == 0 {
		return nil, ErrInvalidStore
	}

	now = now.UTC()
	cfg := &FiscalConfiguration{
		ID:               id,
		StoreID:          p.StoreID,
		FiscalService:    p.FiscalService,
		StandardRate:     p.StandardRate,
		Regions:          cloneRegions(p.Regions),
		ReducedRates:     cloneReducedRates(p.ReducedRates),
		TariffFees:       cloneTariffFees(p.TariffFees),
		CustomsCodes:     cloneCustomsCodes(p.CustomsCodes),
		PriceIncludesTax: p.PriceIncludesTax,
		DutyAtCheckout:   p.DutyAtCheckout,
		DDPAvailable:     p.DDPAvailable,
		ShippingTaxed:    p.ShippingTaxed,
		DigitalGoodsVAT:  p.DigitalGoodsVAT,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Reconstruct rebuilds an aggregate from persisted fields without
// re-running validation; the repository is a trusted source. IsValid
// remains available for integrity audits.
func Reconstruct(cfg FiscalConfiguration) *FiscalConfiguration {
	rebuilt := cfg
	rebuilt.Regions = cloneRegions(cfg.Regions)
	rebuilt.ReducedRates = cloneReducedRates(cfg.ReducedRates)
	rebuilt.TariffFees = cloneTariffFees(cfg.TariffFees)
	rebuilt.CustomsCodes = cloneCustomsCodes(cfg.CustomsCodes)
	return &rebuilt
}

// IsValid reports whether the current state satisfies every invariant.
// It never returns an error and never mutates.
func (c *FiscalConfiguration) IsValid() bool {
	return Validate(c) == nil
}

// CalculateTax returns the tax owed on amount for the region matching
// (country, stateRegion): zero when no region matches or the matched
// region does not collect tax, otherwise amount * rate / 100. Pure
// query; UpdatedAt is untouched.
func (c *FiscalConfiguration) CalculateTax(amount float64, country, stateRegion string) float64 {
	for _, region := range c.Regions {
		if region.Matches(country, stateRegion) {
			if !region.CollectsTax {
				return 0
			}
			return amount * region.StandardRate / 100
		}
	}
	return 0
}

// --- scalar mutators ---

func (c *FiscalConfiguration) ChangeFiscalService(service FiscalService, now time.Time) error {
	return c.apply(now, func(candidate *FiscalConfiguration) error {
		candidate.FiscalService = service
		return nil
	})
}

func (c *FiscalConfiguration) ChangeStandardRate(rate float64, now time.Time) error {
	return c.apply(now, func(candidate *FiscalConfiguration) error {
		candidate.StandardRate = rate
		return nil
	})
}

func (c *FiscalConfiguration) ChangePriceIncludesTax(enabled bool, now time.Time) error {
	return c.apply(now, func(candidate *FiscalConfiguration) error {
		candidate.PriceIncludesTax = enabled
		return nil
	})
}

func (c *FiscalConfiguration) ChangeDutyAtCheckout(enabled bool, now time.Time) error {
	return c.apply(now, func(candidate *FiscalConfiguration) error {
		candidate.DutyAtCheckout = enabled
		return nil
	})
}

func (c *FiscalConfiguration) ChangeDDPAvailable(enabled bool, now time.Time) error {
	return c.apply(now, func(candidate *FiscalConfiguration) error {
		candidate.DDPAvailable = enabled
		return nil
	})
}

func (c *FiscalConfiguration) ChangeShippingTaxed(enabled bool, now time.Time) error {
	return c.apply(now, func(candidate *FiscalConfiguration) error {
		candidate.ShippingTaxed = enabled
		return nil
	})
}

func (c *FiscalConfiguration) ChangeDigitalGoodsVAT(enabled bool, now time.Time) error {
	return c.apply(now, func(candidate *FiscalConfiguration) error {
		candidate.DigitalGoodsVAT = enabled
		return nil
	})
}

// --- region mutators (natural key: country + stateRegion) ---

func (c *FiscalConfiguration) AddRegion(region FiscalRegion, now time.Time) error {
	return c.apply(now, func(candidate *FiscalConfiguration) error {
		if indexOfRegion(candidate.Regions, region.Country, region.StateRegion) >= 0 {
			return newViolation(ErrDuplicateKey, "regions", regionKey(region.Country, region.StateRegion),
				"region already configured")
		}
		candidate.Regions = append(candidate.Regions, region)
		return nil
	})
}

func (c *FiscalConfiguration) UpdateRegion(country, stateRegion string, region FiscalRegion, now time.Time) error {
	return c.apply(now, func(candidate *FiscalConfiguration) error {
		i := indexOfRegion(candidate.Regions, country, stateRegion)
		if i < 0 {
			return newViolation(ErrNotFound, "regions", regionKey(country, stateRegion),
				"region is not configured")
		}
		candidate.Regions[i] = region
		return nil
	})
}

func (c *FiscalConfiguration) RemoveRegion(country, stateRegion string, now time.Time) error {
	return c.apply(now, func(candidate *FiscalConfiguration) error {
		i := indexOfRegion(candidate.Regions, country, stateRegion)
		if i < 0 {
			return newViolation(ErrNotFound, "regions", regionKey(country, stateRegion),
				"region is not configured")
		}
		candidate.Regions = append(candidate.Regions[:i], candidate.Regions[i+1:]...)
		return nil
	})
}

// --- reduced-rate mutators (natural key: description) ---

func (c *FiscalConfiguration) AddReducedRate(rate ReducedRate, now time.Time) error {
	return c.apply(now, func(candidate *FiscalConfiguration) error {
		if indexOfReducedRate(candidate.ReducedRates, rate.Description) >= 0 {
			return newViolation(ErrDuplicateKey, "reduced_rates", rate.Description,
				"reduced rate already configured")
		}
		candidate.ReducedRates = append(candidate.ReducedRates, cloneReducedRate(rate))
		return nil
	})
}

func (c *FiscalConfiguration) UpdateReducedRate(description string, rate ReducedRate, now time.Time) error {
	return c.apply(now, func(candidate *FiscalConfiguration) error {
		i := indexOfReducedRate(candidate.ReducedRates, description)
		if i < 0 {
			return newViolation(ErrNotFound, "reduced_rates", description,
				"reduced rate is not configured")
		}
		candidate.ReducedRates[i] = cloneReducedRate(rate)
		return nil
	})
}

func (c *FiscalConfiguration) RemoveReducedRate(description string, now time.Time) error {
	return c.apply(now, func(candidate *FiscalConfiguration) error {
		i := indexOfReducedRate(candidate.ReducedRates, description)
		if i < 0 {
			return newViolation(ErrNotFound, "reduced_rates", description,
				"reduced rate is not configured")
		}
		candidate.ReducedRates = append(candidate.ReducedRates[:i], candidate.ReducedRates[i+1:]...)
		return nil
	})
}

// --- tariff-fee mutators (tariff fees have no natural key; positional) ---

func (c *FiscalConfiguration) AddTariffFee(fee TariffRate, now time.Time) error {
	return c.apply(now, func(candidate *FiscalConfiguration) error {
		candidate.TariffFees = append(candidate.TariffFees, cloneTariffFee(fee))
		return nil
	})
}

func (c *FiscalConfiguration) UpdateTariffFee(index int, fee TariffRate, now time.Time) error {
	return c.apply(now, func(candidate *FiscalConfiguration) error {
		if index < 0 || index >= len(candidate.TariffFees) {
			return newViolation(ErrNotFound, "tariff_fees", fmt.Sprintf("%d", index),
				"tariff fee index out of range")
		}
		candidate.TariffFees[index] = cloneTariffFee(fee)
		return nil
	})
}

func (c *FiscalConfiguration) RemoveTariffFee(index int, now time.Time) error {
	return c.apply(now, func(candidate *FiscalConfiguration) error {
		if index < 0 || index >= len(candidate.TariffFees) {
			return newViolation(ErrNotFound, "tariff_fees", fmt.Sprintf("%d", index),
				"tariff fee index out of range")
		}
		candidate.TariffFees = append(candidate.TariffFees[:index], candidate.TariffFees[index+1:]...)
		return nil
	})
}

// --- customs-code mutators (natural key: harmonized code) ---

func (c *FiscalConfiguration) AddCustomsCode(code CustomsCode, now time.Time) error {
	return c.apply(now, func(candidate *FiscalConfiguration) error {
		if indexOfCustomsCode(candidate.CustomsCodes, code.HarmonizedCode) >= 0 {
			return newViolation(ErrDuplicateKey, "customs_codes", code.HarmonizedCode,
				"customs code already configured")
		}
		candidate.CustomsCodes = append(candidate.CustomsCodes, cloneCustomsCode(code))
		return nil
	})
}

func (c *FiscalConfiguration) UpdateCustomsCode(harmonizedCode string, code CustomsCode, now time.Time) error {
	return c.apply(now, func(candidate *FiscalConfiguration) error {
		i := indexOfCustomsCode(candidate.CustomsCodes, harmonizedCode)
		if i < 0 {
			return newViolation(ErrNotFound, "customs_codes", harmonizedCode,
				"customs code is not configured")
		}
		candidate.CustomsCodes[i] = cloneCustomsCode(code)
		return nil
	})
}

func (c *FiscalConfiguration) RemoveCustomsCode(harmonizedCode string, now time.Time) error {
	return c.apply(now, func(candidate *FiscalConfiguration) error {
		i := indexOfCustomsCode(candidate.CustomsCodes, harmonizedCode)
		if i < 0 {
			return newViolation(ErrNotFound, "customs_codes", harmonizedCode,
				"customs code is not configured")
		}
		candidate.CustomsCodes = append(candidate.CustomsCodes[:i], candidate.CustomsCodes[i+1:]...)
		return nil
	})
}

// apply runs mutate against a deep clone, validates the whole candidate
// state, and commits only on success. On any failure the receiver is
// left byte-for-byte unchanged.
func (c *FiscalConfiguration) apply(now time.Time, mutate func(candidate *FiscalConfiguration) error) error {
	candidate := Reconstruct(*c)
	if err := mutate(candidate); err != nil {
		return err
	}
	if err := Validate(candidate); err != nil {
		return err
	}
	candidate.UpdatedAt = now.UTC()
	*c = *candidate
	return nil
}

// --- defensive-copy accessors ---

// CopyRegions returns a copy of the region collection; mutating it does
// not affect the aggregate.
func (c *FiscalConfiguration) CopyRegions() []FiscalRegion { return cloneRegions(c.Regions) }

func (c *FiscalConfiguration) CopyReducedRates() []ReducedRate {
	return cloneReducedRates(c.ReducedRates)
}

func (c *FiscalConfiguration) CopyTariffFees() []TariffRate { return cloneTariffFees(c.TariffFees) }

func (c *FiscalConfiguration) CopyCustomsCodes() []CustomsCode {
	return cloneCustomsCodes(c.CustomsCodes)
}

// --- lookup and clone helpers ---

func indexOfRegion(regions []FiscalRegion, country, stateRegion string) int {
	for i, region := range regions {
		if region.Matches(country, stateRegion) {
			return i
		}
	}
	return -1
}

func indexOfReducedRate(rates []ReducedRate, description string) int {
	for i, rate := range rates {
		if strings.EqualFold(strings.TrimSpace(rate.Description), strings.TrimSpace(description)) {
			return i
		}
	}
	return -1
}

func indexOfCustomsCode(codes []CustomsCode, harmonizedCode string) int {
	for i, code := range codes {
		if code.HarmonizedCode == harmonizedCode {
			return i
		}
	}
	return -1
}

func cloneRegions(regions []FiscalRegion) []FiscalRegion {
	if regions == nil {
		return []FiscalRegion{}
	}
	out := make([]FiscalRegion, len(regions))
	copy(out, regions)
	return out
}

func cloneReducedRates(rates []ReducedRate) []ReducedRate {
	out := make([]ReducedRate, len(rates))
	for i, rate := range rates {
		out[i] = cloneReducedRate(rate)
	}
	return out
}

func cloneReducedRate(rate ReducedRate) ReducedRate {
	cloned := rate
	if rate.Categories != nil {
		cloned.Categories = append([]string(nil), rate.Categories...)
	}
	return cloned
}

func cloneTariffFees(fees []TariffRate) []TariffRate {
	out := make([]TariffRate, len(fees))
	for i, fee := range fees {
		out[i] = cloneTariffFee(fee)
	}
	return out
}

func cloneTariffFee(fee TariffRate) TariffRate {
	cloned := fee
	if fee.Condition != nil {
		condition := *fee.Condition
		cloned.Condition = &condition
	}
	if fee.DestinationCountries != nil {
		cloned.DestinationCountries = append([]string(nil), fee.DestinationCountries...)
	}
	return cloned
}

func cloneCustomsCodes(codes []CustomsCode) []CustomsCode {
	out := make([]CustomsCode, len(codes))
	for i, code := range codes {
		out[i] = cloneCustomsCode(code)
	}
	return out
}

func cloneCustomsCode(code CustomsCode) CustomsCode {
	cloned := code
	if code.VariantID != nil {
		variantID := *code.VariantID
		cloned.VariantID = &variantID
	}
	return cloned
}
