package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// Harmonized-System code: 4-6 digits, optionally a dot and 2-4 digits.
var harmonizedCodePattern = regexp.MustCompile(`^\d{4,6}(\.\d{2,4})?$`)

// Validate checks the full proposed aggregate state against every
// invariant, in a fixed order, and returns the first violation found.
// It is pure: no I/O, no mutation, so it runs both at construction and
// after every mutating call.
func Validate(cfg *FiscalConfiguration) error {
	if !cfg.FiscalService.Valid() {
		return newViolation(ErrInvalidEnumValue, "fiscal_service", string(cfg.FiscalService),
			"unknown fiscal service")
	}

	if len(cfg.Regions) == 0 {
		return newViolation(ErrEmptyRegionList, "regions", "",
			"at least one fiscal region must be configured")
	}

	for i, region := range cfg.Regions {
		for _, other := range cfg.Regions[:i] {
			if other.Matches(region.Country, region.StateRegion) {
				return newViolation(ErrDuplicateKey, "regions", regionKey(region.Country, region.StateRegion),
					"region already configured")
			}
		}
	}

	for _, region := range cfg.Regions {
		if !region.TaxType.Valid() {
			return newViolation(ErrInvalidEnumValue, "regions.tax_type", string(region.TaxType),
				"unknown tax type")
		}
		if region.StandardRate < 0 || region.StandardRate > 100 {
			return newViolation(ErrOutOfRangeRate, "regions.standard_rate", regionKey(region.Country, region.StateRegion),
				"region standard rate must be within [0,100], got %v", region.StandardRate)
		}
	}

	if cfg.StandardRate < 0 || cfg.StandardRate > 100 {
		return newViolation(ErrOutOfRangeRate, "standard_rate", "",
			"standard rate must be within [0,100], got %v", cfg.StandardRate)
	}

	for _, rate := range cfg.ReducedRates {
		if rate.Percentage < 0 || rate.Percentage >= 100 {
			return newViolation(ErrOutOfRangeRate, "reduced_rates.percentage", rate.Description,
				"reduced rate must be within [0,100), got %v", rate.Percentage)
		}
		if rate.Percentage >= cfg.StandardRate {
			return newViolation(ErrOutOfRangeRate, "reduced_rates.percentage", rate.Description,
				"reduced rate %v must be strictly below the standard rate %v", rate.Percentage, cfg.StandardRate)
		}
	}

	for i, rate := range cfg.ReducedRates {
		for _, other := range cfg.ReducedRates[:i] {
			if other.Percentage == rate.Percentage {
				return newViolation(ErrDuplicateKey, "reduced_rates.percentage", fmt.Sprintf("%v", rate.Percentage),
					"another reduced rate already uses this percentage")
			}
			if strings.EqualFold(strings.TrimSpace(other.Description), strings.TrimSpace(rate.Description)) {
				return newViolation(ErrDuplicateKey, "reduced_rates.description", rate.Description,
					"another reduced rate already uses this description")
			}
		}
	}

	for i, fee := range cfg.TariffFees {
		if !fee.Type.Valid() {
			return newViolation(ErrInvalidEnumValue, "tariff_fees.type", string(fee.Type),
				"unknown tariff type")
		}
		if fee.Amount < 0 {
			return newViolation(ErrInconsistentTariffFee, "tariff_fees.amount", fmt.Sprintf("%d", i),
				"tariff amount must not be negative")
		}
		if fee.Type == TariffTypeFixed && fee.Amount <= 0 {
			return newViolation(ErrInconsistentTariffFee, "tariff_fees.amount", fmt.Sprintf("%d", i),
				"fixed tariff fee requires an amount greater than zero")
		}
		if fee.Type == TariffTypeComputed && (fee.Condition == nil || strings.TrimSpace(*fee.Condition) == "") {
			return newViolation(ErrInconsistentTariffFee, "tariff_fees.condition", fmt.Sprintf("%d", i),
				"computed tariff fee requires a condition")
		}
	}

	for i, code := range cfg.CustomsCodes {
		if !harmonizedCodePattern.MatchString(code.HarmonizedCode) {
			return newViolation(ErrMalformedCustomsCode, "customs_codes.harmonized_code", code.HarmonizedCode,
				"harmonized code must be 4-6 digits, optionally followed by a dot and 2-4 digits")
		}
		for _, other := range cfg.CustomsCodes[:i] {
			if other.HarmonizedCode == code.HarmonizedCode {
				return newViolation(ErrDuplicateKey, "customs_codes.harmonized_code", code.HarmonizedCode,
					"customs code already configured")
			}
		}
	}

	if cfg.PriceIncludesTax {
		if len(cfg.Regions) == 0 {
			return newViolation(ErrPriceInclusionConflict, "price_includes_tax", "",
				"including tax in prices requires at least one fiscal region")
		}
		if len(cfg.ReducedRates) > 0 {
			return newViolation(ErrPriceInclusionConflict, "price_includes_tax", "",
				"including tax in prices is incompatible with reduced rates")
		}
	}

	return nil
}

func regionKey(country, stateRegion string) string {
	return strings.TrimSpace(country) + "/" + strings.TrimSpace(stateRegion)
}
