package domain

import (
	"errors"
	"fmt"
)

// Kind sentinels. errors.Is against these works for both bare sentinels
// and *Violation values raised by the validator and the mutators.
var (
	ErrInvalidEnumValue       = errors.New("invalid_enum_value")
	ErrEmptyRegionList        = errors.New("empty_region_list")
	ErrDuplicateKey           = errors.New("duplicate_key")
	ErrOutOfRangeRate         = errors.New("out_of_range_rate")
	ErrMalformedCustomsCode   = errors.New("malformed_customs_code")
	ErrInconsistentTariffFee  = errors.New("inconsistent_tariff_fee")
	ErrPriceInclusionConflict = errors.New("price_inclusion_conflict")
	ErrNotFound               = errors.New("not_found")
	ErrAlreadyExists          = errors.New("already_exists")

	ErrInvalidStore = errors.New("invalid_store")
	ErrInvalidID    = errors.New("invalid_id")
)

// Violation is a single invariant failure: which rule broke, on which
// field, and the offending natural key or value. The validator raises
// the first violation found and never aggregates several into one.
type Violation struct {
	kind    error
	Field   string
	Key     string
	Message string
}

func newViolation(kind error, field, key, format string, args ...any) *Violation {
	return &Violation{
		kind:    kind,
		Field:   field,
		Key:     key,
		Message: fmt.Sprintf(format, args...),
	}
}

// Code returns the machine-readable violation code (the sentinel text).
func (v *Violation) Code() string { return v.kind.Error() }

func (v *Violation) Error() string {
	if v.Key != "" {
		return fmt.Sprintf("%s: %s (%s=%q)", v.kind.Error(), v.Message, v.Field, v.Key)
	}
	if v.Field != "" {
		return fmt.Sprintf("%s: %s (%s)", v.kind.Error(), v.Message, v.Field)
	}
	return fmt.Sprintf("%s: %s", v.kind.Error(), v.Message)
}

func (v *Violation) Unwrap() error { return v.kind }
