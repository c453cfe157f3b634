package domain

import (
	"time"

	"gorm.io/datatypes"
)

// PlanInterval is the billing period a subscription plan renews on.
type PlanInterval string

const (
	PlanIntervalMonthly PlanInterval = "monthly"
	PlanIntervalYearly  PlanInterval = "yearly"
)

func (i PlanInterval) Valid() bool {
	switch i {
	case PlanIntervalMonthly, PlanIntervalYearly:
		return true
	}
	return false
}

type Plan struct {
	ID          int64                       `json:"id" gorm:"primaryKey"`
	StoreID     int64                       `json:"store_id" gorm:"column:store_id;not null;index:ux_plans_store_code,priority:1"`
	Code        string                      `json:"code" gorm:"type:text;not null;index:ux_plans_store_code,priority:2"`
	Name        string                      `json:"name" gorm:"type:text;not null"`
	Description *string                     `json:"description,omitempty" gorm:"type:text"`
	Interval    PlanInterval                `json:"interval" gorm:"type:text;not null"`
	PriceCents  int64                       `json:"price_cents" gorm:"not null;default:0"`
	Currency    string                      `json:"currency" gorm:"type:text;not null;default:'USD'"`
	TrialDays   int                         `json:"trial_days" gorm:"not null;default:0"`
	Features    datatypes.JSONSlice[string] `json:"features,omitempty"`
	Active      bool                        `json:"active" gorm:"not null;default:true"`
	CreatedAt   time.Time                   `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time                   `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Plan) TableName() string { return "plans" }
