package domain

import "time"

// Branch is a physical or logical store location. Slug is unique within
// the store; exactly one branch per store is the default.
type Branch struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	StoreID   int64     `json:"store_id" gorm:"column:store_id;not null;index:ux_branches_store_slug,priority:1"`
	Name      string    `json:"name" gorm:"type:text;not null"`
	Slug      string    `json:"slug" gorm:"type:text;not null;index:ux_branches_store_slug,priority:2"`
	Country   string    `json:"country" gorm:"type:text;not null"`
	City      string    `json:"city" gorm:"type:text"`
	Address   string    `json:"address" gorm:"type:text"`
	IsDefault bool      `json:"is_default" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Branch) TableName() string { return "branches" }
