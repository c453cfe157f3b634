package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, plan *Plan) error
	FindByID(ctx context.Context, db *gorm.DB, storeID, id int64) (*Plan, error)
	FindByCode(ctx context.Context, db *gorm.DB, storeID int64, code string) (*Plan, error)
	List(ctx context.Context, db *gorm.DB, storeID int64, filter ListRequest) ([]Plan, error)
	Update(ctx context.Context, db *gorm.DB, plan *Plan) error
}
