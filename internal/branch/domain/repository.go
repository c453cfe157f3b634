package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, branch *Branch) error
	FindByID(ctx context.Context, db *gorm.DB, storeID, id int64) (*Branch, error)
	FindBySlug(ctx context.Context, db *gorm.DB, storeID int64, slug string) (*Branch, error)
	List(ctx context.Context, db *gorm.DB, storeID int64, filter ListRequest) ([]Branch, error)
	Update(ctx context.Context, db *gorm.DB, branch *Branch) error
	ClearDefault(ctx context.Context, db *gorm.DB, storeID int64) error
	Delete(ctx context.Context, db *gorm.DB, storeID, id int64) error
	CountByStore(ctx context.Context, db *gorm.DB, storeID int64) (int64, error)
}
