package repository

import (
	"context"

	branchdomain "github.com/smallbiznis/mercato/internal/branch/domain"
	"github.com/smallbiznis/mercato/pkg/db/option"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() branchdomain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, branch *branchdomain.Branch) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO branches (id, store_id, name, slug, country, city, address, is_default, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		branch.ID,
		branch.StoreID,
		branch.Name,
		branch.Slug,
		branch.Country,
		branch.City,
		branch.Address,
		branch.IsDefault,
		branch.CreatedAt,
		branch.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, storeID, id int64) (*branchdomain.Branch, error) {
	var b branchdomain.Branch
	err := db.WithContext(ctx).
		Where("store_id = ? AND id = ?", storeID, id).
		First(&b).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func (r *repo) FindBySlug(ctx context.Context, db *gorm.DB, storeID int64, slug string) (*branchdomain.Branch, error) {
	var b branchdomain.Branch
	err := db.WithContext(ctx).
		Where("store_id = ? AND slug = ?", storeID, slug).
		First(&b).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, storeID int64, filter branchdomain.ListRequest) ([]branchdomain.Branch, error) {
	var items []branchdomain.Branch
	stmt := db.WithContext(ctx).
		Model(&branchdomain.Branch{}).
		Where("store_id = ?", storeID)

	if filter.Country != "" {
		stmt = stmt.Where("country = ?", filter.Country)
	}

	stmt = option.WithSortBy(option.WithQuerySortBy(filter.SortBy, filter.OrderBy, map[string]bool{
		"created_at": true,
		"updated_at": true,
		"name":       true,
	})).Apply(stmt)

	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, branch *branchdomain.Branch) error {
	if branch == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE branches
		 SET name = ?, slug = ?, country = ?, city = ?, address = ?, is_default = ?, updated_at = ?
		 WHERE store_id = ? AND id = ?`,
		branch.Name,
		branch.Slug,
		branch.Country,
		branch.City,
		branch.Address,
		branch.IsDefault,
		branch.UpdatedAt,
		branch.StoreID,
		branch.ID,
	).Error
}

func (r *repo) ClearDefault(ctx context.Context, db *gorm.DB, storeID int64) error {
	return db.WithContext(ctx).Exec(
		`UPDATE branches SET is_default = ? WHERE store_id = ? AND is_default = ?`,
		false, storeID, true,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, storeID, id int64) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM branches WHERE store_id = ? AND id = ?`,
		storeID, id,
	).Error
}

func (r *repo) CountByStore(ctx context.Context, db *gorm.DB, storeID int64) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&branchdomain.Branch{}).
		Where("store_id = ?", storeID).
		Count(&count).Error
	return count, err
}
