package repository

import (
	"context"
	"strconv"

	plandomain "github.com/smallbiznis/mercato/internal/plan/domain"
	"github.com/smallbiznis/mercato/pkg/db/option"
	"github.com/smallbiznis/mercato/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() plandomain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, plan *plandomain.Plan) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO plans (id, store_id, code, name, description, "interval", price_cents, currency, trial_days, features, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		plan.ID,
		plan.StoreID,
		plan.Code,
		plan.Name,
		plan.Description,
		plan.Interval,
		plan.PriceCents,
		plan.Currency,
		plan.TrialDays,
		plan.Features,
		plan.Active,
		plan.CreatedAt,
		plan.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, storeID, id int64) (*plandomain.Plan, error) {
	var p plandomain.Plan
	err := db.WithContext(ctx).
		Where("store_id = ? AND id = ?", storeID, id).
		First(&p).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, storeID int64, code string) (*plandomain.Plan, error) {
	var p plandomain.Plan
	err := db.WithContext(ctx).
		Where("store_id = ? AND code = ?", storeID, code).
		First(&p).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, storeID int64, filter plandomain.ListRequest) ([]plandomain.Plan, error) {
	var items []plandomain.Plan
	stmt := db.WithContext(ctx).
		Model(&plandomain.Plan{}).
		Where("store_id = ?", storeID)

	if filter.Interval != "" {
		stmt = stmt.Where(`"interval" = ?`, filter.Interval)
	}
	if filter.Active != nil {
		stmt = stmt.Where("active = ?", *filter.Active)
	}

	if filter.PageToken != "" {
		cursor, err := pagination.DecodeCursor(filter.PageToken)
		if err != nil {
			return nil, err
		}
		if id, err := strconv.ParseInt(cursor.LastID, 10, 64); err == nil {
			stmt = stmt.Where("id > ?", id)
		}
		stmt = stmt.Order("id ASC")
	} else if filter.SortBy != "" {
		stmt = option.WithSortBy(option.WithQuerySortBy(filter.SortBy, filter.OrderBy, map[string]bool{
			"created_at":  true,
			"updated_at":  true,
			"name":        true,
			"price_cents": true,
		})).Apply(stmt)
	} else {
		// Keyset pagination walks ids ascending; the first page has to
		// use the same order.
		stmt = stmt.Order("id ASC")
	}

	if filter.PageSize > 0 {
		// One extra row so the caller can tell whether more pages exist.
		stmt = stmt.Limit(filter.PageSize + 1)
	}

	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, plan *plandomain.Plan) error {
	if plan == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE plans
		 SET name = ?, description = ?, price_cents = ?, trial_days = ?, features = ?, active = ?, updated_at = ?
		 WHERE store_id = ? AND id = ?`,
		plan.Name,
		plan.Description,
		plan.PriceCents,
		plan.TrialDays,
		plan.Features,
		plan.Active,
		plan.UpdatedAt,
		plan.StoreID,
		plan.ID,
	).Error
}
