package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	fiscaldomain "github.com/smallbiznis/mercato/internal/fiscal/domain"
	"github.com/smallbiznis/mercato/pkg/db/option"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) fiscaldomain.Repository {
	return &repository{db: db}
}

func (r *repository) FindByStoreID(ctx context.Context, storeID snowflake.ID) (*fiscaldomain.FiscalConfiguration, error) {
	var cfg fiscaldomain.FiscalConfiguration
	err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		First(&cfg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return fiscaldomain.Reconstruct(cfg), nil
}

func (r *repository) ExistsByStoreID(ctx context.Context, storeID snowflake.ID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&fiscaldomain.FiscalConfiguration{}).
		Where("store_id = ?", storeID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) Create(ctx context.Context, cfg *fiscaldomain.FiscalConfiguration) error {
	return r.db.WithContext(ctx).Create(cfg).Error
}

// Update is a plain full-row write; there is no optimistic-concurrency
// guard, so concurrent updates to the same store resolve last writer
// wins.
func (r *repository) Update(ctx context.Context, cfg *fiscaldomain.FiscalConfiguration) error {
	return r.db.WithContext(ctx).
		Model(&fiscaldomain.FiscalConfiguration{}).
		Where("store_id = ?", cfg.StoreID).
		Select("*").
		Omit("id", "store_id", "created_at").
		Updates(cfg).Error
}

func (r *repository) DeleteByStoreID(ctx context.Context, storeID snowflake.ID) error {
	return r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Delete(&fiscaldomain.FiscalConfiguration{}).Error
}

func (r *repository) FindByCriteria(ctx context.Context, filter fiscaldomain.ListFilter) ([]fiscaldomain.FiscalConfiguration, error) {
	var items []fiscaldomain.FiscalConfiguration
	stmt := r.db.WithContext(ctx).Model(&fiscaldomain.FiscalConfiguration{})

	if filter.FiscalService != "" {
		stmt = stmt.Where("fiscal_service = ?", filter.FiscalService)
	}
	if filter.PriceIncludesTax != nil {
		stmt = stmt.Where("price_includes_tax = ?", *filter.PriceIncludesTax)
	}

	stmt = option.WithSortBy(option.WithQuerySortBy(filter.SortBy, filter.OrderBy, map[string]bool{
		"created_at":    true,
		"updated_at":    true,
		"standard_rate": true,
	})).Apply(stmt)

	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}

	// Region filtering happens over the JSON collection after load;
	// expected collection sizes are tens of entries per aggregate.
	if filter.Country == "" {
		return items, nil
	}
	filtered := make([]fiscaldomain.FiscalConfiguration, 0, len(items))
	for _, item := range items {
		for _, region := range item.Regions {
			if strings.EqualFold(strings.TrimSpace(region.Country), strings.TrimSpace(filter.Country)) {
				filtered = append(filtered, item)
				break
			}
		}
	}
	return filtered, nil
}

func (r *repository) ApplicableRates(ctx context.Context, storeID snowflake.ID, country, stateRegion string) ([]fiscaldomain.ApplicableRate, error) {
	cfg, err := r.FindByStoreID(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, nil
	}

	rates := make([]fiscaldomain.ApplicableRate, 0, len(cfg.Regions))
	for _, region := range cfg.Regions {
		if country != "" && !region.Matches(country, stateRegion) {
			continue
		}
		rates = append(rates, fiscaldomain.ApplicableRate{
			Country:      region.Country,
			StateRegion:  region.StateRegion,
			TaxType:      region.TaxType,
			CollectsTax:  region.CollectsTax,
			StandardRate: region.StandardRate,
			ReducedRates: cfg.CopyReducedRates(),
		})
	}
	return rates, nil
}
