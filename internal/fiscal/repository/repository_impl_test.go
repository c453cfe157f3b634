package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	fiscaldomain "github.com/smallbiznis/mercato/internal/fiscal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestRepo(t *testing.T) (fiscaldomain.Repository, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&fiscaldomain.FiscalConfiguration{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewRepository(db), node
}

func seedConfig(t *testing.T, repo fiscaldomain.Repository, node *snowflake.Node, service fiscaldomain.FiscalService, country string, rate float64) *fiscaldomain.FiscalConfiguration {
	t.Helper()

	cfg, err := fiscaldomain.NewConfiguration(node.Generate(), time.Now(), fiscaldomain.NewConfigurationParams{
		StoreID:       node.Generate(),
		FiscalService: service,
		StandardRate:  rate,
		Regions: []fiscaldomain.FiscalRegion{
			{Country: country, TaxType: fiscaldomain.TaxTypeVAT, CollectsTax: true, StandardRate: rate},
		},
	})
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), cfg))
	return cfg
}

func TestRepository_RoundTrip(t *testing.T) {
	repo, node := newTestRepo(t)
	ctx := context.Background()

	seeded := seedConfig(t, repo, node, fiscaldomain.FiscalServiceBasicTax, "Peru", 18)

	found, err := repo.FindByStoreID(ctx, seeded.StoreID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, seeded.ID, found.ID)
	assert.Equal(t, seeded.Regions, found.Regions)

	exists, err := repo.ExistsByStoreID(ctx, seeded.StoreID)
	require.NoError(t, err)
	assert.True(t, exists)

	missing, err := repo.FindByStoreID(ctx, node.Generate())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepository_Update(t *testing.T) {
	repo, node := newTestRepo(t)
	ctx := context.Background()

	seeded := seedConfig(t, repo, node, fiscaldomain.FiscalServiceBasicTax, "Peru", 18)

	require.NoError(t, seeded.ChangeStandardRate(21, time.Now()))
	require.NoError(t, repo.Update(ctx, seeded))

	found, err := repo.FindByStoreID(ctx, seeded.StoreID)
	require.NoError(t, err)
	assert.Equal(t, 21.0, found.StandardRate)
	assert.Equal(t, seeded.CreatedAt.Unix(), found.CreatedAt.Unix())
}

func TestRepository_Delete(t *testing.T) {
	repo, node := newTestRepo(t)
	ctx := context.Background()

	seeded := seedConfig(t, repo, node, fiscaldomain.FiscalServiceBasicTax, "Peru", 18)

	require.NoError(t, repo.DeleteByStoreID(ctx, seeded.StoreID))

	exists, err := repo.ExistsByStoreID(ctx, seeded.StoreID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRepository_FindByCriteria(t *testing.T) {
	repo, node := newTestRepo(t)
	ctx := context.Background()

	seedConfig(t, repo, node, fiscaldomain.FiscalServiceBasicTax, "Peru", 18)
	seedConfig(t, repo, node, fiscaldomain.FiscalServiceManual, "Germany", 19)
	seedConfig(t, repo, node, fiscaldomain.FiscalServiceManual, "Singapore", 9)

	items, err := repo.FindByCriteria(ctx, fiscaldomain.ListFilter{
		FiscalService: fiscaldomain.FiscalServiceManual,
	})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	items, err = repo.FindByCriteria(ctx, fiscaldomain.ListFilter{Country: "germany"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Germany", items[0].Regions[0].Country)

	items, err = repo.FindByCriteria(ctx, fiscaldomain.ListFilter{
		SortBy:  "standard_rate",
		OrderBy: "asc",
	})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, 9.0, items[0].StandardRate)
	assert.Equal(t, 19.0, items[2].StandardRate)
}

func TestRepository_ApplicableRates(t *testing.T) {
	repo, node := newTestRepo(t)
	ctx := context.Background()

	seeded := seedConfig(t, repo, node, fiscaldomain.FiscalServiceBasicTax, "Peru", 18)

	rates, err := repo.ApplicableRates(ctx, seeded.StoreID, "peru", "")
	require.NoError(t, err)
	require.Len(t, rates, 1)
	assert.Equal(t, 18.0, rates[0].StandardRate)

	rates, err = repo.ApplicableRates(ctx, seeded.StoreID, "France", "")
	require.NoError(t, err)
	assert.Empty(t, rates)

	rates, err = repo.ApplicableRates(ctx, node.Generate(), "peru", "")
	require.NoError(t, err)
	assert.Nil(t, rates)
}
