package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/mercato/internal/cache"
	"github.com/smallbiznis/mercato/internal/clock"
	"github.com/smallbiznis/mercato/internal/config"
	fiscaldomain "github.com/smallbiznis/mercato/internal/fiscal/domain"
	"github.com/smallbiznis/mercato/internal/fiscal/repository"
	"github.com/smallbiznis/mercato/internal/storecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	svc     fiscaldomain.Service
	db      *gorm.DB
	node    *snowflake.Node
	clock   *clock.FakeClock
	storeID snowflake.ID
	ctx     context.Context
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	// 1. Setup DB
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&fiscaldomain.FiscalConfiguration{})
	require.NoError(t, err)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fakeClock := clock.NewFakeClock(time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC))

	svc := NewService(Params{
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fakeClock,
		Repo:  repository.NewRepository(db),
		Cache: cache.NewFiscalConfigCache(),
	})

	storeID := node.Generate()
	return &testEnv{
		svc:     svc,
		db:      db,
		node:    node,
		clock:   fakeClock,
		storeID: storeID,
		ctx:     storecontext.WithStoreID(context.Background(), storeID),
	}
}

func baseCreateRequest() fiscaldomain.CreateRequest {
	return fiscaldomain.CreateRequest{
		FiscalService: fiscaldomain.FiscalServiceBasicTax,
		StandardRate:  18,
		Regions: []fiscaldomain.FiscalRegion{
			{Country: "Peru", StateRegion: "Lima", TaxType: fiscaldomain.TaxTypeVAT, CollectsTax: true, StandardRate: 18},
			{Country: "United States", StateRegion: "Oregon", TaxType: fiscaldomain.TaxTypeSalesTax, CollectsTax: false},
		},
	}
}

func TestService_CreateAndGet(t *testing.T) {
	env := newTestEnv(t)

	created, err := env.svc.Create(env.ctx, baseCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, env.storeID.String(), created.StoreID)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)
	assert.Len(t, created.Regions, 2)

	got, err := env.svc.Get(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.Regions, got.Regions)
}

func TestService_Create_Duplicate(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Create(env.ctx, baseCreateRequest())
	require.NoError(t, err)

	_, err = env.svc.Create(env.ctx, baseCreateRequest())
	assert.ErrorIs(t, err, fiscaldomain.ErrAlreadyExists)
}

func TestService_Create_RejectsInvalidState(t *testing.T) {
	env := newTestEnv(t)

	req := baseCreateRequest()
	req.Regions = nil

	_, err := env.svc.Create(env.ctx, req)
	assert.ErrorIs(t, err, fiscaldomain.ErrEmptyRegionList)

	var count int64
	env.db.Model(&fiscaldomain.FiscalConfiguration{}).Count(&count)
	assert.Zero(t, count)
}

func TestService_RequiresStoreContext(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Create(context.Background(), baseCreateRequest())
	assert.ErrorIs(t, err, fiscaldomain.ErrInvalidStore)

	_, err = env.svc.Get(context.Background())
	assert.ErrorIs(t, err, fiscaldomain.ErrInvalidStore)
}

func TestService_Get_NotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Get(env.ctx)
	assert.ErrorIs(t, err, fiscaldomain.ErrNotFound)
}

func TestService_Update_PartialScalars(t *testing.T) {
	env := newTestEnv(t)

	created, err := env.svc.Create(env.ctx, baseCreateRequest())
	require.NoError(t, err)

	env.clock.Advance(time.Hour)

	rate := 21.0
	shipping := true
	updated, err := env.svc.Update(env.ctx, fiscaldomain.UpdateRequest{
		StandardRate:  &rate,
		ShippingTaxed: &shipping,
	})
	require.NoError(t, err)

	assert.Equal(t, 21.0, updated.StandardRate)
	assert.True(t, updated.ShippingTaxed)
	// Absent fields keep their value.
	assert.Equal(t, created.FiscalService, updated.FiscalService)
	assert.False(t, updated.DutyAtCheckout)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	// Persisted, not just in-memory.
	got, err := env.svc.Get(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 21.0, got.StandardRate)
}

func TestService_Update_InvalidValueWritesNothing(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Create(env.ctx, baseCreateRequest())
	require.NoError(t, err)

	rate := 150.0
	_, err = env.svc.Update(env.ctx, fiscaldomain.UpdateRequest{StandardRate: &rate})
	assert.ErrorIs(t, err, fiscaldomain.ErrOutOfRangeRate)

	got, err := env.svc.Get(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 18.0, got.StandardRate)
}

func TestService_CalculateTax(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Create(env.ctx, baseCreateRequest())
	require.NoError(t, err)

	resp, err := env.svc.CalculateTax(env.ctx, fiscaldomain.CalculateTaxRequest{
		Amount: 100, Country: "peru", StateRegion: "lima",
	})
	require.NoError(t, err)
	assert.InDelta(t, 18.0, resp.Tax, 1e-9)

	resp, err = env.svc.CalculateTax(env.ctx, fiscaldomain.CalculateTaxRequest{
		Amount: 100, Country: "United States", StateRegion: "Oregon",
	})
	require.NoError(t, err)
	assert.Zero(t, resp.Tax)

	resp, err = env.svc.CalculateTax(env.ctx, fiscaldomain.CalculateTaxRequest{
		Amount: 100, Country: "France",
	})
	require.NoError(t, err)
	assert.Zero(t, resp.Tax)
}

func TestService_CollectionMutations(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Create(env.ctx, baseCreateRequest())
	require.NoError(t, err)

	resp, err := env.svc.AddRegion(env.ctx, fiscaldomain.FiscalRegion{
		Country: " Germany ", TaxType: "VAT", CollectsTax: true, StandardRate: 19,
	})
	require.NoError(t, err)
	assert.Len(t, resp.Regions, 3)
	// Normalized on the way in.
	assert.Equal(t, "Germany", resp.Regions[2].Country)
	assert.Equal(t, fiscaldomain.TaxTypeVAT, resp.Regions[2].TaxType)

	_, err = env.svc.AddRegion(env.ctx, fiscaldomain.FiscalRegion{
		Country: "germany", TaxType: fiscaldomain.TaxTypeVAT, CollectsTax: true, StandardRate: 19,
	})
	assert.ErrorIs(t, err, fiscaldomain.ErrDuplicateKey)

	resp, err = env.svc.AddReducedRate(env.ctx, fiscaldomain.ReducedRate{
		Description: "Books", Percentage: 10,
	})
	require.NoError(t, err)
	assert.Len(t, resp.ReducedRates, 1)

	resp, err = env.svc.AddCustomsCode(env.ctx, fiscaldomain.CustomsCode{
		OriginCountry: "CN", HarmonizedCode: " 8471.30 ", Description: "Laptops",
	})
	require.NoError(t, err)
	assert.Equal(t, "8471.30", resp.CustomsCodes[0].HarmonizedCode)

	resp, err = env.svc.RemoveRegion(env.ctx, "Germany", "")
	require.NoError(t, err)
	assert.Len(t, resp.Regions, 2)

	// Everything above survives a cold read.
	got, err := env.svc.Get(env.ctx)
	require.NoError(t, err)
	assert.Len(t, got.Regions, 2)
	assert.Len(t, got.ReducedRates, 1)
	assert.Len(t, got.CustomsCodes, 1)
}

func TestService_Delete(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Create(env.ctx, baseCreateRequest())
	require.NoError(t, err)

	require.NoError(t, env.svc.Delete(env.ctx))

	_, err = env.svc.Get(env.ctx)
	assert.ErrorIs(t, err, fiscaldomain.ErrNotFound)

	assert.ErrorIs(t, env.svc.Delete(env.ctx), fiscaldomain.ErrNotFound)
}

func TestService_ValidateIntegrity(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Create(env.ctx, baseCreateRequest())
	require.NoError(t, err)

	resp, err := env.svc.ValidateIntegrity(env.ctx)
	require.NoError(t, err)
	assert.True(t, resp.Valid)
	assert.Empty(t, resp.Detail)

	// Corrupt the persisted row behind the aggregate's back; the check
	// reports the defect without touching the row.
	err = env.db.Model(&fiscaldomain.FiscalConfiguration{}).
		Where("store_id = ?", env.storeID).
		Update("standard_rate", 250).Error
	require.NoError(t, err)

	resp, err = env.svc.ValidateIntegrity(env.ctx)
	require.NoError(t, err)
	assert.False(t, resp.Valid)
	assert.Contains(t, resp.Detail, "out_of_range_rate")

	var raw fiscaldomain.FiscalConfiguration
	require.NoError(t, env.db.Where("store_id = ?", env.storeID).First(&raw).Error)
	assert.Equal(t, 250.0, raw.StandardRate)
}

func TestService_ApplicableRates(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Create(env.ctx, baseCreateRequest())
	require.NoError(t, err)

	rates, err := env.svc.ApplicableRates(env.ctx, "Peru", "Lima")
	require.NoError(t, err)
	require.Len(t, rates, 1)
	assert.Equal(t, fiscaldomain.TaxTypeVAT, rates[0].TaxType)
	assert.Equal(t, 18.0, rates[0].StandardRate)

	rates, err = env.svc.ApplicableRates(env.ctx, "", "")
	require.NoError(t, err)
	assert.Len(t, rates, 2)
}

func TestService_RegionDefaultRate(t *testing.T) {
	env := newTestEnv(t)

	holder, err := config.NewFiscalDefaultsHolder()
	require.NoError(t, err)
	env.svc.(*Service).defaults = holder

	req := baseCreateRequest()
	req.Regions = append(req.Regions, fiscaldomain.FiscalRegion{
		Country: "Germany", TaxType: fiscaldomain.TaxTypeVAT, CollectsTax: true,
	})

	created, err := env.svc.Create(env.ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 19.0, created.Regions[2].StandardRate)
}
