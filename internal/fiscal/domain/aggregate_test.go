package domain

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig(t *testing.T) *FiscalConfiguration {
	t.Helper()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg, err := NewConfiguration(node.Generate(), time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC), NewConfigurationParams{
		StoreID:       node.Generate(),
		FiscalService: FiscalServiceBasicTax,
		StandardRate:  18,
		Regions: []FiscalRegion{
			{Country: "Peru", StateRegion: "Lima", TaxType: TaxTypeVAT, CollectsTax: true, StandardRate: 18},
			{Country: "United States", StateRegion: "Oregon", TaxType: TaxTypeSalesTax, CollectsTax: false, StandardRate: 0},
		},
	})
	require.NoError(t, err)
	return cfg
}

func TestNewConfiguration(t *testing.T) {
	cfg := newTestConfig(t)

	assert.Equal(t, cfg.CreatedAt, cfg.UpdatedAt)
	assert.Equal(t, time.UTC, cfg.CreatedAt.Location())
	assert.True(t, cfg.IsValid())
}

func TestNewConfiguration_RequiresStore(t *testing.T) {
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg, err := NewConfiguration(node.Generate(), time.Now(), NewConfigurationParams{
		FiscalService: FiscalServiceBasicTax,
		Regions: []FiscalRegion{
			{Country: "Peru", StateRegion: "Lima", TaxType: TaxTypeVAT, CollectsTax: true, StandardRate: 18},
		},
	})
	assert.ErrorIs(t, err, ErrInvalidStore)
	assert.Nil(t, cfg)
}

func TestNewConfiguration_RejectsInvalidState(t *testing.T) {
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg, err := NewConfiguration(node.Generate(), time.Now(), NewConfigurationParams{
		StoreID:       node.Generate(),
		FiscalService: FiscalServiceBasicTax,
	})
	assert.ErrorIs(t, err, ErrEmptyRegionList)
	assert.Nil(t, cfg)
}

func TestCalculateTax(t *testing.T) {
	cfg := newTestConfig(t)

	assert.InDelta(t, 18.0, cfg.CalculateTax(100, "Peru", "Lima"), 1e-9)
	assert.InDelta(t, 36.0, cfg.CalculateTax(200, "Peru", "Lima"), 1e-9)

	// Case-insensitive region match.
	assert.InDelta(t, 18.0, cfg.CalculateTax(100, "peru", "LIMA"), 1e-9)

	// Matched region that does not collect tax.
	assert.Zero(t, cfg.CalculateTax(100, "United States", "Oregon"))

	// No matching region.
	assert.Zero(t, cfg.CalculateTax(100, "Germany", ""))
}

func TestCalculateTax_IsPureQuery(t *testing.T) {
	cfg := newTestConfig(t)
	before := *cfg

	cfg.CalculateTax(100, "Peru", "Lima")
	cfg.CalculateTax(100, "Nowhere", "")

	assert.Equal(t, before.UpdatedAt, cfg.UpdatedAt)
	assert.Equal(t, before.Regions, cfg.Regions)
}

func TestScalarMutators_BumpUpdatedAt(t *testing.T) {
	cfg := newTestConfig(t)
	later := cfg.UpdatedAt.Add(time.Hour)

	require.NoError(t, cfg.ChangeStandardRate(21, later))

	assert.Equal(t, 21.0, cfg.StandardRate)
	assert.Equal(t, later, cfg.UpdatedAt)
	assert.NotEqual(t, cfg.CreatedAt, cfg.UpdatedAt)
}

func TestFailedMutation_LeavesStateUntouched(t *testing.T) {
	cfg := newTestConfig(t)
	snapshot := *Reconstruct(*cfg)

	err := cfg.ChangeStandardRate(150, cfg.UpdatedAt.Add(time.Hour))
	assert.ErrorIs(t, err, ErrOutOfRangeRate)
	assert.Equal(t, snapshot, *cfg)

	err = cfg.ChangeFiscalService("avalara", cfg.UpdatedAt.Add(time.Hour))
	assert.ErrorIs(t, err, ErrInvalidEnumValue)
	assert.Equal(t, snapshot, *cfg)
}

func TestAddRegion_RejectsDuplicate(t *testing.T) {
	cfg := newTestConfig(t)
	snapshot := *Reconstruct(*cfg)

	err := cfg.AddRegion(FiscalRegion{
		Country: "PERU", StateRegion: "lima", TaxType: TaxTypeVAT, CollectsTax: true, StandardRate: 18,
	}, time.Now())

	assert.ErrorIs(t, err, ErrDuplicateKey)
	assert.Equal(t, snapshot, *cfg)
}

func TestRegion_AddRemoveRoundTrip(t *testing.T) {
	cfg := newTestConfig(t)
	before := cfg.CopyRegions()

	now := cfg.UpdatedAt.Add(time.Minute)
	require.NoError(t, cfg.AddRegion(FiscalRegion{
		Country: "Germany", StateRegion: "", TaxType: TaxTypeVAT, CollectsTax: true, StandardRate: 19,
	}, now))
	assert.Len(t, cfg.Regions, 3)

	require.NoError(t, cfg.RemoveRegion("germany", "", now.Add(time.Minute)))
	assert.Equal(t, before, cfg.CopyRegions())
}

func TestRemoveRegion_CannotEmptyTheList(t *testing.T) {
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg, err := NewConfiguration(node.Generate(), time.Now(), NewConfigurationParams{
		StoreID:       node.Generate(),
		FiscalService: FiscalServiceManual,
		StandardRate:  19,
		Regions: []FiscalRegion{
			{Country: "Germany", StateRegion: "", TaxType: TaxTypeVAT, CollectsTax: true, StandardRate: 19},
		},
	})
	require.NoError(t, err)

	err = cfg.RemoveRegion("Germany", "", time.Now())
	assert.ErrorIs(t, err, ErrEmptyRegionList)
	assert.Len(t, cfg.Regions, 1)
}

func TestRemoveRegion_NotConfigured(t *testing.T) {
	cfg := newTestConfig(t)

	err := cfg.RemoveRegion("France", "", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateRegion_RekeysEntry(t *testing.T) {
	cfg := newTestConfig(t)

	require.NoError(t, cfg.UpdateRegion("Peru", "Lima", FiscalRegion{
		Country: "Peru", StateRegion: "Cusco", TaxType: TaxTypeVAT, CollectsTax: true, StandardRate: 18,
	}, time.Now()))

	assert.Zero(t, cfg.CalculateTax(100, "Peru", "Lima"))
	assert.InDelta(t, 18.0, cfg.CalculateTax(100, "Peru", "Cusco"), 1e-9)
}

func TestReducedRate_Mutators(t *testing.T) {
	cfg := newTestConfig(t)
	now := cfg.UpdatedAt.Add(time.Minute)

	require.NoError(t, cfg.AddReducedRate(ReducedRate{Description: "Books", Percentage: 10}, now))

	// Equal to the standard rate is rejected and nothing changes.
	snapshot := *Reconstruct(*cfg)
	err := cfg.AddReducedRate(ReducedRate{Description: "Food", Percentage: 18}, now)
	assert.ErrorIs(t, err, ErrOutOfRangeRate)
	assert.Equal(t, snapshot, *cfg)

	// Lowering the standard rate below an existing reduced rate fails.
	err = cfg.ChangeStandardRate(9, now)
	assert.ErrorIs(t, err, ErrOutOfRangeRate)
	assert.Equal(t, 18.0, cfg.StandardRate)

	require.NoError(t, cfg.RemoveReducedRate("books", now))
	assert.Empty(t, cfg.ReducedRates)
}

func TestReducedRate_MutatorsCloneCategories(t *testing.T) {
	cfg := newTestConfig(t)
	now := cfg.UpdatedAt.Add(time.Minute)

	categories := []string{"books"}
	require.NoError(t, cfg.AddReducedRate(ReducedRate{Description: "Books", Percentage: 5, Categories: categories}, now))

	// A caller holding on to the slice cannot reach aggregate internals.
	categories[0] = "changed"
	assert.Equal(t, []string{"books"}, cfg.CopyReducedRates()[0].Categories)

	replacement := []string{"groceries"}
	require.NoError(t, cfg.UpdateReducedRate("Books", ReducedRate{Description: "Books", Percentage: 4, Categories: replacement}, now))

	replacement[0] = "changed"
	assert.Equal(t, []string{"groceries"}, cfg.CopyReducedRates()[0].Categories)
}

func TestPriceInclusion_EndToEnd(t *testing.T) {
	cfg := newTestConfig(t)
	now := cfg.UpdatedAt.Add(time.Minute)

	require.NoError(t, cfg.AddReducedRate(ReducedRate{Description: "Books", Percentage: 10}, now))

	err := cfg.ChangePriceIncludesTax(true, now)
	assert.ErrorIs(t, err, ErrPriceInclusionConflict)
	assert.False(t, cfg.PriceIncludesTax)

	require.NoError(t, cfg.RemoveReducedRate("Books", now))
	require.NoError(t, cfg.ChangePriceIncludesTax(true, now))

	// And the other direction: no reduced rates while prices include tax.
	err = cfg.AddReducedRate(ReducedRate{Description: "Books", Percentage: 10}, now)
	assert.ErrorIs(t, err, ErrPriceInclusionConflict)
}

func TestTariffFee_PositionalMutators(t *testing.T) {
	cfg := newTestConfig(t)
	now := cfg.UpdatedAt.Add(time.Minute)

	require.NoError(t, cfg.AddTariffFee(TariffRate{Type: TariffTypeFixed, Amount: 25}, now))
	require.NoError(t, cfg.AddTariffFee(TariffRate{Type: TariffTypePercentage, Amount: 5}, now))

	require.NoError(t, cfg.UpdateTariffFee(1, TariffRate{Type: TariffTypePercentage, Amount: 7.5}, now))
	assert.Equal(t, 7.5, cfg.TariffFees[1].Amount)

	err := cfg.UpdateTariffFee(5, TariffRate{Type: TariffTypeFixed, Amount: 1}, now)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, cfg.RemoveTariffFee(0, now))
	assert.Len(t, cfg.TariffFees, 1)
	assert.Equal(t, TariffTypePercentage, cfg.TariffFees[0].Type)

	err = cfg.RemoveTariffFee(-1, now)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCustomsCode_Mutators(t *testing.T) {
	cfg := newTestConfig(t)
	now := cfg.UpdatedAt.Add(time.Minute)

	require.NoError(t, cfg.AddCustomsCode(CustomsCode{
		OriginCountry: "CN", HarmonizedCode: "8471.30", Description: "Laptops",
	}, now))

	err := cfg.AddCustomsCode(CustomsCode{
		OriginCountry: "VN", HarmonizedCode: "8471.30", Description: "Tablets",
	}, now)
	assert.ErrorIs(t, err, ErrDuplicateKey)

	err = cfg.AddCustomsCode(CustomsCode{
		OriginCountry: "CN", HarmonizedCode: "84A.30", Description: "Broken",
	}, now)
	assert.ErrorIs(t, err, ErrMalformedCustomsCode)

	require.NoError(t, cfg.UpdateCustomsCode("8471.30", CustomsCode{
		OriginCountry: "CN", HarmonizedCode: "847130", Description: "Laptops",
	}, now))
	assert.Equal(t, "847130", cfg.CustomsCodes[0].HarmonizedCode)

	require.NoError(t, cfg.RemoveCustomsCode("847130", now))
	assert.Empty(t, cfg.CustomsCodes)
}

func TestCopyAccessors_AreDefensive(t *testing.T) {
	cfg := newTestConfig(t)

	regions := cfg.CopyRegions()
	regions[0].StandardRate = 99

	assert.Equal(t, 18.0, cfg.Regions[0].StandardRate)
}

func TestReconstruct_DeepClones(t *testing.T) {
	cfg := newTestConfig(t)
	clone := Reconstruct(*cfg)

	clone.Regions[0].StandardRate = 99
	assert.Equal(t, 18.0, cfg.Regions[0].StandardRate)
}
