package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mercato/internal/cache"
	"github.com/smallbiznis/mercato/internal/clock"
	"github.com/smallbiznis/mercato/internal/config"
	fiscaldomain "github.com/smallbiznis/mercato/internal/fiscal/domain"
	obsmetrics "github.com/smallbiznis/mercato/internal/observability/metrics"
	"github.com/smallbiznis/mercato/internal/storecontext"
	pkgdb "github.com/smallbiznis/mercato/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     fiscaldomain.Repository
	Cache    cache.FiscalConfigCache
	Defaults *config.FiscalDefaultsHolder `optional:"true"`
	Metrics  *obsmetrics.Metrics          `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     fiscaldomain.Repository
	cache    cache.FiscalConfigCache
	defaults *config.FiscalDefaultsHolder
	metrics  *obsmetrics.Metrics
}

func NewService(p Params) fiscaldomain.Service {
	return &Service{
		log:      p.Log.Named("fiscal.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		cache:    p.Cache,
		defaults: p.Defaults,
		metrics:  p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req fiscaldomain.CreateRequest) (*fiscaldomain.Response, error) {
	storeID, ok := storecontext.StoreIDFromContext(ctx)
	if !ok || storeID == 0 {
		return nil, fiscaldomain.ErrInvalidStore
	}

	exists, err := s.repo.ExistsByStoreID(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fiscaldomain.ErrAlreadyExists
	}

	cfg, err := fiscaldomain.NewConfiguration(s.genID.Generate(), s.clock.Now(), fiscaldomain.NewConfigurationParams{
		StoreID:          storeID,
		FiscalService:    normalizeFiscalService(req.FiscalService),
		StandardRate:     req.StandardRate,
		Regions:          s.normalizeRegions(req.Regions),
		ReducedRates:     normalizeReducedRates(req.ReducedRates),
		TariffFees:       normalizeTariffFees(req.TariffFees),
		CustomsCodes:     normalizeCustomsCodes(req.CustomsCodes),
		PriceIncludesTax: req.PriceIncludesTax,
		DutyAtCheckout:   req.DutyAtCheckout,
		DDPAvailable:     req.DDPAvailable,
		ShippingTaxed:    req.ShippingTaxed,
		DigitalGoodsVAT:  req.DigitalGoodsVAT,
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, cfg); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return nil, fiscaldomain.ErrAlreadyExists
		}
		return nil, err
	}

	s.log.Info("fiscal configuration created",
		zap.String("store_id", storeID.String()),
		zap.String("fiscal_service", string(cfg.FiscalService)),
		zap.Int("regions", len(cfg.Regions)),
	)
	s.recordMutation(ctx, "create")

	resp := toResponse(cfg)
	s.cache.Set(storeID.String(), &resp)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context) (*fiscaldomain.Response, error) {
	storeID, ok := storecontext.StoreIDFromContext(ctx)
	if !ok || storeID == 0 {
		return nil, fiscaldomain.ErrInvalidStore
	}

	if cached, ok := s.cache.Get(storeID.String()); ok {
		return cached, nil
	}

	cfg, err := s.load(ctx, storeID)
	if err != nil {
		return nil, err
	}

	resp := toResponse(cfg)
	s.cache.Set(storeID.String(), &resp)
	return &resp, nil
}

// Update replaces scalar settings by presence. Each present field runs
// through its named mutator so the whole state is re-validated; nothing
// is persisted unless every change passes.
func (s *Service) Update(ctx context.Context, req fiscaldomain.UpdateRequest) (*fiscaldomain.Response, error) {
	return s.mutate(ctx, "update", func(cfg *fiscaldomain.FiscalConfiguration, now time.Time) error {
		if req.FiscalService != nil {
			if err := cfg.ChangeFiscalService(normalizeFiscalService(*req.FiscalService), now); err != nil {
				return err
			}
		}
		if req.StandardRate != nil {
			if err := cfg.ChangeStandardRate(*req.StandardRate, now); err != nil {
				return err
			}
		}
		if req.PriceIncludesTax != nil {
			if err := cfg.ChangePriceIncludesTax(*req.PriceIncludesTax, now); err != nil {
				return err
			}
		}
		if req.DutyAtCheckout != nil {
			if err := cfg.ChangeDutyAtCheckout(*req.DutyAtCheckout, now); err != nil {
				return err
			}
		}
		if req.DDPAvailable != nil {
			if err := cfg.ChangeDDPAvailable(*req.DDPAvailable, now); err != nil {
				return err
			}
		}
		if req.ShippingTaxed != nil {
			if err := cfg.ChangeShippingTaxed(*req.ShippingTaxed, now); err != nil {
				return err
			}
		}
		if req.DigitalGoodsVAT != nil {
			if err := cfg.ChangeDigitalGoodsVAT(*req.DigitalGoodsVAT, now); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) Delete(ctx context.Context) error {
	storeID, ok := storecontext.StoreIDFromContext(ctx)
	if !ok || storeID == 0 {
		return fiscaldomain.ErrInvalidStore
	}

	exists, err := s.repo.ExistsByStoreID(ctx, storeID)
	if err != nil {
		return err
	}
	if !exists {
		return fiscaldomain.ErrNotFound
	}

	if err := s.repo.DeleteByStoreID(ctx, storeID); err != nil {
		return err
	}

	s.cache.Invalidate(storeID.String())
	s.log.Info("fiscal configuration deleted", zap.String("store_id", storeID.String()))
	s.recordMutation(ctx, "delete")
	return nil
}

func (s *Service) CalculateTax(ctx context.Context, req fiscaldomain.CalculateTaxRequest) (*fiscaldomain.CalculateTaxResponse, error) {
	storeID, ok := storecontext.StoreIDFromContext(ctx)
	if !ok || storeID == 0 {
		return nil, fiscaldomain.ErrInvalidStore
	}

	cfg, err := s.load(ctx, storeID)
	if err != nil {
		return nil, err
	}

	tax := cfg.CalculateTax(req.Amount, req.Country, req.StateRegion)
	if s.metrics != nil {
		s.metrics.RecordTaxCalculation(ctx, req.Country)
	}

	return &fiscaldomain.CalculateTaxResponse{
		Amount:      req.Amount,
		Country:     strings.TrimSpace(req.Country),
		StateRegion: strings.TrimSpace(req.StateRegion),
		Tax:         tax,
	}, nil
}

// ValidateIntegrity re-runs the validator against the persisted state.
// Defects are reported, never auto-corrected.
func (s *Service) ValidateIntegrity(ctx context.Context) (*fiscaldomain.IntegrityResponse, error) {
	storeID, ok := storecontext.StoreIDFromContext(ctx)
	if !ok || storeID == 0 {
		return nil, fiscaldomain.ErrInvalidStore
	}

	cfg, err := s.load(ctx, storeID)
	if err != nil {
		return nil, err
	}

	resp := fiscaldomain.IntegrityResponse{
		StoreID: storeID.String(),
		Valid:   true,
	}
	if violation := fiscaldomain.Validate(cfg); violation != nil {
		resp.Valid = false
		resp.Detail = violation.Error()
		s.log.Warn("fiscal configuration failed integrity check",
			zap.String("store_id", storeID.String()),
			zap.String("detail", resp.Detail),
		)
	}
	return &resp, nil
}

func (s *Service) ApplicableRates(ctx context.Context, country, stateRegion string) ([]fiscaldomain.ApplicableRate, error) {
	storeID, ok := storecontext.StoreIDFromContext(ctx)
	if !ok || storeID == 0 {
		return nil, fiscaldomain.ErrInvalidStore
	}
	rates, err := s.repo.ApplicableRates(ctx, storeID, strings.TrimSpace(country), strings.TrimSpace(stateRegion))
	if err != nil {
		return nil, err
	}
	if rates == nil {
		return nil, fiscaldomain.ErrNotFound
	}
	return rates, nil
}

func (s *Service) AddRegion(ctx context.Context, region fiscaldomain.FiscalRegion) (*fiscaldomain.Response, error) {
	return s.mutate(ctx, "add_region", func(cfg *fiscaldomain.FiscalConfiguration, now time.Time) error {
		return cfg.AddRegion(s.normalizeRegion(region), now)
	})
}

func (s *Service) UpdateRegion(ctx context.Context, country, stateRegion string, region fiscaldomain.FiscalRegion) (*fiscaldomain.Response, error) {
	return s.mutate(ctx, "update_region", func(cfg *fiscaldomain.FiscalConfiguration, now time.Time) error {
		return cfg.UpdateRegion(country, stateRegion, s.normalizeRegion(region), now)
	})
}

func (s *Service) RemoveRegion(ctx context.Context, country, stateRegion string) (*fiscaldomain.Response, error) {
	return s.mutate(ctx, "remove_region", func(cfg *fiscaldomain.FiscalConfiguration, now time.Time) error {
		return cfg.RemoveRegion(country, stateRegion, now)
	})
}

func (s *Service) AddReducedRate(ctx context.Context, rate fiscaldomain.ReducedRate) (*fiscaldomain.Response, error) {
	return s.mutate(ctx, "add_reduced_rate", func(cfg *fiscaldomain.FiscalConfiguration, now time.Time) error {
		return cfg.AddReducedRate(normalizeReducedRate(rate), now)
	})
}

func (s *Service) UpdateReducedRate(ctx context.Context, description string, rate fiscaldomain.ReducedRate) (*fiscaldomain.Response, error) {
	return s.mutate(ctx, "update_reduced_rate", func(cfg *fiscaldomain.FiscalConfiguration, now time.Time) error {
		return cfg.UpdateReducedRate(description, normalizeReducedRate(rate), now)
	})
}

func (s *Service) RemoveReducedRate(ctx context.Context, description string) (*fiscaldomain.Response, error) {
	return s.mutate(ctx, "remove_reduced_rate", func(cfg *fiscaldomain.FiscalConfiguration, now time.Time) error {
		return cfg.RemoveReducedRate(description, now)
	})
}

func (s *Service) AddTariffFee(ctx context.Context, fee fiscaldomain.TariffRate) (*fiscaldomain.Response, error) {
	return s.mutate(ctx, "add_tariff_fee", func(cfg *fiscaldomain.FiscalConfiguration, now time.Time) error {
		return cfg.AddTariffFee(normalizeTariffFee(fee), now)
	})
}

func (s *Service) UpdateTariffFee(ctx context.Context, index int, fee fiscaldomain.TariffRate) (*fiscaldomain.Response, error) {
	return s.mutate(ctx, "update_tariff_fee", func(cfg *fiscaldomain.FiscalConfiguration, now time.Time) error {
		return cfg.UpdateTariffFee(index, normalizeTariffFee(fee), now)
	})
}

func (s *Service) RemoveTariffFee(ctx context.Context, index int) (*fiscaldomain.Response, error) {
	return s.mutate(ctx, "remove_tariff_fee", func(cfg *fiscaldomain.FiscalConfiguration, now time.Time) error {
		return cfg.RemoveTariffFee(index, now)
	})
}

func (s *Service) AddCustomsCode(ctx context.Context, code fiscaldomain.CustomsCode) (*fiscaldomain.Response, error) {
	return s.mutate(ctx, "add_customs_code", func(cfg *fiscaldomain.FiscalConfiguration, now time.Time) error {
		return cfg.AddCustomsCode(normalizeCustomsCode(code), now)
	})
}

func (s *Service) UpdateCustomsCode(ctx context.Context, harmonizedCode string, code fiscaldomain.CustomsCode) (*fiscaldomain.Response, error) {
	return s.mutate(ctx, "update_customs_code", func(cfg *fiscaldomain.FiscalConfiguration, now time.Time) error {
		return cfg.UpdateCustomsCode(harmonizedCode, normalizeCustomsCode(code), now)
	})
}

func (s *Service) RemoveCustomsCode(ctx context.Context, harmonizedCode string) (*fiscaldomain.Response, error) {
	return s.mutate(ctx, "remove_customs_code", func(cfg *fiscaldomain.FiscalConfiguration, now time.Time) error {
		return cfg.RemoveCustomsCode(harmonizedCode, now)
	})
}

// mutate loads the aggregate, applies one operation, persists on
// success, and invalidates the read cache. A violation leaves both the
// aggregate and the persisted row untouched.
func (s *Service) mutate(ctx context.Context, operation string, op func(cfg *fiscaldomain.FiscalConfiguration, now time.Time) error) (*fiscaldomain.Response, error) {
	storeID, ok := storecontext.StoreIDFromContext(ctx)
	if !ok || storeID == 0 {
		return nil, fiscaldomain.ErrInvalidStore
	}

	cfg, err := s.load(ctx, storeID)
	if err != nil {
		return nil, err
	}

	if err := op(cfg, s.clock.Now()); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, cfg); err != nil {
		return nil, err
	}

	s.cache.Invalidate(storeID.String())
	s.recordMutation(ctx, operation)

	resp := toResponse(cfg)
	return &resp, nil
}

func (s *Service) load(ctx context.Context, storeID snowflake.ID) (*fiscaldomain.FiscalConfiguration, error) {
	cfg, err := s.repo.FindByStoreID(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fiscaldomain.ErrNotFound
	}
	return cfg, nil
}

func (s *Service) recordMutation(ctx context.Context, operation string) {
	if s.metrics != nil {
		s.metrics.RecordConfigMutation(ctx, "fiscal_configuration", operation)
	}
}

func (s *Service) normalizeRegions(regions []fiscaldomain.FiscalRegion) []fiscaldomain.FiscalRegion {
	out := make([]fiscaldomain.FiscalRegion, len(regions))
	for i, region := range regions {
		out[i] = s.normalizeRegion(region)
	}
	return out
}

// normalizeRegion trims the natural key and, when the caller leaves the
// rate unset for a collecting region, fills in the configured country
// default.
func (s *Service) normalizeRegion(region fiscaldomain.FiscalRegion) fiscaldomain.FiscalRegion {
	region.Country = strings.TrimSpace(region.Country)
	region.StateRegion = strings.TrimSpace(region.StateRegion)
	region.TaxType = fiscaldomain.TaxType(strings.ToLower(strings.TrimSpace(string(region.TaxType))))

	if region.StandardRate == 0 && region.CollectsTax && s.defaults != nil {
		if suggested, ok := s.defaults.SuggestedRate(region.Country); ok {
			region.StandardRate = suggested
		}
	}
	return region
}

func normalizeFiscalService(value fiscaldomain.FiscalService) fiscaldomain.FiscalService {
	return fiscaldomain.FiscalService(strings.ToLower(strings.TrimSpace(string(value))))
}

func normalizeReducedRates(rates []fiscaldomain.ReducedRate) []fiscaldomain.ReducedRate {
	out := make([]fiscaldomain.ReducedRate, len(rates))
	for i, rate := range rates {
		out[i] = normalizeReducedRate(rate)
	}
	return out
}

func normalizeReducedRate(rate fiscaldomain.ReducedRate) fiscaldomain.ReducedRate {
	rate.Description = strings.TrimSpace(rate.Description)
	return rate
}

func normalizeTariffFees(fees []fiscaldomain.TariffRate) []fiscaldomain.TariffRate {
	out := make([]fiscaldomain.TariffRate, len(fees))
	for i, fee := range fees {
		out[i] = normalizeTariffFee(fee)
	}
	return out
}

func normalizeTariffFee(fee fiscaldomain.TariffRate) fiscaldomain.TariffRate {
	fee.Type = fiscaldomain.TariffType(strings.ToLower(strings.TrimSpace(string(fee.Type))))
	if fee.Condition != nil {
		condition := strings.TrimSpace(*fee.Condition)
		if condition == "" {
			fee.Condition = nil
		} else {
			fee.Condition = &condition
		}
	}
	return fee
}

func normalizeCustomsCodes(codes []fiscaldomain.CustomsCode) []fiscaldomain.CustomsCode {
	out := make([]fiscaldomain.CustomsCode, len(codes))
	for i, code := range codes {
		out[i] = normalizeCustomsCode(code)
	}
	return out
}

func normalizeCustomsCode(code fiscaldomain.CustomsCode) fiscaldomain.CustomsCode {
	code.OriginCountry = strings.TrimSpace(code.OriginCountry)
	code.HarmonizedCode = strings.TrimSpace(code.HarmonizedCode)
	code.Description = strings.TrimSpace(code.Description)
	return code
}

func toResponse(cfg *fiscaldomain.FiscalConfiguration) fiscaldomain.Response {
	return fiscaldomain.Response{
		ID:               cfg.ID.String(),
		StoreID:          cfg.StoreID.String(),
		FiscalService:    cfg.FiscalService,
		StandardRate:     cfg.StandardRate,
		Regions:          cfg.CopyRegions(),
		ReducedRates:     cfg.CopyReducedRates(),
		TariffFees:       cfg.CopyTariffFees(),
		CustomsCodes:     cfg.CopyCustomsCodes(),
		PriceIncludesTax: cfg.PriceIncludesTax,
		DutyAtCheckout:   cfg.DutyAtCheckout,
		DDPAvailable:     cfg.DDPAvailable,
		ShippingTaxed:    cfg.ShippingTaxed,
		DigitalGoodsVAT:  cfg.DigitalGoodsVAT,
		CreatedAt:        cfg.CreatedAt,
		UpdatedAt:        cfg.UpdatedAt,
	}
}
