package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mercato/internal/clock"
	"github.com/smallbiznis/mercato/internal/plan/domain"
	"github.com/smallbiznis/mercato/internal/storecontext"
	"github.com/smallbiznis/mercato/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultPageSize = 10

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("plan.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	storeID, ok := storecontext.StoreIDFromContext(ctx)
	if !ok || storeID == 0 {
		return nil, domain.ErrInvalidStore
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, domain.ErrInvalidCode
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	interval := domain.PlanInterval(strings.ToLower(strings.TrimSpace(string(req.Interval))))
	if !interval.Valid() {
		return nil, domain.ErrInvalidInterval
	}

	if req.PriceCents < 0 || req.TrialDays < 0 {
		return nil, domain.ErrInvalidPrice
	}

	existing, err := s.repo.FindByCode(ctx, s.db, storeID.Int64(), code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicateCode
	}

	description := strings.TrimSpace(ptrToString(req.Description))
	var descriptionPtr *string
	if description != "" {
		descriptionPtr = &description
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "USD"
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	now := s.clock.Now()
	p := &domain.Plan{
		ID:          s.genID.Generate().Int64(),
		StoreID:     storeID.Int64(),
		Code:        code,
		Name:        name,
		Description: descriptionPtr,
		Interval:    interval,
		PriceCents:  req.PriceCents,
		Currency:    currency,
		TrialDays:   req.TrialDays,
		Features:    req.Features,
		Active:      active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, s.db, p); err != nil {
		return nil, err
	}

	s.log.Info("plan created",
		zap.String("store_id", storeID.String()),
		zap.String("code", code),
	)

	resp := s.toResponse(p)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (*domain.ListResponse, error) {
	storeID, ok := storecontext.StoreIDFromContext(ctx)
	if !ok || storeID == 0 {
		return nil, domain.ErrInvalidStore
	}

	if req.PageSize <= 0 {
		req.PageSize = defaultPageSize
	}
	req.SortBy = strings.TrimSpace(req.SortBy)
	req.OrderBy = strings.TrimSpace(req.OrderBy)

	items, err := s.repo.List(ctx, s.db, storeID.Int64(), req)
	if err != nil {
		return nil, err
	}

	items, pageInfo := pagination.Page(items, req.PageSize, func(p domain.Plan) string {
		return strconv.FormatInt(p.ID, 10)
	})

	resp := make([]domain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, s.toResponse(&items[i]))
	}

	return &domain.ListResponse{Plans: resp, PageInfo: pageInfo}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	storeID, ok := storecontext.StoreIDFromContext(ctx)
	if !ok || storeID == 0 {
		return nil, domain.ErrInvalidStore
	}

	planID, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	p, err := s.repo.FindByID(ctx, s.db, storeID.Int64(), planID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}

	resp := s.toResponse(p)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateRequest) (*domain.Response, error) {
	storeID, ok := storecontext.StoreIDFromContext(ctx)
	if !ok || storeID == 0 {
		return nil, domain.ErrInvalidStore
	}

	planID, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	p, err := s.repo.FindByID(ctx, s.db, storeID.Int64(), planID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		p.Name = name
	}
	if req.Description != nil {
		description := strings.TrimSpace(*req.Description)
		if description == "" {
			p.Description = nil
		} else {
			p.Description = &description
		}
	}
	if req.PriceCents != nil {
		if *req.PriceCents < 0 {
			return nil, domain.ErrInvalidPrice
		}
		p.PriceCents = *req.PriceCents
	}
	if req.TrialDays != nil {
		if *req.TrialDays < 0 {
			return nil, domain.ErrInvalidPrice
		}
		p.TrialDays = *req.TrialDays
	}
	if req.Features != nil {
		p.Features = req.Features
	}
	if req.Active != nil {
		p.Active = *req.Active
	}

	p.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, p); err != nil {
		return nil, err
	}

	resp := s.toResponse(p)
	return &resp, nil
}

func (s *Service) toResponse(p *domain.Plan) domain.Response {
	return domain.Response{
		ID:          strconv.FormatInt(p.ID, 10),
		StoreID:     strconv.FormatInt(p.StoreID, 10),
		Code:        p.Code,
		Name:        p.Name,
		Description: p.Description,
		Interval:    p.Interval,
		PriceCents:  p.PriceCents,
		Currency:    p.Currency,
		TrialDays:   p.TrialDays,
		Features:    p.Features,
		Active:      p.Active,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func ptrToString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
