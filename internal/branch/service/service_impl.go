package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/mercato/internal/branch/domain"
	"github.com/smallbiznis/mercato/internal/clock"
	"github.com/smallbiznis/mercato/internal/storecontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxSlugAttempts = 25

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
		log:   p.Log.Named("branch.service"),
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

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	country := strings.TrimSpace(req.Country)
	if country == "" {
		return nil, domain.ErrInvalidCountry
	}

	branchSlug, err := s.uniqueSlug(ctx, storeID.Int64(), name)
	if err != nil {
		return nil, err
	}

	count, err := s.repo.CountByStore(ctx, s.db, storeID.Int64())
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	b := &domain.Branch{
		ID:      s.genID.Generate().Int64(),
		StoreID: storeID.Int64(),
		Name:    name,
		Slug:    branchSlug,
		Country: country,
		City:    strings.TrimSpace(req.City),
		Address: strings.TrimSpace(req.Address),
		// The first branch of a store is always the default.
		IsDefault: req.IsDefault || count == 0,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if b.IsDefault {
			if err := s.repo.ClearDefault(ctx, tx, storeID.Int64()); err != nil {
				return err
			}
		}
		return s.repo.Create(ctx, tx, b)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("branch created",
		zap.String("store_id", storeID.String()),
		zap.String("slug", branchSlug),
		zap.Bool("is_default", b.IsDefault),
	)

	resp := s.toResponse(b)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	storeID, ok := storecontext.StoreIDFromContext(ctx)
	if !ok || storeID == 0 {
		return nil, domain.ErrInvalidStore
	}

	filter := domain.ListRequest{
		Country: strings.TrimSpace(req.Country),
		SortBy:  strings.TrimSpace(req.SortBy),
		OrderBy: strings.TrimSpace(req.OrderBy),
	}

	items, err := s.repo.List(ctx, s.db, storeID.Int64(), filter)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, s.toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	storeID, branchID, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	b, err := s.repo.FindByID(ctx, s.db, storeID, branchID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, domain.ErrNotFound
	}

	resp := s.toResponse(b)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateRequest) (*domain.Response, error) {
	storeID, branchID, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	b, err := s.repo.FindByID(ctx, s.db, storeID, branchID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		if name != b.Name {
			branchSlug, err := s.uniqueSlug(ctx, storeID, name)
			if err != nil {
				return nil, err
			}
			b.Slug = branchSlug
		}
		b.Name = name
	}
	if req.Country != nil {
		country := strings.TrimSpace(*req.Country)
		if country == "" {
			return nil, domain.ErrInvalidCountry
		}
		b.Country = country
	}
	if req.City != nil {
		b.City = strings.TrimSpace(*req.City)
	}
	if req.Address != nil {
		b.Address = strings.TrimSpace(*req.Address)
	}

	b.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, b); err != nil {
		return nil, err
	}

	resp := s.toResponse(b)
	return &resp, nil
}

func (s *Service) SetDefault(ctx context.Context, id string) (*domain.Response, error) {
	storeID, branchID, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	b, err := s.repo.FindByID(ctx, s.db, storeID, branchID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, domain.ErrNotFound
	}

	if !b.IsDefault {
		b.IsDefault = true
		b.UpdatedAt = s.clock.Now()
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.repo.ClearDefault(ctx, tx, storeID); err != nil {
				return err
			}
			return s.repo.Update(ctx, tx, b)
		})
		if err != nil {
			return nil, err
		}
	}

	resp := s.toResponse(b)
	return &resp, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	storeID, branchID, err := s.resolve(ctx, id)
	if err != nil {
		return err
	}

	b, err := s.repo.FindByID(ctx, s.db, storeID, branchID)
	if err != nil {
		return err
	}
	if b == nil {
		return domain.ErrNotFound
	}
	if b.IsDefault {
		return domain.ErrDefaultBranch
	}

	return s.repo.Delete(ctx, s.db, storeID, branchID)
}

func (s *Service) resolve(ctx context.Context, id string) (int64, int64, error) {
	storeID, ok := storecontext.StoreIDFromContext(ctx)
	if !ok || storeID == 0 {
		return 0, 0, domain.ErrInvalidStore
	}
	branchID, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil {
		return 0, 0, domain.ErrInvalidID
	}
	return storeID.Int64(), branchID, nil
}

// uniqueSlug derives a URL-safe slug from name and suffixes it until it
// is free within the store.
func (s *Service) uniqueSlug(ctx context.Context, storeID int64, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		return "", domain.ErrInvalidName
	}

	candidate := base
	for i := 2; i <= maxSlugAttempts; i++ {
		existing, err := s.repo.FindBySlug(ctx, s.db, storeID, candidate)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", domain.ErrDuplicateSlug
}

func (s *Service) toResponse(b *domain.Branch) domain.Response {
	return domain.Response{
		ID:        strconv.FormatInt(b.ID, 10),
		StoreID:   strconv.FormatInt(b.StoreID, 10),
		Name:      b.Name,
		Slug:      b.Slug,
		Country:   b.Country,
		City:      b.City,
		Address:   b.Address,
		IsDefault: b.IsDefault,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}
