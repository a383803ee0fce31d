package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/platefulhq/plateful/internal/clock"
	"github.com/platefulhq/plateful/internal/menu/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

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
		log:   p.Log.Named("menu.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) CreateCategory(ctx context.Context, req domain.CreateCategoryRequest) (domain.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Category{}, domain.ErrInvalidName
	}

	now := s.clock.Now()
	category := domain.Category{
		ID:        s.genID.Generate(),
		Name:      name,
		SortOrder: req.SortOrder,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.InsertCategory(ctx, s.db, &category); err != nil {
		return domain.Category{}, err
	}

	return category, nil
}

func (s *Service) CreateItem(ctx context.Context, req domain.CreateItemRequest) (domain.Item, error) {
	categoryID, err := s.parseID(req.CategoryID, domain.ErrInvalidCategory)
	if err != nil {
		return domain.Item{}, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Item{}, domain.ErrInvalidName
	}
	if req.Price <= 0 {
		return domain.Item{}, domain.ErrInvalidPrice
	}

	now := s.clock.Now()
	item := domain.Item{
		ID:          s.genID.Generate(),
		CategoryID:  categoryID,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Price:       req.Price,
		Available:   true,
		Metadata:    datatypes.JSONMap{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.InsertItem(ctx, s.db, &item); err != nil {
		return domain.Item{}, err
	}

	return item, nil
}

func (s *Service) SetItemAvailability(ctx context.Context, req domain.SetItemAvailabilityRequest) (domain.Item, error) {
	id, err := s.parseID(req.ItemID, domain.ErrInvalidID)
	if err != nil {
		return domain.Item{}, err
	}

	item, err := s.repo.FindItemByID(ctx, s.db, id)
	if err != nil {
		return domain.Item{}, err
	}
	if item == nil {
		return domain.Item{}, domain.ErrNotFound
	}

	if err := s.repo.UpdateItemAvailability(ctx, s.db, id, req.Available); err != nil {
		return domain.Item{}, err
	}

	item.Available = req.Available
	return *item, nil
}

func (s *Service) GetItemByID(ctx context.Context, id string) (domain.Item, error) {
	parsed, err := s.parseID(id, domain.ErrInvalidID)
	if err != nil {
		return domain.Item{}, err
	}

	item, err := s.repo.FindItemByID(ctx, s.db, parsed)
	if err != nil {
		return domain.Item{}, err
	}
	if item == nil {
		return domain.Item{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) ListItems(ctx context.Context, req domain.ListItemsRequest) ([]domain.Item, error) {
	var categoryID snowflake.ID
	if value := strings.TrimSpace(req.CategoryID); value != "" {
		parsed, err := s.parseID(value, domain.ErrInvalidCategory)
		if err != nil {
			return nil, err
		}
		categoryID = parsed
	}

	items, err := s.repo.ListItems(ctx, s.db, categoryID, req.AvailableOnly)
	if err != nil {
		return nil, err
	}

	result := make([]domain.Item, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		result = append(result, *item)
	}
	return result, nil
}

func (s *Service) GetMenu(ctx context.Context) (domain.MenuResponse, error) {
	categories, err := s.repo.ListCategories(ctx, s.db, true)
	if err != nil {
		return domain.MenuResponse{}, err
	}

	items, err := s.repo.ListItems(ctx, s.db, 0, true)
	if err != nil {
		return domain.MenuResponse{}, err
	}

	byCategory := make(map[snowflake.ID][]domain.Item, len(categories))
	for _, item := range items {
		if item == nil {
			continue
		}
		byCategory[item.CategoryID] = append(byCategory[item.CategoryID], *item)
	}

	resp := domain.MenuResponse{Categories: make([]domain.CategoryWithItems, 0, len(categories))}
	for _, category := range categories {
		if category == nil {
			continue
		}
		resp.Categories = append(resp.Categories, domain.CategoryWithItems{
			Category: *category,
			Items:    byCategory[category.ID],
		})
	}

	return resp, nil
}

func (s *Service) parseID(value string, invalidErr error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalidErr
	}
	return id, nil
}
