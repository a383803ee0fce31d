package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/platefulhq/plateful/internal/account/domain"
	"github.com/platefulhq/plateful/internal/clock"
	"github.com/platefulhq/plateful/pkg/db"
	"github.com/platefulhq/plateful/pkg/db/pagination"
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
		log:   p.Log.Named("account.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateUserRequest) (domain.User, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.User{}, domain.ErrInvalidName
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, domain.ErrInvalidEmail
	}

	var referrer *domain.User
	if code := strings.TrimSpace(req.ReferralCode); code != "" {
		found, err := s.repo.FindByReferralCode(ctx, s.db, code)
		if err != nil {
			return domain.User{}, err
		}
		if found == nil {
			return domain.User{}, domain.ErrInvalidReferralCode
		}
		referrer = found
	}

	now := s.clock.Now()
	id := s.genID.Generate()
	user := domain.User{
		ID:           id,
		Name:         name,
		Email:        email,
		Phone:        strings.TrimSpace(req.Phone),
		Role:         "customer",
		ReferralCode: domain.ReferralCodeFor(id),
		Metadata:     datatypes.JSONMap{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if referrer != nil {
		referrerID := referrer.ID
		user.ReferredBy = &referrerID
		user.HasUsedReferral = true
	}

	if err := s.repo.Insert(ctx, s.db, &user); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.User{}, domain.ErrEmailExists
		}
		return domain.User{}, err
	}

	return user, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetUserRequest) (domain.User, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.User{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.User{}, err
	}
	if item == nil {
		return domain.User{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListUserRequest) (domain.ListUserResponse, error) {
	filter := domain.ListUserFilter{
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Referred: req.Referred,
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListUserResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(user *domain.User) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        user.ID.String(),
			CreatedAt: user.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	users := make([]domain.User, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		users = append(users, *item)
	}

	resp := domain.ListUserResponse{Users: users}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}

	return resp, nil
}

func (s *Service) ApplyReferralCode(ctx context.Context, req domain.ApplyReferralCodeRequest) (domain.User, error) {
	id, err := s.parseID(req.UserID)
	if err != nil {
		return domain.User{}, err
	}

	code := strings.TrimSpace(req.ReferralCode)
	if code == "" {
		return domain.User{}, domain.ErrInvalidReferralCode
	}

	user, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.User{}, err
	}
	if user == nil {
		return domain.User{}, domain.ErrNotFound
	}
	if user.ReferredBy != nil {
		return domain.User{}, domain.ErrReferralAlreadySet
	}

	referrer, err := s.repo.FindByReferralCode(ctx, s.db, code)
	if err != nil {
		return domain.User{}, err
	}
	if referrer == nil {
		return domain.User{}, domain.ErrInvalidReferralCode
	}
	if referrer.ID == user.ID {
		return domain.User{}, domain.ErrSelfReferral
	}

	if err := s.repo.SetReferredBy(ctx, s.db, user.ID, referrer.ID); err != nil {
		return domain.User{}, err
	}

	updated, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.User{}, err
	}
	if updated == nil {
		return domain.User{}, domain.ErrNotFound
	}

	return *updated, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
