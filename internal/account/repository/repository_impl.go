package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/platefulhq/plateful/internal/account/domain"
	"github.com/platefulhq/plateful/pkg/db/option"
	"github.com/platefulhq/plateful/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, user *domain.User) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO users (id, name, email, phone, role, referral_code, referred_by,
		 has_used_referral, referral_rewarded, referral_rewarded_at, referral_count,
		 referral_earnings, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Name,
		user.Email,
		user.Phone,
		user.Role,
		user.ReferralCode,
		user.ReferredBy,
		user.HasUsedReferral,
		user.ReferralRewarded,
		user.ReferralRewardedAt,
		user.ReferralCount,
		user.ReferralEarnings,
		user.Metadata,
		user.CreatedAt,
		user.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, email, phone, role, referral_code, referred_by, has_used_referral,
		 referral_rewarded, referral_rewarded_at, referral_count, referral_earnings,
		 metadata, created_at, updated_at
		 FROM users WHERE id = ?`,
		id,
	).Scan(&user).Error
	if err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, nil
	}
	return &user, nil
}

func (r *repo) FindByReferralCode(ctx context.Context, db *gorm.DB, code string) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, email, phone, role, referral_code, referred_by, has_used_referral,
		 referral_rewarded, referral_rewarded_at, referral_count, referral_earnings,
		 metadata, created_at, updated_at
		 FROM users WHERE referral_code = ?`,
		strings.TrimSpace(code),
	).Scan(&user).Error
	if err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, nil
	}
	return &user, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListUserFilter, page pagination.Pagination) ([]*domain.User, error) {
	var users []*domain.User
	stmt := db.WithContext(ctx).Model(&domain.User{})
	if filter.Email != "" {
		stmt = stmt.Where("email = ?", filter.Email)
	}
	if filter.Referred != nil {
		if *filter.Referred {
			stmt = stmt.Where("referred_by IS NOT NULL")
		} else {
			stmt = stmt.Where("referred_by IS NULL")
		}
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *repo) SetReferredBy(ctx context.Context, db *gorm.DB, id, referrerID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE users SET referred_by = ?, has_used_referral = TRUE, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND referred_by IS NULL`,
		referrerID,
		id,
	).Error
}

func (r *repo) MarkReferralRewarded(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE users SET referral_rewarded = TRUE, referral_rewarded_at = CURRENT_TIMESTAMP,
		 updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		id,
	).Error
}

func (r *repo) IncrementReferralStats(ctx context.Context, db *gorm.DB, referrerID snowflake.ID, earned int64) error {
	return db.WithContext(ctx).Exec(
		`UPDATE users SET referral_count = referral_count + 1,
		 referral_earnings = referral_earnings + ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		earned,
		referrerID,
	).Error
}
