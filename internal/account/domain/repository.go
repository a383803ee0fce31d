package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/platefulhq/plateful/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, user *User) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	FindByReferralCode(ctx context.Context, db *gorm.DB, code string) (*User, error)
	List(ctx context.Context, db *gorm.DB, filter ListUserFilter, page pagination.Pagination) ([]*User, error)
	SetReferredBy(ctx context.Context, db *gorm.DB, id, referrerID snowflake.ID) error
	MarkReferralRewarded(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	IncrementReferralStats(ctx context.Context, db *gorm.DB, referrerID snowflake.ID, earned int64) error
}
