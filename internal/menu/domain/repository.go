package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertCategory(ctx context.Context, db *gorm.DB, category *Category) error
	ListCategories(ctx context.Context, db *gorm.DB, activeOnly bool) ([]*Category, error)
	InsertItem(ctx context.Context, db *gorm.DB, item *Item) error
	UpdateItemAvailability(ctx context.Context, db *gorm.DB, id snowflake.ID, available bool) error
	FindItemByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Item, error)
	FindItemsByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]*Item, error)
	ListItems(ctx context.Context, db *gorm.DB, categoryID snowflake.ID, availableOnly bool) ([]*Item, error)
}
