package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/platefulhq/plateful/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListOrderFilter struct {
	UserID snowflake.ID
	Status Status
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *Order) error
	InsertItems(ctx context.Context, db *gorm.DB, items []Item) error
	InsertHistory(ctx context.Context, db *gorm.DB, entry *StatusHistoryEntry) error

	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Order, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Order, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Order, error)
	List(ctx context.Context, db *gorm.DB, filter ListOrderFilter, page pagination.Pagination) ([]*Order, error)

	ListItems(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]*Item, error)
	ListHistory(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]*StatusHistoryEntry, error)
	CountHistory(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (int64, error)

	UpdateStatus(ctx context.Context, db *gorm.DB, order *Order) error

	// CountPriorOrders counts the user's non-cancelled orders created
	// before the given order.
	CountPriorOrders(ctx context.Context, db *gorm.DB, userID, beforeOrderID snowflake.ID) (int64, error)
	FindRecentByFingerprint(ctx context.Context, db *gorm.DB, userID snowflake.ID, fingerprint string, since time.Time) (*Order, error)
}
