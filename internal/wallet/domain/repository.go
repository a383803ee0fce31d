package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListTransactionFilter struct {
	Reason    Reason
	Direction Direction
	Limit     int
	Offset    int
}

type Repository interface {
	UserExists(ctx context.Context, db *gorm.DB, userID snowflake.ID) (bool, error)
	InsertAccount(ctx context.Context, db *gorm.DB, account *Account) error
	FindAccount(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*Account, error)
	FindAccountForUpdate(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*Account, error)
	UpdateBalance(ctx context.Context, db *gorm.DB, userID snowflake.ID, balance int64) error
	InsertTransaction(ctx context.Context, db *gorm.DB, tx *Transaction) error
	ListTransactions(ctx context.Context, db *gorm.DB, userID snowflake.ID, filter ListTransactionFilter) ([]*Transaction, error)
	HasTransaction(ctx context.Context, db *gorm.DB, userID snowflake.ID, reason Reason) (bool, error)
}
