package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/platefulhq/plateful/internal/wallet/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) UserExists(ctx context.Context, db *gorm.DB, userID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM users WHERE id = ?`,
		userID,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) InsertAccount(ctx context.Context, db *gorm.DB, account *domain.Account) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO wallet_accounts (user_id, balance, created_at, updated_at)
		 VALUES (?, ?, ?, ?)`,
		account.UserID,
		account.Balance,
		account.CreatedAt,
		account.UpdatedAt,
	).Error
}

func (r *repo) FindAccount(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*domain.Account, error) {
	var account domain.Account
	err := db.WithContext(ctx).Raw(
		`SELECT user_id, balance, created_at, updated_at
		 FROM wallet_accounts WHERE user_id = ?`,
		userID,
	).Scan(&account).Error
	if err != nil {
		return nil, err
	}
	if account.UserID == 0 {
		return nil, nil
	}
	return &account, nil
}

func (r *repo) FindAccountForUpdate(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*domain.Account, error) {
	query := `SELECT user_id, balance, created_at, updated_at
		 FROM wallet_accounts WHERE user_id = ?`
	// sqlite serializes writers at the connection level; FOR UPDATE is a
	// syntax error there.
	if db.Dialector.Name() != "sqlite" {
		query += " FOR UPDATE"
	}

	var account domain.Account
	err := db.WithContext(ctx).Raw(query, userID).Scan(&account).Error
	if err != nil {
		return nil, err
	}
	if account.UserID == 0 {
		return nil, nil
	}
	return &account, nil
}

func (r *repo) UpdateBalance(ctx context.Context, db *gorm.DB, userID snowflake.ID, balance int64) error {
	return db.WithContext(ctx).Exec(
		`UPDATE wallet_accounts SET balance = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE user_id = ?`,
		balance,
		userID,
	).Error
}

func (r *repo) InsertTransaction(ctx context.Context, db *gorm.DB, tx *domain.Transaction) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO wallet_transactions (id, user_id, direction, amount, reason, order_id,
		 counterpart_user_id, balance_after, description, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID,
		tx.UserID,
		tx.Direction,
		tx.Amount,
		tx.Reason,
		tx.OrderID,
		tx.CounterpartUserID,
		tx.BalanceAfter,
		tx.Description,
		tx.Metadata,
		tx.CreatedAt,
	).Error
}

func (r *repo) ListTransactions(ctx context.Context, db *gorm.DB, userID snowflake.ID, filter domain.ListTransactionFilter) ([]*domain.Transaction, error) {
	var transactions []*domain.Transaction
	stmt := db.WithContext(ctx).
		Model(&domain.Transaction{}).
		Where("user_id = ?", userID)
	if filter.Reason != "" {
		stmt = stmt.Where("reason = ?", filter.Reason)
	}
	if filter.Direction != "" {
		stmt = stmt.Where("direction = ?", filter.Direction)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	err := stmt.
		Order("created_at desc, id desc").
		Limit(limit).
		Offset(filter.Offset).
		Find(&transactions).Error
	if err != nil {
		return nil, err
	}
	return transactions, nil
}

func (r *repo) HasTransaction(ctx context.Context, db *gorm.DB, userID snowflake.ID, reason domain.Reason) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM wallet_transactions WHERE user_id = ? AND reason = ?`,
		userID,
		reason,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
