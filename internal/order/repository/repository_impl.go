package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/platefulhq/plateful/internal/order/domain"
	"github.com/platefulhq/plateful/pkg/db/option"
	"github.com/platefulhq/plateful/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO orders (id, code, user_id, type, payment_method, status,
		 subtotal, tax, fees, total, wallet_applied,
		 delivery_address, cancellation_reason, fingerprint, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID,
		order.Code,
		order.UserID,
		order.Type,
		order.PaymentMethod,
		order.Status,
		order.Subtotal,
		order.Tax,
		order.Fees,
		order.Total,
		order.WalletApplied,
		order.DeliveryAddress,
		order.CancellationReason,
		order.Fingerprint,
		order.Metadata,
		order.CreatedAt,
		order.UpdatedAt,
	).Error
}

func (r *repo) InsertItems(ctx context.Context, db *gorm.DB, items []domain.Item) error {
	for i := range items {
		err := db.WithContext(ctx).Exec(
			`INSERT INTO order_items (id, order_id, menu_item_id, name, unit_price, quantity, addons, line_total)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			items[i].ID,
			items[i].OrderID,
			items[i].MenuItemID,
			items[i].Name,
			items[i].UnitPrice,
			items[i].Quantity,
			items[i].Addons,
			items[i].LineTotal,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) InsertHistory(ctx context.Context, db *gorm.DB, entry *domain.StatusHistoryEntry) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO order_status_history (id, order_id, status, actor_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		entry.ID,
		entry.OrderID,
		entry.Status,
		entry.ActorID,
		entry.CreatedAt,
	).Error
}

const orderColumns = `id, code, user_id, type, payment_method, status,
	 subtotal, tax, fees, total, wallet_applied,
	 delivery_address, cancellation_reason, fingerprint,
	 prepared_at, delivered_at, cancelled_at, metadata, created_at, updated_at`

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	var order domain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT `+orderColumns+` FROM orders WHERE id = ?`,
		id,
	).Scan(&order).Error
	if err != nil {
		return nil, err
	}
	if order.ID == 0 {
		return nil, nil
	}
	return &order, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`
	// sqlite serializes writers at the connection level; FOR UPDATE is a
	// syntax error there.
	if db.Dialector.Name() != "sqlite" {
		query += " FOR UPDATE"
	}

	var order domain.Order
	err := db.WithContext(ctx).Raw(query, id).Scan(&order).Error
	if err != nil {
		return nil, err
	}
	if order.ID == 0 {
		return nil, nil
	}
	return &order, nil
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Order, error) {
	var order domain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT `+orderColumns+` FROM orders WHERE code = ?`,
		code,
	).Scan(&order).Error
	if err != nil {
		return nil, err
	}
	if order.ID == 0 {
		return nil, nil
	}
	return &order, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListOrderFilter, page pagination.Pagination) ([]*domain.Order, error) {
	var orders []*domain.Order
	stmt := db.WithContext(ctx).Model(&domain.Order{})
	if filter.UserID != 0 {
		stmt = stmt.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repo) ListItems(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]*domain.Item, error) {
	var items []*domain.Item
	err := db.WithContext(ctx).Raw(
		`SELECT id, order_id, menu_item_id, name, unit_price, quantity, addons, line_total
		 FROM order_items WHERE order_id = ? ORDER BY id ASC`,
		orderID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListHistory(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]*domain.StatusHistoryEntry, error) {
	var entries []*domain.StatusHistoryEntry
	err := db.WithContext(ctx).Raw(
		`SELECT id, order_id, status, actor_id, created_at
		 FROM order_status_history WHERE order_id = ? ORDER BY created_at ASC, id ASC`,
		orderID,
	).Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) CountHistory(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM order_status_history WHERE order_id = ?`,
		orderID,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Exec(
		`UPDATE orders SET status = ?, cancellation_reason = ?,
		 prepared_at = ?, delivered_at = ?, cancelled_at = ?,
		 updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		order.Status,
		order.CancellationReason,
		order.PreparedAt,
		order.DeliveredAt,
		order.CancelledAt,
		order.ID,
	).Error
}

func (r *repo) CountPriorOrders(ctx context.Context, db *gorm.DB, userID, beforeOrderID snowflake.ID) (int64, error) {
	// Snowflake IDs are time ordered, so id < beforeOrderID means created
	// earlier.
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM orders
		 WHERE user_id = ? AND id < ? AND status <> ?`,
		userID,
		beforeOrderID,
		domain.StatusCancelled,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) FindRecentByFingerprint(ctx context.Context, db *gorm.DB, userID snowflake.ID, fingerprint string, since time.Time) (*domain.Order, error) {
	var order domain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT `+orderColumns+` FROM orders
		 WHERE user_id = ? AND fingerprint = ? AND status <> ? AND created_at >= ?
		 ORDER BY created_at DESC LIMIT 1`,
		userID,
		fingerprint,
		domain.StatusCancelled,
		since,
	).Scan(&order).Error
	if err != nil {
		return nil, err
	}
	if order.ID == 0 {
		return nil, nil
	}
	return &order, nil
}
