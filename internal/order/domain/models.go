package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Status is the order lifecycle state.
type Status string

const (
	StatusReceived       Status = "RECEIVED"
	StatusConfirmed      Status = "CONFIRMED"
	StatusPreparing      Status = "PREPARING"
	StatusReady          Status = "READY"
	StatusOutForDelivery Status = "OUT_FOR_DELIVERY"
	StatusCompleted      Status = "COMPLETED"
	StatusCancelled      Status = "CANCELLED"
)

// Type is how the customer receives the order.
type Type string

const (
	TypeDineIn   Type = "DINE_IN"
	TypeTakeaway Type = "TAKEAWAY"
	TypeDelivery Type = "DELIVERY"
)

// Valid reports whether the order type is known.
func (t Type) Valid() bool {
	switch t {
	case TypeDineIn, TypeTakeaway, TypeDelivery:
		return true
	default:
		return false
	}
}

// PaymentMethod is settled by an external gateway; only the wallet share
// is handled here.
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "CASH"
	PaymentCard   PaymentMethod = "CARD"
	PaymentOnline PaymentMethod = "ONLINE"
)

// Valid reports whether the payment method is known.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentOnline:
		return true
	default:
		return false
	}
}

// Order is one placed order. The snowflake ID is the canonical
// identifier everywhere; Code is a human-readable alternate lookup key
// derived from the ID. Status and the history table are mutated only
// through the transition path. Amounts are minor currency units.
type Order struct {
	ID            snowflake.ID  `gorm:"primaryKey" json:"id"`
	Code          string        `gorm:"type:text;not null;uniqueIndex" json:"code"`
	UserID        snowflake.ID  `gorm:"not null;index" json:"user_id"`
	Type          Type          `gorm:"type:text;not null" json:"type"`
	PaymentMethod PaymentMethod `gorm:"type:text;not null" json:"payment_method"`
	Status        Status        `gorm:"type:text;not null;index" json:"status"`

	Subtotal      int64 `gorm:"not null" json:"subtotal"`
	Tax           int64 `gorm:"not null;default:0" json:"tax"`
	Fees          int64 `gorm:"not null;default:0" json:"fees"`
	Total         int64 `gorm:"not null" json:"total"`
	WalletApplied int64 `gorm:"not null;default:0" json:"wallet_applied"`

	DeliveryAddress    string `gorm:"type:text" json:"delivery_address,omitempty"`
	CancellationReason string `gorm:"type:text" json:"cancellation_reason,omitempty"`
	Fingerprint        string `gorm:"type:text;not null;index" json:"-"`

	PreparedAt  *time.Time `json:"prepared_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	Metadata  datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Order) TableName() string { return "orders" }

// CodeFor derives the customer-facing order code from the canonical ID.
func CodeFor(id snowflake.ID) string {
	return "ORD-" + strings.ToUpper(strconv.FormatInt(int64(id), 36))
}

// Item snapshots a menu line at placement time.
type Item struct {
	ID         snowflake.ID   `gorm:"primaryKey" json:"id"`
	OrderID    snowflake.ID   `gorm:"not null;index" json:"order_id"`
	MenuItemID snowflake.ID   `gorm:"not null" json:"menu_item_id"`
	Name       string         `gorm:"not null" json:"name"`
	UnitPrice  int64          `gorm:"not null" json:"unit_price"`
	Quantity   int            `gorm:"not null" json:"quantity"`
	Addons     datatypes.JSON `gorm:"type:jsonb" json:"addons,omitempty"`
	LineTotal  int64          `gorm:"not null" json:"line_total"`
}

// TableName sets the database table name.
func (Item) TableName() string { return "order_items" }

// StatusHistoryEntry is one append-only line in an order's audit trail.
type StatusHistoryEntry struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	OrderID   snowflake.ID `gorm:"not null;index" json:"order_id"`
	Status    Status       `gorm:"type:text;not null" json:"status"`
	ActorID   snowflake.ID `gorm:"not null" json:"actor_id"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (StatusHistoryEntry) TableName() string { return "order_status_history" }
