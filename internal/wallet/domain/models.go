package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Direction marks a transaction as adding to or taking from the balance.
type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// Reason classifies why a wallet mutation happened.
type Reason string

const (
	ReasonOrderPayment     Reason = "order_payment"
	ReasonOrderRefund      Reason = "order_refund"
	ReasonReferralBonusRef Reason = "referral_bonus_referrer"
	ReasonReferralBonusNew Reason = "referral_bonus_new_user"
	ReasonCashback         Reason = "cashback"
	ReasonAdminCredit      Reason = "admin_credit"
	ReasonAdminDebit       Reason = "admin_debit"
	ReasonPromotionalBonus Reason = "promotional_bonus"
)

// Valid reports whether the reason is one of the known reasons.
func (r Reason) Valid() bool {
	switch r {
	case ReasonOrderPayment, ReasonOrderRefund, ReasonReferralBonusRef,
		ReasonReferralBonusNew, ReasonCashback, ReasonAdminCredit,
		ReasonAdminDebit, ReasonPromotionalBonus:
		return true
	default:
		return false
	}
}

// Account caches the wallet balance per user. The balance equals the sum
// of credit amounts minus debit amounts in wallet_transactions; every
// mutation updates both inside one database transaction.
type Account struct {
	UserID    snowflake.ID `gorm:"primaryKey" json:"user_id"`
	Balance   int64        `gorm:"not null;default:0" json:"balance"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Account) TableName() string { return "wallet_accounts" }

// Transaction is one immutable ledger line. Amounts are minor currency
// units and always positive; Direction carries the sign.
type Transaction struct {
	ID                snowflake.ID      `gorm:"primaryKey" json:"id"`
	UserID            snowflake.ID      `gorm:"not null;index" json:"user_id"`
	Direction         Direction         `gorm:"type:text;not null" json:"direction"`
	Amount            int64             `gorm:"not null" json:"amount"`
	Reason            Reason            `gorm:"type:text;not null;index" json:"reason"`
	OrderID           *snowflake.ID     `gorm:"index" json:"order_id,omitempty"`
	CounterpartUserID *snowflake.ID     `json:"counterpart_user_id,omitempty"`
	BalanceAfter      int64             `gorm:"not null" json:"balance_after"`
	Description       string            `gorm:"type:text" json:"description,omitempty"`
	Metadata          datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt         time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Transaction) TableName() string { return "wallet_transactions" }
