package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// User is a customer account. Wallet balance lives in the wallet ledger;
// the referral counters here are denormalized summaries maintained by the
// referral processor.
type User struct {
	ID    snowflake.ID `gorm:"primaryKey" json:"id"`
	Name  string       `gorm:"not null" json:"name"`
	Email string       `gorm:"not null;uniqueIndex" json:"email"`
	Phone string       `gorm:"column:phone" json:"phone,omitempty"`
	Role  string       `gorm:"type:text;not null;default:'customer'" json:"role"`

	ReferralCode       string        `gorm:"type:text;not null;uniqueIndex" json:"referral_code"`
	ReferredBy         *snowflake.ID `gorm:"index" json:"referred_by,omitempty"`
	HasUsedReferral    bool          `gorm:"not null;default:false" json:"has_used_referral"`
	ReferralRewarded   bool          `gorm:"not null;default:false" json:"referral_rewarded"`
	ReferralRewardedAt *time.Time    `json:"referral_rewarded_at,omitempty"`
	ReferralCount      int           `gorm:"not null;default:0" json:"referral_count"`
	ReferralEarnings   int64         `gorm:"not null;default:0" json:"referral_earnings"`

	Metadata  datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// ReferralCodeFor derives the shareable referral code from the user ID.
func ReferralCodeFor(id snowflake.ID) string {
	return "PF" + strings.ToUpper(strconv.FormatInt(int64(id), 36))
}
