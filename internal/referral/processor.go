// Package referral pays out referral bonuses when a referred user's
// first qualifying order completes. Processing is asynchronous and best
// effort: a failed payout is logged and retried on the next completed
// order, never surfaced to the transition that triggered it.
package referral

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/platefulhq/plateful/internal/account/domain"
	"github.com/platefulhq/plateful/internal/clock"
	"github.com/platefulhq/plateful/internal/config"
	obsmetrics "github.com/platefulhq/plateful/internal/observability/metrics"
	orderdomain "github.com/platefulhq/plateful/internal/order/domain"
	walletdomain "github.com/platefulhq/plateful/internal/wallet/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var errOrderNotFound = errors.New("order_not_found")

type ProcessorParams struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Orders   orderdomain.Repository
	Accounts accountdomain.Repository
	Wallet   walletdomain.Service
	Rewards  *config.RewardsConfigHolder
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

// Processor evaluates a completed order against the referral policy and
// credits both sides of the referral when it qualifies.
type Processor struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	orders   orderdomain.Repository
	accounts accountdomain.Repository
	wallet   walletdomain.Service
	rewards  *config.RewardsConfigHolder
	metrics  *obsmetrics.Metrics
}

func NewProcessor(p ProcessorParams) *Processor {
	return &Processor{
		db:       p.DB,
		log:      p.Log.Named("referral.processor"),
		clock:    p.Clock,
		orders:   p.Orders,
		accounts: p.Accounts,
		wallet:   p.Wallet,
		rewards:  p.Rewards,
		metrics:  p.Metrics,
	}
}

// ProcessReward runs the full payout check for one completed order.
// Every exit before the credits is a silent skip: the order simply does
// not qualify. The new user is credited before the referrer so the
// ledger-based idempotency guard covers a crash between the two.
func (p *Processor) ProcessReward(ctx context.Context, orderID snowflake.ID) error {
	order, err := p.orders.FindByID(ctx, p.db, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return errOrderNotFound
	}
	if order.Status != orderdomain.StatusCompleted {
		return nil
	}

	rewards := p.rewards.Get()
	if order.Total < rewards.MinQualifyingTotal {
		p.log.Debug("order below qualifying total",
			zap.String("order_code", order.Code),
			zap.Int64("total", order.Total),
			zap.Int64("min_qualifying_total", rewards.MinQualifyingTotal),
		)
		return nil
	}

	user, err := p.accounts.FindByID(ctx, p.db, order.UserID)
	if err != nil {
		return err
	}
	if user == nil || user.ReferredBy == nil || !user.HasUsedReferral || user.ReferralRewarded {
		return nil
	}

	prior, err := p.orders.CountPriorOrders(ctx, p.db, order.UserID, order.ID)
	if err != nil {
		return err
	}
	if prior > 0 {
		return nil
	}

	// The ledger is the idempotency source of truth: the flag on the user
	// row is advisory, the bonus line is authoritative.
	alreadyPaid, err := p.wallet.HasTransaction(ctx, user.ID.String(), walletdomain.ReasonReferralBonusNew)
	if err != nil {
		return err
	}
	if alreadyPaid {
		return nil
	}

	referrer, err := p.accounts.FindByID(ctx, p.db, *user.ReferredBy)
	if err != nil {
		return err
	}
	if referrer == nil {
		p.log.Warn("referrer no longer exists",
			zap.String("user_id", user.ID.String()),
			zap.String("referrer_id", user.ReferredBy.String()),
		)
		return nil
	}

	if _, err := p.wallet.Credit(ctx, walletdomain.MutationRequest{
		UserID:            user.ID.String(),
		Amount:            rewards.NewUserBonus,
		Reason:            walletdomain.ReasonReferralBonusNew,
		OrderID:           order.ID.String(),
		CounterpartUserID: referrer.ID.String(),
		Description:       "referral welcome bonus",
	}); err != nil {
		return err
	}
	p.metrics.RecordReferralReward(ctx, "new_user")

	if _, err := p.wallet.Credit(ctx, walletdomain.MutationRequest{
		UserID:            referrer.ID.String(),
		Amount:            rewards.ReferrerBonus,
		Reason:            walletdomain.ReasonReferralBonusRef,
		OrderID:           order.ID.String(),
		CounterpartUserID: user.ID.String(),
		Description:       "referral bonus for " + user.ReferralCode,
	}); err != nil {
		return err
	}
	p.metrics.RecordReferralReward(ctx, "referrer")

	if err := p.accounts.MarkReferralRewarded(ctx, p.db, user.ID); err != nil {
		return err
	}
	if err := p.accounts.IncrementReferralStats(ctx, p.db, referrer.ID, rewards.ReferrerBonus); err != nil {
		return err
	}

	p.log.Info("referral reward paid",
		zap.String("order_code", order.Code),
		zap.String("user_id", user.ID.String()),
		zap.String("referrer_id", referrer.ID.String()),
		zap.Int64("new_user_bonus", rewards.NewUserBonus),
		zap.Int64("referrer_bonus", rewards.ReferrerBonus),
	)
	return nil
}
