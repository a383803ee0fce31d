package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/platefulhq/plateful/internal/actorctx"
	"github.com/platefulhq/plateful/internal/clock"
	"github.com/platefulhq/plateful/internal/config"
	menudomain "github.com/platefulhq/plateful/internal/menu/domain"
	obsmetrics "github.com/platefulhq/plateful/internal/observability/metrics"
	"github.com/platefulhq/plateful/internal/order/domain"
	"github.com/platefulhq/plateful/internal/order/livefeed"
	"github.com/platefulhq/plateful/internal/ratelimit"
	walletdomain "github.com/platefulhq/plateful/internal/wallet/domain"
	"github.com/platefulhq/plateful/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Menu     menudomain.Service
	Wallet   walletdomain.Service
	Rewards  *config.RewardsConfigHolder
	Hub      *livefeed.Hub
	Guard    *ratelimit.OrderGuard
	Metrics  *obsmetrics.Metrics   `optional:"true"`
	Rewarder domain.RewardEnqueuer `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	menu     menudomain.Service
	wallet   walletdomain.Service
	rewards  *config.RewardsConfigHolder
	hub      *livefeed.Hub
	guard    *ratelimit.OrderGuard
	metrics  *obsmetrics.Metrics
	rewarder domain.RewardEnqueuer
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("order.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		menu:     p.Menu,
		wallet:   p.Wallet,
		rewards:  p.Rewards,
		hub:      p.Hub,
		guard:    p.Guard,
		metrics:  p.Metrics,
		rewarder: p.Rewarder,
	}
}

// statusEvent is the payload broadcast on the live feed after a
// committed status change. It carries the full history so stream
// clients never need a follow-up fetch.
type statusEvent struct {
	OrderID        string                      `json:"order_id"`
	Code           string                      `json:"code"`
	Status         domain.Status               `json:"status"`
	PreviousStatus domain.Status               `json:"previous_status,omitempty"`
	StatusHistory  []domain.StatusHistoryEntry `json:"status_history"`
	OccurredAt     time.Time                   `json:"occurred_at"`
}

func (s *Service) Place(ctx context.Context, req domain.PlaceOrderRequest) (domain.OrderDetail, error) {
	userID, ok := actorctx.UserIDFromContext(ctx)
	if !ok || userID == 0 {
		return domain.OrderDetail{}, domain.ErrInvalidUser
	}

	orderType := domain.Type(strings.ToUpper(strings.TrimSpace(req.Type)))
	if !orderType.Valid() {
		return domain.OrderDetail{}, domain.ErrInvalidType
	}
	payment := domain.PaymentMethod(strings.ToUpper(strings.TrimSpace(req.PaymentMethod)))
	if !payment.Valid() {
		return domain.OrderDetail{}, domain.ErrInvalidPayment
	}
	if len(req.Items) == 0 {
		return domain.OrderDetail{}, domain.ErrInvalidItems
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return domain.OrderDetail{}, domain.ErrInvalidQuantity
		}
	}
	if req.WalletAmount < 0 {
		return domain.OrderDetail{}, walletdomain.ErrInvalidAmount
	}
	address := strings.TrimSpace(req.DeliveryAddress)
	if orderType == domain.TypeDelivery && address == "" {
		return domain.OrderDetail{}, domain.ErrMissingAddress
	}

	if s.guard.Enabled() {
		allowed, err := s.guard.AllowUser(ctx, userID.String())
		if err != nil {
			s.log.Warn("order rate limiter unavailable", zap.Error(err))
		} else if !allowed {
			s.metrics.RecordRateLimitDenied(ctx, "orders.place", "rate")
			return domain.OrderDetail{}, domain.ErrTooManyOrders
		}

		token, locked, err := s.guard.TryLockUser(ctx, userID.String())
		if err != nil {
			s.log.Warn("order placement lock unavailable", zap.Error(err))
		} else if !locked {
			s.metrics.RecordRateLimitDenied(ctx, "orders.place", "lock")
			return domain.OrderDetail{}, domain.ErrDuplicateOrder
		} else {
			defer func() {
				if err := s.guard.ReleaseUser(context.WithoutCancel(ctx), userID.String(), token); err != nil {
					s.log.Warn("order placement lock release failed", zap.Error(err))
				}
			}()
		}
	}

	rewards := s.rewards.Get()
	now := s.clock.Now()

	lines, subtotal, err := s.buildLines(ctx, req.Items)
	if err != nil {
		return domain.OrderDetail{}, err
	}

	tax := subtotal * int64(rewards.TaxPercent) / 100
	var fees int64
	if orderType == domain.TypeDelivery {
		fees = rewards.DeliveryFee
	}
	total := subtotal + tax + fees

	fingerprint := fingerprintFor(userID, orderType, req.Items)
	recent, err := s.repo.FindRecentByFingerprint(ctx, s.db, userID, fingerprint, now.Add(-rewards.DuplicateOrderWindow))
	if err != nil {
		return domain.OrderDetail{}, err
	}
	if recent != nil {
		return domain.OrderDetail{}, domain.ErrDuplicateOrder
	}

	if req.WalletAmount > 0 {
		_, err := s.wallet.ValidateWalletUsage(ctx, walletdomain.ValidateWalletUsageRequest{
			UserID:     userID.String(),
			Requested:  req.WalletAmount,
			OrderTotal: total,
			MaxPercent: rewards.WalletMaxPercent,
		})
		if err != nil {
			return domain.OrderDetail{}, err
		}
	}

	orderID := s.genID.Generate()
	metadata := datatypes.JSONMap{}
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	order := domain.Order{
		ID:              orderID,
		Code:            domain.CodeFor(orderID),
		UserID:          userID,
		Type:            orderType,
		PaymentMethod:   payment,
		Status:          domain.StatusReceived,
		Subtotal:        subtotal,
		Tax:             tax,
		Fees:            fees,
		Total:           total,
		WalletApplied:   req.WalletAmount,
		DeliveryAddress: address,
		Fingerprint:     fingerprint,
		Metadata:        metadata,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for i := range lines {
		lines[i].ID = s.genID.Generate()
		lines[i].OrderID = orderID
	}

	// The wallet share is debited before the order rows are written so a
	// drained balance surfaces as a clean failure. If the insert then
	// fails, the debit is compensated with a refund.
	if req.WalletAmount > 0 {
		_, err := s.wallet.Debit(ctx, walletdomain.MutationRequest{
			UserID:      userID.String(),
			Amount:      req.WalletAmount,
			Reason:      walletdomain.ReasonOrderPayment,
			OrderID:     orderID.String(),
			Description: "wallet payment for order " + order.Code,
		})
		if err != nil {
			return domain.OrderDetail{}, err
		}
	}

	seed := domain.StatusHistoryEntry{
		ID:        s.genID.Generate(),
		OrderID:   orderID,
		Status:    domain.StatusReceived,
		ActorID:   userID,
		CreatedAt: now,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &order); err != nil {
			return err
		}
		if err := s.repo.InsertItems(ctx, tx, lines); err != nil {
			return err
		}
		return s.repo.InsertHistory(ctx, tx, &seed)
	})
	if err != nil {
		if req.WalletAmount > 0 {
			s.refundWallet(ctx, &order)
		}
		return domain.OrderDetail{}, err
	}

	s.metrics.RecordOrderPlaced(ctx, string(orderType))
	s.publish(ctx, &order, "", []domain.StatusHistoryEntry{seed})
	s.log.Info("order placed",
		zap.String("order_code", order.Code),
		zap.String("user_id", userID.String()),
		zap.String("type", string(orderType)),
		zap.Int64("total", total),
		zap.Int64("wallet_applied", req.WalletAmount),
	)

	return domain.OrderDetail{
		Order:         order,
		Items:         lines,
		StatusHistory: []domain.StatusHistoryEntry{seed},
	}, nil
}

// buildLines snapshots the referenced menu items into order lines and
// returns the subtotal.
func (s *Service) buildLines(ctx context.Context, items []domain.PlaceOrderItem) ([]domain.Item, int64, error) {
	lines := make([]domain.Item, 0, len(items))
	var subtotal int64
	for _, item := range items {
		menuItem, err := s.menu.GetItemByID(ctx, item.MenuItemID)
		if err != nil {
			if err == menudomain.ErrNotFound || err == menudomain.ErrInvalidID {
				return nil, 0, domain.ErrInvalidItems
			}
			return nil, 0, err
		}
		if !menuItem.Available {
			return nil, 0, domain.ErrItemUnavailable
		}

		var addons datatypes.JSON
		if len(item.Addons) > 0 {
			encoded, err := json.Marshal(item.Addons)
			if err != nil {
				return nil, 0, err
			}
			addons = datatypes.JSON(encoded)
		}

		lineTotal := menuItem.Price * int64(item.Quantity)
		lines = append(lines, domain.Item{
			MenuItemID: menuItem.ID,
			Name:       menuItem.Name,
			UnitPrice:  menuItem.Price,
			Quantity:   item.Quantity,
			Addons:     addons,
			LineTotal:  lineTotal,
		})
		subtotal += lineTotal
	}
	return lines, subtotal, nil
}

// fingerprintFor hashes the identity-relevant parts of a placement so
// an accidental resubmit inside the duplicate window can be detected.
func fingerprintFor(userID snowflake.ID, orderType domain.Type, items []domain.PlaceOrderItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%s x%d", item.MenuItemID, item.Quantity))
	}
	sort.Strings(parts)

	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s", userID, orderType, strings.Join(parts, ","))
	return hex.EncodeToString(h.Sum(nil))
}

func (s *Service) Get(ctx context.Context, req domain.GetOrderRequest) (domain.OrderDetail, error) {
	id, err := s.ResolveID(ctx, req.OrderRef)
	if err != nil {
		return domain.OrderDetail{}, err
	}

	order, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.OrderDetail{}, err
	}
	if order == nil {
		return domain.OrderDetail{}, domain.ErrNotFound
	}
	if err := s.authorize(ctx, order); err != nil {
		return domain.OrderDetail{}, err
	}

	return s.detail(ctx, order)
}

// authorize allows staff through and restricts customers to their own
// orders.
func (s *Service) authorize(ctx context.Context, order *domain.Order) error {
	if actorctx.RoleFromContext(ctx).Staff() {
		return nil
	}
	userID, ok := actorctx.UserIDFromContext(ctx)
	if !ok || userID != order.UserID {
		return domain.ErrForbidden
	}
	return nil
}

func (s *Service) detail(ctx context.Context, order *domain.Order) (domain.OrderDetail, error) {
	items, err := s.repo.ListItems(ctx, s.db, order.ID)
	if err != nil {
		return domain.OrderDetail{}, err
	}
	history, err := s.repo.ListHistory(ctx, s.db, order.ID)
	if err != nil {
		return domain.OrderDetail{}, err
	}

	detail := domain.OrderDetail{Order: *order}
	for _, item := range items {
		if item != nil {
			detail.Items = append(detail.Items, *item)
		}
	}
	for _, entry := range history {
		if entry != nil {
			detail.StatusHistory = append(detail.StatusHistory, *entry)
		}
	}
	return detail, nil
}

func (s *Service) List(ctx context.Context, req domain.ListOrderRequest) (domain.ListOrderResponse, error) {
	filter := domain.ListOrderFilter{}

	if actorctx.RoleFromContext(ctx).Staff() {
		if value := strings.TrimSpace(req.UserID); value != "" {
			parsed, err := snowflake.ParseString(value)
			if err != nil {
				return domain.ListOrderResponse{}, domain.ErrInvalidUser
			}
			filter.UserID = parsed
		}
	} else {
		userID, ok := actorctx.UserIDFromContext(ctx)
		if !ok || userID == 0 {
			return domain.ListOrderResponse{}, domain.ErrInvalidUser
		}
		filter.UserID = userID
	}

	if value := strings.ToUpper(strings.TrimSpace(req.Status)); value != "" {
		status := domain.Status(value)
		if !domain.ValidStatus(status) {
			return domain.ListOrderResponse{}, domain.ErrInvalidStatus
		}
		filter.Status = status
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListOrderResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(order *domain.Order) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        order.ID.String(),
			CreatedAt: order.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	orders := make([]domain.Order, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		orders = append(orders, *item)
	}

	resp := domain.ListOrderResponse{Orders: orders}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

// Transition moves an order through the lifecycle graph. The order row
// is locked for the duration of the transaction, the history line is
// appended atomically with the status update, and side effects
// (refunds, referral rewards, live feed) run only after commit.
func (s *Service) Transition(ctx context.Context, req domain.TransitionRequest) (domain.TransitionResult, error) {
	id, err := s.ResolveID(ctx, req.OrderRef)
	if err != nil {
		return domain.TransitionResult{}, err
	}

	target := domain.Status(strings.ToUpper(strings.TrimSpace(req.Target)))
	if !domain.ValidStatus(target) {
		return domain.TransitionResult{}, domain.ErrInvalidStatus
	}
	reason := strings.TrimSpace(req.Reason)
	if target == domain.StatusCancelled && reason == "" {
		return domain.TransitionResult{}, domain.ErrInvalidReason
	}

	role := actorctx.RoleFromContext(ctx)
	actorID, _ := actorctx.UserIDFromContext(ctx)
	if !role.Staff() && target != domain.StatusCancelled {
		return domain.TransitionResult{}, domain.ErrForbidden
	}

	var (
		updated  *domain.Order
		previous domain.Status
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if order == nil {
			return domain.ErrNotFound
		}
		if !role.Staff() && order.UserID != actorID {
			return domain.ErrForbidden
		}

		previous = order.Status
		if !domain.ValidateTransition(previous, target) {
			return &domain.InvalidTransitionError{
				Current: previous,
				Target:  target,
				Allowed: domain.AllowedNext(previous),
			}
		}

		// Orders written before the history table existed get their
		// current status backfilled so the trail stays complete.
		count, err := s.repo.CountHistory(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		if count == 0 {
			backfill := domain.StatusHistoryEntry{
				ID:        s.genID.Generate(),
				OrderID:   order.ID,
				Status:    previous,
				ActorID:   order.UserID,
				CreatedAt: order.CreatedAt,
			}
			if err := s.repo.InsertHistory(ctx, tx, &backfill); err != nil {
				return err
			}
		}

		now := s.clock.Now()
		order.Status = target
		order.UpdatedAt = now
		switch target {
		case domain.StatusReady:
			order.PreparedAt = &now
		case domain.StatusCompleted:
			order.DeliveredAt = &now
		case domain.StatusCancelled:
			order.CancelledAt = &now
			order.CancellationReason = reason
		}

		if err := s.repo.UpdateStatus(ctx, tx, order); err != nil {
			return err
		}

		entry := domain.StatusHistoryEntry{
			ID:        s.genID.Generate(),
			OrderID:   order.ID,
			Status:    target,
			ActorID:   actorID,
			CreatedAt: now,
		}
		if err := s.repo.InsertHistory(ctx, tx, &entry); err != nil {
			return err
		}

		updated = order
		return nil
	})
	if err != nil {
		return domain.TransitionResult{}, err
	}

	detail, err := s.detail(ctx, updated)
	if err != nil {
		return domain.TransitionResult{}, err
	}

	s.metrics.RecordOrderTransition(ctx, string(previous), string(target))
	s.publish(ctx, updated, previous, detail.StatusHistory)

	switch target {
	case domain.StatusCancelled:
		if updated.WalletApplied > 0 {
			s.refundWallet(ctx, updated)
		}
	case domain.StatusCompleted:
		if s.rewarder != nil {
			s.rewarder.Enqueue(updated.ID)
		}
	}

	s.log.Info("order transitioned",
		zap.String("order_code", updated.Code),
		zap.String("from_status", string(previous)),
		zap.String("to_status", string(target)),
		zap.String("actor_id", actorID.String()),
	)

	return domain.TransitionResult{Order: detail, PreviousStatus: previous}, nil
}

// refundWallet credits the applied wallet share back. Best effort: a
// failed refund is logged for reconciliation, never surfaced.
func (s *Service) refundWallet(ctx context.Context, order *domain.Order) {
	_, err := s.wallet.Credit(context.WithoutCancel(ctx), walletdomain.MutationRequest{
		UserID:      order.UserID.String(),
		Amount:      order.WalletApplied,
		Reason:      walletdomain.ReasonOrderRefund,
		OrderID:     order.ID.String(),
		Description: "wallet refund for order " + order.Code,
	})
	if err != nil {
		s.log.Error("wallet refund failed",
			zap.String("order_code", order.Code),
			zap.Int64("amount", order.WalletApplied),
			zap.Error(err),
		)
	}
}

func (s *Service) publish(ctx context.Context, order *domain.Order, previous domain.Status, history []domain.StatusHistoryEntry) {
	dropped := s.hub.Publish(order.ID.String(), livefeed.Event{
		Type:      "statusUpdate",
		Timestamp: s.clock.Now(),
		Data: statusEvent{
			OrderID:        order.ID.String(),
			Code:           order.Code,
			Status:         order.Status,
			PreviousStatus: previous,
			StatusHistory:  history,
			OccurredAt:     order.UpdatedAt,
		},
	})
	for i := 0; i < dropped; i++ {
		s.metrics.RecordLiveFeedDropped(ctx, order.ID.String())
	}
}

// ResolveID accepts either the canonical snowflake ID or the customer
// facing order code. Numeric references are tried as IDs first.
func (s *Service) ResolveID(ctx context.Context, ref string) (snowflake.ID, error) {
	value := strings.TrimSpace(ref)
	if value == "" {
		return 0, domain.ErrInvalidID
	}

	if id, err := snowflake.ParseString(value); err == nil && id != 0 {
		return id, nil
	}

	order, err := s.repo.FindByCode(ctx, s.db, strings.ToUpper(value))
	if err != nil {
		return 0, err
	}
	if order == nil {
		return 0, domain.ErrNotFound
	}
	return order.ID, nil
}
