package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/platefulhq/plateful/internal/actorctx"
	"github.com/platefulhq/plateful/internal/clock"
	"github.com/platefulhq/plateful/internal/config"
	menudomain "github.com/platefulhq/plateful/internal/menu/domain"
	menurepository "github.com/platefulhq/plateful/internal/menu/repository"
	menuservice "github.com/platefulhq/plateful/internal/menu/service"
	"github.com/platefulhq/plateful/internal/order/domain"
	"github.com/platefulhq/plateful/internal/order/livefeed"
	"github.com/platefulhq/plateful/internal/order/repository"
	walletdomain "github.com/platefulhq/plateful/internal/wallet/domain"
	walletrepository "github.com/platefulhq/plateful/internal/wallet/repository"
	walletservice "github.com/platefulhq/plateful/internal/wallet/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stubRewarder struct {
	enqueued []snowflake.ID
}

func (s *stubRewarder) Enqueue(orderID snowflake.ID) {
	s.enqueued = append(s.enqueued, orderID)
}

type fixture struct {
	db       *gorm.DB
	svc      domain.Service
	wallet   walletdomain.Service
	menu     menudomain.Service
	hub      *livefeed.Hub
	rewarder *stubRewarder
	node     *snowflake.Node
}

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return node
}

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("database handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	statements := []string{
		`CREATE TABLE users (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			phone TEXT,
			role TEXT NOT NULL DEFAULT 'customer',
			referral_code TEXT NOT NULL,
			referred_by INTEGER,
			has_used_referral BOOLEAN NOT NULL DEFAULT FALSE,
			referral_rewarded BOOLEAN NOT NULL DEFAULT FALSE,
			referral_rewarded_at DATETIME,
			referral_count INTEGER NOT NULL DEFAULT 0,
			referral_earnings INTEGER NOT NULL DEFAULT 0,
			metadata TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE wallet_accounts (
			user_id INTEGER PRIMARY KEY,
			balance INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE wallet_transactions (
			id INTEGER PRIMARY KEY,
			user_id INTEGER NOT NULL,
			direction TEXT NOT NULL,
			amount INTEGER NOT NULL,
			reason TEXT NOT NULL,
			order_id INTEGER,
			counterpart_user_id INTEGER,
			balance_after INTEGER NOT NULL,
			description TEXT,
			metadata TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE menu_categories (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			sort_order INTEGER NOT NULL DEFAULT 0,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE menu_items (
			id INTEGER PRIMARY KEY,
			category_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			description TEXT,
			price INTEGER NOT NULL,
			available BOOLEAN NOT NULL DEFAULT TRUE,
			metadata TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE orders (
			id INTEGER PRIMARY KEY,
			code TEXT NOT NULL,
			user_id INTEGER NOT NULL,
			type TEXT NOT NULL,
			payment_method TEXT NOT NULL,
			status TEXT NOT NULL,
			subtotal INTEGER NOT NULL,
			tax INTEGER NOT NULL DEFAULT 0,
			fees INTEGER NOT NULL DEFAULT 0,
			total INTEGER NOT NULL,
			wallet_applied INTEGER NOT NULL DEFAULT 0,
			delivery_address TEXT,
			cancellation_reason TEXT,
			fingerprint TEXT NOT NULL,
			prepared_at DATETIME,
			delivered_at DATETIME,
			cancelled_at DATETIME,
			metadata TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE order_items (
			id INTEGER PRIMARY KEY,
			order_id INTEGER NOT NULL,
			menu_item_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			unit_price INTEGER NOT NULL,
			quantity INTEGER NOT NULL,
			addons TEXT,
			line_total INTEGER NOT NULL
		)`,
		`CREATE TABLE order_status_history (
			id INTEGER PRIMARY KEY,
			order_id INTEGER NOT NULL,
			status TEXT NOT NULL,
			actor_id INTEGER NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()

	db := setupDB(t)
	node := mustNode(t)
	log := zap.NewNop()
	clk := clock.NewSystemClock()
	rewards := config.NewStaticRewardsConfigHolder(config.DefaultRewardsConfig())

	menuSvc := menuservice.New(menuservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: clk,
		Repo:  menurepository.Provide(),
	})
	walletSvc := walletservice.New(walletservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: clk,
		Repo:  walletrepository.Provide(),
	})

	hub := livefeed.New(rewards.Get().LiveFeedCapacity)
	rewarder := &stubRewarder{}
	svc := New(Params{
		DB:       db,
		Log:      log,
		GenID:    node,
		Clock:    clk,
		Repo:     repository.Provide(),
		Menu:     menuSvc,
		Wallet:   walletSvc,
		Rewards:  rewards,
		Hub:      hub,
		Guard:    nil,
		Rewarder: rewarder,
	})

	return &fixture{
		db:       db,
		svc:      svc,
		wallet:   walletSvc,
		menu:     menuSvc,
		hub:      hub,
		rewarder: rewarder,
		node:     node,
	}
}

func (f *fixture) seedUser(t *testing.T) snowflake.ID {
	t.Helper()
	id := f.node.Generate()
	err := f.db.Exec(
		`INSERT INTO users (id, name, email, referral_code) VALUES (?, ?, ?, ?)`,
		id, "Test User", fmt.Sprintf("user-%s@example.com", id), "PF"+id.String(),
	).Error
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return id
}

func (f *fixture) seedMenuItem(t *testing.T, name string, price int64) menudomain.Item {
	t.Helper()
	category, err := f.menu.CreateCategory(context.Background(), menudomain.CreateCategoryRequest{Name: "Mains"})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	item, err := f.menu.CreateItem(context.Background(), menudomain.CreateItemRequest{
		CategoryID: category.ID.String(),
		Name:       name,
		Price:      price,
	})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	return item
}

func customerCtx(userID snowflake.ID) context.Context {
	ctx := actorctx.WithUserID(context.Background(), int64(userID))
	return actorctx.WithRole(ctx, actorctx.RoleCustomer)
}

func staffCtx(userID snowflake.ID) context.Context {
	ctx := actorctx.WithUserID(context.Background(), int64(userID))
	return actorctx.WithRole(ctx, actorctx.RoleStaff)
}

func TestPlaceOrder(t *testing.T) {
	f := setupFixture(t)
	userID := f.seedUser(t)
	item := f.seedMenuItem(t, "Margherita", 9000)

	detail, err := f.svc.Place(customerCtx(userID), domain.PlaceOrderRequest{
		Items: []domain.PlaceOrderItem{
			{MenuItemID: item.ID.String(), Quantity: 2},
		},
		Type:          "TAKEAWAY",
		PaymentMethod: "CASH",
	})
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	if detail.Status != domain.StatusReceived {
		t.Fatalf("status = %s, want RECEIVED", detail.Status)
	}
	if detail.Code == "" || detail.Code[:4] != "ORD-" {
		t.Fatalf("code = %q, want ORD- prefix", detail.Code)
	}
	if detail.Subtotal != 18000 {
		t.Fatalf("subtotal = %d, want 18000", detail.Subtotal)
	}
	// 8% tax, no delivery fee for takeaway.
	if detail.Tax != 1440 {
		t.Fatalf("tax = %d, want 1440", detail.Tax)
	}
	if detail.Fees != 0 {
		t.Fatalf("fees = %d, want 0", detail.Fees)
	}
	if detail.Total != 19440 {
		t.Fatalf("total = %d, want 19440", detail.Total)
	}
	if len(detail.Items) != 1 || detail.Items[0].LineTotal != 18000 {
		t.Fatalf("items = %+v, want one line of 18000", detail.Items)
	}
	if len(detail.StatusHistory) != 1 || detail.StatusHistory[0].Status != domain.StatusReceived {
		t.Fatalf("history = %+v, want seeded RECEIVED entry", detail.StatusHistory)
	}
}

func TestPlaceOrderDeliveryFees(t *testing.T) {
	f := setupFixture(t)
	userID := f.seedUser(t)
	item := f.seedMenuItem(t, "Pad Thai", 12000)

	_, err := f.svc.Place(customerCtx(userID), domain.PlaceOrderRequest{
		Items:         []domain.PlaceOrderItem{{MenuItemID: item.ID.String(), Quantity: 1}},
		Type:          "DELIVERY",
		PaymentMethod: "CARD",
	})
	if !errors.Is(err, domain.ErrMissingAddress) {
		t.Fatalf("delivery without address error = %v, want missing address", err)
	}

	detail, err := f.svc.Place(customerCtx(userID), domain.PlaceOrderRequest{
		Items:           []domain.PlaceOrderItem{{MenuItemID: item.ID.String(), Quantity: 1}},
		Type:            "DELIVERY",
		PaymentMethod:   "CARD",
		DeliveryAddress: "1 Main St",
	})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if detail.Fees != 1500 {
		t.Fatalf("fees = %d, want delivery fee 1500", detail.Fees)
	}
	if detail.Total != 12000+960+1500 {
		t.Fatalf("total = %d, want 14460", detail.Total)
	}
}

func TestPlaceOrderWithWallet(t *testing.T) {
	f := setupFixture(t)
	userID := f.seedUser(t)
	item := f.seedMenuItem(t, "Ramen", 10000)
	ctx := customerCtx(userID)

	if _, err := f.wallet.Credit(context.Background(), walletdomain.MutationRequest{
		UserID: userID.String(),
		Amount: 20000,
		Reason: walletdomain.ReasonAdminCredit,
	}); err != nil {
		t.Fatalf("credit: %v", err)
	}

	// 10800 total at a 50% cap allows at most 5400.
	_, err := f.svc.Place(ctx, domain.PlaceOrderRequest{
		Items:         []domain.PlaceOrderItem{{MenuItemID: item.ID.String(), Quantity: 1}},
		Type:          "TAKEAWAY",
		PaymentMethod: "CASH",
		WalletAmount:  6000,
	})
	if !errors.Is(err, walletdomain.ErrExceedsPolicyLimit) {
		t.Fatalf("place error = %v, want exceeds policy limit", err)
	}

	detail, err := f.svc.Place(ctx, domain.PlaceOrderRequest{
		Items:         []domain.PlaceOrderItem{{MenuItemID: item.ID.String(), Quantity: 1}},
		Type:          "TAKEAWAY",
		PaymentMethod: "CASH",
		WalletAmount:  5000,
	})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if detail.WalletApplied != 5000 {
		t.Fatalf("wallet applied = %d, want 5000", detail.WalletApplied)
	}

	balance, err := f.wallet.GetBalance(context.Background(), userID.String())
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 15000 {
		t.Fatalf("balance after placement = %d, want 15000", balance)
	}
}

func TestDuplicateOrderRejected(t *testing.T) {
	f := setupFixture(t)
	userID := f.seedUser(t)
	item := f.seedMenuItem(t, "Burger", 8000)
	ctx := customerCtx(userID)

	req := domain.PlaceOrderRequest{
		Items:         []domain.PlaceOrderItem{{MenuItemID: item.ID.String(), Quantity: 1}},
		Type:          "TAKEAWAY",
		PaymentMethod: "CASH",
	}
	if _, err := f.svc.Place(ctx, req); err != nil {
		t.Fatalf("first place: %v", err)
	}
	if _, err := f.svc.Place(ctx, req); !errors.Is(err, domain.ErrDuplicateOrder) {
		t.Fatalf("second place error = %v, want duplicate order", err)
	}
}

func TestTransitionRejectsInvalidMove(t *testing.T) {
	f := setupFixture(t)
	userID := f.seedUser(t)
	staffID := f.seedUser(t)
	item := f.seedMenuItem(t, "Tacos", 7000)

	detail, err := f.svc.Place(customerCtx(userID), domain.PlaceOrderRequest{
		Items:         []domain.PlaceOrderItem{{MenuItemID: item.ID.String(), Quantity: 1}},
		Type:          "DINE_IN",
		PaymentMethod: "CASH",
	})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	ctx := staffCtx(staffID)

	// RECEIVED cannot skip straight to PREPARING.
	_, err = f.svc.Transition(ctx, domain.TransitionRequest{
		OrderRef: detail.ID.String(),
		Target:   "PREPARING",
	})
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("transition error = %v, want invalid transition", err)
	}

	if _, err := f.svc.Transition(ctx, domain.TransitionRequest{
		OrderRef: detail.ID.String(),
		Target:   "CONFIRMED",
	}); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	// The rejection names the transitions still available.
	_, err = f.svc.Transition(ctx, domain.TransitionRequest{
		OrderRef: detail.ID.String(),
		Target:   "COMPLETED",
	})
	var transitionErr *domain.InvalidTransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("transition error = %v, want InvalidTransitionError", err)
	}
	if transitionErr.Current != domain.StatusConfirmed {
		t.Fatalf("current = %s, want CONFIRMED", transitionErr.Current)
	}
	allowed := map[domain.Status]bool{}
	for _, status := range transitionErr.Allowed {
		allowed[status] = true
	}
	if len(allowed) != 2 || !allowed[domain.StatusPreparing] || !allowed[domain.StatusCancelled] {
		t.Fatalf("allowed = %v, want PREPARING and CANCELLED", transitionErr.Allowed)
	}

	// Repeating the current status is a rejection, not a no-op.
	_, err = f.svc.Transition(ctx, domain.TransitionRequest{
		OrderRef: detail.ID.String(),
		Target:   "CONFIRMED",
	})
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("same-status transition error = %v, want invalid transition", err)
	}
}

func TestFullLifecycle(t *testing.T) {
	f := setupFixture(t)
	userID := f.seedUser(t)
	staffID := f.seedUser(t)
	item := f.seedMenuItem(t, "Biryani", 30000)

	detail, err := f.svc.Place(customerCtx(userID), domain.PlaceOrderRequest{
		Items:           []domain.PlaceOrderItem{{MenuItemID: item.ID.String(), Quantity: 1}},
		Type:            "DELIVERY",
		PaymentMethod:   "ONLINE",
		DeliveryAddress: "1 Main St",
	})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	ctx := staffCtx(staffID)

	var last domain.TransitionResult
	for _, target := range []string{"CONFIRMED", "PREPARING", "READY", "OUT_FOR_DELIVERY", "COMPLETED"} {
		last, err = f.svc.Transition(ctx, domain.TransitionRequest{
			OrderRef: detail.ID.String(),
			Target:   target,
		})
		if err != nil {
			t.Fatalf("transition to %s: %v", target, err)
		}
	}

	// Seeded RECEIVED plus five transitions.
	if len(last.Order.StatusHistory) != 6 {
		t.Fatalf("history = %d entries, want 6", len(last.Order.StatusHistory))
	}
	if last.Order.StatusHistory[0].Status != domain.StatusReceived {
		t.Fatalf("first history entry = %s, want RECEIVED", last.Order.StatusHistory[0].Status)
	}
	if last.Order.Status != domain.StatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", last.Order.Status)
	}
	if last.Order.PreparedAt == nil {
		t.Fatal("PreparedAt not set by READY")
	}
	if last.Order.DeliveredAt == nil {
		t.Fatal("DeliveredAt not set by COMPLETED")
	}

	// Completion hands the order to the reward processor.
	if len(f.rewarder.enqueued) != 1 || f.rewarder.enqueued[0] != detail.ID {
		t.Fatalf("rewarder enqueued = %v, want [%s]", f.rewarder.enqueued, detail.ID)
	}
}

func TestCancelRefundsWallet(t *testing.T) {
	f := setupFixture(t)
	userID := f.seedUser(t)
	item := f.seedMenuItem(t, "Sushi", 20000)
	ctx := customerCtx(userID)

	if _, err := f.wallet.Credit(context.Background(), walletdomain.MutationRequest{
		UserID: userID.String(),
		Amount: 10000,
		Reason: walletdomain.ReasonAdminCredit,
	}); err != nil {
		t.Fatalf("credit: %v", err)
	}

	detail, err := f.svc.Place(ctx, domain.PlaceOrderRequest{
		Items:         []domain.PlaceOrderItem{{MenuItemID: item.ID.String(), Quantity: 1}},
		Type:          "TAKEAWAY",
		PaymentMethod: "CASH",
		WalletAmount:  8000,
	})
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	// Customers may cancel their own order.
	result, err := f.svc.Transition(ctx, domain.TransitionRequest{
		OrderRef: detail.Code,
		Target:   "CANCELLED",
		Reason:   "changed my mind",
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if result.Order.Status != domain.StatusCancelled {
		t.Fatalf("status = %s, want CANCELLED", result.Order.Status)
	}
	if result.Order.CancelledAt == nil {
		t.Fatal("CancelledAt not set")
	}
	if result.Order.CancellationReason != "changed my mind" {
		t.Fatalf("cancellation reason = %q", result.Order.CancellationReason)
	}

	balance, err := f.wallet.GetBalance(context.Background(), userID.String())
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 10000 {
		t.Fatalf("balance after refund = %d, want 10000", balance)
	}

	var refunds int64
	err = f.db.Raw(
		`SELECT COUNT(1) FROM wallet_transactions WHERE user_id = ? AND reason = ?`,
		userID, walletdomain.ReasonOrderRefund,
	).Scan(&refunds).Error
	if err != nil {
		t.Fatalf("count refunds: %v", err)
	}
	if refunds != 1 {
		t.Fatalf("refund lines = %d, want 1", refunds)
	}
}

func TestCustomerCannotAdvanceOrder(t *testing.T) {
	f := setupFixture(t)
	userID := f.seedUser(t)
	item := f.seedMenuItem(t, "Salad", 6000)
	ctx := customerCtx(userID)

	detail, err := f.svc.Place(ctx, domain.PlaceOrderRequest{
		Items:         []domain.PlaceOrderItem{{MenuItemID: item.ID.String(), Quantity: 1}},
		Type:          "TAKEAWAY",
		PaymentMethod: "CASH",
	})
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	_, err = f.svc.Transition(ctx, domain.TransitionRequest{
		OrderRef: detail.ID.String(),
		Target:   "CONFIRMED",
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("customer transition error = %v, want forbidden", err)
	}
}

func TestResolveIDByCode(t *testing.T) {
	f := setupFixture(t)
	userID := f.seedUser(t)
	item := f.seedMenuItem(t, "Pho", 9500)
	ctx := customerCtx(userID)

	detail, err := f.svc.Place(ctx, domain.PlaceOrderRequest{
		Items:         []domain.PlaceOrderItem{{MenuItemID: item.ID.String(), Quantity: 1}},
		Type:          "TAKEAWAY",
		PaymentMethod: "CASH",
	})
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	byCode, err := f.svc.Get(ctx, domain.GetOrderRequest{OrderRef: detail.Code})
	if err != nil {
		t.Fatalf("get by code: %v", err)
	}
	if byCode.ID != detail.ID {
		t.Fatalf("get by code resolved %s, want %s", byCode.ID, detail.ID)
	}

	byID, err := f.svc.Get(ctx, domain.GetOrderRequest{OrderRef: detail.ID.String()})
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if byID.ID != detail.ID {
		t.Fatalf("get by id resolved %s, want %s", byID.ID, detail.ID)
	}
}

func TestTransitionBroadcastsStatusUpdate(t *testing.T) {
	f := setupFixture(t)
	userID := f.seedUser(t)
	staffID := f.seedUser(t)
	item := f.seedMenuItem(t, "Gnocchi", 9000)

	detail, err := f.svc.Place(customerCtx(userID), domain.PlaceOrderRequest{
		Items:         []domain.PlaceOrderItem{{MenuItemID: item.ID.String(), Quantity: 1}},
		Type:          "TAKEAWAY",
		PaymentMethod: "CASH",
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	sub, err := f.hub.Subscribe(detail.ID.String())
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	// Placement was published before the subscription, so it lives in
	// the backlog rather than the live channel.
	if len(sub.Backlog()) != 1 {
		t.Fatalf("backlog = %d events, want 1", len(sub.Backlog()))
	}

	if _, err := f.svc.Transition(staffCtx(staffID), domain.TransitionRequest{
		OrderRef: detail.ID.String(),
		Target:   "CONFIRMED",
	}); err != nil {
		t.Fatalf("transition: %v", err)
	}

	select {
	case event := <-sub.Events():
		if event.Type != "statusUpdate" {
			t.Fatalf("event type = %q, want statusUpdate", event.Type)
		}
		payload, ok := event.Data.(statusEvent)
		if !ok {
			t.Fatalf("event payload type = %T, want statusEvent", event.Data)
		}
		if payload.Status != domain.StatusConfirmed {
			t.Fatalf("payload status = %s, want CONFIRMED", payload.Status)
		}
		if payload.PreviousStatus != domain.StatusReceived {
			t.Fatalf("payload previous status = %s, want RECEIVED", payload.PreviousStatus)
		}
		if len(payload.StatusHistory) != 2 {
			t.Fatalf("payload status history = %d entries, want 2", len(payload.StatusHistory))
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for status update")
	}
}
