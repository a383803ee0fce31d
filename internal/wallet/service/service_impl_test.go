package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/platefulhq/plateful/internal/clock"
	"github.com/platefulhq/plateful/internal/wallet/domain"
	"github.com/platefulhq/plateful/internal/wallet/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

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
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func newService(t *testing.T, db *gorm.DB) domain.Service {
	t.Helper()
	return New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: mustNode(t),
		Clock: clock.NewSystemClock(),
		Repo:  repository.Provide(),
	})
}

func seedUser(t *testing.T, db *gorm.DB, id snowflake.ID) {
	t.Helper()
	err := db.Exec(
		`INSERT INTO users (id, name, email, referral_code) VALUES (?, ?, ?, ?)`,
		id, "Test User", fmt.Sprintf("user-%s@example.com", id), "PF"+id.String(),
	).Error
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func TestCreditDebitBalance(t *testing.T) {
	db := setupDB(t)
	svc := newService(t, db)
	node := mustNode(t)
	userID := node.Generate()
	seedUser(t, db, userID)
	ctx := context.Background()

	credit, err := svc.Credit(ctx, domain.MutationRequest{
		UserID: userID.String(),
		Amount: 10000,
		Reason: domain.ReasonAdminCredit,
	})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if credit.NewBalance != 10000 {
		t.Fatalf("balance after credit = %d, want 10000", credit.NewBalance)
	}

	debit, err := svc.Debit(ctx, domain.MutationRequest{
		UserID: userID.String(),
		Amount: 4000,
		Reason: domain.ReasonOrderPayment,
	})
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if debit.NewBalance != 6000 {
		t.Fatalf("balance after debit = %d, want 6000", debit.NewBalance)
	}

	// The cached balance must equal credits minus debits in the ledger.
	var ledgerBalance int64
	err = db.Raw(
		`SELECT COALESCE(SUM(CASE WHEN direction = 'credit' THEN amount ELSE -amount END), 0)
		 FROM wallet_transactions WHERE user_id = ?`,
		userID,
	).Scan(&ledgerBalance).Error
	if err != nil {
		t.Fatalf("ledger sum: %v", err)
	}
	balance, err := svc.GetBalance(ctx, userID.String())
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance != ledgerBalance {
		t.Fatalf("cached balance %d does not match ledger %d", balance, ledgerBalance)
	}
}

func TestDebitInsufficientBalance(t *testing.T) {
	db := setupDB(t)
	svc := newService(t, db)
	node := mustNode(t)
	userID := node.Generate()
	seedUser(t, db, userID)
	ctx := context.Background()

	if _, err := svc.Credit(ctx, domain.MutationRequest{
		UserID: userID.String(),
		Amount: 3000,
		Reason: domain.ReasonAdminCredit,
	}); err != nil {
		t.Fatalf("credit: %v", err)
	}

	_, err := svc.Debit(ctx, domain.MutationRequest{
		UserID: userID.String(),
		Amount: 5000,
		Reason: domain.ReasonOrderPayment,
	})
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("debit error = %v, want insufficient balance", err)
	}
	var balanceErr *domain.BalanceError
	if !errors.As(err, &balanceErr) {
		t.Fatalf("debit error %T does not carry available balance", err)
	}
	if balanceErr.Available != 3000 {
		t.Fatalf("available = %d, want 3000", balanceErr.Available)
	}

	// A failed debit must not mutate the account or the ledger.
	balance, err := svc.GetBalance(ctx, userID.String())
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance != 3000 {
		t.Fatalf("balance = %d, want 3000", balance)
	}
	var count int64
	if err := db.Raw(`SELECT COUNT(1) FROM wallet_transactions WHERE user_id = ?`, userID).Scan(&count).Error; err != nil {
		t.Fatalf("count transactions: %v", err)
	}
	if count != 1 {
		t.Fatalf("transactions = %d, want 1", count)
	}
}

func TestConcurrentDebits(t *testing.T) {
	db := setupDB(t)
	svc := newService(t, db)
	node := mustNode(t)
	userID := node.Generate()
	seedUser(t, db, userID)
	ctx := context.Background()

	if _, err := svc.Credit(ctx, domain.MutationRequest{
		UserID: userID.String(),
		Amount: 10000,
		Reason: domain.ReasonAdminCredit,
	}); err != nil {
		t.Fatalf("credit: %v", err)
	}

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.Debit(ctx, domain.MutationRequest{
				UserID: userID.String(),
				Amount: 6000,
				Reason: domain.ReasonOrderPayment,
			})
		}(i)
	}
	wg.Wait()

	failures := 0
	for _, err := range results {
		if err != nil {
			if !errors.Is(err, domain.ErrInsufficientBalance) {
				t.Fatalf("unexpected debit error: %v", err)
			}
			failures++
		}
	}
	if failures != 1 {
		t.Fatalf("failed debits = %d, want exactly 1", failures)
	}

	balance, err := svc.GetBalance(ctx, userID.String())
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance != 4000 {
		t.Fatalf("final balance = %d, want 4000", balance)
	}
}

func TestValidateWalletUsage(t *testing.T) {
	db := setupDB(t)
	svc := newService(t, db)
	node := mustNode(t)
	userID := node.Generate()
	seedUser(t, db, userID)
	ctx := context.Background()

	if _, err := svc.Credit(ctx, domain.MutationRequest{
		UserID: userID.String(),
		Amount: 10000,
		Reason: domain.ReasonAdminCredit,
	}); err != nil {
		t.Fatalf("credit: %v", err)
	}

	// Requesting 60 on a 100 order with a 50% cap breaks the policy.
	_, err := svc.ValidateWalletUsage(ctx, domain.ValidateWalletUsageRequest{
		UserID:     userID.String(),
		Requested:  6000,
		OrderTotal: 10000,
		MaxPercent: 50,
	})
	if !errors.Is(err, domain.ErrExceedsPolicyLimit) {
		t.Fatalf("validate error = %v, want exceeds policy limit", err)
	}

	result, err := svc.ValidateWalletUsage(ctx, domain.ValidateWalletUsageRequest{
		UserID:     userID.String(),
		Requested:  4000,
		OrderTotal: 10000,
		MaxPercent: 50,
	})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !result.Valid {
		t.Fatalf("requested 4000 of 10000 at 50%% should be valid")
	}
	if result.MaxAllowed != 5000 {
		t.Fatalf("max allowed = %d, want 5000", result.MaxAllowed)
	}

	// More than the balance fails even when within policy.
	_, err = svc.ValidateWalletUsage(ctx, domain.ValidateWalletUsageRequest{
		UserID:     userID.String(),
		Requested:  11000,
		OrderTotal: 30000,
		MaxPercent: 50,
	})
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("validate error = %v, want insufficient balance", err)
	}
}

func TestMutationRejectsMalformedReferences(t *testing.T) {
	db := setupDB(t)
	svc := newService(t, db)
	node := mustNode(t)
	userID := node.Generate()
	seedUser(t, db, userID)
	ctx := context.Background()

	_, err := svc.Credit(ctx, domain.MutationRequest{
		UserID:  userID.String(),
		Amount:  1000,
		Reason:  domain.ReasonOrderRefund,
		OrderID: "not-an-id",
	})
	if !errors.Is(err, domain.ErrInvalidReference) {
		t.Fatalf("credit with bad order reference error = %v, want invalid reference", err)
	}

	_, err = svc.Credit(ctx, domain.MutationRequest{
		UserID:            userID.String(),
		Amount:            1000,
		Reason:            domain.ReasonReferralBonusRef,
		CounterpartUserID: "not-an-id",
	})
	if !errors.Is(err, domain.ErrInvalidReference) {
		t.Fatalf("credit with bad counterpart reference error = %v, want invalid reference", err)
	}

	// Neither rejected mutation may touch the ledger.
	var count int64
	if err := db.Raw(`SELECT COUNT(1) FROM wallet_transactions WHERE user_id = ?`, userID).Scan(&count).Error; err != nil {
		t.Fatalf("count transactions: %v", err)
	}
	if count != 0 {
		t.Fatalf("transactions = %d, want 0", count)
	}
}
