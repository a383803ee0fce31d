package domain

import (
	"context"
	"errors"
)

// MutationRequest describes one credit or debit.
type MutationRequest struct {
	UserID            string
	Amount            int64
	Reason            Reason
	OrderID           string
	CounterpartUserID string
	Description       string
	Metadata          map[string]interface{}
}

// MutationResult reports the balance movement and the appended ledger line.
type MutationResult struct {
	PreviousBalance int64       `json:"previous_balance"`
	NewBalance      int64       `json:"new_balance"`
	Transaction     Transaction `json:"transaction"`
}

type ValidateWalletUsageRequest struct {
	UserID     string
	Requested  int64
	OrderTotal int64
	MaxPercent int
}

type ValidateWalletUsageResult struct {
	Valid      bool  `json:"valid"`
	MaxAllowed int64 `json:"max_allowed"`
}

type ListTransactionsRequest struct {
	UserID    string
	Reason    string
	Direction string
	Limit     int
	Offset    int
}

type ListTransactionsResponse struct {
	Transactions []Transaction `json:"transactions"`
}

type Service interface {
	Credit(context.Context, MutationRequest) (MutationResult, error)
	Debit(context.Context, MutationRequest) (MutationResult, error)
	ValidateWalletUsage(context.Context, ValidateWalletUsageRequest) (ValidateWalletUsageResult, error)
	GetBalance(ctx context.Context, userID string) (int64, error)
	ListTransactions(context.Context, ListTransactionsRequest) (ListTransactionsResponse, error)
	HasTransaction(ctx context.Context, userID string, reason Reason) (bool, error)
}

// BalanceError carries the available balance alongside the failure so the
// caller can surface it.
type BalanceError struct {
	Available int64
}

func (e *BalanceError) Error() string { return "insufficient_balance" }

func (e *BalanceError) Is(target error) bool { return target == ErrInsufficientBalance }

var (
	ErrInvalidUser         = errors.New("invalid_user")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidReason       = errors.New("invalid_reason")
	ErrInvalidReference    = errors.New("invalid_reference")
	ErrInsufficientBalance = errors.New("insufficient_balance")
	ErrExceedsPolicyLimit  = errors.New("exceeds_policy_limit")
	ErrExceedsOrderTotal   = errors.New("exceeds_order_total")
	ErrAccountNotFound     = errors.New("account_not_found")
)
