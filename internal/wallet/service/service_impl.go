package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/platefulhq/plateful/internal/clock"
	obsmetrics "github.com/platefulhq/plateful/internal/observability/metrics"
	"github.com/platefulhq/plateful/internal/wallet/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	metrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("wallet.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

func (s *Service) Credit(ctx context.Context, req domain.MutationRequest) (domain.MutationResult, error) {
	return s.mutate(ctx, domain.DirectionCredit, req)
}

func (s *Service) Debit(ctx context.Context, req domain.MutationRequest) (domain.MutationResult, error) {
	return s.mutate(ctx, domain.DirectionDebit, req)
}

// mutate applies one credit or debit atomically: the account row is
// locked for the duration of the transaction so concurrent mutations on
// the same user serialize, and the ledger line is appended in the same
// transaction as the balance update.
func (s *Service) mutate(ctx context.Context, direction domain.Direction, req domain.MutationRequest) (domain.MutationResult, error) {
	userID, err := s.parseID(req.UserID, domain.ErrInvalidUser)
	if err != nil {
		return domain.MutationResult{}, err
	}
	if req.Amount <= 0 {
		return domain.MutationResult{}, domain.ErrInvalidAmount
	}
	if !req.Reason.Valid() {
		return domain.MutationResult{}, domain.ErrInvalidReason
	}

	var orderID *snowflake.ID
	if value := strings.TrimSpace(req.OrderID); value != "" {
		parsed, err := snowflake.ParseString(value)
		if err != nil {
			return domain.MutationResult{}, domain.ErrInvalidReference
		}
		orderID = &parsed
	}
	var counterpartID *snowflake.ID
	if value := strings.TrimSpace(req.CounterpartUserID); value != "" {
		parsed, err := snowflake.ParseString(value)
		if err != nil {
			return domain.MutationResult{}, domain.ErrInvalidReference
		}
		counterpartID = &parsed
	}

	var result domain.MutationResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, err := s.lockAccount(ctx, tx, userID)
		if err != nil {
			return err
		}

		previous := account.Balance
		next := previous
		switch direction {
		case domain.DirectionCredit:
			next = previous + req.Amount
		case domain.DirectionDebit:
			if req.Amount > previous {
				return &domain.BalanceError{Available: previous}
			}
			next = previous - req.Amount
		}

		if err := s.repo.UpdateBalance(ctx, tx, userID, next); err != nil {
			return err
		}

		metadata := datatypes.JSONMap{}
		for k, v := range req.Metadata {
			metadata[k] = v
		}
		entry := domain.Transaction{
			ID:                s.genID.Generate(),
			UserID:            userID,
			Direction:         direction,
			Amount:            req.Amount,
			Reason:            req.Reason,
			OrderID:           orderID,
			CounterpartUserID: counterpartID,
			BalanceAfter:      next,
			Description:       strings.TrimSpace(req.Description),
			Metadata:          metadata,
			CreatedAt:         s.clock.Now(),
		}
		if err := s.repo.InsertTransaction(ctx, tx, &entry); err != nil {
			return err
		}

		result = domain.MutationResult{
			PreviousBalance: previous,
			NewBalance:      next,
			Transaction:     entry,
		}
		return nil
	})
	if err != nil {
		return domain.MutationResult{}, err
	}

	s.metrics.RecordWalletEntry(ctx, string(req.Reason))
	s.log.Debug("wallet mutation applied",
		zap.String("user_id", userID.String()),
		zap.String("direction", string(direction)),
		zap.Int64("amount", req.Amount),
		zap.String("reason", string(req.Reason)),
		zap.Int64("balance_after", result.NewBalance),
	)

	return result, nil
}

// lockAccount returns the caller's wallet row under a row lock, creating
// it lazily for users registered before the wallet table existed.
func (s *Service) lockAccount(ctx context.Context, tx *gorm.DB, userID snowflake.ID) (*domain.Account, error) {
	account, err := s.repo.FindAccountForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if account != nil {
		return account, nil
	}

	exists, err := s.repo.UserExists(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrAccountNotFound
	}

	now := s.clock.Now()
	fresh := domain.Account{UserID: userID, CreatedAt: now, UpdatedAt: now}
	if err := s.repo.InsertAccount(ctx, tx, &fresh); err != nil {
		return nil, err
	}
	return s.repo.FindAccountForUpdate(ctx, tx, userID)
}

func (s *Service) ValidateWalletUsage(ctx context.Context, req domain.ValidateWalletUsageRequest) (domain.ValidateWalletUsageResult, error) {
	userID, err := s.parseID(req.UserID, domain.ErrInvalidUser)
	if err != nil {
		return domain.ValidateWalletUsageResult{}, err
	}
	if req.Requested < 0 {
		return domain.ValidateWalletUsageResult{}, domain.ErrInvalidAmount
	}

	policyLimit := req.OrderTotal * int64(req.MaxPercent) / 100
	maxAllowed := policyLimit
	if req.OrderTotal < maxAllowed {
		maxAllowed = req.OrderTotal
	}

	if req.Requested == 0 {
		return domain.ValidateWalletUsageResult{Valid: true, MaxAllowed: maxAllowed}, nil
	}

	balance, err := s.balanceFor(ctx, userID)
	if err != nil {
		return domain.ValidateWalletUsageResult{}, err
	}
	if balance < maxAllowed {
		maxAllowed = balance
	}

	if req.Requested > balance {
		return domain.ValidateWalletUsageResult{MaxAllowed: maxAllowed}, &domain.BalanceError{Available: balance}
	}
	if req.Requested > policyLimit {
		return domain.ValidateWalletUsageResult{MaxAllowed: maxAllowed}, domain.ErrExceedsPolicyLimit
	}
	if req.Requested > req.OrderTotal {
		return domain.ValidateWalletUsageResult{MaxAllowed: maxAllowed}, domain.ErrExceedsOrderTotal
	}

	return domain.ValidateWalletUsageResult{Valid: true, MaxAllowed: maxAllowed}, nil
}

func (s *Service) GetBalance(ctx context.Context, userID string) (int64, error) {
	id, err := s.parseID(userID, domain.ErrInvalidUser)
	if err != nil {
		return 0, err
	}
	return s.balanceFor(ctx, id)
}

func (s *Service) balanceFor(ctx context.Context, userID snowflake.ID) (int64, error) {
	account, err := s.repo.FindAccount(ctx, s.db, userID)
	if err != nil {
		return 0, err
	}
	if account == nil {
		exists, err := s.repo.UserExists(ctx, s.db, userID)
		if err != nil {
			return 0, err
		}
		if !exists {
			return 0, domain.ErrAccountNotFound
		}
		return 0, nil
	}
	return account.Balance, nil
}

func (s *Service) ListTransactions(ctx context.Context, req domain.ListTransactionsRequest) (domain.ListTransactionsResponse, error) {
	userID, err := s.parseID(req.UserID, domain.ErrInvalidUser)
	if err != nil {
		return domain.ListTransactionsResponse{}, err
	}

	filter := domain.ListTransactionFilter{
		Limit:  req.Limit,
		Offset: req.Offset,
	}
	if reason := strings.TrimSpace(req.Reason); reason != "" {
		parsed := domain.Reason(reason)
		if !parsed.Valid() {
			return domain.ListTransactionsResponse{}, domain.ErrInvalidReason
		}
		filter.Reason = parsed
	}
	if direction := strings.TrimSpace(req.Direction); direction != "" {
		parsed := domain.Direction(direction)
		if parsed != domain.DirectionCredit && parsed != domain.DirectionDebit {
			return domain.ListTransactionsResponse{}, domain.ErrInvalidReason
		}
		filter.Direction = parsed
	}

	items, err := s.repo.ListTransactions(ctx, s.db, userID, filter)
	if err != nil {
		return domain.ListTransactionsResponse{}, err
	}

	transactions := make([]domain.Transaction, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		transactions = append(transactions, *item)
	}

	return domain.ListTransactionsResponse{Transactions: transactions}, nil
}

func (s *Service) HasTransaction(ctx context.Context, userID string, reason domain.Reason) (bool, error) {
	id, err := s.parseID(userID, domain.ErrInvalidUser)
	if err != nil {
		return false, err
	}
	return s.repo.HasTransaction(ctx, s.db, id, reason)
}

func (s *Service) parseID(value string, invalidErr error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalidErr
	}
	return id, nil
}
