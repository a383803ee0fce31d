package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/platefulhq/plateful/internal/actorctx"
	walletdomain "github.com/platefulhq/plateful/internal/wallet/domain"
)

func (s *Server) GetWalletBalance(c *gin.Context) {
	userID, _ := actorctx.UserIDFromContext(c.Request.Context())

	balance, err := s.walletSvc.GetBalance(c.Request.Context(), userID.String())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"user_id": userID.String(),
		"balance": balance,
	}})
}

func (s *Server) ListWalletTransactions(c *gin.Context) {
	var query struct {
		Reason    string `form:"reason"`
		Direction string `form:"direction"`
		Limit     int    `form:"limit,default=50"`
		Offset    int    `form:"offset"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	userID, _ := actorctx.UserIDFromContext(c.Request.Context())
	resp, err := s.walletSvc.ListTransactions(c.Request.Context(), walletdomain.ListTransactionsRequest{
		UserID:    userID.String(),
		Reason:    strings.TrimSpace(query.Reason),
		Direction: strings.TrimSpace(query.Direction),
		Limit:     query.Limit,
		Offset:    query.Offset,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type validateWalletUsageRequest struct {
	Amount     int64 `json:"amount"`
	OrderTotal int64 `json:"order_total"`
}

func (s *Server) ValidateWalletUsage(c *gin.Context) {
	var req validateWalletUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	userID, _ := actorctx.UserIDFromContext(c.Request.Context())
	resp, err := s.walletSvc.ValidateWalletUsage(c.Request.Context(), walletdomain.ValidateWalletUsageRequest{
		UserID:     userID.String(),
		Requested:  req.Amount,
		OrderTotal: req.OrderTotal,
		MaxPercent: s.rewards.Get().WalletMaxPercent,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type adminWalletMutationRequest struct {
	UserID      string `json:"user_id"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

func (s *Server) AdminCreditWallet(c *gin.Context) {
	s.adminMutateWallet(c, walletdomain.ReasonAdminCredit)
}

func (s *Server) AdminDebitWallet(c *gin.Context) {
	s.adminMutateWallet(c, walletdomain.ReasonAdminDebit)
}

func (s *Server) adminMutateWallet(c *gin.Context, reason walletdomain.Reason) {
	var req adminWalletMutationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	actorID, _ := actorctx.UserIDFromContext(c.Request.Context())
	mutation := walletdomain.MutationRequest{
		UserID:            strings.TrimSpace(req.UserID),
		Amount:            req.Amount,
		Reason:            reason,
		CounterpartUserID: actorID.String(),
		Description:       strings.TrimSpace(req.Description),
	}

	var (
		resp walletdomain.MutationResult
		err  error
	)
	if reason == walletdomain.ReasonAdminCredit {
		resp, err = s.walletSvc.Credit(c.Request.Context(), mutation)
	} else {
		resp, err = s.walletSvc.Debit(c.Request.Context(), mutation)
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
