package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	accountdomain "github.com/platefulhq/plateful/internal/account/domain"
	"github.com/platefulhq/plateful/internal/actorctx"
	"github.com/platefulhq/plateful/pkg/db/pagination"
)

type createUserRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	ReferralCode string `json:"referral_code"`
}

func (s *Server) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.accountSvc.Create(c.Request.Context(), accountdomain.CreateUserRequest{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.TrimSpace(req.Email),
		Phone:        strings.TrimSpace(req.Phone),
		ReferralCode: strings.TrimSpace(req.ReferralCode),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetUserByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	// Customers can only read themselves.
	if !actorctx.RoleFromContext(c.Request.Context()).Staff() {
		userID, _ := actorctx.UserIDFromContext(c.Request.Context())
		if id != userID.String() {
			AbortWithError(c, ErrForbidden)
			return
		}
	}

	resp, err := s.accountSvc.GetByID(c.Request.Context(), accountdomain.GetUserRequest{
		ID: id,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type applyReferralCodeRequest struct {
	ReferralCode string `json:"referral_code"`
}

func (s *Server) ApplyReferralCode(c *gin.Context) {
	var req applyReferralCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	userID, _ := actorctx.UserIDFromContext(c.Request.Context())
	resp, err := s.accountSvc.ApplyReferralCode(c.Request.Context(), accountdomain.ApplyReferralCodeRequest{
		UserID:       userID.String(),
		ReferralCode: strings.TrimSpace(req.ReferralCode),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// GetReferralOverview returns the caller's side of the referral program:
// their shareable code and what it has earned them so far.
func (s *Server) GetReferralOverview(c *gin.Context) {
	userID, _ := actorctx.UserIDFromContext(c.Request.Context())
	user, err := s.accountSvc.GetByID(c.Request.Context(), accountdomain.GetUserRequest{
		ID: userID.String(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	overview := gin.H{
		"referral_code":     user.ReferralCode,
		"referral_count":    user.ReferralCount,
		"referral_earnings": user.ReferralEarnings,
		"referral_rewarded": user.ReferralRewarded,
	}
	if user.ReferredBy != nil {
		overview["referred_by"] = user.ReferredBy.String()
	}

	c.JSON(http.StatusOK, gin.H{"data": overview})
}

func (s *Server) ListUsers(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Email    string `form:"email"`
		Referred *bool  `form:"referred"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.accountSvc.List(c.Request.Context(), accountdomain.ListUserRequest{
		PageToken: query.PageToken,
		PageSize:  int32(query.PageSize),
		Email:     strings.TrimSpace(query.Email),
		Referred:  query.Referred,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
