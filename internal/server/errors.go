package server

import (
	"errors"
	"net/http"
	"strings"

	accountdomain "github.com/platefulhq/plateful/internal/account/domain"
	menudomain "github.com/platefulhq/plateful/internal/menu/domain"
	orderdomain "github.com/platefulhq/plateful/internal/order/domain"
	"github.com/platefulhq/plateful/internal/order/livefeed"
	walletdomain "github.com/platefulhq/plateful/internal/wallet/domain"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
	Details map[string]any    `json:"details,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	// Transition rejections carry the transitions still available so a
	// client can recover without another round trip.
	var transitionErr *orderdomain.InvalidTransitionError
	if errors.As(err, &transitionErr) {
		allowed := make([]string, 0, len(transitionErr.Allowed))
		for _, status := range transitionErr.Allowed {
			allowed = append(allowed, string(status))
		}
		return http.StatusConflict, errorPayload{
			Type:    "invalid_transition",
			Message: "transition not allowed",
			Details: map[string]any{
				"current_status": string(transitionErr.Current),
				"target_status":  string(transitionErr.Target),
				"allowed":        allowed,
			},
		}
	}

	var balanceErr *walletdomain.BalanceError
	if errors.As(err, &balanceErr) {
		return http.StatusBadRequest, errorPayload{
			Type:    "insufficient_balance",
			Message: "insufficient wallet balance",
			Details: map[string]any{
				"available": balanceErr.Available,
			},
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, orderdomain.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, orderdomain.ErrDuplicateOrder):
		return http.StatusConflict, errorPayload{
			Type:    "duplicate_order",
			Message: "an identical order was just placed",
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, accountdomain.ErrEmailExists),
		errors.Is(err, accountdomain.ErrReferralAlreadySet):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case errors.Is(err, orderdomain.ErrTooManyOrders):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "too_many_orders",
			Message: "too many orders, slow down",
		}
	case errors.Is(err, livefeed.ErrTopicAtCapacity):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "live_feed_at_capacity",
			Message: "live feed is at capacity, retry later",
		}
	case errors.Is(err, walletdomain.ErrInsufficientBalance):
		return http.StatusBadRequest, errorPayload{
			Type:    "insufficient_balance",
			Message: "insufficient wallet balance",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	case errors.Is(err, ErrInternal):
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return true
	case isAccountValidationError(err),
		isMenuValidationError(err),
		isOrderValidationError(err),
		isWalletValidationError(err):
		return true
	default:
		return false
	}
}

func isAccountValidationError(err error) bool {
	switch err {
	case accountdomain.ErrInvalidName,
		accountdomain.ErrInvalidEmail,
		accountdomain.ErrInvalidID,
		accountdomain.ErrInvalidReferralCode,
		accountdomain.ErrSelfReferral:
		return true
	default:
		return false
	}
}

func isMenuValidationError(err error) bool {
	switch err {
	case menudomain.ErrInvalidName,
		menudomain.ErrInvalidPrice,
		menudomain.ErrInvalidCategory,
		menudomain.ErrInvalidID:
		return true
	default:
		return false
	}
}

func isOrderValidationError(err error) bool {
	switch err {
	case orderdomain.ErrInvalidStatus,
		orderdomain.ErrInvalidType,
		orderdomain.ErrInvalidPayment,
		orderdomain.ErrInvalidItems,
		orderdomain.ErrInvalidQuantity,
		orderdomain.ErrInvalidUser,
		orderdomain.ErrInvalidID,
		orderdomain.ErrInvalidReason,
		orderdomain.ErrItemUnavailable,
		orderdomain.ErrMissingAddress:
		return true
	default:
		return false
	}
}

func isWalletValidationError(err error) bool {
	switch err {
	case walletdomain.ErrInvalidUser,
		walletdomain.ErrInvalidAmount,
		walletdomain.ErrInvalidReason,
		walletdomain.ErrInvalidReference,
		walletdomain.ErrExceedsPolicyLimit,
		walletdomain.ErrExceedsOrderTotal:
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, accountdomain.ErrNotFound),
		errors.Is(err, menudomain.ErrNotFound),
		errors.Is(err, orderdomain.ErrNotFound),
		errors.Is(err, walletdomain.ErrAccountNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	default:
		return "invalid value"
	}
}

// classifyErrorForLog buckets errors for request logs without leaking
// message contents.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	switch {
	case status >= http.StatusInternalServerError:
		return "server_error", payload.Type
	case status >= http.StatusBadRequest:
		return "client_error", payload.Type
	default:
		return "", payload.Type
	}
}
