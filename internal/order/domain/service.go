package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/platefulhq/plateful/pkg/db/pagination"
)

type PlaceOrderItem struct {
	MenuItemID string
	Quantity   int
	Addons     []string
}

type PlaceOrderRequest struct {
	Items           []PlaceOrderItem
	Type            string
	PaymentMethod   string
	WalletAmount    int64
	DeliveryAddress string
	Metadata        map[string]interface{}
}

type TransitionRequest struct {
	OrderRef string // canonical ID or order code
	Target   string
	Reason   string // required when cancelling
}

type GetOrderRequest struct {
	OrderRef string
}

type ListOrderRequest struct {
	UserID    string
	Status    string
	PageToken string
	PageSize  int32
}

// OrderDetail is the full order read model.
type OrderDetail struct {
	Order
	Items         []Item               `json:"items"`
	StatusHistory []StatusHistoryEntry `json:"status_history"`
}

type ListOrderResponse struct {
	pagination.PageInfo
	Orders []Order `json:"orders"`
}

// TransitionResult reports an applied transition.
type TransitionResult struct {
	Order          OrderDetail `json:"order"`
	PreviousStatus Status      `json:"previous_status"`
}

type Service interface {
	Place(context.Context, PlaceOrderRequest) (OrderDetail, error)
	Get(context.Context, GetOrderRequest) (OrderDetail, error)
	List(context.Context, ListOrderRequest) (ListOrderResponse, error)
	Transition(context.Context, TransitionRequest) (TransitionResult, error)
	// ResolveID maps an ID-or-code reference to the canonical order ID.
	ResolveID(ctx context.Context, ref string) (snowflake.ID, error)
}

// RewardEnqueuer hands completed orders to the referral processor. Best
// effort: enqueueing must never fail the transition.
type RewardEnqueuer interface {
	Enqueue(orderID snowflake.ID)
}

// InvalidTransitionError reports a rejected transition together with the
// transitions the order can still take, so callers can self-correct.
type InvalidTransitionError struct {
	Current Status
	Target  Status
	Allowed []Status
}

func (e *InvalidTransitionError) Error() string { return "invalid_transition" }

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

var (
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrInvalidStatus     = errors.New("invalid_status")
	ErrInvalidType       = errors.New("invalid_type")
	ErrInvalidPayment    = errors.New("invalid_payment_method")
	ErrInvalidItems      = errors.New("invalid_items")
	ErrInvalidQuantity   = errors.New("invalid_quantity")
	ErrInvalidUser       = errors.New("invalid_user")
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidReason     = errors.New("invalid_reason")
	ErrItemUnavailable   = errors.New("item_unavailable")
	ErrMissingAddress    = errors.New("missing_delivery_address")
	ErrDuplicateOrder    = errors.New("duplicate_order")
	ErrTooManyOrders     = errors.New("too_many_orders")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("order_not_found")
)
