package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	orderdomain "github.com/platefulhq/plateful/internal/order/domain"
	"github.com/platefulhq/plateful/pkg/db/pagination"
)

type placeOrderItemRequest struct {
	MenuItemID string   `json:"menu_item_id"`
	Quantity   int      `json:"quantity"`
	Addons     []string `json:"addons"`
}

type placeOrderRequest struct {
	Items           []placeOrderItemRequest `json:"items"`
	Type            string                  `json:"type"`
	PaymentMethod   string                  `json:"payment_method"`
	WalletAmount    int64                   `json:"wallet_amount"`
	DeliveryAddress string                  `json:"delivery_address"`
	Metadata        map[string]interface{}  `json:"metadata"`
}

func (s *Server) PlaceOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	items := make([]orderdomain.PlaceOrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, orderdomain.PlaceOrderItem{
			MenuItemID: strings.TrimSpace(item.MenuItemID),
			Quantity:   item.Quantity,
			Addons:     item.Addons,
		})
	}

	resp, err := s.orderSvc.Place(c.Request.Context(), orderdomain.PlaceOrderRequest{
		Items:           items,
		Type:            req.Type,
		PaymentMethod:   req.PaymentMethod,
		WalletAmount:    req.WalletAmount,
		DeliveryAddress: req.DeliveryAddress,
		Metadata:        req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("order_code", resp.Code)
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetOrderByRef(c *gin.Context) {
	resp, err := s.orderSvc.Get(c.Request.Context(), orderdomain.GetOrderRequest{
		OrderRef: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("order_code", resp.Code)
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListOrders(c *gin.Context) {
	var query struct {
		pagination.Pagination
		UserID string `form:"user_id"`
		Status string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orderSvc.List(c.Request.Context(), orderdomain.ListOrderRequest{
		UserID:    strings.TrimSpace(query.UserID),
		Status:    strings.TrimSpace(query.Status),
		PageToken: query.PageToken,
		PageSize:  int32(query.PageSize),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type transitionOrderRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

func (s *Server) TransitionOrder(c *gin.Context) {
	var req transitionOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orderSvc.Transition(c.Request.Context(), orderdomain.TransitionRequest{
		OrderRef: strings.TrimSpace(c.Param("id")),
		Target:   req.Status,
		Reason:   req.Reason,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("order_code", resp.Order.Code)
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

// CancelOrder is a convenience wrapper around the CANCELLED transition.
func (s *Server) CancelOrder(c *gin.Context) {
	var req cancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orderSvc.Transition(c.Request.Context(), orderdomain.TransitionRequest{
		OrderRef: strings.TrimSpace(c.Param("id")),
		Target:   string(orderdomain.StatusCancelled),
		Reason:   req.Reason,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("order_code", resp.Order.Code)
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
