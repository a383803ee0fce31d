package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	orderdomain "github.com/platefulhq/plateful/internal/order/domain"
	"github.com/platefulhq/plateful/internal/order/livefeed"
)

// StreamOrderEvents serves the live order status feed over SSE. The
// connection opens with a snapshot of the order, replays anything the
// client missed, then streams committed status changes until the client
// disconnects.
func (s *Server) StreamOrderEvents(c *gin.Context) {
	ref := strings.TrimSpace(c.Param("id"))
	if ref == "" {
		AbortWithError(c, invalidRequestError())
		return
	}

	// Get also enforces that the caller may see this order.
	detail, err := s.orderSvc.Get(c.Request.Context(), orderdomain.GetOrderRequest{OrderRef: ref})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Set("order_code", detail.Code)

	subscription, err := s.liveFeed.Subscribe(detail.ID.String())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	defer subscription.Close()

	writer := c.Writer
	headers := writer.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	flusher, ok := writer.(http.Flusher)
	if !ok {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	if _, err := io.WriteString(writer, "retry: 2000\n\n"); err != nil {
		return
	}

	initial := livefeed.Event{
		Type:      "initial",
		Timestamp: time.Now().UTC(),
		Data:      detail,
	}
	if err := writeOrderEvent(writer, initial); err != nil {
		return
	}
	connected := livefeed.Event{
		Type:      "connected",
		Timestamp: time.Now().UTC(),
	}
	if err := writeOrderEvent(writer, connected); err != nil {
		return
	}
	for _, event := range subscription.Backlog() {
		if err := writeOrderEvent(writer, event); err != nil {
			return
		}
	}
	flusher.Flush()

	ctx := c.Request.Context()
	heartbeat := time.NewTicker(s.rewards.Get().LiveFeedHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-subscription.Events():
			if err := writeOrderEvent(writer, event); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := io.WriteString(writer, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeOrderEvent(w io.Writer, event livefeed.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
