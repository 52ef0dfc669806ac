package handlers

import (
	"net/http"
	"time"

	"freetime_shop/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	pingInterval = 30 * time.Second
	writeWait    = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	// browsers are authenticated by token, not by cookie
	CheckOrigin: func(r *http.Request) bool { return true },
}

// CartWebSocket serves GET /api/cart/ws: the current cart, then a new
// snapshot after every change.
func (h *Handlers) CartWebSocket(c *gin.Context) {
	customer := customerID(c)
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Log.WithError(err).Warn("cart websocket upgrade")
		return
	}
	defer conn.Close()

	ch, cancel := h.Store.SubscribeCart(customer)
	defer cancel()

	if err := conn.WriteJSON(gin.H{"type": "connected", "message": "cart sync enabled"}); err != nil {
		return
	}
	pump(conn, ch, func(items []models.CartItem) any {
		view := newCartView(items)
		return gin.H{"type": "cart_updated", "items": view.Items, "total": view.Total, "count": view.Count}
	})
}

// PaymentWebSocket serves GET /api/payments/:id/ws with every status the
// payment goes through.
func (h *Handlers) PaymentWebSocket(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.ownPayment(c, id); !ok {
		return
	}
	ch, cancel, err := h.Payments.SubscribeStatus(id)
	if err != nil {
		h.fail(c, err)
		return
	}
	defer cancel()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Log.WithError(err).Warn("payment websocket upgrade")
		return
	}
	defer conn.Close()

	if err := conn.WriteJSON(gin.H{"type": "connected", "payment_id": id}); err != nil {
		return
	}
	pump(conn, ch, func(status models.PaymentStatus) any {
		return gin.H{"type": "payment_status", "payment_id": id, "status": status}
	})
}

// pump writes every value of ch to conn until the client goes away or ch
// is closed, pinging the client while idle.
func pump[T any](conn *websocket.Conn, ch <-chan T, render func(T) any) {
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-gone:
			return
		case v, ok := <-ch:
			if !ok {
				msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down")
				_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(render(v)); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
