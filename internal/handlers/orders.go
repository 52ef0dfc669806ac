package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handlers) ListOrders(c *gin.Context) {
	orders, err := h.Store.OrderHistory(c.Request.Context(), customerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *Handlers) GetOrder(c *gin.Context) {
	order, err := h.Store.Order(c.Request.Context(), customerID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// CheckoutCart serves POST /api/checkout. The e-mail defaults to the one in the
// token.
func (h *Handlers) CheckoutCart(c *gin.Context) {
	var input struct {
		Email string `json:"email"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, "invalid body")
			return
		}
	}
	if input.Email == "" {
		input.Email = customerEmail(c)
	}

	started, err := h.Checkout.Begin(c.Request.Context(), customerID(c), input.Email)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, started)
}

func (h *Handlers) PayOrder(c *gin.Context) {
	paid, err := h.Checkout.Pay(c.Request.Context(), customerID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, paid)
}

func (h *Handlers) CancelOrder(c *gin.Context) {
	order, err := h.Checkout.Cancel(c.Request.Context(), customerID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handlers) RefundOrder(c *gin.Context) {
	order, err := h.Checkout.Refund(c.Request.Context(), customerID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handlers) OrderDownloads(c *gin.Context) {
	links, err := h.Checkout.Downloads(c.Request.Context(), customerID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"downloads": links})
}
