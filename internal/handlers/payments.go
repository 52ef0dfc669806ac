package handlers

import (
	"net/http"
	"strconv"

	"freetime_shop/internal/apperr"
	"freetime_shop/internal/models"
	"freetime_shop/internal/payment"
	"freetime_shop/internal/wallet"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CreatePayment serves POST /api/payments and answers with the session and
// the wallets able to pay it.
func (h *Handlers) CreatePayment(c *gin.Context) {
	var input struct {
		Amount        decimal.Decimal `json:"amount"`
		Currency      string          `json:"currency" binding:"required"`
		OrderID       string          `json:"orderId"`
		CustomerEmail string          `json:"customerEmail"`
		Description   string          `json:"description"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "invalid body")
		return
	}
	if input.CustomerEmail == "" {
		input.CustomerEmail = customerEmail(c)
	}

	res, err := h.Payments.CreatePaymentWithWalletSelection(c.Request.Context(), payment.Request{
		Amount:        input.Amount,
		Currency:      input.Currency,
		OrderID:       input.OrderID,
		CustomerID:    customerID(c),
		CustomerEmail: input.CustomerEmail,
		Description:   input.Description,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// ProcessPayment blocks for the simulated processing time. A client that
// disconnects leaves the payment PENDING.
func (h *Handlers) ProcessPayment(c *gin.Context) {
	id := c.Param("id")
	if !h.standalonePayment(c, id) {
		return
	}
	result, err := h.Payments.ProcessPayment(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handlers) GetPayment(c *gin.Context) {
	session, ok := h.ownPayment(c, c.Param("id"))
	if !ok {
		return
	}
	c.JSON(http.StatusOK, session)
}

// ownPayment looks up a payment of the caller. Payments of other customers
// are reported as not found.
func (h *Handlers) ownPayment(c *gin.Context, id string) (models.PaymentSession, bool) {
	session, err := h.Payments.Session(id)
	if err == nil && session.CustomerID != customerID(c) {
		err = apperr.NotFound("handlers.payment", "payment", id)
	}
	if err != nil {
		h.fail(c, err)
		return models.PaymentSession{}, false
	}
	return session, true
}

// standalonePayment is ownPayment for routes that change a payment. A
// payment that settles an order only changes through the order routes.
func (h *Handlers) standalonePayment(c *gin.Context, id string) bool {
	if _, ok := h.ownPayment(c, id); !ok {
		return false
	}
	if order, ok := h.Store.OrderByPayment(id); ok {
		h.fail(c, apperr.Conflict("handlers.payment", "payment %s belongs to order %s, use /api/orders/%s", id, order.ID, order.ID))
		return false
	}
	return true
}

func (h *Handlers) CancelPayment(c *gin.Context) {
	id := c.Param("id")
	if !h.standalonePayment(c, id) {
		return
	}
	if err := h.Payments.CancelPayment(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	h.respondStatus(c, id)
}

// RefundPayment accepts an optional {"amount"} for a partial refund.
func (h *Handlers) RefundPayment(c *gin.Context) {
	var input struct {
		Amount *decimal.Decimal `json:"amount"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, "invalid body")
			return
		}
	}
	id := c.Param("id")
	if !h.standalonePayment(c, id) {
		return
	}
	if err := h.Payments.RefundPayment(c.Request.Context(), id, input.Amount); err != nil {
		h.fail(c, err)
		return
	}
	h.respondStatus(c, id)
}

func (h *Handlers) respondStatus(c *gin.Context, id string) {
	status, err := h.Payments.Status(id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment_id": id, "status": status})
}

func (h *Handlers) ListWallets(c *gin.Context) {
	apps, err := h.Payments.AvailableWalletApps(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wallets": apps})
}

// WalletLink serves the deep link for a wallet, as JSON or, with
// ?format=png, as a QR code to scan from a phone.
func (h *Handlers) WalletLink(c *gin.Context) {
	if _, ok := h.ownPayment(c, c.Param("id")); !ok {
		return
	}
	app, link, err := h.Payments.DeepLinkFor(c.Request.Context(), c.Param("package"), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	if c.Query("format") == "png" {
		size, _ := strconv.Atoi(c.DefaultQuery("size", "256"))
		if size < 64 || size > 1024 {
			badRequest(c, "size must be between 64 and 1024")
			return
		}
		png, err := wallet.QRCode(link, size)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.Data(http.StatusOK, "image/png", png)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wallet": app, "deep_link": link})
}

// OpenWallet asks the host to open the deep link in the wallet app.
func (h *Handlers) OpenWallet(c *gin.Context) {
	if _, ok := h.ownPayment(c, c.Param("id")); !ok {
		return
	}
	app, link, err := h.Payments.DeepLinkFor(c.Request.Context(), c.Param("package"), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.Launcher.Open(c.Request.Context(), link); err != nil {
		h.Log.WithError(err).WithField("wallet", app.PackageName).Warn("open wallet")
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wallet": app, "deep_link": link, "opened": true})
}
