// Package handlers exposes the shop over HTTP with gin.
package handlers

import (
	"errors"
	"net/http"

	"freetime_shop/internal/apperr"
	"freetime_shop/internal/catalog"
	"freetime_shop/internal/checkout"
	"freetime_shop/internal/middleware"
	"freetime_shop/internal/payment"
	"freetime_shop/internal/store"
	"freetime_shop/internal/wallet"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Handlers struct {
	Catalog  *catalog.Catalog
	Store    *store.Store
	Payments *payment.Simulator
	Checkout *checkout.Service
	Launcher wallet.Launcher
	Log      logrus.FieldLogger
}

// fail answers with the status of err's kind. Unclassified errors are
// logged and reported as internal errors.
func (h *Handlers) fail(c *gin.Context, err error) {
	var typed *apperr.Error
	if !errors.As(err, &typed) {
		h.Log.WithError(err).WithField("path", c.FullPath()).Error("unhandled error")
	}
	_ = c.Error(err)
	c.JSON(apperr.HTTPStatus(err), gin.H{"error": apperr.Message(err)})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func customerID(c *gin.Context) string {
	return c.GetString(middleware.CustomerIDKey)
}

func customerEmail(c *gin.Context) string {
	return c.GetString(middleware.EmailKey)
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
