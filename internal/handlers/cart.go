package handlers

import (
	"net/http"

	"freetime_shop/internal/models"

	"github.com/gin-gonic/gin"
)

type cartView struct {
	Items []models.CartItem `json:"items"`
	Total string            `json:"total"`
	Count int               `json:"count"`
}

func newCartView(items []models.CartItem) cartView {
	if items == nil {
		items = []models.CartItem{}
	}
	return cartView{Items: items, Total: models.CartTotal(items).StringFixed(2), Count: len(items)}
}

func (h *Handlers) GetCart(c *gin.Context) {
	c.JSON(http.StatusOK, newCartView(h.Store.CartItems(customerID(c))))
}

// AddCartItem serves POST /api/cart/items {"wallpaperId", "quantity"}.
// The wallpaper is looked up in the catalog so the price cannot be forged.
func (h *Handlers) AddCartItem(c *gin.Context) {
	var input struct {
		WallpaperID string `json:"wallpaperId" binding:"required"`
		Quantity    *int   `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "invalid body")
		return
	}
	quantity := 1
	if input.Quantity != nil {
		quantity = *input.Quantity
	}

	ctx := c.Request.Context()
	w, err := h.Catalog.Get(ctx, input.WallpaperID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.Store.AddToCart(ctx, customerID(c), w, quantity); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartView(h.Store.CartItems(customerID(c))))
}

func (h *Handlers) UpdateCartItem(c *gin.Context) {
	var input struct {
		Quantity *int `json:"quantity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "invalid body")
		return
	}
	if err := h.Store.UpdateCartQuantity(c.Request.Context(), customerID(c), c.Param("id"), *input.Quantity); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartView(h.Store.CartItems(customerID(c))))
}

func (h *Handlers) RemoveCartItem(c *gin.Context) {
	if err := h.Store.RemoveFromCart(c.Request.Context(), customerID(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartView(h.Store.CartItems(customerID(c))))
}

func (h *Handlers) ClearCart(c *gin.Context) {
	if err := h.Store.ClearCart(c.Request.Context(), customerID(c)); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartView(nil))
}

func (h *Handlers) CartTotal(c *gin.Context) {
	total, err := h.Store.CartTotal(c.Request.Context(), customerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total.StringFixed(2), "currency": models.OrderCurrency})
}
