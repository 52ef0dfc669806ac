package handlers

import (
	"net/http"
	"strings"

	"freetime_shop/internal/models"

	"github.com/gin-gonic/gin"
)

// ListWallpapers serves GET /api/wallpapers?category=&resolution=
func (h *Handlers) ListWallpapers(c *gin.Context) {
	var category *models.Category
	if v := c.Query("category"); v != "" {
		cat := models.Category(strings.ToUpper(v))
		category = &cat
	}
	var resolution *models.Resolution
	if v := c.Query("resolution"); v != "" {
		res := models.Resolution(strings.ToUpper(v))
		resolution = &res
	}

	wallpapers, err := h.Catalog.Filter(c.Request.Context(), category, resolution)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wallpapers": wallpapers, "count": len(wallpapers)})
}

func (h *Handlers) GetWallpaper(c *gin.Context) {
	w, err := h.Catalog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}
