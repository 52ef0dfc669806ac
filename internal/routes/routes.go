package routes

import (
	"freetime_shop/internal/handlers"
	"freetime_shop/internal/metrics"
	"freetime_shop/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Options struct {
	JWTSecret   []byte
	CORSOrigins []string
	// Limiter runs after authentication on every /api route; nil disables it.
	Limiter gin.HandlerFunc
	Log     logrus.FieldLogger
}

// NewRouter builds the engine with the shared middleware and every route.
func NewRouter(h *handlers.Handlers, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestLogger(opts.Log),
		metrics.Middleware(),
		middleware.CORS(opts.CORSOrigins),
	)
	RegisterRoutes(r, h, opts)
	return r
}

func RegisterRoutes(r *gin.Engine, h *handlers.Handlers, opts Options) {
	r.GET("/health", handlers.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	limit := func(c *gin.Context) { c.Next() }
	if opts.Limiter != nil {
		limit = opts.Limiter
	}

	public := r.Group("/api", limit)
	public.GET("/wallpapers", h.ListWallpapers)
	public.GET("/wallpapers/:id", h.GetWallpaper)
	public.GET("/wallets", h.ListWallets)

	api := r.Group("/api", middleware.AuthRequired(opts.JWTSecret, opts.Log), limit)

	cart := api.Group("/cart")
	cart.GET("", h.GetCart)
	cart.DELETE("", h.ClearCart)
	cart.GET("/total", h.CartTotal)
	cart.GET("/ws", h.CartWebSocket)
	cart.POST("/items", h.AddCartItem)
	cart.PATCH("/items/:id", h.UpdateCartItem)
	cart.DELETE("/items/:id", h.RemoveCartItem)

	api.POST("/checkout", h.CheckoutCart)
	orders := api.Group("/orders")
	orders.GET("", h.ListOrders)
	orders.GET("/:id", h.GetOrder)
	orders.POST("/:id/pay", h.PayOrder)
	orders.POST("/:id/cancel", h.CancelOrder)
	orders.POST("/:id/refund", h.RefundOrder)
	orders.GET("/:id/downloads", h.OrderDownloads)

	payments := api.Group("/payments")
	payments.POST("", h.CreatePayment)
	payments.GET("/:id", h.GetPayment)
	payments.GET("/:id/ws", h.PaymentWebSocket)
	payments.POST("/:id/process", h.ProcessPayment)
	payments.POST("/:id/cancel", h.CancelPayment)
	payments.POST("/:id/refund", h.RefundPayment)
	payments.GET("/:id/wallets/:package/link", h.WalletLink)
	payments.POST("/:id/wallets/:package/open", h.OpenWallet)
}
