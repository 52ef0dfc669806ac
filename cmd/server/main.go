package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"freetime_shop/internal/cache"
	"freetime_shop/internal/catalog"
	"freetime_shop/internal/checkout"
	"freetime_shop/internal/config"
	"freetime_shop/internal/downloads"
	"freetime_shop/internal/handlers"
	"freetime_shop/internal/logging"
	"freetime_shop/internal/middleware"
	"freetime_shop/internal/notify"
	"freetime_shop/internal/payment"
	"freetime_shop/internal/routes"
	"freetime_shop/internal/store"
	"freetime_shop/internal/wallet"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const expirySweep = time.Minute

func main() {
	loaded := config.Load()
	cfg, err := config.FromEnv()
	if err != nil {
		logrus.Fatalf("❌ %v", err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logrus.Fatalf("❌ %v", err)
	}
	if loaded {
		log.Info("✅ .env file loaded")
	} else {
		log.Info("⚠️ no .env file, using the process environment")
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		log.WithError(err).Fatal("❌ catalog")
	}
	wallets, err := wallet.Load(cfg.WalletsFile, wallet.ParseInstalled(cfg.InstalledWallets))
	if err != nil {
		log.WithError(err).Fatal("❌ wallets")
	}

	storeOpts := []store.Option{store.WithLogger(log)}
	payOpts := []payment.Option{
		payment.WithDelay(cfg.Payment.Delay),
		payment.WithFailureRate(cfg.Payment.FailureRate),
		payment.WithSessionTTL(cfg.Payment.SessionTTL),
		payment.WithWallets(wallets),
		payment.WithLogger(log),
	}
	var limiter gin.HandlerFunc
	if cfg.Redis.Enabled() {
		client, err := cache.Connect(ctx, cfg.Redis)
		if err != nil {
			log.WithError(err).Fatal("❌ redis")
		}
		defer client.Close()
		mirror := cache.NewMirror(client, log)
		storeOpts = append(storeOpts, store.WithObserver(mirror))
		payOpts = append(payOpts, payment.WithObserver(mirror))
		if cfg.RateLimit > 0 {
			limiter = middleware.RateLimit(client, cfg.RateLimit, time.Minute, log)
		}
		log.WithField("host", cfg.Redis.Host).Info("✅ Redis connected, mirroring carts and payments")
	} else {
		log.Info("⚠️ REDIS_HOST not set, state stays in memory only")
	}

	st := store.New(storeOpts...)
	sim := payment.New(payOpts...)

	var signer downloads.Signer
	if cfg.MinIO.Enabled() {
		s, err := downloads.Connect(cfg.MinIO)
		if err != nil {
			log.WithError(err).Fatal("❌ minio")
		}
		signer = s
		log.WithField("endpoint", cfg.MinIO.Endpoint).Info("✅ MinIO download links enabled")
	} else {
		log.Info("⚠️ MINIO_ENDPOINT not set, downloads disabled")
	}

	var mailer notify.Mailer = notify.NopMailer{Log: log}
	if cfg.SMTP.Enabled() {
		mailer = notify.NewSMTPMailer(cfg.SMTP, log)
		log.WithField("host", cfg.SMTP.Host).Info("✅ SMTP confirmations enabled")
	}

	svc := checkout.New(st, sim, signer, mailer, log)
	go sim.RunExpiry(ctx, expirySweep)

	h := &handlers.Handlers{
		Catalog:  cat,
		Store:    st,
		Payments: sim,
		Checkout: svc,
		Launcher: wallet.NewCommandLauncher(cfg.WalletOpenCommand),
		Log:      log,
	}
	router := routes.NewRouter(h, routes.Options{
		JWTSecret:   []byte(cfg.JWTSecret),
		CORSOrigins: cfg.CORSOrigins,
		Limiter:     limiter,
		Log:         log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.WithField("port", cfg.Port).Info("🚀 Freetime shop listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("❌ server")
		}
	}()

	<-ctx.Done()
	log.Info("🛑 shutting down")

	// close streams first so websocket handlers return
	st.Close()
	sim.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown")
	}
	svc.Wait()
}
