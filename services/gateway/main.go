package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/diagnosis/hotel-frontdesk/pkg/config"
	"github.com/diagnosis/hotel-frontdesk/pkg/logger"
	mw "github.com/diagnosis/hotel-frontdesk/pkg/middleware"
	"github.com/diagnosis/hotel-frontdesk/services/gateway/internal/handlers"
	"github.com/diagnosis/hotel-frontdesk/services/gateway/internal/proxy"
	"github.com/diagnosis/hotel-frontdesk/services/gateway/internal/ratelimit"
)

func main() {
	cfg := config.Load()

	authProxy := proxy.NewServiceProxy("auth", cfg.Gateway.AuthServiceURL)
	bookingsProxy := proxy.NewServiceProxy("bookings", cfg.Gateway.BookingsServiceURL)
	h := handlers.New(authProxy, bookingsProxy)

	limiter := ratelimit.New(cfg.RateLimit.GatewayRPS, cfg.RateLimit.GatewayBurst, 10*time.Minute)
	stopSweep := make(chan struct{})
	go limiter.Run(time.Minute, stopSweep)

	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("gateway"))
	r.Use(mw.Logging)
	r.Use(handlers.Recover)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Gateway.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Idempotent-Replayed"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Use(mw.Health)
	r.Use(mw.Metrics("gateway"))
	r.Use(limiter.Middleware)

	h.Routes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down gateway service...")
		close(stopSweep)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Gateway shutdown error", "error", err)
		}
	}()

	logger.Info("Starting gateway service",
		"port", cfg.Server.Port,
		"auth", cfg.Gateway.AuthServiceURL,
		"bookings", cfg.Gateway.BookingsServiceURL,
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Gateway server error", "error", err)
		os.Exit(1)
	}
}
