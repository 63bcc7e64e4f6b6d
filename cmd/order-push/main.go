package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/tojsavdo/orderpush/internal/config"
	"github.com/tojsavdo/orderpush/internal/httpx"
	"github.com/tojsavdo/orderpush/internal/metrics"
	"github.com/tojsavdo/orderpush/internal/notify"
	"github.com/tojsavdo/orderpush/internal/order"
	"github.com/tojsavdo/orderpush/internal/token"
)

// @title order-push API
// @version 1.0
// @description Order ingestion and push-notification service.
func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	ctx := context.Background()
	db, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer db.Close()

	if cfg.FirebaseServiceAccount == "" {
		log.Fatal("FIREBASE_SERVICE_ACCOUNT env var is missing")
	}
	fcm, err := notify.NewFCM(ctx, []byte(cfg.FirebaseServiceAccount))
	if err != nil {
		log.Fatalf("fcm: %v", err)
	}

	m := metrics.New("orderpush")

	dispatcher := notify.NewDispatcher(fcm, logger,
		notify.WithWorkers(cfg.DispatchWorkers),
		notify.WithMetrics(m),
	)
	dispatcher.Start()

	var dir token.Directory
	switch cfg.TokenStore {
	case "redis":
		dir = token.NewRedisDirectory(cfg.RedisAddr, "orderpush")
	default:
		dir = token.NewPGDirectory(db)
	}

	svc := order.NewService(order.NewPGRepo(db), dir, dispatcher, fcm, logger,
		order.WithAdminTopic(cfg.AdminTopic),
		order.WithDefaults(order.Defaults{
			Currency:     cfg.DefaultCurrency,
			CustomerName: "Customer",
			OwnerID:      "system",
		}),
		order.WithServiceMetrics(m),
	)

	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger(logger))

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.POST("/orders", submitOrderHandler(svc))
	r.GET("/orders", listOrdersHandler(svc))
	r.PUT("/orders/:id/status", updateOrderStatusHandler(svc))
	r.POST("/tokens/register", registerTokenHandler(svc))
	r.POST("/tokens/subscribe", subscribeTokenHandler(svc))

	srv := &http.Server{Addr: cfg.Addr, Handler: r}
	go func() {
		log.Printf("order-push listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	dispatcher.Stop(shutdownCtx)
}
