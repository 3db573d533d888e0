package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/saakshiraut28/roastarena/internal/config"
	"github.com/saakshiraut28/roastarena/internal/ledger"
	"github.com/saakshiraut28/roastarena/internal/metrics"
	"github.com/saakshiraut28/roastarena/internal/payment"
	"github.com/saakshiraut28/roastarena/internal/records"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "roastarenad").Logger()

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file, using environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	store, closeStore, err := newStore(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("record store initialization failed")
	}
	defer closeStore()

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	rpcClient := ledger.New(cfg.RPCURL)
	settler := payment.NewSettler(
		rpcClient,
		cfg.Commitment,
		cfg.BroadcastTimeout,
		cfg.ConfirmTimeout,
		payment.WithSettlerLogger(log),
	)
	requirement := payment.BuildRequirement(cfg.Merchant, cfg.PriceLamports, cfg.Cluster)
	gate := payment.NewGate(requirement, settler,
		payment.WithLogger(log),
		payment.WithMetrics(m),
	)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), m.GinMiddleware())

	records.NewHandler(store, log).Register(r, gate.Middleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"network":   cfg.Cluster,
			"recipient": cfg.Merchant.String(),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("network", cfg.Cluster).
			Str("recipient", cfg.Merchant.String()).
			Uint64("priceLamports", cfg.PriceLamports).
			Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown incomplete")
	}
}

func newStore(cfg *config.Config, log zerolog.Logger) (records.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Warn().Msg("DATABASE_URL not set, records are kept in memory")
		return records.NewMemoryStore(), func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	store, err := records.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { store.Close() }, nil
}
