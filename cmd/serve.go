package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/eaglebank/product-transactions/internal/handler"
	"github.com/eaglebank/product-transactions/shared/events"
	"github.com/eaglebank/product-transactions/shared/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 15 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	if a.redis != nil && cfg.CacheEnabled() {
		go a.subscribeSeedEvents(ctx)
	}

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Transaction service starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info().Msg("Received shutdown signal, shutting down gracefully...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Msg("Transaction service stopped")
	return nil
}

// router builds the HTTP surface. Read routes run under the request timeout;
// seeding is bounded by the seed client timeout instead.
func (a *app) router() *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.Recovery(a.log),
		middleware.RequestID(a.log),
		middleware.LoggingMiddleware(a.log),
		cors.Default(),
	)

	healthHandler := handler.NewHealthHandler(a.store)
	seedHandler := handler.NewSeedHandler(a.commands)
	transactionHandler := handler.NewTransactionHandler(a.queries)

	router.GET("/seed-data", middleware.RateLimit(seedLimiter(a.cfg.SeedRatePerMinute)), seedHandler.SeedData)

	reads := router.Group("", middleware.Timeout(a.cfg.RequestTimeout))
	{
		reads.GET("/health", healthHandler.Health)
		reads.GET("/transactions", transactionHandler.ListTransactions)
		reads.GET("/statistics", transactionHandler.GetStatistics)
		reads.GET("/bar-chart", transactionHandler.GetBarChart)
		reads.GET("/pie-chart", transactionHandler.GetPieChart)
		reads.GET("/combined-data", transactionHandler.GetCombinedData)
	}
	return router
}

// seedLimiter allows perMinute seed calls per minute with an equal burst.
// Zero disables throttling.
func seedLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
}

// subscribeSeedEvents flushes cached views whenever any replica seeds. Each
// process joins its own consumer group so every replica sees every event.
func (a *app) subscribeSeedEvents(ctx context.Context) {
	instance := uuid.NewString()
	sub := events.NewSubscriber(a.redis.Client, events.SubscriberConfig{
		Group:    "product-transactions-" + instance,
		Consumer: instance,
		Stream:   events.TransactionEventsStream,
		Logger:   a.log,
		Handlers: map[string]events.Handler{
			events.TransactionsSeeded: func(ctx context.Context, _ events.Event) error {
				a.log.Info().Msg("Seed event received, flushing cached views")
				return a.queries.InvalidateViews(ctx)
			},
		},
	})
	if err := sub.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		a.log.Error().Err(err).Msg("Seed event subscriber stopped")
	}

	cleanupCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := sub.Destroy(cleanupCtx); err != nil {
		a.log.Warn().Err(err).Msg("Failed to remove seed event consumer group")
	}
}
