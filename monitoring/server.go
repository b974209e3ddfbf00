package monitoring

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"ticketbox/utils"
)

// NewOpsServer serves the operational surface (prometheus metrics and
// health) separately from the public app, so /metrics is never exposed on
// the customer-facing port.
func NewOpsServer(redisClient *redis.Client) *echo.Echo {
	e := echo.New()

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.GET("/healthz", func(c echo.Context) error {
		if err := utils.RedisHealthCheck(redisClient); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})

	return e
}

// StartOpsServer runs the ops server until ctx is cancelled.
func StartOpsServer(ctx context.Context, e *echo.Echo, port string) {
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: e,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("ops server listening", "port", port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("ops server stopped", "error", err)
	}
}
