package cmd

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	pubnub "github.com/pubnub/go"

	"ticketbox/config"
	"ticketbox/internal/auth"
	"ticketbox/internal/handlers"
	"ticketbox/internal/services"
	"ticketbox/internal/services/gateway"
	"ticketbox/internal/store"
	"ticketbox/monitoring"
	"ticketbox/security"
	"ticketbox/utils"

	_ "ticketbox/migrations"
)

func Start() error {
	app := pocketbase.New()

	cfg := config.LoadConfig()

	redisClient := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()

	var pn *pubnub.PubNub
	if cfg.PubNubPublishKey != "" && cfg.PubNubSubscribeKey != "" {
		pnConfig := pubnub.NewConfig()
		pnConfig.PublishKey = cfg.PubNubPublishKey
		pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
		pnConfig.SecretKey = cfg.PubNubSecretKey
		pn = pubnub.NewPubNub(pnConfig)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gateways, err := setupGateways(ctx, cfg)
	if err != nil {
		return err
	}
	defer gateways.Close(context.Background())

	db := store.NewPBStore(app)

	notifier := services.NewNotifyService(pn, services.NotifyConfig{
		WorkflowWebhookURL: cfg.WorkflowWebhookURL,
		EmailAPIURL:        cfg.EmailAPIURL,
		EmailAPIKey:        cfg.EmailAPIKey,
		EmailSender:        cfg.EmailSender,
	})

	bookingService := services.NewBookingService(db, cfg.ReservationTTL)
	paymentService := services.NewPaymentService(db, gateways, redisClient, notifier, cfg.Currency, cfg.PaymentPollLimit)
	redemptionService := services.NewRedemptionService(db, cfg.AdmissionLead)
	authService := auth.NewService(db, cfg.AdminJWTSecret, cfg.AdminTokenTTL)

	limiter := security.NewRateLimiter(redisClient)
	guard := handlers.NewAdminGuard(authService)

	eventHandler := handlers.NewEventHandler(db)
	bookingHandler := handlers.NewBookingHandler(bookingService, paymentService, limiter, cfg.ReserveRatePerMinute)
	paymentHandler := handlers.NewPaymentHandler(paymentService, gateways, cfg.Environment == "development")
	redemptionHandler := handlers.NewRedemptionHandler(redemptionService, guard, limiter)
	adminHandler := handlers.NewAdminHandler(db, authService, guard, paymentService)

	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	go expireSweeper(ctx, paymentService, cfg.ExpirySweep)

	if cfg.EnableMetrics {
		monitor := monitoring.NewMonitor(db)
		go monitor.Run(ctx)
		ops := monitoring.NewOpsServer(redisClient)
		go monitoring.StartOpsServer(ctx, ops, cfg.MetricsPort)
	}

	go handleShutdown(cancel)

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		// Public storefront
		e.Router.GET("/api/events", eventHandler.ListEvents)
		e.Router.GET("/api/events/{id}", eventHandler.GetEvent)

		// Booking flow
		e.Router.POST("/api/bookings", bookingHandler.CreateBooking)
		e.Router.GET("/api/bookings/{reference}", bookingHandler.GetBooking)
		e.Router.GET("/api/bookings/{reference}/status", bookingHandler.GetBookingStatus)
		e.Router.POST("/api/bookings/{reference}/pay", paymentHandler.InitiatePayment)

		// Gateway callback
		e.Router.POST("/api/payments/webhook", paymentHandler.Webhook)

		// Gate scanning
		e.Router.POST("/api/tickets/validate", redemptionHandler.ValidateTicket)

		// Staff dashboard
		e.Router.POST("/api/admin/login", adminHandler.Login)
		e.Router.GET("/api/admin/dashboard", adminHandler.Dashboard)
		e.Router.GET("/api/admin/bookings", adminHandler.RecentBookings)
		e.Router.POST("/api/admin/bookings/{reference}/cancel", adminHandler.CancelBooking)

		if cfg.Environment == "development" {
			e.Router.POST("/api/test/simulate-payment", paymentHandler.SimulatePayment)
		}

		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(503, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		log.Println("Server routes registered")
		return e.Next()
	})

	if err := app.Start(); err != nil {
		return err
	}
	return nil
}

func setupGateways(ctx context.Context, cfg *config.Config) (*gateway.Registry, error) {
	registry := gateway.NewRegistry(gateway.NewFactory())

	// The mock gateway is always on hand for the development simulate
	// endpoint and as a fallback when no provider is configured.
	if err := registry.Register(ctx, gateway.ProviderMock, gateway.DefaultMockConfig()); err != nil {
		return nil, err
	}

	if cfg.GatewayProvider == string(gateway.ProviderPaylink) && cfg.GatewayBaseURL != "" {
		err := registry.Register(ctx, gateway.ProviderPaylink, &gateway.PaylinkConfig{
			BaseURL:    cfg.GatewayBaseURL,
			APIKey:     cfg.GatewayAPIKey,
			MerchantID: cfg.GatewayMerchantID,
		})
		if err != nil {
			return nil, err
		}
		if err := registry.SetPrimary(gateway.ProviderPaylink); err != nil {
			return nil, err
		}
		slog.Info("payment gateway configured", "provider", gateway.ProviderPaylink)
		return registry, nil
	}

	if err := registry.SetPrimary(gateway.ProviderMock); err != nil {
		return nil, err
	}
	slog.Warn("no payment gateway configured, using mock provider")
	return registry, nil
}

// expireSweeper periodically releases reservations whose payment window
// has lapsed, backstopping the lazy expiry on status reads.
func expireSweeper(ctx context.Context, payments *services.PaymentService, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired, err := payments.ExpireStaleReservations(ctx)
			if err != nil {
				slog.Error("expiry sweep failed", "error", err)
				continue
			}
			if expired > 0 {
				slog.Info("expired stale reservations", "count", expired)
			}
		}
	}
}

func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
}
