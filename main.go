// main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go/v7"

	"event-tickets/config"
	"event-tickets/handlers"
	_ "event-tickets/migrations"
	"event-tickets/monitoring"
	"event-tickets/security"
	"event-tickets/services"
	"event-tickets/utils"
)

func main() {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()

	// Initialize PubNub (optional: without keys the fanout is publish-less)
	var pn *pubnub.PubNub
	if cfg.PubNubPublishKey != "" {
		pnConfig := pubnub.NewConfigWithUserId(pubnub.UserId("event-tickets-server"))
		pnConfig.PublishKey = cfg.PubNubPublishKey
		pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
		pnConfig.SecretKey = cfg.PubNubSecretKey
		pn = pubnub.NewPubNub(pnConfig)
	}

	// Initialize services
	configService := services.NewEventConfigService(app, redisClient, cfg.ConfigCacheTTL, app.Logger())
	inventoryService := services.NewInventoryService(app)
	reservationService := services.NewReservationService(redisClient, app.Logger())
	ticketService := services.NewTicketService(app, inventoryService, reservationService, configService, app.Logger())
	notifyService := services.NewNotifyService(pn, services.NewMailer(app), cfg.PublicURL, app.Logger())

	// Initialize handlers
	ticketHandler := handlers.NewTicketHandler(ticketService)
	pageHandler := handlers.NewPageHandler(configService, inventoryService, ticketService, cfg.PublicURL)
	rateLimiter := security.NewRateLimiter(redisClient, cfg.PurchaseRateLimit, cfg.PurchaseRateWindow)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: cfg.Environment == "development",
	})

	// Create context for background tasks
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup graceful shutdown for background tasks
	go handleShutdown(cancel)

	// Admin actions flow through the PocketBase UI; these hooks keep the
	// Redis counters, the config cache and the buyer notifications in sync.
	registerHooks(app, configService, reservationService, notifyService)

	// Register routes
	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		// Purchase and verification API
		se.Router.POST("/api/buy-ticket", ticketHandler.BuyTicket).BindFunc(rateLimiter.PurchaseLimit())
		se.Router.GET("/api/verify-ticket", ticketHandler.VerifyTicket)

		// Buyer-facing pages
		se.Router.GET("/", pageHandler.Home)
		se.Router.GET("/ticket/{code}", pageHandler.TicketPage)
		se.Router.GET("/ticket/{code}/qr.png", pageHandler.TicketQR)

		// Health check
		se.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(http.StatusOK, map[string]string{"status": "healthy"})
		})

		if cfg.EnableMetrics {
			se.Router.GET("/metrics", func(e *core.RequestEvent) error {
				promhttp.Handler().ServeHTTP(e.Response, e.Request)
				return nil
			})

			monitor := monitoring.NewMonitor(app, categoryLimits(configService), cfg.MetricsInterval, app.Logger())
			go monitor.Start(ctx)
		}

		log.Println("Server routes registered")

		return se.Next()
	})

	// Start server
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}

func registerHooks(app *pocketbase.PocketBase, configService *services.EventConfigService, reservations *services.ReservationService, notify *services.NotifyService) {
	app.OnRecordAfterUpdateSuccess("tickets").BindFunc(func(e *core.RecordEvent) error {
		oldStatus := e.Record.Original().GetString("status")
		newStatus := e.Record.GetString("status")
		if oldStatus == newStatus {
			return e.Next()
		}

		ticket := services.TicketFromRecord(e.Record)

		ctx := context.Background()
		if err := reservations.ApplyStatusChange(ctx, ticket.Category, ticket.Quantity, oldStatus, newStatus); err != nil {
			e.App.Logger().Error("failed to sync sold counter after status change",
				"ticketCode", ticket.TicketCode, "from", oldStatus, "to", newStatus, "error", err)
		}

		notify.TicketStatusChanged(ticket)

		return e.Next()
	})

	app.OnRecordAfterDeleteSuccess("tickets").BindFunc(func(e *core.RecordEvent) error {
		ticket := services.TicketFromRecord(e.Record)
		if !ticket.CountsAgainstLimit() {
			return e.Next()
		}

		if err := reservations.Release(context.Background(), ticket.Category, ticket.Quantity); err != nil {
			e.App.Logger().Error("failed to release sold counter after delete",
				"ticketCode", ticket.TicketCode, "error", err)
		}

		return e.Next()
	})

	app.OnRecordAfterUpdateSuccess("event_config").BindFunc(func(e *core.RecordEvent) error {
		configService.Invalidate(context.Background())
		return e.Next()
	})

	app.OnRecordAfterCreateSuccess("event_config").BindFunc(func(e *core.RecordEvent) error {
		configService.Invalidate(context.Background())
		return e.Next()
	})
}

// categoryLimits exposes the configured category limits to the metrics
// collector without tying the monitoring package to the config service.
func categoryLimits(configService *services.EventConfigService) func(ctx context.Context) (map[string]int, error) {
	return func(ctx context.Context) (map[string]int, error) {
		cfg, err := configService.Load(ctx)
		if err != nil {
			return nil, err
		}

		limits := make(map[string]int, len(cfg.TicketCategories))
		for _, cat := range cfg.TicketCategories {
			limits[cat.Name] = cat.Limit
		}
		return limits, nil
	}
}

// handleShutdown handles graceful shutdown of background tasks
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
}
