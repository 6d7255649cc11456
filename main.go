// File: tourly/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tourly/config"
	"tourly/cron"
	"tourly/database"
	bookingRepoPkg "tourly/database/repository/booking"
	listingRepoPkg "tourly/database/repository/listing"
	paymentRepoPkg "tourly/database/repository/payment"
	"tourly/handlers"
	"tourly/middleware"
	"tourly/routes"
	"tourly/services/booking"
	"tourly/services/payment"
	"tourly/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()
	utils.InitEventCache()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	// Gateway client, constructed once and injected.
	gateway := payment.NewStripeGateway(config.AppConfig.StripeKey)

	// repositories. Listing reads go through the redis cache.
	listingRepo := listingRepoPkg.NewCachedListingRepo(
		listingRepoPkg.NewMongoListingRepo(), utils.GetCacheClient())
	bookingRepo := bookingRepoPkg.NewMongoBookingRepo()
	paymentRepo := paymentRepoPkg.NewMongoPaymentRepo()

	// services.
	reconciler := &payment.DefaultReconcilerService{
		Bookings:    bookingRepo,
		Payments:    paymentRepo,
		Listings:    listingRepo,
		Gateway:     gateway,
		Queue:       cron.NewQueueClient(),
		Events:      payment.NewRedisEventLedger(utils.GetEventCacheClient()),
		Logger:      logger,
		FrontendURL: config.AppConfig.FrontendURL,
	}

	ledger := &booking.DefaultLedgerService{
		Listings: listingRepo,
		Bookings: bookingRepo,
		Payments: paymentRepo,
		Gateway:  gateway,
		Logger:   logger,
	}

	// Background sweeper for checkout sessions whose webhook never arrived.
	cron.InitSweepWorker(reconciler)

	// Assemble the handler bundle and register routes.
	handlerBundle := &routes.HandlerBundle{
		Booking: handlers.NewBookingHandler(ledger, logger),
		Payment: handlers.NewPaymentHandler(reconciler, logger),
		Webhook: handlers.NewWebhookHandler(reconciler, config.AppConfig.StripeWebhookSecret, logger),
	}
	routes.RegisterRoutes(router, handlerBundle)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
