// File: servana/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"servana/config"
	"servana/cron"
	"servana/database"
	availabilityRepoPkg "servana/database/repository/availability"
	bookingRepoPkg "servana/database/repository/booking"
	escrowRepoPkg "servana/database/repository/escrow"
	refundRepoPkg "servana/database/repository/refund"
	slotRepoPkg "servana/database/repository/slot"
	trustRepoPkg "servana/database/repository/trust"
	"servana/handlers"
	"servana/middleware"
	"servana/routes"
	"servana/services/availability"
	"servana/services/booking"
	"servana/services/escrow"
	"servana/services/notification"
	"servana/services/payment"
	"servana/services/recurrence"
	"servana/services/refund"
	"servana/services/trust"
	"servana/utils"

	firebase "firebase.google.com/go/v4"
	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())
	stripe.Key = config.AppConfig.StripeKey

	// repositories.
	availRepo := availabilityRepoPkg.NewMongoAvailabilityRepo()
	slotRepo := slotRepoPkg.NewMongoSlotRepo()
	bookRepo := bookingRepoPkg.NewMongoBookingRepo()
	escRepo := escrowRepoPkg.NewMongoEscrowRepo()
	refRepo := refundRepoPkg.NewMongoRefundRepo()
	trRepo := trustRepoPkg.NewMongoTrustRepo()

	// services.
	notifySvc := initNotifications()

	resolver := &availability.DefaultResolver{
		Rules: availRepo,
		Slots: slotRepo,
	}
	cachedResolver := availability.NewCachedResolver(resolver, utils.GetCacheClient())

	trustSvc := &trust.DefaultTrustService{Repo: trRepo}
	paymentSvc := payment.NewStripeProcessor(logger)

	settlementSvc := &escrow.DefaultSettlementService{
		Escrow:   escRepo,
		Bookings: bookRepo,
		Payments: paymentSvc,
		Notify:   notifySvc,
	}

	refundSvc := &refund.DefaultRefundService{
		Refunds:    refRepo,
		Bookings:   bookRepo,
		Slots:      slotRepo,
		Escrow:     escRepo,
		Settlement: settlementSvc,
		Payments:   paymentSvc,
		Notify:     notifySvc,
	}

	expander := &recurrence.DefaultExpander{
		Bookings: bookRepo,
		Slots:    slotRepo,
		Resolver: resolver,
	}

	bookingSvc := &booking.DefaultBookingService{
		Bookings:   bookRepo,
		Slots:      slotRepo,
		Resolver:   cachedResolver,
		Trust:      trustSvc,
		Settlement: settlementSvc,
		Payments:   paymentSvc,
		Notify:     notifySvc,
		Cache:      cachedResolver,
	}

	// Assemble the handler bundle.
	handlerBundle := &handlers.HandlerBundle{
		Resolver:     cachedResolver,
		Availability: availRepo,
		Bookings:     bookingSvc,
		Expander:     expander,
		Settlements:  settlementSvc,
		SettlementDB: escRepo,
		Refunds:      refundSvc,
		Trust:        trustSvc,
	}

	// Register routes with the assembled handler bundle.
	routes.RegisterRoutes(router, handlerBundle)

	// Background sweeps: escrow expiry, refund retries, series materialization.
	cron.InitSweepWorker(settlementSvc, refundSvc, expander)

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

// initNotifications builds the FCM notification service when Firebase
// credentials are configured, falling back to a no-op sender otherwise.
// Device tokens live in the auth cache under "fcm:<recipientID>".
func initNotifications() notification.NotificationService {
	logger := utils.GetLogger()

	if os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		logger.Sugar().Warn("main: firebase credentials not configured, notifications disabled")
		return notification.NoopNotificationService{}
	}

	ctx := context.Background()
	app, err := firebase.NewApp(ctx, nil)
	if err != nil {
		logger.Sugar().Warnf("main: failed to initialize firebase app, notifications disabled: %v", err)
		return notification.NoopNotificationService{}
	}

	tokenLookup := func(ctx context.Context, recipientID string) (string, error) {
		return utils.GetAuthCacheClient().Get(ctx, "fcm:"+recipientID).Result()
	}
	fcm, err := notification.NewFCMNotificationService(ctx, app, tokenLookup)
	if err != nil {
		logger.Sugar().Warnf("main: failed to initialize FCM, notifications disabled: %v", err)
		return notification.NoopNotificationService{}
	}
	return fcm
}
