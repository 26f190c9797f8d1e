// File: nestly/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nestly/config"
	"nestly/cron"
	"nestly/database"
	billingRepo "nestly/database/repository/billing"
	"nestly/handlers"
	"nestly/routes"
	"nestly/services/billing"
	"nestly/services/notification"
	"nestly/services/payment"
	"nestly/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stripe/stripe-go/v76"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()
	utils.InitBillingCache()
	utils.FirebaseInit()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	stripe.Key = config.AppConfig.StripeKey

	// repositories.
	repo := billingRepo.NewMongoBillingRepo()

	// services.
	var notificationService notification.NotificationService = &notification.DefaultNotificationService{
		Repo: repo,
	}
	checkoutService := &payment.StripeCheckoutService{
		Logger: logger,
	}
	billingService := &billing.DefaultBillingService{
		Repo:     repo,
		Cfg:      config.AppConfig.Billing,
		Logger:   logger,
		Notifier: notificationService,
		Checkout: checkoutService,
		Lock:     &billing.RedisRunLock{Client: utils.GetBillingCacheClient()},
	}

	billingHandler := handlers.NewBillingHandler(billingService, logger)

	// Register routes.
	routes.RegisterRoutes(router, billingHandler)

	// Nightly billing run worker + scheduler.
	cron.InitBillingWorker(billingService)

	utils.StartHealthMonitor(
		[]*redis.Client{utils.GetCacheClient(), utils.GetBillingCacheClient()},
		database.MongoClient,
	)

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
