package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"debttrack-api/internal/config"
	"debttrack-api/internal/handler"
	"debttrack-api/internal/push"
	"debttrack-api/internal/repository"
	"debttrack-api/internal/service"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load application configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Connect to PostgreSQL
	db, err := sql.Open("postgres", fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName,
	))
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	// Repositories
	logger.Info("Initializing repositories...")
	userRepo := repository.NewUserRepository(db, logger)
	debtRepo := repository.NewDebtRepository(db, logger)
	creditRepo := repository.NewCreditRepository(db, logger)
	transactionRepo := repository.NewTransactionRepository(db, logger)
	notificationRepo := repository.NewNotificationRepository(db, logger)

	// Delivery channels
	hub := push.NewHub(logger)
	emailSender := service.NewEmailSender(logger)
	smsSender := service.NewSMSSender(logger)
	voiceSender := service.NewVoiceSender(logger)

	// Services
	logger.Info("Initializing services...")
	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.TokenExpiry, logger)
	notificationService := service.NewNotificationService(
		notificationRepo,
		userRepo,
		hub,
		emailSender,
		smsSender,
		voiceSender,
		logger,
	)
	gateway := service.NewKCBClient(
		cfg.KCBBaseURL,
		cfg.KCBConsumerKey,
		cfg.KCBConsumerSecret,
		cfg.KCBCallbackURL,
		logger,
	)
	paymentService := service.NewPaymentService(
		debtRepo,
		transactionRepo,
		notificationService,
		gateway,
		cfg.TxRefPrefix,
		logger,
	)
	debtService := service.NewDebtService(debtRepo, transactionRepo, logger)
	creditService := service.NewCreditService(creditRepo, logger)
	analyticService := service.NewAnalyticService(debtRepo, creditRepo, transactionRepo, logger)
	scheduler := service.NewNotificationScheduler(
		debtRepo,
		creditRepo,
		notificationRepo,
		notificationService,
		logger,
	)

	// HTTP handlers
	logger.Info("Initializing API handlers...")
	authHandler := handler.NewAuthHandler(authService, logger)
	debtHandler := handler.NewDebtHandler(debtService, logger)
	creditHandler := handler.NewCreditHandler(creditService, logger)
	paymentHandler := handler.NewPaymentHandler(paymentService, cfg.IsProduction(), logger)
	notificationHandler := handler.NewNotificationHandler(notificationService, authService, scheduler, hub, logger)
	analyticsHandler := handler.NewAnalyticsHandler(analyticService, logger)

	router := mux.NewRouter()

	// Public routes: auth, gateway callback, websocket subscription
	publicRouter := router.PathPrefix("/auth").Subrouter()
	authHandler.RegisterRoutes(publicRouter)

	paymentsPublic := router.PathPrefix("/payments").Subrouter()
	paymentHandler.RegisterPublicRoutes(paymentsPublic)

	notificationHandler.RegisterPublicRoutes(router)

	// Protected API routes
	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(handler.AuthMiddleware(authService, logger))

	debtRouter := apiRouter.PathPrefix("/debts").Subrouter()
	debtHandler.RegisterRoutes(debtRouter)

	transactionRouter := apiRouter.PathPrefix("/transactions").Subrouter()
	debtHandler.RegisterTransactionRoutes(transactionRouter)

	creditRouter := apiRouter.PathPrefix("/credits").Subrouter()
	creditHandler.RegisterRoutes(creditRouter)

	paymentRouter := apiRouter.PathPrefix("/payments").Subrouter()
	paymentHandler.RegisterRoutes(paymentRouter)

	notificationRouter := apiRouter.PathPrefix("/notifications").Subrouter()
	notificationHandler.RegisterRoutes(notificationRouter)

	analyticsRouter := apiRouter.PathPrefix("/analytics").Subrouter()
	analyticsHandler.RegisterRoutes(analyticsRouter)

	// Start the notification scheduler
	logger.Info("Starting notification scheduler...")
	scheduler.Start()

	server := &http.Server{
		Addr:    ":8080",
		Handler: router,
	}

	go func() {
		logger.Info("Server listening on :8080")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	scheduler.Stop()
	if err := server.Shutdown(context.Background()); err != nil {
		logger.Errorf("Server shutdown error: %v", err)
	}
	logger.Info("Server stopped")
}
