package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"checkout/internal/app/checkout"
	"checkout/internal/app/outbox"
	"checkout/internal/config"
	"checkout/internal/gateway/stripe"
	purchases_http "checkout/internal/handler/http/purchases"
	kafka_handler "checkout/internal/handler/kafka"
	"checkout/internal/infrastructure/database"
	kafka_infra "checkout/internal/infrastructure/kafka"
	customers_postgres "checkout/internal/repository/customers_repo/postgres"
	outbox_postgres "checkout/internal/repository/outbox_repo/postgres"
	permissions_postgres "checkout/internal/repository/permissions_repo/postgres"
	tasks_postgres "checkout/internal/repository/tasks_repo/postgres"
)

func ensureKafkaTopics(ctx context.Context, brokerURLs []string, topics []string, logger *zap.Logger) error {
	conn, err := kafka.DialContext(ctx, "tcp", brokerURLs[0])
	if err != nil {
		return fmt.Errorf("failed to dial kafka broker for admin operations: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("failed to get kafka controller: %w", err)
	}
	controllerConn, err := kafka.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	if err != nil {
		return fmt.Errorf("failed to dial kafka controller: %w", err)
	}
	defer controllerConn.Close()

	topicConfigs := make([]kafka.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}

	err = controllerConn.CreateTopics(topicConfigs...)
	if err != nil {
		if err == kafka.TopicAlreadyExists {
			logger.Info("One or more Kafka topics already exist, skipping creation.")
		} else {
			return fmt.Errorf("failed to create Kafka topics: %w", err)
		}
	} else {
		logger.Info("Kafka topics ensured successfully.", zap.Strings("topics", topics))
	}

	return nil
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.EncoderConfig.TimeKey = "timestamp"

	appLogger, err := zapConfig.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create zap logger: %v\n", err)
		os.Exit(1)
	}
	appLogger.Info("Checkout Service starting...")

	appLogger.Info("Waiting for database to be available...")
	dbConfig := database.DBConfig{
		Host:     cfg.DBConfig.Host,
		Port:     cfg.DBConfig.Port,
		User:     cfg.DBConfig.User,
		Password: cfg.DBConfig.Password,
		DBName:   cfg.DBConfig.Name,
		SSLMode:  "disable",
	}

	var db *sql.DB
	maxRetries := 10
	retryDelay := 5 * time.Second

	for i := 0; i < maxRetries; i++ {
		db, err = database.NewPostgresDB(dbConfig)
		if err == nil {
			appLogger.Info("Successfully connected to PostgreSQL database!")
			break
		}
		appLogger.Warn(fmt.Sprintf("Failed to connect to database (attempt %d/%d): %v. Retrying in %s...", i+1, maxRetries, err, retryDelay))
		time.Sleep(retryDelay)
	}

	if db == nil {
		appLogger.Fatal("Could not connect to database after multiple retries. Exiting.", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			appLogger.Error("Error closing database connection", zap.Error(err))
		} else {
			appLogger.Info("Database connection closed.")
		}
	}()

	appLogger.Info("Running database migrations...")
	migrateDSN := cfg.GetDBMigrationConnectionString()
	m, err := migrate.New(
		"file://migrations",
		migrateDSN,
	)
	if err != nil {
		appLogger.Fatal("Failed to create migrate instance", zap.Error(err))
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		appLogger.Fatal("Failed to run database migrations", zap.Error(err))
	}
	appLogger.Info("Database migrations completed successfully (or no new migrations).")

	kafkaBrokers := cfg.GetKafkaBrokers()
	requiredTopics := []string{
		cfg.KafkaPurchaseTasksTopic,
		cfg.KafkaPurchaseStatusTopic,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = ensureKafkaTopics(ctx, kafkaBrokers, requiredTopics, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to ensure Kafka topics", zap.Error(err))
	}

	customerRepository := customers_postgres.NewCustomerRepository(db)
	permissionRepository := permissions_postgres.NewPermissionRepository(db)
	outboxRepository := outbox_postgres.NewOutboxRepository(db)
	taskRepository := tasks_postgres.NewTaskRepository(db, outboxRepository)

	stripeClient := stripe.NewClient(
		cfg.StripeAPIBaseURL,
		cfg.StripeSecretKey,
		cfg.RemoteCallTimeout,
		appLogger.With(zap.String("component", "StripeClient")),
	)

	checkoutService := checkout.NewCheckoutService(
		db,
		customerRepository,
		permissionRepository,
		stripeClient,
		cfg.ChargeDescriptionPrefix,
		cfg.StatementDescriptorPrefix,
		cfg.RemoteCallTimeout,
		appLogger.With(zap.String("component", "CheckoutService")),
	)
	appLogger.Info("Checkout Service initialized.")

	kafkaProducer := kafka_infra.NewProducer(
		kafkaBrokers,
		appLogger.With(zap.String("component", "KafkaProducer")),
	)
	defer func() {
		if err := kafkaProducer.Close(); err != nil {
			appLogger.Error("Error closing Kafka producer", zap.Error(err))
		} else {
			appLogger.Info("Kafka producer closed.")
		}
	}()
	appLogger.Info("Kafka producer created successfully.")

	outboxProcessor := outbox.NewProcessor(
		db,
		outboxRepository,
		kafkaProducer,
		appLogger.With(zap.String("component", "OutboxProcessor")),
	)
	go func() {
		ticker := time.NewTicker(cfg.OutboxPollInterval)
		defer ticker.Stop()
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.OutboxPollTimeout)
			if err := outboxProcessor.ProcessOutbox(ctx); err != nil {
				appLogger.Error("Error processing outbox", zap.Error(err))
			}
			cancel()
		}
	}()
	appLogger.Info("Transactional outbox sender started.")

	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	purchases_http.RegisterRoutes(
		router,
		taskRepository,
		permissionRepository,
		db,
		cfg.KafkaPurchaseTasksTopic,
		appLogger.With(zap.String("component", "HTTPHandler")),
	)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: router,
	}
	appLogger.Info("HTTP server configured.")

	purchaseTaskHandler := kafka_handler.PurchaseTaskMessageHandler(
		checkoutService,
		taskRepository,
		db,
		kafkaProducer,
		cfg.KafkaPurchaseStatusTopic,
		appLogger.With(zap.String("component", "PurchaseTaskHandler")),
	)

	purchaseTasksConsumer := kafka_infra.NewConsumer(
		kafkaBrokers,
		cfg.KafkaConsumerGroup,
		cfg.KafkaPurchaseTasksTopic,
		appLogger.With(zap.String("component", "PurchaseTasksConsumer")),
	)
	appLogger.Info("Purchase Tasks Kafka Consumer initialized.")

	// The consumer lifecycle is owned here and stopped through ctxMain from
	// the signal path; no shared global handle.
	ctxMain, cancelMain := context.WithCancel(context.Background())
	go func() {
		appLogger.Info("Starting HTTP server", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		appLogger.Info("Starting Purchase Tasks Kafka Consumer...")
		if err := purchaseTasksConsumer.Start(ctxMain, purchaseTaskHandler); err != nil {
			if err != context.Canceled && err != context.DeadlineExceeded {
				appLogger.Error("Purchase Tasks Kafka Consumer failed", zap.Error(err))
			}
		}
		appLogger.Info("Purchase Tasks Kafka Consumer stopped.")
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	appLogger.Info("Shutting down application...")

	cancelMain()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP server graceful shutdown failed", zap.Error(err))
	} else {
		appLogger.Info("HTTP server gracefully shut down.")
	}

	purchaseTasksConsumer.Stop()
	select {
	case <-consumerDone:
		appLogger.Info("Purchase Tasks Kafka Consumer confirmed stopped.")
	case <-time.After(5 * time.Second):
		appLogger.Warn("Purchase Tasks Kafka Consumer did not stop cleanly within 5 seconds.")
	}

	appLogger.Info("Application gracefully shut down.")
}
