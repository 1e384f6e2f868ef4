package internal

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	logger_adapter "catalog-view-service/internal/adapters/logger"
	postgres_adapter "catalog-view-service/internal/adapters/postgres"
	rabbitmq_adapter "catalog-view-service/internal/adapters/rabbitmq"
	"catalog-view-service/internal/adapters/rest"
	store_adapter "catalog-view-service/internal/adapters/store"
	"catalog-view-service/internal/configs"
	"catalog-view-service/internal/constants"
	"catalog-view-service/internal/contracts"
	"catalog-view-service/internal/core/port"
	"catalog-view-service/internal/core/usecase"
	fluentlogger "catalog-view-service/pkg/fluent_logger"
	"catalog-view-service/pkg/postgres"
	"catalog-view-service/pkg/rabbitmq/rabbitmq_common"
	"catalog-view-service/pkg/rabbitmq/rabbitmq_producer"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/jackc/pgx/v5/pgxpool"
)

type App struct {
	config       *configs.AppConfig
	dbPool       *pgxpool.Pool
	apiServer    *rest.Server
	feedListener port.EventListenerPort
	replicaStore *store_adapter.ReplicaStoreAdapter
	viewRegistry *usecase.ViewRegistry
	publisher    *rabbitmq_adapter.ChangeEventPublisher

	logger       port.LoggerPort
	fluentClient *fluent.Fluent
}

func NewApp() (*App, error) {
	appConfig, err := configs.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading application configuration: %w", err)
	}

	// --- 1. ИНИЦИАЛИЗАЦИЯ ЛОГГЕРОВ ---
	var activeLoggers []port.LoggerPort

	slogCfg := logger_adapter.SlogConfig{
		Level:    parseLogLevel(appConfig.StdoutLogger.Level),
		IsJSON:   false,
		UseColor: true,
	}
	stdoutLogger := logger_adapter.NewSlogAdapter(slogCfg)
	activeLoggers = append(activeLoggers, stdoutLogger)

	var fluentClient *fluent.Fluent
	if appConfig.FluentBit.Enabled {
		fluentClient, err = fluentlogger.NewClient(fluentlogger.Config{
			Host:      appConfig.FluentBit.Host,
			Port:      appConfig.FluentBit.Port,
			TagPrefix: appConfig.AppName,
		})
		if err != nil {
			stdoutLogger.Error("Failed to create fluentbit client", err, nil)
			return nil, fmt.Errorf("failed to create fluentbit client: %w", err)
		}

		fluentAdapter, err := logger_adapter.NewFluentLoggerAdapter(fluentClient, parseLogLevel(appConfig.FluentBit.Level))
		if err != nil {
			stdoutLogger.Error("Failed to create fluentbit adapter", err, nil)
			fluentClient.Close()
			return nil, err
		}
		activeLoggers = append(activeLoggers, fluentAdapter)
	}

	multiLogger, err := logger_adapter.NewMultiloggerAdapter(activeLoggers...)
	if err != nil {
		return nil, fmt.Errorf("failed to create multi-logger: %w", err)
	}

	baseLogger := multiLogger.WithFields(port.Fields{
		"service_name": appConfig.AppName,
	})

	appLogger := baseLogger.WithFields(port.Fields{"component": "app"})
	appLogger.Info("Logger system initialized", port.Fields{
		"active_loggers": len(activeLoggers), "fluent_enabled": appConfig.FluentBit.Enabled,
	})

	// --- 2. НИЗКОУРОВНЕВЫЕ ЗАВИСИМОСТИ ---
	connManagerLogger := baseLogger.WithFields(port.Fields{"component": "rabbitmq_conn_manager"})
	connManagerBridge := rabbitmq_adapter.NewPkgLoggerBridge(connManagerLogger)
	connManager, err := rabbitmq_common.NewManager(appConfig.RabbitMQ.URL, connManagerBridge)
	if err != nil {
		appLogger.Error("Failed to create connection manager", err, nil)
		return nil, fmt.Errorf("failed to create connection manager: %w", err)
	}
	appLogger.Info("RabbitMQ Connection Manager initialized.", nil)

	dbPool, err := postgres.NewClient(context.Background(), postgres.Config{DatabaseURL: appConfig.Database.URL})
	if err != nil {
		appLogger.Error("Failed to connect to PostgreSQL", err, nil)
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	appLogger.Info("Successfully connected to PostgreSQL pool!", nil)

	listingRepo, err := postgres_adapter.NewListingRepository(dbPool)
	if err != nil {
		appLogger.Error("Failed to create listing repository", err, nil)
		dbPool.Close()
		return nil, fmt.Errorf("failed to create listing repository: %w", err)
	}

	aclRepo, err := postgres_adapter.NewACLRepository(dbPool)
	if err != nil {
		appLogger.Error("Failed to create ACL repository", err, nil)
		dbPool.Close()
		return nil, fmt.Errorf("failed to create ACL repository: %w", err)
	}

	// --- 3. ЛЕНТА ИЗМЕНЕНИЙ ---
	producerCfg := rabbitmq_producer.PublisherConfig{
		Config:                   rabbitmq_common.Config{URL: appConfig.RabbitMQ.URL},
		ExchangeName:             constants.ChangeFeedExchange,
		ExchangeType:             "fanout",
		DurableExchange:          true,
		DeclareExchangeIfMissing: true,
		Logger:                   rabbitmq_adapter.NewPkgLoggerBridge(baseLogger.WithFields(port.Fields{"component": "change_feed_producer"})),
	}
	producer, err := rabbitmq_producer.NewPublisher(producerCfg, connManager)
	if err != nil {
		appLogger.Error("Failed to create change feed producer", err, nil)
		dbPool.Close()
		return nil, fmt.Errorf("failed to create change feed producer: %w", err)
	}
	changePublisher := rabbitmq_adapter.NewChangeEventPublisher(producer)

	replicaStore := store_adapter.NewReplicaStoreAdapter(listingRepo, aclRepo, changePublisher, baseLogger)

	validator := contracts.NewSchemaValidator()

	feedListener, err := rabbitmq_adapter.NewChangeFeedConsumerAdapter(
		appConfig.RabbitMQ.URL,
		replicaStore.Dispatch,
		validator,
		baseLogger,
		connManager,
	)
	if err != nil {
		appLogger.Error("Failed to create change feed consumer", err, nil)
		changePublisher.Close()
		dbPool.Close()
		return nil, fmt.Errorf("failed to create change feed consumer: %w", err)
	}
	appLogger.Info("Change feed publisher and consumer initialized.", nil)

	// --- 4. USE CASES ---
	publishUC := usecase.NewPublishListingUseCase(replicaStore, validator)
	editUC := usecase.NewEditListingUseCase(replicaStore, validator)
	statusUC := usecase.NewChangeStatusUseCase(replicaStore)
	deleteUC := usecase.NewDeleteListingUseCase(replicaStore)
	grantUC := usecase.NewGrantAccessUseCase(replicaStore)
	revokeUC := usecase.NewRevokeAccessUseCase(replicaStore)

	viewRegistry := usecase.NewViewRegistry(replicaStore, appConfig.View.DefaultPageSize, baseLogger)
	appLogger.Info("All use cases initialized.", nil)

	// --- 5. REST API ---
	viewHandler := rest.NewViewHandler(viewRegistry, baseLogger)
	listingHandler := rest.NewListingHandler(publishUC, editUC, statusUC, deleteUC, grantUC, revokeUC)
	authMiddleware := rest.NewAuthMiddleware(appConfig.Auth.JWTSigningKey)
	apiServer := rest.NewServer(appConfig.Rest.PORT, viewHandler, listingHandler, authMiddleware, baseLogger)
	appLogger.Info("REST API server configured.", nil)

	application := &App{
		config:       appConfig,
		dbPool:       dbPool,
		apiServer:    apiServer,
		feedListener: feedListener,
		replicaStore: replicaStore,
		viewRegistry: viewRegistry,
		publisher:    changePublisher,
		logger:       appLogger,
		fluentClient: fluentClient,
	}

	return application, nil
}

func (a *App) Run() error {
	// Единый контекст приложения для управления graceful shutdown
	appCtx, cancelApp := context.WithCancel(context.Background())

	var wg sync.WaitGroup

	defer func() {
		a.logger.Info("Shutdown sequence initiated...", nil)

		// Сначала закрываем все открытые view: их подписки должны
		// отмениться до остановки ленты.
		a.viewRegistry.CloseAll()

		a.logger.Info("Waiting for background processes to finish...", nil)
		wg.Wait()
		a.logger.Info("All background processes finished.", nil)

		if a.apiServer != nil {
			if err := a.apiServer.Stop(context.Background()); err != nil {
				a.logger.Error("Error during API server shutdown", err, nil)
			}
		}

		if a.feedListener != nil {
			if err := a.feedListener.Close(); err != nil {
				a.logger.Error("Error closing change feed listener", err, nil)
			}
		}

		if a.publisher != nil {
			if err := a.publisher.Close(); err != nil {
				a.logger.Error("Error closing change feed publisher", err, nil)
			}
		}

		if a.dbPool != nil {
			a.dbPool.Close()
			a.logger.Info("PostgreSQL pool closed.", nil)
		}

		a.logger.Info("Application shut down gracefully.", nil)
		if a.fluentClient != nil {
			if err := a.fluentClient.Close(); err != nil {
				fmt.Printf("ERROR: Error closing fluent client: %v\n", err)
			}
		}
	}()

	a.logger.Info("Application is starting...", nil)

	errorsCh := make(chan error, 1)

	go func() {
		a.logger.Info("Starting HTTP server...", port.Fields{"port": a.config.Rest.PORT})
		if err := a.apiServer.Start(); err != nil && err != http.ErrServerClosed {
			errorsCh <- fmt.Errorf("HTTP server start error: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		listenerLogger := a.logger.WithFields(port.Fields{"listener": "Change Feed Listener"})
		listenerLogger.Info("Starting listener...", nil)

		if err := a.feedListener.Start(appCtx); err != nil {
			listenerLogger.Error("Listener stopped with an unexpected error", err, nil)
			// Лента мертва: все открытые view обязаны деградировать.
			a.replicaStore.Fail(err)
			errorsCh <- fmt.Errorf("change feed listener error: %w", err)
		} else {
			listenerLogger.Info("Listener stopped gracefully.", nil)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	a.logger.Info("Application running. Waiting for signals or component error...", nil)
	select {
	case receivedSignal := <-quit:
		a.logger.Warn("Received OS signal, shutting down...", port.Fields{"signal": receivedSignal.String()})
	case err := <-errorsCh:
		a.logger.Error("A critical component failed, shutting down", err, nil)
	case <-appCtx.Done():
		a.logger.Warn("Context was cancelled unexpectedly, shutting down...", nil)
	}

	cancelApp()

	return nil
}

func parseLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		log.Printf("Warning: Unknown log level '%s'. Defaulting to 'info'.", levelStr)
		return slog.LevelInfo
	}
}
