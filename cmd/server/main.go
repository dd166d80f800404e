package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vidstory-server/internal/config"
	"vidstory-server/internal/handler"
	"vidstory-server/internal/messaging"
	"vidstory-server/internal/repository"
	"vidstory-server/internal/service"
	"vidstory-server/migrations"
	"vidstory-server/pkg/logger"
	"vidstory-server/pkg/middleware"
	"vidstory-server/pkg/migration"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	log.Println("Запуск Vidstory Service...")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level: cfg.LogLevel,
	})
	if err != nil {
		log.Fatalf("Не удалось инициализировать логгер: %v", err)
	}
	defer zapLogger.Sync()
	zapLogger.Info("Logger initialized", zap.String("logLevel", cfg.LogLevel))

	// Подключение к PostgreSQL
	dbPool, err := setupDatabase(cfg)
	if err != nil {
		zapLogger.Fatal("Не удалось подключиться к БД", zap.Error(err))
	}
	defer dbPool.Close()
	zapLogger.Info("Успешное подключение к PostgreSQL")

	// Применяем миграции схемы
	migrator := migration.NewMigrator(migration.Config{
		MigrationsPath: ".",
		MigrationsFS:   migrations.FS,
	}, dbPool)
	if err := migrator.Up(context.Background()); err != nil {
		zapLogger.Fatal("Не удалось применить миграции", zap.Error(err))
	}

	// Подключение к Redis (кэш проверок покупок)
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	defer redisClient.Close()
	{
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			// Redis не критичен: кэш деградирует до прямых запросов в Postgres
			zapLogger.Warn("Redis недоступен, кэш покупок будет промахиваться", zap.Error(err))
		}
		cancel()
	}

	// Подключение к RabbitMQ
	rabbitConn, err := connectRabbitMQ(cfg.RabbitMQURL, zapLogger)
	if err != nil {
		zapLogger.Fatal("Не удалось подключиться к RabbitMQ", zap.Error(err))
	}
	defer rabbitConn.Close()
	zapLogger.Info("Успешное подключение к RabbitMQ")

	// Инициализация зависимостей
	txHelper := repository.NewTransactionHelper(dbPool, zapLogger)
	storyRepo := repository.NewPgStoryRepository(dbPool, zapLogger)
	sceneRepo := repository.NewPgSceneRepository(dbPool, zapLogger)
	optionRepo := repository.NewPgOptionRepository(dbPool, zapLogger)
	convRepo := repository.NewPgConversationRepository(dbPool, zapLogger)
	purchaseRepo := repository.NewPgPurchaseRepository(dbPool, zapLogger)
	purchaseCache := repository.NewRedisPurchaseCache(redisClient, cfg.PurchaseCacheTTL, zapLogger)

	clipTaskPublisher, err := messaging.NewRabbitMQClipTaskPublisher(rabbitConn, cfg.ClipTaskQueueName)
	if err != nil {
		zapLogger.Fatal("Не удалось создать ClipTaskPublisher", zap.Error(err))
	}

	accessService := service.NewAccessService(dbPool, purchaseRepo, purchaseCache, zapLogger)
	conversationService := service.NewConversationService(
		dbPool, txHelper, storyRepo, sceneRepo, optionRepo, convRepo, accessService, zapLogger)
	storyService := service.NewStoryService(dbPool, storyRepo, sceneRepo, zapLogger)
	sceneService := service.NewSceneService(dbPool, storyRepo, sceneRepo, optionRepo, clipTaskPublisher, zapLogger)

	h := handler.NewHandler(
		conversationService, storyService, sceneService, accessService,
		zapLogger, cfg.JWTSecret, cfg.InterServiceSecret)

	// Консьюмер результатов подготовки клипов
	clipResultProcessor := messaging.NewClipResultProcessor(sceneRepo, dbPool)
	clipResultConsumer, err := messaging.NewClipResultConsumer(rabbitConn, clipResultProcessor, cfg.ClipResultQueueName)
	if err != nil {
		zapLogger.Fatal("Не удалось создать консьюмер результатов подготовки клипов", zap.Error(err))
	}
	go func() {
		zapLogger.Info("Запуск горутины консьюмера результатов подготовки клипов...")
		if err := clipResultConsumer.StartConsuming(); err != nil {
			zapLogger.Error("Консьюмер результатов завершился с ошибкой", zap.Error(err))
		}
		zapLogger.Info("Горутина консьюмера результатов завершена.")
	}()

	// Настройка Echo
	e := echo.New()
	e.Use(middleware.EchoZapLogger(zapLogger))
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	h.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	log.Printf("Vidstory сервер слушает на порту %s", cfg.Port)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("Ошибка запуска HTTP сервера: ", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Получен сигнал завершения, начинаем graceful shutdown...")

	clipResultConsumer.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal("Ошибка при graceful shutdown Echo: ", err)
	}

	log.Println("Vidstory Service успешно остановлен")
}

// setupDatabase инициализирует и возвращает пул соединений с БД
func setupDatabase(cfg *config.Config) (*pgxpool.Pool, error) {
	dsn := cfg.GetDSN()
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга DSN: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.DBMaxConns)
	poolConfig.MaxConnIdleTime = cfg.DBIdleTimeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	dbPool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("не удалось создать пул соединений: %w", err)
	}
	if err = dbPool.Ping(ctx); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("не удалось подключиться к БД (ping failed): %w", err)
	}
	return dbPool, nil
}

// connectRabbitMQ пытается подключиться к RabbitMQ с несколькими попытками
func connectRabbitMQ(url string, logger *zap.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	maxRetries := 5
	retryDelay := 5 * time.Second
	for i := 0; i < maxRetries; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		logger.Warn("Не удалось подключиться к RabbitMQ",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", maxRetries),
			zap.Duration("retry_delay", retryDelay),
			zap.Error(err),
		)
		time.Sleep(retryDelay)
	}
	return nil, err
}
