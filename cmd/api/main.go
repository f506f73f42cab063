package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yourusername/newedenfaces-api/internal/config"
	"github.com/yourusername/newedenfaces-api/internal/handler"
	"github.com/yourusername/newedenfaces-api/internal/identity"
	"github.com/yourusername/newedenfaces-api/internal/metrics"
	"github.com/yourusername/newedenfaces-api/internal/middleware"
	"github.com/yourusername/newedenfaces-api/internal/presence"
	pgRepo "github.com/yourusername/newedenfaces-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/newedenfaces-api/internal/repository/redis"
	"github.com/yourusername/newedenfaces-api/internal/service"
	ws "github.com/yourusername/newedenfaces-api/internal/websocket"
	"github.com/yourusername/newedenfaces-api/pkg/auth"
	"github.com/yourusername/newedenfaces-api/pkg/database"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	isProduction := gin.Mode() == gin.ReleaseMode

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString(), !isProduction)
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db, cfg.Database.MigrationsPath); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к Redis с использованием унифицированной конфигурации
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	// Инициализируем репозитории
	characterRepo := pgRepo.NewCharacterRepo(db)
	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize CacheRepo: %v", err)
		os.Exit(1)
	}

	appMetrics := metrics.New(prometheus.DefaultRegisterer)

	// Инициализируем сервисы
	identityClient := identity.NewClient(cfg.Identity.BaseURL, cfg.Identity.Timeout)
	randomizer := service.NewRandomizer()
	pairService := service.NewPairService(characterRepo, randomizer, cacheRepo, appMetrics)
	voteService := service.NewVoteService(characterRepo, cacheRepo, appMetrics)
	registrationService := service.NewRegistrationService(identityClient, characterRepo, randomizer, cacheRepo, appMetrics)
	characterService := service.NewCharacterService(characterRepo, cacheRepo, cfg.Cache.CountTTL, cfg.Cache.TopTTL)

	// Контекст приложения для фоновых горутин
	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Онлайн-счетчик и WebSocket ---
	var counter presence.Counter = presence.NewLocalCounter()
	if cfg.WebSocket.Cluster.Enabled {
		// Общий счетчик в Redis, чтобы все экземпляры видели одно число
		counter = presence.NewRedisCounter(cacheRepo)
	}
	presenceRegistry := presence.NewRegistry(counter, appMetrics)

	wsHub := ws.NewHub()
	go wsHub.Run()
	presenceRegistry.Subscribe(wsHub.OnPresence)

	var pubSubProvider ws.PubSubProvider
	var relay *ws.PresenceRelay
	if cfg.WebSocket.Cluster.Enabled {
		redisPubSub, err := ws.NewRedisPubSub(redisClient)
		if err != nil {
			log.Printf("Failed to initialize Redis PubSub: %v", err)
			os.Exit(1)
		}
		pubSubProvider = redisPubSub
		relay = ws.NewPresenceRelay(pubSubProvider, presenceRegistry, cfg.WebSocket.Cluster)
		if err := relay.Start(appCtx); err != nil {
			log.Printf("Failed to start presence relay: %v", err)
			os.Exit(1)
		}
	} else {
		log.Println("WebSocket cluster mode disabled, presence is local to this instance")
	}

	// Инициализируем обработчики
	characterHandler := handler.NewCharacterHandler(pairService, voteService, registrationService, characterService)
	adminHandler := handler.NewAdminHandler(characterService)
	wsHandler := handler.NewWSHandler(
		wsHub,
		presenceRegistry,
		ws.ClientConfigFromLimits(cfg.WebSocket.Limits),
		cfg.Server.AllowedOrigins,
	)

	// Инициализируем middleware
	authMiddleware := middleware.NewAuthMiddleware(auth.NewJWTService(cfg.Admin.JWTSecret))
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Инициализируем роутер Gin
	router := gin.Default()

	// Настройка доверенных прокси для корректной работы c.ClientIP() (rate limiting)
	if isProduction {
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	// Настройка CORS (тот же список origin проверяет WebSocket upgrader)
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Настраиваем маршруты API
	api := router.Group("/api")
	handler.RegisterCharacterRoutes(api, characterHandler, rateLimiter, cfg.RateLimit)
	handler.RegisterAdminRoutes(api, adminHandler, authMiddleware)

	router.GET("/ws", wsHandler.HandleConnection)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Создаем контекст с таймаутом для graceful shutdown сервера
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	// WebSocket-соединения не отслеживаются http.Server, закрываем их через хаб
	wsHub.Stop()
	if relay != nil {
		relay.Stop()
	}
	cancel()

	if pubSubProvider != nil {
		if err := pubSubProvider.Close(); err != nil {
			log.Printf("Error closing PubSub provider: %v", err)
		}
	}
	if err := redisClient.Close(); err != nil {
		log.Printf("Error closing Redis client: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	log.Println("Server exited properly")
}
