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
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yourusername/studyquest-api/internal/config"
	"github.com/yourusername/studyquest-api/internal/handler"
	"github.com/yourusername/studyquest-api/internal/metrics"
	"github.com/yourusername/studyquest-api/internal/middleware"
	pgRepo "github.com/yourusername/studyquest-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/studyquest-api/internal/repository/redis"
	"github.com/yourusername/studyquest-api/internal/service"
	ws "github.com/yourusername/studyquest-api/internal/websocket"
	"github.com/yourusername/studyquest-api/pkg/auth"
	"github.com/yourusername/studyquest-api/pkg/database"
	"github.com/yourusername/studyquest-api/pkg/llm"
	"github.com/yourusername/studyquest-api/pkg/logger"
)

func main() {
	// .env нужен только локально, в контейнере переменные приходят из окружения
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to load .env: %v", err)
	}

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

	appLog, err := logger.New(cfg.Server.Mode)
	if err != nil {
		log.Printf("Failed to init logger: %v", err)
		os.Exit(1)
	}
	defer appLog.Sync()

	isProduction := cfg.Server.Mode == "production"
	if isProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString(), !isProduction)
	if err != nil {
		appLog.Fatal("failed to connect to database", "error", err)
	}
	if err := database.MigrateDB(db, database.DefaultMigrationsPath, appLog); err != nil {
		appLog.Fatal("failed to migrate database", "error", err)
	}

	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		appLog.Fatal("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()
	appLog.Info("connected to redis", "mode", cfg.Redis.Mode)

	// Репозитории
	profileRepo := pgRepo.NewProfileRepo(db)
	achievementRepo := pgRepo.NewAchievementRepo(db)
	userAchievementRepo := pgRepo.NewUserAchievementRepo(db)
	studyPlanRepo := pgRepo.NewStudyPlanRepo(db)
	quizRepo := pgRepo.NewQuizRepo(db)
	attemptRepo := pgRepo.NewQuizAttemptRepo(db)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		appLog.Fatal("failed to init cache repository", "error", err)
	}

	// Метрики
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// WebSocket: хаб текущего инстанса и рассылка между инстансами
	hub := ws.NewHub(appLog)
	var pubSubProvider ws.PubSubProvider = &ws.NoOpPubSub{}
	if cfg.WebSocket.Cluster.Enabled {
		redisProvider, errProv := ws.NewRedisPubSub(redisClient, appLog)
		if errProv != nil {
			appLog.Warn("redis pubsub unavailable, websocket clustering disabled", "error", errProv)
			cfg.WebSocket.Cluster.Enabled = false
		} else {
			pubSubProvider = redisProvider
		}
	}
	notifier := ws.NewNotifier(hub, pubSubProvider, cfg.WebSocket.Cluster, appLog)
	go func() {
		if err := notifier.Run(ctx); err != nil {
			appLog.Error("websocket cluster subscription stopped", "error", err)
		}
	}()

	jwtService, err := auth.NewJWTService(cfg.JWT)
	if err != nil {
		appLog.Fatal("failed to init jwt service", "error", err)
	}

	// Сервисы
	evaluator := service.NewAchievementEvaluator(achievementRepo, userAchievementRepo, studyPlanRepo, appLog)
	gamificationService, err := service.NewGamificationService(
		db, profileRepo, achievementRepo, userAchievementRepo, cacheRepo,
		evaluator, notifier, appMetrics, cfg.Gamification, appLog,
	)
	if err != nil {
		appLog.Fatal("failed to init gamification service", "error", err)
	}
	quizService := service.NewQuizService(db, quizRepo, attemptRepo, gamificationService, appMetrics, appLog)
	progressService := service.NewStudyProgressService(db, studyPlanRepo, gamificationService, appLog)

	var quizGenerator handler.QuizGenerator
	if cfg.LLM.APIKey != "" {
		llmClient := llm.NewGeminiClient(cfg.LLM, appLog)
		quizGenerator = service.NewQuizGenerationService(db, studyPlanRepo, quizRepo, cacheRepo, llmClient, appMetrics, appLog)
	} else {
		appLog.Warn("llm api key is not set, quiz generation is disabled")
	}

	// Обработчики
	gamificationHandler := handler.NewGamificationHandler(gamificationService, appLog)
	studyPlanHandler := handler.NewStudyPlanHandler(progressService, appLog)
	quizHandler := handler.NewQuizHandler(quizService, quizGenerator, appLog)
	wsHandler := handler.NewWSHandler(hub, cfg.WebSocket, cfg.Server.AllowedOrigins, appLog)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	authMiddleware := middleware.NewAuthMiddleware(jwtService)
	rateLimiter := middleware.NewRateLimiter(redisClient, appLog)

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(appLog), appMetrics.GinMiddleware())

	// Production: не доверять прокси-заголовкам.
	// За балансировщиком замените nil на его адреса.
	trustedProxies := []string{"127.0.0.1", "::1"}
	if isProduction {
		trustedProxies = nil
	}
	if err := router.SetTrustedProxies(trustedProxies); err != nil {
		appLog.Warn("failed to set trusted proxies", "error", err)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-ID", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", healthHandler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))
	router.GET("/ws", authMiddleware.RequireWSAuth(), wsHandler.HandleConnection)

	api := router.Group("/api")
	api.Use(authMiddleware.RequireAuth())
	{
		gamification := api.Group("/gamification")
		{
			gamification.GET("/stats", gamificationHandler.GetStats)
			gamification.GET("/achievements", gamificationHandler.ListAchievements)
			gamification.POST("/achievements/seen", gamificationHandler.MarkAchievementsSeen)
			gamification.POST("/check-in", gamificationHandler.CheckIn)
		}

		plans := api.Group("/study-plans")
		{
			plans.POST("", studyPlanHandler.ImportPlan)
			plans.GET("/:id", middleware.ExtractUintParam("id", "planID"), studyPlanHandler.GetPlan)

			weeks := plans.Group("/weeks/:id")
			weeks.Use(middleware.ExtractUintParam("id", "weekID"))
			{
				weeks.POST("/toggle", studyPlanHandler.ToggleWeek)
				weeks.POST("/quiz",
					rateLimiter.Limit(middleware.QuizGenerationRateLimitConfig(cfg.RateLimit.QuizGenerationPerMinute)),
					quizHandler.GenerateQuiz,
				)
			}
			plans.POST("/activities/:id/toggle", middleware.ExtractUintParam("id", "activityID"), studyPlanHandler.ToggleActivity)
			plans.POST("/resources/:id/toggle", middleware.ExtractUintParam("id", "resourceID"), studyPlanHandler.ToggleResource)
		}

		quizzes := api.Group("/quizzes")
		{
			quizzes.GET("/attempts/export", quizHandler.ExportAttempts)

			attempts := quizzes.Group("/attempts/:id")
			attempts.Use(middleware.ExtractUintParam("id", "attemptID"))
			{
				attempts.POST("/submit",
					rateLimiter.Limit(middleware.SubmitRateLimitConfig(cfg.RateLimit.SubmitPerMinute)),
					quizHandler.SubmitAttempt,
				)
				attempts.GET("/results", quizHandler.GetAttemptResults)
			}

			quizWithID := quizzes.Group("/:id")
			quizWithID.Use(middleware.ExtractUintParam("id", "quizID"))
			{
				quizWithID.GET("", quizHandler.GetQuiz)
				quizWithID.POST("/attempts", quizHandler.StartAttempt)
			}
		}
	}

	// Тайм-ауты защищают от slow client атак
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		appLog.Info("starting server", "port", cfg.Server.Port, "mode", cfg.Server.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("server failed", "error", err)
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}
	appLog.Info("shutting down server")

	cancel()
	if err := pubSubProvider.Close(); err != nil {
		appLog.Warn("error closing pubsub provider", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	appLog.Info("server exited properly")
}
