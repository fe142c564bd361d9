package main

import (
  "context"
  "fmt"
  "os"
  "github.com/metroflow/induction-backend/internal/cache"
  "github.com/metroflow/induction-backend/internal/db"
  "github.com/metroflow/induction-backend/internal/engine"
  "github.com/metroflow/induction-backend/internal/feeds"
  "github.com/metroflow/induction-backend/internal/handlers"
  "github.com/metroflow/induction-backend/internal/logger"
  "github.com/metroflow/induction-backend/internal/middleware"
  "github.com/metroflow/induction-backend/internal/observability"
  "github.com/metroflow/induction-backend/internal/repos"
  "github.com/metroflow/induction-backend/internal/server"
  "github.com/metroflow/induction-backend/internal/services"
  "github.com/metroflow/induction-backend/internal/sse"
  "github.com/metroflow/induction-backend/internal/utils"
)

func main() {
  // Logger
  logMode := os.Getenv("LOG_MODE")
  if logMode == "" {
    logMode = "development"
  }
  log, err := logger.New(logMode)
  if err != nil {
    fmt.Printf("Failed to init logger: %v\n", err)
    os.Exit(1)
  }
  defer log.Sync()

  // Tracing
  otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
    ServiceName: "induction-backend",
    Environment: utils.GetEnv("DEPLOY_ENV", "development", log),
  })
  defer func() { _ = otelShutdown(context.Background()) }()

  // Database
  dbService, err := db.NewService(log)
  if err != nil {
    log.Error("Database init failed", "error", err)
    os.Exit(1)
  }
  if err = dbService.AutoMigrateAll(); err != nil {
    log.Error("Auto migration failed", "error", err)
    os.Exit(1)
  }
  theDB := dbService.DB()

  // Repos
  log.Info("Setting up Repos from main...")
  auditRecordRepo := repos.NewAuditRecordRepo(theDB, log)

  // Staleness cache: redis when configured, in-memory otherwise.
  var staleCache cache.StalenessCache
  redisCache, err := cache.NewRedisCache(log)
  if err != nil {
    log.Warn("Redis staleness cache unavailable, using in-memory cache", "error", err)
    staleCache = cache.NewMemoryCache()
  } else {
    staleCache = redisCache
  }

  // Weight profiles
  profiles := map[string]map[string]float64{}
  profilesPath := utils.GetEnv("WEIGHT_PROFILES_PATH", "configs/weights.yaml", log)
  if loaded, err := engine.LoadProfiles(profilesPath); err != nil {
    log.Warn("Weight profiles not loaded, only the default profile is available", "path", profilesPath, "error", err)
  } else {
    profiles = loaded
  }

  // SSE
  log.Info("Setting up SSE hub now...")
  sseHub := sse.NewSSEHub(log)

  // Services
  log.Info("Setting up Services from main...")
  feedClient := feeds.NewHTTPClient(log)
  feedSet := feeds.Set{
    RollingStock: feedClient,
    Signalling:   feedClient,
    Telecom:      feedClient,
    Cleaning:     feedClient,
    Branding:     feedClient,
    Yard:         feedClient,
  }
  aggregator := services.NewFeedAggregator(log, feedSet, staleCache)
  planService := services.NewPlanService(theDB, log, aggregator, auditRecordRepo, sseHub, profiles)

  // Handlers
  log.Info("Setting up handlers from main...")
  planHandler := handlers.NewPlanHandler(log, planService)
  auditHandler := handlers.NewAuditHandler(log, planService)
  sseHandler := handlers.NewSSEHandler(log, sseHub)

  // Middleware
  requestLog := middleware.NewRequestLogMiddleware(log)

  // Router
  log.Info("Setting up router from main...")
  router := server.NewRouter(server.RouterConfig{
    PlanHandler:          planHandler,
    AuditHandler:         auditHandler,
    SSEHandler:           sseHandler,
    RequestLogMiddleware: requestLog,
    ServiceName:          "induction-backend",
  })

  port := utils.GetEnv("PORT", "8080", log)
  fmt.Printf("Server listening on :%s\n", port)
  if err := router.Run(":" + port); err != nil {
    log.Warn("Server failed", "error", err)
  }
}
