package server

import (
  "github.com/gin-gonic/gin"
  "github.com/gin-contrib/cors"
  "go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
  "github.com/metroflow/induction-backend/internal/handlers"
  "github.com/metroflow/induction-backend/internal/middleware"
)

type RouterConfig struct {
  PlanHandler          *handlers.PlanHandler
  AuditHandler         *handlers.AuditHandler
  SSEHandler           *handlers.SSEHandler
  RequestLogMiddleware *middleware.RequestLogMiddleware
  ServiceName          string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
  router := gin.New()
  router.Use(gin.Recovery())
  if cfg.RequestLogMiddleware != nil {
    router.Use(cfg.RequestLogMiddleware.LogRequests())
  }
  router.Use(otelgin.Middleware(cfg.ServiceName))

  // Cors
  router.Use(cors.New(cors.Config{
    AllowOrigins: []string{
      "http://localhost:80",
      "http://localhost:3000",
      "http://localhost:5174",
    },
    AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
    AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
    AllowCredentials: true,
  }))

  router.GET("/healthcheck", handlers.HealthCheck)

  // Plans
  plans := router.Group("/plans")
  {
    plans.POST("/draft", cfg.PlanHandler.CreateDraft)
    plans.GET("/:id", cfg.PlanHandler.Get)
    plans.POST("/:id/simulate", cfg.PlanHandler.Simulate)
    plans.POST("/:id/lock", cfg.PlanHandler.Lock)
  }

  // Audit
  audit := router.Group("/audit")
  {
    audit.GET("/records", cfg.AuditHandler.List)
    audit.GET("/records/:id", cfg.AuditHandler.Get)
  }

  // SSE
  router.GET("/sse/stream", cfg.SSEHandler.SSEStream)

  return router
}
