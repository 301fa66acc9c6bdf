package handlers

import (
	"net/http"
	"time"

	"lexilingua-backend/logger"
	"lexilingua-backend/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type RouterConfig struct {
	SessionHandler  *SessionHandler
	AnalysisHandler *AnalysisHandler
	ChatHandler     *ChatHandler
	// AuditHandler is nil when no database is configured.
	AuditHandler *AuditHandler

	Sessions    *service.SessionService
	Log         *logger.Logger
	CORSOrigins []string
	ServiceName string
}

var defaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:5173",
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	switch {
	case len(origins) == 0:
		cfg.AllowOrigins = defaultCORSOrigins
	case len(origins) == 1 && origins[0] == "*":
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	default:
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

// requestLogger writes one structured line per request.
func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		kv := []any{
			"method", c.Request.Method,
			"route", c.FullPath(),
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
		}
		if status >= http.StatusInternalServerError {
			log.Error("request failed", kv...)
			return
		}
		log.Debug("request", kv...)
	}
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Log
	if log == nil {
		log = logger.Nop()
	}
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "lexilingua-backend"
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(requestLogger(log))
	router.Use(corsMiddleware(cfg.CORSOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"sessions": cfg.Sessions.Count(),
		})
	})

	api := router.Group("/api")
	{
		api.GET("/languages", cfg.SessionHandler.ListLanguages)

		// Sessions
		api.POST("/sessions", cfg.SessionHandler.CreateSession)
		api.GET("/sessions/:id", cfg.SessionHandler.GetSession)
		api.DELETE("/sessions/:id", cfg.SessionHandler.DeleteSession)
		api.POST("/sessions/:id/reset", cfg.SessionHandler.ResetSession)
		api.PUT("/sessions/:id/language", cfg.SessionHandler.SetLanguage)
		api.POST("/sessions/:id/document", cfg.SessionHandler.UploadDocument)
		api.GET("/sessions/:id/document", cfg.SessionHandler.GetDocument)

		// Analysis
		api.POST("/sessions/:id/legality", cfg.AnalysisHandler.CheckLegality)
		api.POST("/sessions/:id/analyze", cfg.AnalysisHandler.Analyze)
		api.POST("/sessions/:id/entities", cfg.AnalysisHandler.ExtractEntities)

		// Chat
		api.POST("/sessions/:id/chat", cfg.ChatHandler.Chat)
		api.POST("/sessions/:id/chat/voice", cfg.ChatHandler.VoiceChat)
		api.DELETE("/sessions/:id/chat", cfg.ChatHandler.ClearHistory)

		if cfg.AuditHandler != nil {
			api.GET("/sessions/:id/completions", cfg.AuditHandler.ListCompletions)
		}
	}

	return router
}
