package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eventstore/eventcore/internal/api/middleware"
	"github.com/eventstore/eventcore/internal/pkg/logger"
)

// NewRouter builds the gin engine for the Ingestion API façade (§6),
// registering every route directly since this service carries no
// contract-first codegen layer.
func NewRouter(s *Server) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.ErrorHandler())
	router.Use(cors.New(devCORSConfig()))

	router.POST("/topics", s.CreateTopic)
	router.GET("/topics", s.ListTopics)
	router.GET("/topics/:name", s.GetTopic)
	router.PUT("/topics/:name/schemas", s.UpdateSchemas)
	router.GET("/topics/:name/events", s.GetTopicEvents)

	router.POST("/events", s.PublishEvents)

	router.POST("/consumers", s.RegisterConsumer)
	router.GET("/consumers", s.ListConsumers)
	router.GET("/consumers/:id", s.GetConsumer)
	router.DELETE("/consumers/:id", s.DeleteConsumer)
	router.POST("/consumers/:id/resume", s.ResumeConsumer)

	router.GET("/health", s.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	logLevel := gin.WrapH(logger.HTTPHandler())
	router.GET("/admin/log-level", logLevel)
	router.PUT("/admin/log-level", logLevel)

	return router
}

// devCORSConfig is a permissive CORS policy suitable for local
// development and the façade's lack of browser-session auth. Production
// deployments front this service with their own ingress policy.
func devCORSConfig() cors.Config {
	return cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "X-Request-ID"},
		ExposeHeaders:   []string{"Content-Length", "X-Request-ID"},
		MaxAge:          12 * time.Hour,
	}
}
