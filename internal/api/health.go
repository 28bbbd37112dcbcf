package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eventstore/eventcore/internal/domain"
)

type consumerHealth struct {
	ID           string         `json:"id"`
	Status       string         `json:"status"`
	FailureCount map[string]int `json:"failureCount,omitempty"`
}

// Health handles GET /health. Beyond the spec's bare
// {status, consumers, runningDispatchers}, it reports per-consumer
// parked/failing state and process uptime, mirroring the teacher's
// health-check granularity.
func (s *Server) Health(c *gin.Context) {
	topics := s.topics.GetAllTopics()
	running := make([]string, 0, len(topics))
	for _, t := range topics {
		scope := domain.Scope{TenantName: t.TenantName, NamespaceName: t.NamespaceName}
		running = append(running, scope.Qualified(t.Name))
	}

	all := s.consumers.FindAll()
	consumers := make([]consumerHealth, 0, len(all))
	for _, cons := range all {
		consumers = append(consumers, consumerHealth{
			ID:           cons.ID,
			Status:       string(cons.Status),
			FailureCount: cons.FailureCount,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"status":             "ok",
		"consumers":          len(all),
		"runningDispatchers": running,
		"consumerDetail":     consumers,
		"uptimeSeconds":      time.Since(s.startedAt).Seconds(),
	})
}

// GET /metrics (Prometheus text exposition format) is served by the
// promhttp handler that NewRouter in router.go mounts directly; this file
// has no handler for it.
