package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eventstore/eventcore/internal/metrics"
	apperrors "github.com/eventstore/eventcore/internal/pkg/errors"
)

type registerConsumerRequest struct {
	Callback string             `json:"callback" binding:"required"`
	Topics   map[string]*string `json:"topics" binding:"required"`
}

// RegisterConsumer handles POST /consumers.
func (s *Server) RegisterConsumer(c *gin.Context) {
	var req registerConsumerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.InvalidArgument("INVALID_REQUEST", err.Error()))
		return
	}

	topics := make(map[string]string, len(req.Topics))
	for name, cursor := range req.Topics {
		if cursor != nil {
			topics[name] = *cursor
		} else {
			topics[name] = ""
		}
	}

	consumer, err := s.consumers.Register(uuid.NewString(), req.Callback, topics)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"consumerId": consumer.ID})
}

// ListConsumers handles GET /consumers.
func (s *Server) ListConsumers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"consumers": s.consumers.FindAll()})
}

// GetConsumer handles GET /consumers/:id.
func (s *Server) GetConsumer(c *gin.Context) {
	consumer, err := s.consumers.FindByID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, consumer)
}

// DeleteConsumer handles DELETE /consumers/:id.
func (s *Server) DeleteConsumer(c *gin.Context) {
	if err := s.consumers.Delete(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ResumeConsumer handles POST /consumers/:id/resume, the manual
// remediation endpoint for a parked consumer (Open Question (a)).
func (s *Server) ResumeConsumer(c *gin.Context) {
	if err := s.consumers.Resume(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	metrics.RecordConsumerResumed()
	consumer, err := s.consumers.FindByID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, consumer)
}
