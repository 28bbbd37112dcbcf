package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eventstore/eventcore/internal/domain"
	"github.com/eventstore/eventcore/internal/eventstore"
	"github.com/eventstore/eventcore/internal/metrics"
	apperrors "github.com/eventstore/eventcore/internal/pkg/errors"
)

type publishEventRequest struct {
	Topic         string          `json:"topic" binding:"required"`
	Type          string          `json:"type" binding:"required"`
	Payload       json.RawMessage `json:"payload" binding:"required"`
	TenantName    string          `json:"tenantName"`
	NamespaceName string          `json:"namespaceName"`
}

// PublishEvents handles POST /events: publish an array of
// {topic, type, payload}; rejects empty arrays.
func (s *Server) PublishEvents(c *gin.Context) {
	var reqs []publishEventRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		respondError(c, apperrors.InvalidArgument("INVALID_REQUEST", err.Error()))
		return
	}
	if len(reqs) == 0 {
		metrics.RecordEventRejected("empty_batch")
		respondError(c, apperrors.InvalidArgument("EMPTY_BATCH", "events must not be empty"))
		return
	}

	ids := make([]string, 0, len(reqs))
	now := time.Now().UTC()
	for _, req := range reqs {
		scope := domain.Scope{TenantName: req.TenantName, NamespaceName: req.NamespaceName}

		if ok, err := s.validator.ValidateEvent(req.Topic, req.Type, req.Payload); !ok {
			metrics.RecordEventRejected("validation_failure")
			respondError(c, err)
			return
		}

		seq, err := s.topics.GetAndIncrementSequence(req.Topic, scope)
		if err != nil {
			respondError(c, err)
			return
		}
		id := domain.NewEventID(req.Topic, seq, scope)

		if _, err := s.store.StoreEvent(req.Topic, req.Type, req.Payload, id, now, scope); err != nil {
			respondError(c, err)
			return
		}
		metrics.RecordEventPublished(req.Topic)
		ids = append(ids, id.String())
	}

	c.JSON(http.StatusCreated, gin.H{"eventIds": ids})
}

// GetTopicEvents handles GET /topics/:name/events?sinceEventId&date&limit.
func (s *Server) GetTopicEvents(c *gin.Context) {
	scope := scopeFromQuery(c)
	topicName := c.Param("name")

	filter := eventstore.Filter{}
	if since := c.Query("sinceEventId"); since != "" {
		sinceScope, _ := domain.SplitQualified(since)
		if sinceScope.IsDefault() {
			sinceScope = scope
		}
		if id, ok := parseEventIDText(topicName, since); ok {
			id.TenantID, id.Namespace = sinceScope.TenantName, sinceScope.NamespaceName
			filter.SinceEventID = &id
		}
	}
	if dateStr := c.Query("date"); dateStr != "" {
		d, err := time.Parse(time.RFC3339, dateStr)
		if err != nil {
			respondError(c, apperrors.InvalidArgument("INVALID_DATE", "date must be RFC3339"))
			return
		}
		filter.Date = &d
	}
	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			respondError(c, apperrors.InvalidArgument("INVALID_LIMIT", "limit must be a non-negative integer"))
			return
		}
		filter.Limit = limit
	}

	events, err := s.store.GetEvents(topicName, filter, scope)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// parseEventIDText extracts just the sequence portion of a sinceEventId
// value; the topic segment is taken from the path, not the id text, since
// callers pass the id returned by a prior publish.
func parseEventIDText(topicName, text string) (domain.EventID, bool) {
	_, bare := domain.SplitQualified(text)
	idx := -1
	for i := len(bare) - 1; i >= 0; i-- {
		if bare[i] == '-' {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.EventID{}, false
	}
	seq, err := strconv.ParseInt(bare[idx+1:], 10, 64)
	if err != nil {
		return domain.EventID{}, false
	}
	return domain.EventID{Topic: topicName, Sequence: seq}, true
}
