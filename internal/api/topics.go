package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eventstore/eventcore/internal/domain"
	apperrors "github.com/eventstore/eventcore/internal/pkg/errors"
)

type createTopicRequest struct {
	Name          string          `json:"name" binding:"required"`
	TenantName    string          `json:"tenantName"`
	NamespaceName string          `json:"namespaceName"`
	Schemas       []domain.Schema `json:"schemas"`
}

type updateSchemasRequest struct {
	TenantName    string          `json:"tenantName"`
	NamespaceName string          `json:"namespaceName"`
	Schemas       []domain.Schema `json:"schemas" binding:"required"`
}

// CreateTopic handles POST /topics.
func (s *Server) CreateTopic(c *gin.Context) {
	var req createTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.InvalidArgument("INVALID_REQUEST", err.Error()))
		return
	}

	scope := domain.Scope{TenantName: req.TenantName, NamespaceName: req.NamespaceName}
	t, err := s.topics.CreateTopic(uuid.NewString(), "", "", req.Name, req.Schemas, scope)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

// ListTopics handles GET /topics.
func (s *Server) ListTopics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"topics": s.topics.GetAllTopics()})
}

// GetTopic handles GET /topics/:name.
func (s *Server) GetTopic(c *gin.Context) {
	scope := scopeFromQuery(c)
	t, err := s.topics.GetTopic(c.Param("name"), scope)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// UpdateSchemas handles PUT /topics/:name/schemas.
func (s *Server) UpdateSchemas(c *gin.Context) {
	var req updateSchemasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.InvalidArgument("INVALID_REQUEST", err.Error()))
		return
	}

	scope := domain.Scope{TenantName: req.TenantName, NamespaceName: req.NamespaceName}
	t, err := s.topics.UpdateSchemas(c.Param("name"), req.Schemas, scope)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func scopeFromQuery(c *gin.Context) domain.Scope {
	return domain.Scope{
		TenantName:    c.Query("tenantName"),
		NamespaceName: c.Query("namespaceName"),
	}
}

// respondError hands err to ErrorHandler (internal/api/middleware), which
// runs after the handler chain and writes the single JSON response: an
// AppError's code/message/status, or a generic 500 for anything else.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
}
