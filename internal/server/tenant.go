package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	tenantmodel "github.com/loomsite/loomsite/internal/tenant/domain"
)

func (s *Server) CreateTenant(c *gin.Context) {
	var req tenantmodel.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	tenant, err := s.tenantSvc.Create(c.Request.Context(), userID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		tenantID, parseErr := snowflake.ParseString(tenant.ID)
		if parseErr == nil {
			targetID := tenant.ID
			_ = s.auditSvc.Record(c.Request.Context(), &tenantID, "tenant.created", "tenant", &targetID, map[string]any{
				"name": tenant.Name,
				"slug": tenant.Slug,
			})
		}
	}

	c.JSON(http.StatusCreated, tenant)
}

func (s *Server) ListTenants(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	tenants, err := s.tenantSvc.ListByUser(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tenants": tenants})
}

func (s *Server) GetTenant(c *gin.Context) {
	tenantID, ok := currentTenantID(c)
	if !ok {
		AbortWithError(c, ErrNotFound)
		return
	}

	tenant, err := s.tenantSvc.GetByID(c.Request.Context(), tenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, tenant)
}
