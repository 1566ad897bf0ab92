package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

// Platform operator endpoints. These read across tenants and bypass tenant
// RBAC; PlatformAdminRequired gates the whole group.

func (s *Server) AdminListTenants(c *gin.Context) {
	tenants, err := s.tenantSvc.ListAll(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tenants": tenants})
}

func (s *Server) AdminListDomains(c *gin.Context) {
	domains, err := s.domainSvc.ListAll(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"domains": domains})
}

type AdminChangePlanRequest struct {
	PlanKey string `json:"plan_key"`
}

func (s *Server) AdminChangeTenantPlan(c *gin.Context) {
	tenantID, err := snowflake.ParseString(strings.TrimSpace(c.Param("tenantId")))
	if err != nil || tenantID == 0 {
		AbortWithError(c, ErrNotFound)
		return
	}

	var req AdminChangePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	planKey := strings.TrimSpace(req.PlanKey)
	if planKey == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.tenantSvc.ChangePlan(c.Request.Context(), tenantID, planKey); err != nil {
		AbortWithError(c, err)
		return
	}
	s.planSvc.InvalidatePlan(planKey)

	if s.auditSvc != nil {
		targetID := tenantID.String()
		_ = s.auditSvc.Record(c.Request.Context(), &tenantID, "tenant.plan_changed", "tenant", &targetID, map[string]any{
			"plan_key": planKey,
			"via":      "admin",
		})
	}

	c.Status(http.StatusNoContent)
}
