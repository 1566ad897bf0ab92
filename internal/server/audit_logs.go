package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/loomsite/loomsite/internal/audit/domain"
)

func (s *Server) ListAuditLogs(c *gin.Context) {
	tenantID, ok := currentTenantID(c)
	if !ok {
		AbortWithError(c, ErrNotFound)
		return
	}

	limit := 50
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		limit = parsed
	}

	logs, err := s.auditSvc.List(c.Request.Context(), auditdomain.ListFilter{
		TenantID:   tenantID,
		Action:     strings.TrimSpace(c.Query("action")),
		TargetType: strings.TrimSpace(c.Query("target_type")),
		Limit:      limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"audit_logs": logs})
}
