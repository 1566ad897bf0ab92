package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	tddomain "github.com/loomsite/loomsite/internal/tenantdomain/domain"
)

type CreateDomainRequest struct {
	Domain string `json:"domain"`
}

func (s *Server) CreateDomain(c *gin.Context) {
	var req CreateDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	tenantID, ok := currentTenantID(c)
	if !ok {
		AbortWithError(c, ErrNotFound)
		return
	}

	resp, err := s.domainSvc.Create(c.Request.Context(), tenantID, req.Domain)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		_ = s.auditSvc.Record(c.Request.Context(), &tenantID, "domain.created", "domain", &resp.Domain, map[string]any{
			"type": resp.Type,
		})
	}

	c.JSON(http.StatusCreated, resp)
}

func (s *Server) ListDomains(c *gin.Context) {
	tenantID, ok := currentTenantID(c)
	if !ok {
		AbortWithError(c, ErrNotFound)
		return
	}

	domains, err := s.domainSvc.List(c.Request.Context(), tenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"domains": domains})
}

func (s *Server) VerifyDomain(c *gin.Context) {
	tenantID, ok := currentTenantID(c)
	if !ok {
		AbortWithError(c, ErrNotFound)
		return
	}

	host := strings.TrimSpace(c.Param("domain"))
	result, err := s.domainSvc.Verify(c.Request.Context(), tenantID, host)
	if err != nil {
		if reason, failed := verifyFailureReason(err); failed {
			status, _ := mapError(err)
			c.JSON(status, tddomain.VerifyResult{Verified: false, Reason: reason})
			return
		}
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		_ = s.auditSvc.Record(c.Request.Context(), &tenantID, "domain.verified", "domain", &host, map[string]any{
			"ssl": result.SSL,
		})
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) DeleteDomain(c *gin.Context) {
	tenantID, ok := currentTenantID(c)
	if !ok {
		AbortWithError(c, ErrNotFound)
		return
	}

	host := strings.TrimSpace(c.Param("domain"))
	if err := s.domainSvc.Delete(c.Request.Context(), tenantID, host); err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		_ = s.auditSvc.Record(c.Request.Context(), &tenantID, "domain.deleted", "domain", &host, nil)
	}

	c.Status(http.StatusNoContent)
}

// verifyFailureReason distinguishes verification outcomes, which render as a
// structured verify result, from request errors, which use the error envelope.
func verifyFailureReason(err error) (string, bool) {
	switch {
	case errors.Is(err, tddomain.ErrTxtMismatch):
		return tddomain.ReasonTxtMismatch, true
	case errors.Is(err, tddomain.ErrRateLimited):
		return tddomain.ReasonRateLimited, true
	case errors.Is(err, tddomain.ErrRegistrarFailure):
		return tddomain.ReasonRegistrarError, true
	case errors.Is(err, tddomain.ErrAttachmentTimeout):
		return tddomain.ReasonAttachmentTimeout, true
	default:
		return "", false
	}
}
