package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type CheckoutRequest struct {
	PlanKey string `json:"plan_key"`
}

func (s *Server) CreateCheckout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	planKey := strings.TrimSpace(req.PlanKey)
	if planKey == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	tenantID, ok := currentTenantID(c)
	if !ok {
		AbortWithError(c, ErrNotFound)
		return
	}

	session, err := s.billing.Checkout(c.Request.Context(), tenantID, planKey)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// HandlePaymentWebhook is unauthenticated; the billing service verifies the
// provider signature before acting on the payload.
func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.billing.HandleWebhook(c.Request.Context(), payload, c.Request.Header); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
