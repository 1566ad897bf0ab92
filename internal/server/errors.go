package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/loomsite/loomsite/internal/audit/domain"
	authdomain "github.com/loomsite/loomsite/internal/auth/domain"
	"github.com/loomsite/loomsite/internal/authorization"
	billingdomain "github.com/loomsite/loomsite/internal/billing/domain"
	plandomain "github.com/loomsite/loomsite/internal/plan/domain"
	tenantmodel "github.com/loomsite/loomsite/internal/tenant/domain"
	tddomain "github.com/loomsite/loomsite/internal/tenantdomain/domain"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrInternal       = errors.New("internal_error")
)

// ErrorHandlingMiddleware renders the last gin error as the JSON error
// envelope. Handlers report failures through AbortWithError and never write
// error bodies themselves.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, tddomain.ErrInvalidDomain),
		errors.Is(err, tenantmodel.ErrInvalidName),
		errors.Is(err, tenantmodel.ErrInvalidRole),
		errors.Is(err, auditdomain.ErrInvalidAction),
		errors.Is(err, billingdomain.ErrInvalidPayload),
		errors.Is(err, billingdomain.ErrFreePlanCheckout):
		return http.StatusBadRequest, payload(err, "invalid request")

	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authdomain.ErrSessionExpired),
		errors.Is(err, billingdomain.ErrInvalidSignature):
		return http.StatusUnauthorized, payload(err, "unauthorized")

	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, tddomain.ErrForbidden),
		errors.Is(err, tenantmodel.ErrNoMembership):
		return http.StatusForbidden, payload(err, "forbidden")

	case errors.Is(err, ErrNotFound),
		errors.Is(err, tddomain.ErrNotFound),
		errors.Is(err, tenantmodel.ErrNotFound),
		errors.Is(err, authdomain.ErrUserNotFound),
		errors.Is(err, plandomain.ErrPlanNotFound),
		errors.Is(err, billingdomain.ErrUnknownPlan),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, payload(err, "not found")

	case errors.Is(err, tddomain.ErrDomainTaken),
		errors.Is(err, tddomain.ErrTxtMismatch),
		errors.Is(err, tddomain.ErrVerifyInProgress),
		errors.Is(err, tddomain.ErrTooManyDomains),
		errors.Is(err, authdomain.ErrUserExists),
		errors.Is(err, tenantmodel.ErrSlugTaken):
		return http.StatusConflict, payload(err, "conflict")

	case errors.Is(err, tddomain.ErrRateLimited):
		return http.StatusTooManyRequests, payload(err, "rate limited")

	case errors.Is(err, tddomain.ErrRegistrarFailure):
		return http.StatusBadGateway, payload(err, "registrar failure")

	case errors.Is(err, tddomain.ErrResolverUnavailable):
		return http.StatusServiceUnavailable, payload(err, "resolver unavailable")

	case errors.Is(err, tddomain.ErrAttachmentTimeout):
		return http.StatusGatewayTimeout, payload(err, "attachment timed out")

	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func payload(err error, message string) errorPayload {
	return errorPayload{Type: rootCode(err), Message: message}
}

// rootCode unwraps to the sentinel so the wire type stays a stable snake_code.
func rootCode(err error) string {
	for {
		unwrapped := errors.Unwrap(err)
		if unwrapped == nil {
			return err.Error()
		}
		err = unwrapped
	}
}
