package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	obscontext "github.com/loomsite/loomsite/internal/observability/context"
	"github.com/loomsite/loomsite/internal/tenantctx"
)

const (
	sessionCookieName = "loomsite_session"

	contextUserIDKey    = "user_id"
	contextUserEmailKey = "user_email"
	contextTenantIDKey  = "tenant_id"
	contextRoleKey      = "tenant_role"
)

// AuthRequired resolves the session cookie to a user and stashes identity on
// the request context.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(sessionCookieName)
		if err != nil || strings.TrimSpace(raw) == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		user, err := s.authsvc.Authenticate(c.Request.Context(), raw)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextUserIDKey, user.ID)
		c.Set(contextUserEmailKey, strings.ToLower(user.Email))

		ctx := obscontext.WithActor(c.Request.Context(), "user", user.ID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// TenantContext parses the :tenantId path segment, checks membership, and
// scopes the request context to that tenant.
func (s *Server) TenantContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, err := snowflake.ParseString(strings.TrimSpace(c.Param("tenantId")))
		if err != nil || tenantID == 0 {
			AbortWithError(c, ErrNotFound)
			return
		}

		userID, ok := currentUserID(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		role, err := s.tenantSvc.MemberRole(c.Request.Context(), tenantID, userID)
		if err != nil {
			if s.isPlatformAdmin(c) {
				role = ""
			} else {
				AbortWithError(c, err)
				return
			}
		}

		c.Set(contextTenantIDKey, tenantID)
		c.Set(contextRoleKey, role)

		ctx := tenantctx.WithTenantID(c.Request.Context(), tenantID)
		ctx = obscontext.WithTenantID(ctx, tenantID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// authorizeTenantAction gates a route on the casbin policy for the caller's
// role within the tenant. Platform admins bypass tenant RBAC.
func (s *Server) authorizeTenantAction(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.isPlatformAdmin(c) {
			c.Next()
			return
		}

		userID, ok := currentUserID(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		tenantID, ok := currentTenantID(c)
		if !ok {
			AbortWithError(c, ErrNotFound)
			return
		}

		actor := "user:" + userID.String()
		if err := s.authzSvc.Authorize(c.Request.Context(), actor, tenantID.String(), object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// PlatformAdminRequired restricts a route group to the platform operator
// accounts named in PLATFORM_ADMIN_EMAILS.
func (s *Server) PlatformAdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.isPlatformAdmin(c) {
			AbortWithError(c, ErrForbidden)
			return
		}
		c.Next()
	}
}

func (s *Server) isPlatformAdmin(c *gin.Context) bool {
	email, ok := c.Get(contextUserEmailKey)
	if !ok {
		return false
	}
	emailStr, _ := email.(string)
	for _, admin := range s.cfg.PlatformAdminEmails {
		if admin == emailStr {
			return true
		}
	}
	return false
}

func currentUserID(c *gin.Context) (snowflake.ID, bool) {
	value, ok := c.Get(contextUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := value.(snowflake.ID)
	return id, ok && id != 0
}

func currentTenantID(c *gin.Context) (snowflake.ID, bool) {
	value, ok := c.Get(contextTenantIDKey)
	if !ok {
		return 0, false
	}
	id, ok := value.(snowflake.ID)
	return id, ok && id != 0
}
