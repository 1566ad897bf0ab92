package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/loomsite/loomsite/internal/audit"
	auditdomain "github.com/loomsite/loomsite/internal/audit/domain"
	"github.com/loomsite/loomsite/internal/auth"
	authdomain "github.com/loomsite/loomsite/internal/auth/domain"
	"github.com/loomsite/loomsite/internal/authorization"
	"github.com/loomsite/loomsite/internal/billing"
	billingdomain "github.com/loomsite/loomsite/internal/billing/domain"
	"github.com/loomsite/loomsite/internal/config"
	"github.com/loomsite/loomsite/internal/observability"
	obsmiddleware "github.com/loomsite/loomsite/internal/observability/logger"
	obsmetrics "github.com/loomsite/loomsite/internal/observability/metrics"
	obstracing "github.com/loomsite/loomsite/internal/observability/tracing"
	"github.com/loomsite/loomsite/internal/plan"
	plandomain "github.com/loomsite/loomsite/internal/plan/domain"
	"github.com/loomsite/loomsite/internal/providers/slack"
	"github.com/loomsite/loomsite/internal/tenant"
	tenantmodel "github.com/loomsite/loomsite/internal/tenant/domain"
	"github.com/loomsite/loomsite/internal/tenantdomain"
	tddomain "github.com/loomsite/loomsite/internal/tenantdomain/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	audit.Module,
	auth.Module,
	tenant.Module,
	plan.Module,
	tenantdomain.Module,
	billing.Module,
	slack.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug: obsCfg.Debug(),
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine    *gin.Engine
	cfg       config.Config
	genID     *snowflake.Node
	authsvc   authdomain.Service
	authzSvc  authorization.Service
	auditSvc  auditdomain.Service
	tenantSvc tenantmodel.Service
	planSvc   plandomain.Entitlements
	domainSvc tddomain.Service
	billing   billingdomain.Service
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	GenID      *snowflake.Node
	Authsvc    authdomain.Service
	AuthzSvc   authorization.Service
	AuditSvc   auditdomain.Service
	TenantSvc  tenantmodel.Service
	PlanSvc    plandomain.Entitlements
	DomainSvc  tddomain.Service
	BillingSvc billingdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:    p.Gin,
		cfg:       p.Cfg,
		genID:     p.GenID,
		authsvc:   p.Authsvc,
		authzSvc:  p.AuthzSvc,
		auditSvc:  p.AuditSvc,
		tenantSvc: p.TenantSvc,
		planSvc:   p.PlanSvc,
		domainSvc: p.DomainSvc,
		billing:   p.BillingSvc,
	}

	svc.registerAPIRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")

	v1.POST("/signup", s.Signup)
	v1.POST("/login", s.Login)
	v1.POST("/logout", s.Logout)

	// Provider webhooks authenticate via signature, not session.
	v1.POST("/webhooks/payment", s.HandlePaymentWebhook)

	v1.Use(s.AuthRequired())

	v1.GET("/me", s.Me)

	v1.POST("/tenants", s.CreateTenant)
	v1.GET("/tenants", s.ListTenants)

	scoped := v1.Group("/tenants/:tenantId", s.TenantContext())
	{
		scoped.GET("", s.authorizeTenantAction(authorization.ObjectTenant, authorization.ActionTenantView), s.GetTenant)

		scoped.GET("/domains", s.authorizeTenantAction(authorization.ObjectDomain, authorization.ActionDomainView), s.ListDomains)
		scoped.POST("/domains", s.authorizeTenantAction(authorization.ObjectDomain, authorization.ActionDomainCreate), s.CreateDomain)
		scoped.POST("/domains/:domain/verify", s.authorizeTenantAction(authorization.ObjectDomain, authorization.ActionDomainVerify), s.VerifyDomain)
		scoped.DELETE("/domains/:domain", s.authorizeTenantAction(authorization.ObjectDomain, authorization.ActionDomainDelete), s.DeleteDomain)

		scoped.POST("/billing/checkout", s.authorizeTenantAction(authorization.ObjectBilling, authorization.ActionBillingCheckout), s.CreateCheckout)

		scoped.GET("/audit-logs", s.authorizeTenantAction(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)
	}
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/v1/admin")

	admin.Use(s.AuthRequired())
	admin.Use(s.PlatformAdminRequired())

	admin.GET("/tenants", s.AdminListTenants)
	admin.GET("/domains", s.AdminListDomains)
	admin.PUT("/tenants/:tenantId/plan", s.AdminChangeTenantPlan)
}
