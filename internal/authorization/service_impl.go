package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/loomsite/loomsite/internal/audit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectDomain   = "domain"
	ObjectBilling  = "billing"
	ObjectAuditLog = "audit_log"
	ObjectTenant   = "tenant"
	ObjectMember   = "member"
)

const (
	ActionDomainView   = "domain.view"
	ActionDomainCreate = "domain.create"
	ActionDomainVerify = "domain.verify"
	ActionDomainDelete = "domain.delete"

	ActionBillingCheckout = "billing.checkout"

	ActionAuditLogView = "audit_log.view"

	ActionTenantView   = "tenant.view"
	ActionTenantManage = "tenant.manage"

	ActionMemberView   = "member.view"
	ActionMemberManage = "member.manage"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor, tenantID, object, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return ErrInvalidTenant
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject, roleName, actorID, err := s.resolveActor(ctx, actor, tenantID)
	if err != nil {
		s.auditDenied(ctx, actorID, tenantID, object, action)
		return err
	}

	domain := fmt.Sprintf("tenant:%s", tenantID)
	if err := s.ensureGrouping(subject, roleName, domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditDenied(ctx, actorID, tenantID, object, action)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) resolveActor(ctx context.Context, actor, tenantID string) (string, string, *string, error) {
	if actor == "system" {
		return actor, "role:system", nil, nil
	}
	if strings.HasPrefix(actor, "user:") {
		userIDRaw := strings.TrimPrefix(actor, "user:")
		userID, err := snowflake.ParseString(userIDRaw)
		if err != nil || userID == 0 {
			return "", "", nil, ErrInvalidActor
		}
		userIDStr := userID.String()
		parsedTenantID, err := snowflake.ParseString(tenantID)
		if err != nil || parsedTenantID == 0 {
			return actor, "", &userIDStr, ErrInvalidTenant
		}
		role, err := s.roleForUser(ctx, parsedTenantID, userID)
		if err != nil {
			return actor, "", &userIDStr, err
		}
		return actor, fmt.Sprintf("role:%s", strings.ToLower(role)), &userIDStr, nil
	}
	return "", "", nil, ErrInvalidActor
}

func (s *ServiceImpl) roleForUser(ctx context.Context, tenantID, userID snowflake.ID) (string, error) {
	var row struct {
		Role string `gorm:"column:role"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT role
		 FROM tenant_members
		 WHERE tenant_id = ? AND user_id = ?
		 LIMIT 1`,
		tenantID,
		userID,
	).Scan(&row).Error; err != nil {
		return "", err
	}

	role := strings.TrimSpace(row.Role)
	if role == "" {
		return "", ErrForbidden
	}
	return role, nil
}

func (s *ServiceImpl) ensureGrouping(subject, roleName, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, actorID *string, tenantID, object, action string) {
	if s.auditSvc == nil {
		return
	}
	parsedTenantID, err := snowflake.ParseString(tenantID)
	if err != nil || parsedTenantID == 0 {
		return
	}
	targetID := "capability"
	_ = s.auditSvc.Record(ctx, &parsedTenantID, "authorization.denied", "authorization", &targetID, map[string]any{
		"object": object,
		"action": action,
		"actor":  derefOrEmpty(actorID),
	})
}

func derefOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Member permissions (read-only)
		{"role:member", ObjectDomain, ActionDomainView},
		{"role:member", ObjectTenant, ActionTenantView},
		{"role:member", ObjectMember, ActionMemberView},

		// Admin permissions
		{"role:admin", ObjectDomain, ActionDomainView},
		{"role:admin", ObjectDomain, ActionDomainCreate},
		{"role:admin", ObjectDomain, ActionDomainVerify},
		{"role:admin", ObjectDomain, ActionDomainDelete},
		{"role:admin", ObjectAuditLog, ActionAuditLogView},
		{"role:admin", ObjectTenant, ActionTenantView},
		{"role:admin", ObjectMember, ActionMemberView},
		{"role:admin", ObjectMember, ActionMemberManage},

		// Owner permissions
		{"role:owner", ObjectDomain, ActionDomainView},
		{"role:owner", ObjectDomain, ActionDomainCreate},
		{"role:owner", ObjectDomain, ActionDomainVerify},
		{"role:owner", ObjectDomain, ActionDomainDelete},
		{"role:owner", ObjectBilling, ActionBillingCheckout},
		{"role:owner", ObjectAuditLog, ActionAuditLogView},
		{"role:owner", ObjectTenant, ActionTenantView},
		{"role:owner", ObjectTenant, ActionTenantManage},
		{"role:owner", ObjectMember, ActionMemberView},
		{"role:owner", ObjectMember, ActionMemberManage},
	}

	systemObjects := map[string][]string{
		ObjectDomain:   {ActionDomainView, ActionDomainCreate, ActionDomainVerify, ActionDomainDelete},
		ObjectBilling:  {ActionBillingCheckout},
		ObjectAuditLog: {ActionAuditLogView},
		ObjectTenant:   {ActionTenantView, ActionTenantManage},
		ObjectMember:   {ActionMemberView, ActionMemberManage},
	}
	for object, actions := range systemObjects {
		for _, action := range actions {
			policies = append(policies, []string{"role:system", object, action})
		}
	}

	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy[0], policy[1], policy[2])
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy[0], policy[1], policy[2]); err != nil {
			return err
		}
	}
	return nil
}
