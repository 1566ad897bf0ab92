package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	RoleOwner  = "OWNER"
	RoleAdmin  = "ADMIN"
	RoleMember = "MEMBER" // Read-only / limited
)

var (
	ErrInvalidName   = errors.New("invalid_tenant_name")
	ErrSlugTaken     = errors.New("tenant_slug_taken")
	ErrNotFound      = errors.New("tenant_not_found")
	ErrNoMembership  = errors.New("no_membership")
	ErrInvalidPlan   = errors.New("invalid_plan")
	ErrInvalidRole   = errors.New("invalid_role")
	ErrInvalidTenant = errors.New("invalid_tenant")
)

type CreateRequest struct {
	Name string `json:"name"`
}

type Response struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	PlanKey   string    `json:"plan_key"`
	Role      string    `json:"role,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type ListItem struct {
	ID        snowflake.ID
	Name      string
	Slug      string
	PlanKey   string
	Role      string
	CreatedAt time.Time
}

type Service interface {
	Create(ctx context.Context, userID snowflake.ID, req CreateRequest) (*Response, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Response, error)
	ListByUser(ctx context.Context, userID snowflake.ID) ([]Response, error)
	// MemberRole returns the user's role within the tenant, or ErrNoMembership.
	MemberRole(ctx context.Context, tenantID, userID snowflake.ID) (string, error)
	// ChangePlan moves the tenant to a new plan key.
	ChangePlan(ctx context.Context, tenantID snowflake.ID, planKey string) error
	// ListAll is the super-admin view across tenants.
	ListAll(ctx context.Context) ([]Response, error)
}

type Repository interface {
	Create(ctx context.Context, tenant *Tenant) error
	AddMember(ctx context.Context, member *TenantMember) error
	FindByID(ctx context.Context, id snowflake.ID) (*Tenant, error)
	ListByUser(ctx context.Context, userID snowflake.ID) ([]ListItem, error)
	MemberRole(ctx context.Context, tenantID, userID snowflake.ID) (string, error)
	UpdatePlan(ctx context.Context, tenantID snowflake.ID, planKey string) error
	ListAll(ctx context.Context) ([]Tenant, error)
}
