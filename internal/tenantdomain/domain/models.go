// Package domain contains models and contracts for custom-domain provisioning.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type DomainType string

const (
	// TypeApex is a root domain with exactly two labels, e.g. example.com.
	TypeApex DomainType = "apex"
	// TypeSub has three or more labels, e.g. app.example.com.
	TypeSub DomainType = "sub"
)

type DomainStatus string

const (
	StatusPending DomainStatus = "pending"
	StatusReady   DomainStatus = "ready"
	StatusFailed  DomainStatus = "failed"
)

// TenantDomain is one hostname a tenant wants served under its workspace.
// VerificationToken is written once at creation and never updated.
type TenantDomain struct {
	ID                snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID          snowflake.ID `gorm:"not null;index" json:"tenant_id"`
	Domain            string       `gorm:"type:text;not null;uniqueIndex:ux_tenant_domains_domain" json:"domain"`
	Type              DomainType   `gorm:"column:domain_type;type:text;not null" json:"type"`
	VerificationToken string       `gorm:"type:text;not null" json:"-"`
	Status            DomainStatus `gorm:"type:text;not null;default:pending" json:"status"`
	VerifiedAt        *time.Time   `json:"verified_at,omitempty"`
	CreatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (TenantDomain) TableName() string { return "tenant_domains" }
