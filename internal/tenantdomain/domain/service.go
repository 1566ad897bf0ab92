package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrInvalidDomain       = errors.New("invalid_domain")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("domain_not_found")
	ErrDomainTaken         = errors.New("domain_conflict")
	ErrTooManyDomains      = errors.New("too_many_domains")
	ErrTxtMismatch         = errors.New("txt_mismatch")
	ErrRateLimited         = errors.New("rate_limited")
	ErrRegistrarFailure    = errors.New("registrar_error")
	ErrAttachmentTimeout   = errors.New("attachment_timeout")
	ErrResolverUnavailable = errors.New("resolver_unavailable")
	ErrVerifyInProgress    = errors.New("verify_in_progress")
)

// Outcome reason codes surfaced to callers for differentiated UI guidance.
const (
	ReasonReady             = "ready"
	ReasonTxtMismatch       = "txt_mismatch"
	ReasonRateLimited       = "rate_limited"
	ReasonRegistrarError    = "registrar_error"
	ReasonAttachmentTimeout = "attachment_timeout"
)

// TXTRecord is the DNS record a tenant must publish to prove control.
type TXTRecord struct {
	RecordName  string `json:"record_name"`
	RecordType  string `json:"record_type"`
	RecordValue string `json:"record_value"`
}

// CreateResponse discloses the verification token exactly once, as the TXT
// instruction returned at creation time.
type CreateResponse struct {
	ID        string       `json:"id"`
	Domain    string       `json:"domain"`
	Type      DomainType   `json:"type"`
	Status    DomainStatus `json:"status"`
	TxtRecord TXTRecord    `json:"txt_record"`
	CreatedAt time.Time    `json:"created_at"`
}

// Response is the listing shape; the verification token is deliberately
// absent.
type Response struct {
	ID         string       `json:"id"`
	TenantID   string       `json:"tenant_id"`
	Domain     string       `json:"domain"`
	Type       DomainType   `json:"type"`
	Status     DomainStatus `json:"status"`
	VerifiedAt *time.Time   `json:"verified_at,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

// VerifyResult reports one verification pass.
type VerifyResult struct {
	Verified bool   `json:"verified"`
	SSL      string `json:"ssl,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

type Service interface {
	Create(ctx context.Context, tenantID snowflake.ID, domain string) (*CreateResponse, error)
	List(ctx context.Context, tenantID snowflake.ID) ([]Response, error)
	Verify(ctx context.Context, tenantID snowflake.ID, domain string) (*VerifyResult, error)
	Delete(ctx context.Context, tenantID snowflake.ID, domain string) error
	// ListAll is the super-admin view across tenants. Tokens stay hidden.
	ListAll(ctx context.Context) ([]Response, error)
}

type Repository interface {
	Create(ctx context.Context, record *TenantDomain) error
	Find(ctx context.Context, tenantID snowflake.ID, domain string) (*TenantDomain, error)
	ListByTenant(ctx context.Context, tenantID snowflake.ID) ([]TenantDomain, error)
	ListAll(ctx context.Context) ([]TenantDomain, error)
	CountByTenant(ctx context.Context, tenantID snowflake.ID) (int64, error)
	// UpdateStatus transitions status for the (tenantID, domain) row.
	UpdateStatus(ctx context.Context, tenantID snowflake.ID, domain string, status DomainStatus) error
	// MarkVerified sets status to ready and stamps verified_at only if it is
	// still null, preserving first-verified provenance.
	MarkVerified(ctx context.Context, tenantID snowflake.ID, domain string, verifiedAt time.Time) error
	Delete(ctx context.Context, tenantID snowflake.ID, domain string) (bool, error)
}
