// Package registrar talks to the hosting platform's project-domains API.
package registrar

import (
	"context"
	"errors"
)

var (
	// ErrRateLimited signals the provider asked us to slow down. The
	// orchestrator backs off without treating the domain as broken.
	ErrRateLimited = errors.New("registrar_rate_limited")
	// ErrHardFailure covers every non-recoverable provider response.
	ErrHardFailure = errors.New("registrar_hard_failure")
	// ErrNotAttached is returned by Status when the provider has no record of
	// the domain.
	ErrNotAttached = errors.New("registrar_domain_not_attached")
)

// AttachmentStatus is the strict status contract with the provider:
// Configured means DNS points at the platform and the attachment is accepted;
// SSL reports certificate issuance ("pending" or "ready").
type AttachmentStatus struct {
	Configured bool
	SSL        string
}

// Registrar attaches tenant domains to the serving project.
type Registrar interface {
	// Attach is idempotent; an already-attached conflict counts as success.
	Attach(ctx context.Context, domain string) error
	// Status reports the attachment snapshot, or ErrNotAttached.
	Status(ctx context.Context, domain string) (AttachmentStatus, error)
	// Detach is idempotent; not-found on the provider side counts as success.
	Detach(ctx context.Context, domain string) error
}
