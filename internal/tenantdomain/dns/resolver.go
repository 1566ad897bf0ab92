// Package dns resolves ownership-proof TXT records for domain verification.
package dns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/loomsite/loomsite/internal/tenantdomain/domain"
)

// Resolver looks up the verification TXT record set for a hostname.
type Resolver interface {
	// LookupVerificationTXT returns the TXT values published at
	// <prefix>.<host>. An absent name or empty record set is the expected
	// pre-publication state and yields an empty slice, not an error.
	// Infrastructure failures wrap domain.ErrResolverUnavailable.
	LookupVerificationTXT(ctx context.Context, prefix, host string) ([]string, error)
}

type netResolver struct {
	resolver *net.Resolver
}

// NewResolver returns a Resolver backed by the system resolver.
func NewResolver() Resolver {
	return &netResolver{resolver: net.DefaultResolver}
}

func (r *netResolver) LookupVerificationTXT(ctx context.Context, prefix, host string) ([]string, error) {
	name := VerificationName(prefix, host)

	// net.Resolver already concatenates multi-part TXT strings per record.
	values, err := r.resolver.LookupTXT(ctx, name)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: lookup %s: %v", domain.ErrResolverUnavailable, name, err)
	}
	return values, nil
}

// VerificationName builds the TXT lookup name for the verification prefix.
func VerificationName(prefix, host string) string {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ".")
	return prefix + "." + strings.TrimSpace(host)
}
