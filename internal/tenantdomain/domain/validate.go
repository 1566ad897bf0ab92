package domain

import (
	"regexp"
	"strings"
)

const maxHostnameLength = 253

var hostnameRegex = regexp.MustCompile(`^([a-z0-9]([a-z0-9\-]{0,61}[a-z0-9])?\.)+[a-z]{2,}$`)

// NormalizeHostname lower-cases and trims a hostname, stripping one trailing
// dot if present.
func NormalizeHostname(raw string) string {
	host := strings.ToLower(strings.TrimSpace(raw))
	return strings.TrimSuffix(host, ".")
}

// ValidateHostname checks the strict DNS-label grammar used for custom
// domains. The input must already be normalized.
func ValidateHostname(host string) error {
	if host == "" {
		return ErrInvalidDomain
	}
	if len(host) > maxHostnameLength {
		return ErrInvalidDomain
	}
	if !hostnameRegex.MatchString(host) {
		return ErrInvalidDomain
	}
	return nil
}

// ClassifyHostname derives apex vs sub from the label count.
func ClassifyHostname(host string) DomainType {
	if strings.Count(host, ".") == 1 {
		return TypeApex
	}
	return TypeSub
}
