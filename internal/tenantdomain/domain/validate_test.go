package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeHostname(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Example.COM", "example.com"},
		{"  app.example.com  ", "app.example.com"},
		{"app.example.com.", "app.example.com"},
		{"APP.Example.Com.", "app.example.com"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeHostname(tt.in), "input %q", tt.in)
	}
}

func TestValidateHostname(t *testing.T) {
	valid := []string{
		"example.com",
		"app.example.com",
		"a.b.c.example.co",
		"my-site.example.io",
		"123.example.com",
		"xn--bcher-kva.example.com",
	}
	for _, host := range valid {
		assert.NoError(t, ValidateHostname(host), "host %q", host)
	}

	invalid := []string{
		"",
		"nodots",
		"example.c",
		"example.c0m",
		"-leading.example.com",
		"trailing-.example.com",
		"spa ce.example.com",
		"under_score.example.com",
		"*.example.com",
		"UPPER.example.com",
		strings.Repeat("a", 64) + ".example.com",
		strings.Repeat("abc.", 70) + "com",
	}
	for _, host := range invalid {
		assert.ErrorIs(t, ValidateHostname(host), ErrInvalidDomain, "host %q", host)
	}
}

func TestClassifyHostname(t *testing.T) {
	assert.Equal(t, TypeApex, ClassifyHostname("example.com"))
	assert.Equal(t, TypeSub, ClassifyHostname("app.example.com"))
	assert.Equal(t, TypeSub, ClassifyHostname("deep.app.example.com"))
}
