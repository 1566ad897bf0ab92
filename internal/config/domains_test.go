package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultDomainsConfig(t *testing.T) {
	cfg := DefaultDomainsConfig()

	assert.NoError(t, validateDomainsConfig(cfg))
	assert.Equal(t, "_loomsite", cfg.TxtPrefix)
	assert.Equal(t, 12, cfg.PollAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.PollBaseDelay())
	assert.Equal(t, 150*time.Millisecond, cfg.PollStep())
	assert.Equal(t, time.Minute, cfg.VerifyLease())
}

func TestValidateDomainsConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*DomainsConfig)
	}{
		{"empty prefix", func(c *DomainsConfig) { c.TxtPrefix = " " }},
		{"zero attempts", func(c *DomainsConfig) { c.PollAttempts = 0 }},
		{"negative base delay", func(c *DomainsConfig) { c.PollBaseDelayMs = -1 }},
		{"negative step", func(c *DomainsConfig) { c.PollStepMs = -1 }},
		{"zero domain cap", func(c *DomainsConfig) { c.MaxDomainsPerTenant = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultDomainsConfig()
			tt.mutate(&cfg)
			assert.Error(t, validateDomainsConfig(cfg))
		})
	}
}

func TestStaticHolder(t *testing.T) {
	cfg := DefaultDomainsConfig()
	cfg.PollAttempts = 3

	holder := NewStaticDomainsConfigHolder(cfg)
	assert.Equal(t, 3, holder.Get().PollAttempts)
}
