package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// DomainsConfig tunes the custom-domain verification loop.
type DomainsConfig struct {
	// TxtPrefix is the label prepended to the domain when the ownership TXT
	// record is looked up, e.g. "_loomsite" -> _loomsite.example.com.
	TxtPrefix string `mapstructure:"txtPrefix"`

	// PollAttempts bounds the registrar status polling loop.
	PollAttempts int `mapstructure:"pollAttempts"`

	// PollBaseDelayMs and PollStepMs shape the linear backoff between polls:
	// delay(n) = base + n*step.
	PollBaseDelayMs int `mapstructure:"pollBaseDelayMs"`
	PollStepMs      int `mapstructure:"pollStepMs"`

	// VerifyLeaseSeconds is the TTL of the per-domain verify lease.
	VerifyLeaseSeconds int `mapstructure:"verifyLeaseSeconds"`

	// MaxDomainsPerTenant caps how many domains one tenant may register.
	MaxDomainsPerTenant int `mapstructure:"maxDomainsPerTenant"`
}

func DefaultDomainsConfig() DomainsConfig {
	return DomainsConfig{
		TxtPrefix:           "_loomsite",
		PollAttempts:        12,
		PollBaseDelayMs:     500,
		PollStepMs:          150,
		VerifyLeaseSeconds:  60,
		MaxDomainsPerTenant: 10,
	}
}

func (c DomainsConfig) PollBaseDelay() time.Duration {
	return time.Duration(c.PollBaseDelayMs) * time.Millisecond
}

func (c DomainsConfig) PollStep() time.Duration {
	return time.Duration(c.PollStepMs) * time.Millisecond
}

func (c DomainsConfig) VerifyLease() time.Duration {
	return time.Duration(c.VerifyLeaseSeconds) * time.Second
}

// DomainsConfigHolder serves the current DomainsConfig and hot-reloads it when
// the backing file changes. Verify calls read it per invocation, so tuning the
// poll budget does not need a restart.
type DomainsConfigHolder struct {
	current atomic.Value // holds DomainsConfig
}

func NewDomainsConfigHolder() (*DomainsConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("domains")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/loomsite/config")
	v.AddConfigPath("/etc/loomsite")
	v.AddConfigPath(".")

	v.SetEnvPrefix("LOOMSITE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultDomainsConfig()
	v.SetDefault("domains.txtPrefix", defaults.TxtPrefix)
	v.SetDefault("domains.pollAttempts", defaults.PollAttempts)
	v.SetDefault("domains.pollBaseDelayMs", defaults.PollBaseDelayMs)
	v.SetDefault("domains.pollStepMs", defaults.PollStepMs)
	v.SetDefault("domains.verifyLeaseSeconds", defaults.VerifyLeaseSeconds)
	v.SetDefault("domains.maxDomainsPerTenant", defaults.MaxDomainsPerTenant)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg DomainsConfig
	if err := v.UnmarshalKey("domains", &cfg); err != nil {
		return nil, err
	}
	if err := validateDomainsConfig(cfg); err != nil {
		return nil, err
	}

	holder := &DomainsConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated DomainsConfig
		if err := v.UnmarshalKey("domains", &updated); err != nil {
			log.Printf("[domains-config] reload failed: %v", err)
			return
		}
		if err := validateDomainsConfig(updated); err != nil {
			log.Printf("[domains-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[domains-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticDomainsConfigHolder wraps a fixed config, bypassing file watching.
func NewStaticDomainsConfigHolder(cfg DomainsConfig) *DomainsConfigHolder {
	holder := &DomainsConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *DomainsConfigHolder) Get() DomainsConfig {
	return h.current.Load().(DomainsConfig)
}

func validateDomainsConfig(cfg DomainsConfig) error {
	if strings.TrimSpace(cfg.TxtPrefix) == "" {
		return errors.New("domains.txtPrefix cannot be empty")
	}
	if cfg.PollAttempts <= 0 {
		return errors.New("domains.pollAttempts must be positive")
	}
	if cfg.PollBaseDelayMs < 0 || cfg.PollStepMs < 0 {
		return errors.New("domains poll delays cannot be negative")
	}
	if cfg.MaxDomainsPerTenant <= 0 {
		return errors.New("domains.maxDomainsPerTenant must be positive")
	}
	return nil
}
