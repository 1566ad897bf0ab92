package slack

import (
	"github.com/loomsite/loomsite/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("provider.slack",
	fx.Provide(NewProvider),
)

func NewProvider(cfg config.Config, log *zap.Logger) Provider {
	if cfg.SlackWebhookURL == "" {
		log.Info("slack webhook not configured, notifications disabled")
		return &NoOpProvider{}
	}
	return NewWebhookProvider(cfg.SlackWebhookURL)
}
