package delivery

import (
	"github.com/smallbiznis/waterbill/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.delivery",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config, log *zap.Logger) Provider {
	if cfg.DeliveryDryRun || cfg.DeliveryWebhookURL == "" {
		return NewLog(log)
	}
	return NewWebhook(cfg.DeliveryWebhookURL, cfg.DeliveryTimeout)
}
