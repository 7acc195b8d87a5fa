package delivery

import (
	"context"

	"go.uber.org/zap"
)

// LogProvider writes messages to the log instead of delivering them. Used
// when no webhook endpoint is configured.
type LogProvider struct {
	log *zap.Logger
}

func NewLog(log *zap.Logger) *LogProvider {
	return &LogProvider{log: log.Named("delivery")}
}

func (p *LogProvider) Send(ctx context.Context, subscriberID string, text string) error {
	if _, err := TargetID(subscriberID); err != nil {
		return err
	}
	p.log.Info("message delivery (dry run)",
		zap.String("subscriber_id", subscriberID),
		zap.String("text", text),
	)
	return nil
}
