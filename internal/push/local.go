package push

import (
	"context"

	"go.uber.org/zap"
)

// LogSender only logs messages. Used when PUSH_MODE=log.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, sub Subscription, payload Payload) error {
	s.logger.Info("push.log",
		zap.String("endpoint", sub.Endpoint),
		zap.String("title", payload.Title),
		zap.String("body", payload.Body),
		zap.String("url", payload.Data.URL),
	)
	return nil
}
