package source

import (
	"context"

	"go.uber.org/zap"
)

// LogNotifier writes notifications to the structured log. It is the
// default sink when no chat transport is configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send logs the message. It never returns an error.
func (n *LogNotifier) Send(_ context.Context, text string) error {
	n.logger.Info("notification", zap.String("text", text))
	return nil
}
