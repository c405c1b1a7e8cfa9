package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogSink writes events to a zap logger.
type LogSink struct {
	logger *zap.Logger
}

func (s *LogSink) Notify(_ context.Context, event *Event) error {
	s.logger.Info("notification",
		zap.String("kind", string(event.Kind)),
		zap.String("recipient", event.Recipient),
		zap.String("instanceId", event.InstanceID),
		zap.String("taskId", event.TaskID),
		zap.String("businessType", event.BusinessType),
		zap.String("entityId", event.EntityID),
	)
	return nil
}

// NewLogSink creates a LogSink.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger.Named("notify")}
}
