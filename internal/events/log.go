package events

import (
	"go.uber.org/zap"

	"github.com/ShayCichocki/kai/pkg/models"
)

// Log writes every event to a zap logger at debug level.
type Log struct {
	logger *zap.Logger
}

// NewLog creates a logging sink.
func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger.Named("events")}
}

func (l *Log) Emit(event models.StreamEvent) {
	fields := []zap.Field{zap.String("type", string(event.Type))}
	if event.StepID != "" {
		fields = append(fields, zap.String("step", event.StepID))
	}
	if event.TaskID != 0 {
		fields = append(fields, zap.Int64("task", event.TaskID))
	}
	if event.Tool != "" {
		fields = append(fields, zap.String("tool", event.Tool))
	}
	if event.Status != "" {
		fields = append(fields, zap.String("status", event.Status))
	}
	l.logger.Debug("event", fields...)
}

var _ Sink = (*Log)(nil)
