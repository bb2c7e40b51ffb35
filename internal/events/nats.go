package events

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/ShayCichocki/kai/pkg/models"
)

// DefaultSubjectPrefix is prepended to the event type to form the subject.
const DefaultSubjectPrefix = "kai.events"

// NATS publishes events as JSON to "<prefix>.<type>".
type NATS struct {
	conn   *nats.Conn
	prefix string
	logger *zap.Logger
}

// NewNATS publishes on conn. An empty prefix uses DefaultSubjectPrefix.
func NewNATS(conn *nats.Conn, prefix string, logger *zap.Logger) *NATS {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATS{conn: conn, prefix: prefix, logger: logger.Named("events.nats")}
}

// Subject returns the subject used for events of type t.
func (n *NATS) Subject(t models.EventType) string {
	return n.prefix + "." + string(t)
}

// Emit publishes the event. Failures are logged and otherwise ignored.
func (n *NATS) Emit(event models.StreamEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		n.logger.Warn("marshal event", zap.Error(err))
		return
	}
	if err := n.conn.Publish(n.Subject(event.Type), data); err != nil {
		n.logger.Warn("publish event", zap.String("type", string(event.Type)), zap.Error(err))
	}
}

var _ Sink = (*NATS)(nil)
