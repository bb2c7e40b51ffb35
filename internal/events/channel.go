package events

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ShayCichocki/kai/pkg/models"
)

// Channel delivers events on a buffered channel. When the buffer is full
// it waits briefly for the reader and then drops the event, so unlike the
// other sinks it is ordered but at-most-once. Drops are counted in
// DroppedCount; use it only for display streams.
type Channel struct {
	events       chan models.StreamEvent
	droppedCount atomic.Uint64
	logger       *zap.Logger
}

// NewChannel creates a Channel sink with the given buffer size.
func NewChannel(bufferSize int, logger *zap.Logger) *Channel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Channel{
		events: make(chan models.StreamEvent, bufferSize),
		logger: logger.Named("events"),
	}
}

// Emit sends an event, dropping it if the reader stalls for 100ms.
func (c *Channel) Emit(event models.StreamEvent) {
	select {
	case c.events <- event:
		return
	default:
	}

	select {
	case c.events <- event:
	case <-time.After(100 * time.Millisecond):
		count := c.droppedCount.Add(1)
		if count%10 == 1 {
			c.logger.Warn("event channel full, dropped event",
				zap.Uint64("dropped_total", count),
				zap.String("type", string(event.Type)))
		}
	}
}

// DroppedCount returns the total number of events that have been dropped.
func (c *Channel) DroppedCount() uint64 {
	return c.droppedCount.Load()
}

// Events returns the receive side of the channel.
func (c *Channel) Events() <-chan models.StreamEvent {
	return c.events
}

// Close closes the channel. No Emit may follow.
func (c *Channel) Close() {
	close(c.events)
}

var _ Sink = (*Channel)(nil)
