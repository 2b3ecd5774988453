package service

import (
	"context"
	"time"

	"ai-data-analyst-be/internal/metrics"
	"ai-data-analyst-be/internal/pkg/logger"
	"ai-data-analyst-be/pkg/apperr"
	"ai-data-analyst-be/pkg/conversation"
	"ai-data-analyst-be/pkg/engine"
	"ai-data-analyst-be/pkg/events"
)

const publishTimeout = 3 * time.Second

// ActivityRecorder fans pipeline outcomes out to Prometheus and the event bus.
// Either sink may be nil.
type ActivityRecorder struct {
	metrics   *metrics.Metrics
	publisher events.Publisher
	logger    logger.ILogger
}

var _ conversation.Observer = (*ActivityRecorder)(nil)

func NewActivityRecorder(m *metrics.Metrics, publisher events.Publisher, log logger.ILogger) *ActivityRecorder {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &ActivityRecorder{metrics: m, publisher: publisher, logger: log}
}

func (r *ActivityRecorder) EngineObserver() engine.Observer {
	if r.metrics == nil {
		return nil
	}
	return r.metrics.EngineObserver()
}

func (r *ActivityRecorder) SessionOpened(sessionID string) {
	if r.metrics != nil {
		r.metrics.SessionOpened()
	}
	r.publish(events.SessionCreated(sessionID))
}

func (r *ActivityRecorder) SessionClosed(sessionID string) {
	if r.metrics != nil {
		r.metrics.SessionClosed()
	}
	r.publish(events.SessionClosed(sessionID, "evicted"))
}

func (r *ActivityRecorder) UploadFailed(sessionID, fileName string, kind apperr.Kind) {
	if r.metrics != nil {
		r.metrics.UploadFailed(kind)
	}
	r.publish(events.UploadFailed(sessionID, fileName, string(kind)))
}

func (r *ActivityRecorder) DatasetLoaded(sessionID, fileName string, rows, columns int) {
	if r.metrics != nil {
		r.metrics.DatasetLoaded(sessionID, fileName, rows, columns)
	}
	r.publish(events.DatasetLoaded(sessionID, fileName, rows, columns))
}

func (r *ActivityRecorder) TurnCompleted(sessionID string, status conversation.TurnStatus, kind apperr.Kind, elapsed time.Duration) {
	if r.metrics != nil {
		r.metrics.TurnCompleted(sessionID, status, kind, elapsed)
	}
	r.publish(events.TurnCompleted(sessionID, string(status), string(kind), elapsed))
}

func (r *ActivityRecorder) AggregationSkew(sessionID string, skipped int) {
	if r.metrics != nil {
		r.metrics.AggregationSkew(sessionID, skipped)
	}
	r.publish(events.AggregationSkew(sessionID, skipped))
}

// publish never blocks the pipeline; bus failures are logged and dropped.
func (r *ActivityRecorder) publish(event events.Event) {
	if r.publisher == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := r.publisher.Publish(ctx, event); err != nil {
			r.logger.Warn("ActivityRecorder", "Failed to publish event", map[string]interface{}{
				"type":  event.EventType(),
				"error": err.Error(),
			})
		}
	}()
}
