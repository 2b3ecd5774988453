package service

import (
	"context"
	"fmt"

	"ai-data-analyst-be/internal/pkg/logger"
	"ai-data-analyst-be/pkg/conversation"
	"ai-data-analyst-be/pkg/events"
	pktNats "ai-data-analyst-be/pkg/nats"
)

const activityDurable = "analysis-activity-log"

// EventSubscriber is the part of the NATS subscriber the activity log needs.
type EventSubscriber interface {
	Subscribe(ctx context.Context, subject, durableName string, handler pktNats.EventHandler) error
}

// ActivityLogService writes every analysis event to a dedicated log file,
// which the admin log endpoint can read back.
type ActivityLogService struct {
	subscriber EventSubscriber
	logger     logger.ILogger
}

func NewActivityLogService(sub EventSubscriber, log logger.ILogger) *ActivityLogService {
	return &ActivityLogService{subscriber: sub, logger: log}
}

func (s *ActivityLogService) Start(ctx context.Context) error {
	subject := pktNats.Subject("analysis.>")
	if err := s.subscriber.Subscribe(ctx, subject, activityDurable, s.handleEvent); err != nil {
		s.logger.Error("ActivityLog", "Failed to start activity subscriber", map[string]interface{}{"error": err.Error()})
		return err
	}
	s.logger.Info("ActivityLog", fmt.Sprintf("Listening to %s", subject), nil)
	return nil
}

func (s *ActivityLogService) handleEvent(ctx context.Context, event events.Event) error {
	details := make(map[string]interface{}, len(event.Payload())+1)
	for k, v := range event.Payload() {
		details[k] = v
	}
	details["occurred_at"] = event.Timestamp()

	switch event.EventType() {
	case events.TypeUploadFailed:
		s.logger.Warn("Activity", event.EventType(), details)
	case events.TypeTurnCompleted:
		if details["status"] == string(conversation.TurnFailed) {
			s.logger.Warn("Activity", event.EventType(), details)
			return nil
		}
		s.logger.Info("Activity", event.EventType(), details)
	default:
		s.logger.Info("Activity", event.EventType(), details)
	}
	return nil
}
