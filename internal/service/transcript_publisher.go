package service

import (
	"encoding/json"

	"ai-data-analyst-be/internal/dto"
	"ai-data-analyst-be/internal/pkg/logger"
	"ai-data-analyst-be/pkg/conversation"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// TranscriptTopic is the in-process topic carrying transcript changes.
const TranscriptTopic = "analysis.transcript"

type transcriptPublisher struct {
	publisher message.Publisher
	topic     string
	logger    logger.ILogger
}

// NewTranscriptPublisher adapts a watermill publisher to conversation.Notifier.
func NewTranscriptPublisher(publisher message.Publisher, topic string, log logger.ILogger) conversation.Notifier {
	return &transcriptPublisher{publisher: publisher, topic: topic, logger: log}
}

func (p *transcriptPublisher) EntryAppended(sessionID string, entry conversation.Entry) {
	p.publish(dto.TranscriptEvent{Type: dto.TranscriptEventEntry, SessionId: sessionID, Entry: &entry})
}

func (p *transcriptPublisher) TranscriptCleared(sessionID string) {
	p.publish(dto.TranscriptEvent{Type: dto.TranscriptEventCleared, SessionId: sessionID})
}

func (p *transcriptPublisher) publish(event dto.TranscriptEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("TranscriptPublisher", "Failed to marshal transcript event", map[string]interface{}{"error": err.Error()})
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("session_id", event.SessionId)
	if err := p.publisher.Publish(p.topic, msg); err != nil {
		p.logger.Error("TranscriptPublisher", "Failed to publish transcript event", map[string]interface{}{
			"session_id": event.SessionId,
			"error":      err.Error(),
		})
	}
}
