package service

import (
	"context"

	"ai-data-analyst-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
)

// TranscriptDelivery pushes a rendered event to the viewers of a session.
// Implemented by the websocket hub.
type TranscriptDelivery interface {
	Publish(sessionID string, data []byte)
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	delivery   TranscriptDelivery
	logger     logger.ILogger
}

func NewConsumerService(subscriber message.Subscriber, topicName string, delivery TranscriptDelivery, log logger.ILogger) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		delivery:   delivery,
		logger:     log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(msg *message.Message) {
	sessionID := msg.Metadata.Get("session_id")
	if sessionID == "" {
		cs.logger.Warn("ConsumerService", "Transcript event without session id", map[string]interface{}{"uuid": msg.UUID})
		msg.Ack() // unroutable, retrying will not help
		return
	}

	cs.delivery.Publish(sessionID, msg.Payload)
	msg.Ack()
}
