package service

import (
	"context"
	"encoding/json"
	"fmt"

	"kaleem-livechat/internal/dto"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// IPublisherService queues reply generation in async reply mode.
type IPublisherService interface {
	RequestReply(ctx context.Context, req dto.ReplyRequestedMessage) error
}

type publisherService struct {
	topicName string
	publisher message.Publisher
}

func NewPublisherService(topicName string, publisher message.Publisher) IPublisherService {
	return &publisherService{
		topicName: topicName,
		publisher: publisher,
	}
}

func (ps *publisherService) RequestReply(ctx context.Context, req dto.ReplyRequestedMessage) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal reply request: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("session_id", req.SessionId)
	msg.SetContext(ctx)

	if err := ps.publisher.Publish(ps.topicName, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", ps.topicName, err)
	}
	return nil
}
