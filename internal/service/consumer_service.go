package service

import (
	"context"
	"encoding/json"
	"time"

	"kaleem-livechat/internal/dto"
	"kaleem-livechat/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
)

const (
	replyMaxAttempts = 3
	replyRetryDelay  = 500 * time.Millisecond
	replyTimeout     = time.Minute
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService generates the replies queued by SendMessage in async mode.
type consumerService struct {
	subscriber  message.Subscriber
	topicName   string
	chatService IChatService
	logger      logger.ILogger
	retryDelay  time.Duration
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	chatService IChatService,
	log logger.ILogger,
) IConsumerService {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &consumerService{
		subscriber:  subscriber,
		topicName:   topicName,
		chatService: chatService,
		logger:      log,
		retryDelay:  replyRetryDelay,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.ReplyRequestedMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.SessionId == "" {
		cs.logger.Error("ReplyConsumer", "Invalid reply request", map[string]interface{}{"message_id": msg.UUID})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	details := map[string]interface{}{"session_id": payload.SessionId, "msg_idx": payload.MsgIdx}
	for attempt := 1; attempt <= replyMaxAttempts; attempt++ {
		replyCtx, cancel := context.WithTimeout(ctx, replyTimeout)
		_, err := cs.chatService.DeliverReply(replyCtx, payload.SessionId)
		cancel()
		if err == nil {
			msg.Ack()
			return
		}

		details["attempt"] = attempt
		details["error"] = err.Error()
		cs.logger.Warn("ReplyConsumer", "Reply delivery failed", details)

		select {
		case <-ctx.Done():
			msg.Nack()
			return
		case <-time.After(cs.retryDelay * time.Duration(attempt)):
		}
	}

	// The visitor's message stays stored without a reply.
	cs.logger.Error("ReplyConsumer", "Giving up on reply", details)
	msg.Ack()
}
