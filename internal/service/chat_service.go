package service

import (
	"context"
	"strings"
	"time"

	"kaleem-livechat/internal/config"
	"kaleem-livechat/internal/constant"
	"kaleem-livechat/internal/dto"
	"kaleem-livechat/internal/entity"
	"kaleem-livechat/internal/pkg/logger"
	"kaleem-livechat/internal/pkg/serverutils"
	"kaleem-livechat/internal/repository/contract"
	"kaleem-livechat/pkg/events"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const eventPublishTimeout = 5 * time.Second

// RealtimeEmitter pushes an event to every live connection of a session.
type RealtimeEmitter interface {
	Emit(sessionID, event string, payload interface{}) error
}

// EventPublisher forwards domain events to the analytics bus.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type IChatService interface {
	SendMessage(ctx context.Context, sessionId string, req *dto.SendMessageRequest) (*dto.SendMessageResponse, error)
	RateMessage(ctx context.Context, sessionId string, req *dto.RateMessageRequest) error
	GetSession(ctx context.Context, sessionId string) (*dto.GetSessionResponse, error)

	// DeliverReply generates, stores and pushes the bot reply to the latest
	// state of the session.
	DeliverReply(ctx context.Context, sessionId string) (*entity.ChatMessage, error)
}

type ChatServiceDeps struct {
	SessionRepo contract.ChatSessionRepository
	MessageRepo contract.ChatMessageRepository
	Generator   IReplyGenerator

	// Optional collaborators
	Realtime   RealtimeEmitter
	Events     EventPublisher
	ReplyQueue IPublisherService

	ReplyMode     string
	HistoryWindow int
	Logger        logger.ILogger
}

type chatService struct {
	sessionRepo contract.ChatSessionRepository
	messageRepo contract.ChatMessageRepository
	generator   IReplyGenerator
	realtime    RealtimeEmitter
	events      EventPublisher
	replyQueue  IPublisherService

	replyMode     string
	historyWindow int
	logger        logger.ILogger
	tracer        trace.Tracer
}

func NewChatService(deps ChatServiceDeps) IChatService {
	log := deps.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	mode := deps.ReplyMode
	if mode == config.ReplyModeAsync && deps.ReplyQueue == nil {
		log.Warn("ChatService", "Async reply mode without a reply queue, falling back to sync", nil)
		mode = config.ReplyModeSync
	}

	return &chatService{
		sessionRepo:   deps.SessionRepo,
		messageRepo:   deps.MessageRepo,
		generator:     deps.Generator,
		realtime:      deps.Realtime,
		events:        deps.Events,
		replyQueue:    deps.ReplyQueue,
		replyMode:     mode,
		historyWindow: deps.HistoryWindow,
		logger:        log,
		tracer:        otel.Tracer("kaleem-livechat/service/chat"),
	}
}

func (s *chatService) SendMessage(ctx context.Context, sessionId string, req *dto.SendMessageRequest) (*dto.SendMessageResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ChatService.SendMessage", trace.WithAttributes(
		attribute.String("chat.session_id", sessionId),
		attribute.String("chat.reply_mode", s.replyMode),
	))
	defer span.End()

	if strings.TrimSpace(req.Text) == "" {
		return nil, serverutils.NewBadRequestError("text is required")
	}

	if _, err := s.sessionRepo.FindOrCreate(ctx, &entity.ChatSession{Id: sessionId, Metadata: req.Metadata}); err != nil {
		return nil, s.fail(span, "Failed to open chat session", err)
	}

	userMsg := &entity.ChatMessage{
		ChatSessionId: sessionId,
		Role:          constant.ChatMessageRoleUser,
		Chat:          req.Text,
		Metadata:      req.Metadata,
	}
	if err := s.messageRepo.Append(ctx, userMsg); err != nil {
		return nil, s.fail(span, "Failed to store message", err)
	}
	s.publish(events.NewChatMessageCreated(sessionId, userMsg.Role, userMsg.Seq, len(userMsg.Chat), userMsg.CreatedAt))

	if s.replyMode == config.ReplyModeAsync {
		err := s.replyQueue.RequestReply(ctx, dto.ReplyRequestedMessage{SessionId: sessionId, MsgIdx: userMsg.Seq})
		if err != nil {
			return nil, s.fail(span, "Failed to queue reply", err)
		}
		return &dto.SendMessageResponse{Status: constant.ChatReplyStatusQueued}, nil
	}

	reply, err := s.DeliverReply(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	msgIdx := reply.Seq
	return &dto.SendMessageResponse{
		Reply:   reply.Chat,
		MsgIdx:  &msgIdx,
		Sources: reply.Sources,
	}, nil
}

func (s *chatService) DeliverReply(ctx context.Context, sessionId string) (*entity.ChatMessage, error) {
	ctx, span := s.tracer.Start(ctx, "ChatService.DeliverReply", trace.WithAttributes(
		attribute.String("chat.session_id", sessionId),
	))
	defer span.End()

	s.emit(sessionId, constant.ChatEventTyping, map[string]interface{}{})

	history, err := s.messageRepo.FindRecent(ctx, sessionId, s.historyWindow)
	if err != nil {
		return nil, s.fail(span, "Failed to load chat history", err)
	}

	reply, err := s.generator.Generate(ctx, history)
	if err != nil {
		return nil, s.fail(span, "Failed to generate reply", err)
	}

	botMsg := &entity.ChatMessage{
		ChatSessionId: sessionId,
		Role:          constant.ChatMessageRoleBot,
		Chat:          reply.Text,
		Sources:       reply.Sources,
	}
	if err := s.messageRepo.Append(ctx, botMsg); err != nil {
		return nil, s.fail(span, "Failed to store reply", err)
	}
	span.SetAttributes(attribute.Int("chat.msg_idx", botMsg.Seq))

	s.emit(sessionId, constant.ChatEventBotReply, dto.BotReplyPayload{Text: botMsg.Chat, MsgIdx: botMsg.Seq})
	s.publish(events.NewChatMessageCreated(sessionId, botMsg.Role, botMsg.Seq, len(botMsg.Chat), botMsg.CreatedAt))
	return botMsg, nil
}

func (s *chatService) RateMessage(ctx context.Context, sessionId string, req *dto.RateMessageRequest) error {
	if req.MsgIdx == nil || req.Rating == nil {
		return serverutils.NewBadRequestError("msgIdx and rating are required")
	}
	rating := *req.Rating
	if rating != constant.ChatRatingDown && rating != constant.ChatRatingUp {
		return serverutils.NewBadRequestError("rating must be 0 or 1")
	}

	msg, err := s.messageRepo.FindBySeq(ctx, sessionId, *req.MsgIdx)
	if err != nil {
		return serverutils.NewInternalError("Failed to load message", err)
	}
	if msg == nil || !msg.IsBot() {
		return serverutils.NewNotFoundError("Message not found")
	}

	ratedAt := time.Now()
	if err := s.messageRepo.UpdateRating(ctx, msg.Id, rating, req.Feedback, ratedAt); err != nil {
		return serverutils.NewInternalError("Failed to store rating", err)
	}

	s.logger.Info("ChatService", "Message rated", map[string]interface{}{
		"session_id": sessionId,
		"msg_idx":    msg.Seq,
		"rating":     rating,
	})
	s.publish(events.NewChatMessageRated(sessionId, msg.Seq, rating, req.Feedback != "", ratedAt))
	return nil
}

func (s *chatService) GetSession(ctx context.Context, sessionId string) (*dto.GetSessionResponse, error) {
	messages, err := s.messageRepo.FindBySession(ctx, sessionId)
	if err != nil {
		return nil, serverutils.NewInternalError("Failed to load session", err)
	}

	res := &dto.GetSessionResponse{
		SessionId: sessionId,
		Messages:  make([]dto.SessionMessageResponse, 0, len(messages)),
	}
	for _, m := range messages {
		res.Messages = append(res.Messages, dto.SessionMessageResponse{
			Seq:       m.Seq,
			Role:      m.Role,
			Text:      m.Chat,
			Rating:    m.Rating,
			Timestamp: m.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return res, nil
}

func (s *chatService) emit(sessionId, event string, payload interface{}) {
	if s.realtime == nil {
		return
	}
	if err := s.realtime.Emit(sessionId, event, payload); err != nil {
		s.logger.Warn("ChatService", "Realtime emit failed", map[string]interface{}{
			"session_id": sessionId,
			"event":      event,
			"error":      err.Error(),
		})
	}
}

// publish sends the event on its own goroutine, bounded by eventPublishTimeout.
func (s *chatService) publish(event events.Event) {
	if s.events == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), eventPublishTimeout)
		defer cancel()
		if err := s.events.Publish(ctx, event); err != nil {
			s.logger.Warn("ChatService", "Event publish failed", map[string]interface{}{
				"event": event.EventType(),
				"error": err.Error(),
			})
		}
	}()
}

func (s *chatService) fail(span trace.Span, message string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, message)
	s.logger.Error("ChatService", message, map[string]interface{}{"error": err})
	return serverutils.NewInternalError(message, err)
}
