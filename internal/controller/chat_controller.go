package controller

import (
	"net/url"
	"strings"

	"kaleem-livechat/internal/constant"
	"kaleem-livechat/internal/dto"
	"kaleem-livechat/internal/pkg/serverutils"
	"kaleem-livechat/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	SendMessage(ctx *fiber.Ctx) error
	RateMessage(ctx *fiber.Ctx) error
	GetSession(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService service.IChatService
}

func NewChatController(chatService service.IChatService) IChatController {
	return &chatController{
		chatService: chatService,
	}
}

// Sessions are anonymous; the widget-generated session id is the only key.
func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat")
	h.Get("/:sessionId", c.GetSession)
	h.Post("/:sessionId/message", c.SendMessage)
	h.Post("/:sessionId/rate", c.RateMessage)
}

func (c *chatController) SendMessage(ctx *fiber.Ctx) error {
	sessionId, err := sessionIdParam(ctx)
	if err != nil {
		return err
	}

	var req dto.SendMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.NewBadRequestError("Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatService.SendMessage(ctx.UserContext(), sessionId, &req)
	if err != nil {
		return err
	}

	if res.Status == constant.ChatReplyStatusQueued {
		return ctx.Status(fiber.StatusAccepted).JSON(res)
	}
	return ctx.JSON(res)
}

func (c *chatController) RateMessage(ctx *fiber.Ctx) error {
	sessionId, err := sessionIdParam(ctx)
	if err != nil {
		return err
	}

	var req dto.RateMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.NewBadRequestError("Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.chatService.RateMessage(ctx.UserContext(), sessionId, &req); err != nil {
		return err
	}
	return ctx.JSON(dto.RateMessageResponse{Status: "ok"})
}

func (c *chatController) GetSession(ctx *fiber.Ctx) error {
	sessionId, err := sessionIdParam(ctx)
	if err != nil {
		return err
	}

	res, err := c.chatService.GetSession(ctx.UserContext(), sessionId)
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func sessionIdParam(ctx *fiber.Ctx) (string, error) {
	raw, err := url.PathUnescape(ctx.Params("sessionId"))
	if err != nil {
		return "", serverutils.NewBadRequestError("Invalid session id")
	}
	sessionId := strings.TrimSpace(raw)
	if sessionId == "" || len(sessionId) > constant.ChatSessionIdMaxLength {
		return "", serverutils.NewBadRequestError("Invalid session id")
	}
	return sessionId, nil
}
