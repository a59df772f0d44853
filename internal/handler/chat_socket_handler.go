package handler

import (
	"strings"

	"kaleem-livechat/internal/constant"
	"kaleem-livechat/internal/pkg/logger"
	"kaleem-livechat/internal/pkg/serverutils"
	internalWS "kaleem-livechat/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const defaultRole = "customer"

type ChatSocketHandler struct {
	hub    *internalWS.Hub
	logger logger.ILogger
}

func NewChatSocketHandler(hub *internalWS.Hub, log logger.ILogger) *ChatSocketHandler {
	return &ChatSocketHandler{
		hub:    hub,
		logger: log,
	}
}

// ServeWs upgrades GET /ws?sessionId=&role= to the realtime channel. The
// session id may also arrive later in a join event.
func (h *ChatSocketHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	sessionID := strings.TrimSpace(c.Query("sessionId"))
	if len(sessionID) > constant.ChatSessionIdMaxLength {
		return serverutils.NewBadRequestError("Invalid session id")
	}
	role := strings.TrimSpace(c.Query("role"))
	if role == "" {
		role = defaultRole
	}

	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("ChatSocketHandler", "Starting WebSocket session", map[string]interface{}{"session_id": sessionID, "role": role})
		internalWS.ServeWs(h.hub, conn, sessionID, role)
		h.logger.Info("ChatSocketHandler", "WebSocket session ended", map[string]interface{}{"session_id": sessionID, "role": role})
	})(c)
}

func (h *ChatSocketHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws", h.ServeWs)
}
