package serverutils

import (
	"kaleem-livechat/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware turns errors returned by downstream handlers into the
// JSON error envelope. Server-side failures are logged when log is not nil.
func ErrorHandlerMiddleware(log ...logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code, message := StatusOf(err)
		if code >= fiber.StatusInternalServerError && len(log) > 0 && log[0] != nil {
			log[0].Error("HTTP", "Request failed", map[string]interface{}{
				"method": ctx.Method(),
				"path":   ctx.Path(),
				"error":  err,
			})
		}
		return ctx.Status(code).JSON(ErrorResponse(code, message))
	}
}
