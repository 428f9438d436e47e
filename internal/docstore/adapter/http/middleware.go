package http

import (
	"errors"
	"time"

	apperrors "docstore-gateway/internal/shared/errors"
	"docstore-gateway/internal/shared/logger"
	"docstore-gateway/internal/shared/utils"

	"github.com/gofiber/fiber/v2"
	fiberutils "github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request identifier in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware reuses the caller's request ID or generates one, echoes
// it on the response and stores it in the request context for logging.
func RequestIDMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := fiberutils.CopyString(c.Get(RequestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(RequestIDHeader, requestID)
		c.Locals("requestID", requestID)
		c.SetUserContext(utils.WithRequestID(c.UserContext(), requestID))
		return c.Next()
	}
}

// AccessLogMiddleware logs one line per request.
func AccessLogMiddleware(log logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		log.WithContext(c.UserContext()).WithFields(map[string]interface{}{
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     c.Response().StatusCode(),
			"latency_ms": time.Since(start).Milliseconds(),
		}).Info("Request handled")
		return err
	}
}

// ErrorHandler renders errors returned by handlers as {"error": message}.
func ErrorHandler(log logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "internal server error"

		var fiberErr *fiber.Error
		var appErr *apperrors.AppError
		switch {
		case errors.As(err, &fiberErr):
			code = fiberErr.Code
			message = fiberErr.Message
		case errors.As(err, &appErr):
			code = appErr.HTTPCode
			message = appErr.Message
		default:
			log.WithContext(c.UserContext()).Errorf("Unhandled error: %v", err)
		}

		return c.Status(code).JSON(fiber.Map{"error": message})
	}
}
