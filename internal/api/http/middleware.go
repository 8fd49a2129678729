package httpapi

import (
	"crypto/subtle"
	"errors"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/crut0i/weatherapp/internal/logger"
	"github.com/crut0i/weatherapp/internal/metrics"
)

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals("requestid").(string)
	return id
}

// RequestLogger emits one structured entry per handled request.
func RequestLogger(log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}

		log.Info("request",
			zap.String("type", "request"),
			zap.String("request_id", requestID(c)),
			zap.String("client_ip", c.IP()),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status_code", status),
			zap.Float64("duration", time.Since(start).Seconds()),
		)

		return err
	}
}

// RequireAuth guards a route with the static authorization token.
func RequireAuth(token string, log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" || subtle.ConstantTimeCompare([]byte(header), []byte(token)) != 1 {
			log.Error("authorization rejected",
				zap.String("type", "HTTPException"),
				zap.Int("code", fiber.StatusUnauthorized),
				zap.String("request_id", requestID(c)),
				zap.String("client_ip", c.IP()),
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
			)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"status":     "error",
				"type":       "unauthorized",
				"error":      "Authorization token is missing or invalid",
				"request_id": requestID(c),
			})
		}
		return c.Next()
	}
}

// ErrorHandler renders every surfaced error as the standard envelope and
// logs it; server errors additionally record a traceback block and metric.
func ErrorHandler(log *logger.Logger, m *metrics.AppMetrics) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}

		reqID := requestID(c)
		fields := []zap.Field{
			zap.String("type", "HTTPException"),
			zap.Int("code", code),
			zap.String("request_id", reqID),
			zap.String("client_ip", c.IP()),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("error", err.Error()),
		}
		if code >= fiber.StatusInternalServerError {
			fields = append(fields, logger.Traceback(debug.Stack()))
			m.RecordTraceback(reqID)
		}
		log.Error("request failed", fields...)

		return c.Status(code).JSON(fiber.Map{
			"status":     "error",
			"type":       errorType(code),
			"error":      err.Error(),
			"request_id": reqID,
		})
	}
}

func errorType(code int) string {
	switch code {
	case fiber.StatusBadRequest:
		return "bad request"
	case fiber.StatusUnauthorized:
		return "unauthorized"
	case fiber.StatusForbidden:
		return "forbidden"
	case fiber.StatusNotFound:
		return "not found"
	case fiber.StatusMethodNotAllowed:
		return "method not allowed"
	default:
		return "server error"
	}
}
