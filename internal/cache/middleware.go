package cache

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/crut0i/weatherapp/internal/logger"
	"github.com/crut0i/weatherapp/internal/metrics"
)

// Middleware memoizes successful JSON GET responses for the tagged route.
// A cached value is replayed only while the current time is before the next
// local midnight; fresh 200 JSON responses are stored with the given TTL.
// Cache failures never fail the request.
func Middleware(store Store, m *metrics.AppMetrics, log *logger.Logger, expire time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := Key(c.Method(), c.Path())
		ctx := c.UserContext()

		now := time.Now()
		nextMidnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)

		exists, err := store.Exists(ctx, key)
		if err != nil {
			m.RecordError(c.Method(), c.Path(), "get_error")
			log.Error("cache lookup failed", cacheFields(c, zap.Error(err))...)
		} else if exists && now.Before(nextMidnight) {
			data, err := store.Get(ctx, key)
			if err == nil {
				c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
				return c.Status(fiber.StatusOK).Send(data)
			}
			if !errors.Is(err, ErrCacheMiss) {
				m.RecordError(c.Method(), c.Path(), "get_error")
				log.Error("cache fetch failed", cacheFields(c, zap.Error(err))...)
			}
		}

		if err := c.Next(); err != nil {
			return err
		}

		if c.Method() != fiber.MethodGet ||
			c.Response().StatusCode() != fiber.StatusOK ||
			!strings.Contains(string(c.Response().Header.ContentType()), fiber.MIMEApplicationJSON) {
			return nil
		}

		body := append([]byte(nil), c.Response().Body()...)
		if err := store.Set(ctx, key, body, expire); err != nil {
			m.RecordError(c.Method(), c.Path(), "set_error")
			log.Error("cache store failed", cacheFields(c, zap.Error(err))...)
			return nil
		}

		m.RecordSuccess(c.Method(), c.Path())
		log.Info("response cached", cacheFields(c, zap.Duration("expire", expire))...)
		return nil
	}
}

func cacheFields(c *fiber.Ctx, extra ...zap.Field) []zap.Field {
	requestID, _ := c.Locals("requestid").(string)
	fields := []zap.Field{
		zap.String("type", "cache"),
		zap.String("request_id", requestID),
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
	}
	return append(fields, extra...)
}
