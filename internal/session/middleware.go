// Package session issues and validates the opaque per-visitor session cookie.
package session

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crut0i/weatherapp/internal/logger"
	"github.com/crut0i/weatherapp/internal/storage"
)

const (
	localsSessionID  = "session_id"
	localsFromCookie = "session_from_cookie"
)

// Store is the subset of the relational store the middleware needs.
type Store interface {
	GetSession(ctx context.Context, sessionID string) (*storage.Session, error)
	CreateSession(ctx context.Context, sess *storage.Session) error
}

// ID returns the session identifier for the request and whether it arrived
// on a valid inbound cookie (as opposed to being minted for this request).
func ID(c *fiber.Ctx) (string, bool) {
	id, _ := c.Locals(localsSessionID).(string)
	fromCookie, _ := c.Locals(localsFromCookie).(bool)
	return id, fromCookie
}

// New returns the session middleware. A request with a decodable, unexpired
// cookie whose session row still exists reuses that identifier; anything
// else gets a freshly minted session and a new cookie on the response.
func New(store Store, log *logger.Logger, cookieName string, expiryDays int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if raw := c.Cookies(cookieName); raw != "" {
			if p, err := decodeCookie(raw); err == nil && p.Expiry.After(time.Now().UTC()) {
				sess, err := store.GetSession(c.UserContext(), p.SessionID)
				if err == nil && sess != nil {
					c.Locals(localsSessionID, p.SessionID)
					c.Locals(localsFromCookie, true)
					return c.Next()
				}
			}
			// Invalid, expired or unknown: fall through and mint a new one.
		}

		sessionID := uuid.NewString()
		expiry := time.Now().UTC().AddDate(0, 0, expiryDays)

		err := store.CreateSession(c.UserContext(), &storage.Session{
			SessionID: sessionID,
			UserIP:    clientIP(c),
		})
		if err != nil {
			// Soft error: the request proceeds without a persisted session.
			log.Error("failed to persist session",
				zap.String("type", "session"),
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		}

		c.Locals(localsSessionID, sessionID)
		c.Locals(localsFromCookie, false)

		nextErr := c.Next()

		c.Cookie(&fiber.Cookie{
			Name:     cookieName,
			Value:    encodeCookie(sessionID, expiry),
			Expires:  expiry,
			HTTPOnly: true,
			Secure:   true,
			SameSite: fiber.CookieSameSiteStrictMode,
		})

		return nextErr
	}
}

func clientIP(c *fiber.Ctx) string {
	if ip := c.Get("X-Original-Forwarded-For"); ip != "" {
		return ip
	}
	return c.IP()
}
