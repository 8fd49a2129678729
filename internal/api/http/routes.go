package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/crut0i/weatherapp/internal/cache"
	"github.com/crut0i/weatherapp/internal/logarchive"
	"github.com/crut0i/weatherapp/internal/logger"
	"github.com/crut0i/weatherapp/internal/metrics"
	"github.com/crut0i/weatherapp/internal/session"
	"github.com/crut0i/weatherapp/internal/storage"
	"github.com/crut0i/weatherapp/internal/weather"
)

var validate = validator.New()

// WeatherClient resolves a city name and fetches its forecast.
type WeatherClient interface {
	ResolveLocation(ctx context.Context, city string) (*weather.Location, error)
	FetchForecast(ctx context.Context, loc *weather.Location) (*weather.Forecast, error)
}

// HistoryRecorder persists and retrieves per-session search history.
type HistoryRecorder interface {
	Add(ctx context.Context, sessionID, city, country string, lat, lon float64) error
	BySession(ctx context.Context, sessionID string) ([]storage.History, error)
}

// LogArchive exposes the dated log files on disk.
type LogArchive interface {
	ListDates(kind logarchive.Kind) ([]string, error)
	Read(date string, kind logarchive.Kind) (*logarchive.Document, error)
	Delete(date string, kind logarchive.Kind) error
}

// Deps carries everything the HTTP handlers need.
type Deps struct {
	Cache           cache.Store
	Metrics         *metrics.AppMetrics
	Log             *logger.Logger
	Weather         WeatherClient
	History         HistoryRecorder
	Archive         LogArchive
	AuthToken       string
	CacheExpireList time.Duration
}

type handlers struct {
	deps Deps
}

// RegisterRoutes mounts the API surface on the app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	h := &handlers{deps: deps}

	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/docs", fiber.StatusFound)
	})

	api := app.Group("/api")
	api.Get("/health", h.health)
	api.Get("/help", h.help)

	cached := cache.Middleware(deps.Cache, deps.Metrics, deps.Log, deps.CacheExpireList)
	api.Get("/logs", cached, h.listDates)
	api.Get("/exceptions", cached, h.listDates)
	api.Get("/logs/:date", h.logContent)
	api.Get("/exceptions/:date", h.logContent)
	api.Delete("/logs/:date", h.deleteLog)
	api.Delete("/exceptions/:date", h.deleteLog)

	v1 := app.Group("/api/v1")
	v1.Get("/weather/:city", h.weather)
	v1.Get("/history/:session_id", RequireAuth(deps.AuthToken, deps.Log), h.history)
}

func kindFromPath(c *fiber.Ctx) logarchive.Kind {
	if strings.HasPrefix(c.Path(), "/api/exceptions") {
		return logarchive.KindException
	}
	return logarchive.KindLog
}

func (h *handlers) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "success", "message": "service is up"})
}

func (h *handlers) help(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "success", "message": "documentation: /docs"})
}

func (h *handlers) listDates(c *fiber.Ctx) error {
	dates, err := h.deps.Archive.ListDates(kindFromPath(c))
	if err != nil {
		return fmt.Errorf("list log files: %w", err)
	}
	return c.JSON(fiber.Map{"status": "success", "dates": dates})
}

func (h *handlers) logContent(c *fiber.Ctx) error {
	doc, err := h.deps.Archive.Read(c.Params("date"), kindFromPath(c))
	if errors.Is(err, logarchive.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "log file not found")
	}
	if err != nil {
		return fmt.Errorf("read log file: %w", err)
	}
	return c.JSON(doc)
}

func (h *handlers) deleteLog(c *fiber.Ctx) error {
	date := c.Params("date")
	if err := validate.Var(date, "required,datetime=2006-01-02"); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid date format, expected YYYY-MM-DD")
	}
	if date == time.Now().Format("2006-01-02") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status": "error",
			"detail": "cannot delete logs for current day",
		})
	}

	// Drop the cached listing before removing the file so /api/logs and
	// /api/exceptions never serve a date that no longer exists.
	listPath := strings.TrimSuffix(c.Path(), "/"+date)
	if err := h.deps.Cache.Delete(c.UserContext(), cache.Key(fiber.MethodGet, listPath)); err != nil {
		return fmt.Errorf("invalidate cached listing: %w", err)
	}

	err := h.deps.Archive.Delete(date, kindFromPath(c))
	if errors.Is(err, logarchive.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "log file not found")
	}
	if err != nil {
		return fmt.Errorf("delete log file: %w", err)
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": fmt.Sprintf("log file for date %s deleted successfully", date),
	})
}

type weatherResponse struct {
	Status  string           `json:"status"`
	Message string           `json:"message"`
	Weather weather.Forecast `json:"weather"`
}

func (h *handlers) weather(c *fiber.Ctx) error {
	city := c.Params("city")
	if decoded, err := url.PathUnescape(city); err == nil {
		city = decoded
	}

	ctx := c.UserContext()
	loc, err := h.deps.Weather.ResolveLocation(ctx, city)
	if errors.Is(err, weather.ErrLocationNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":  "error",
			"message": "city not found",
		})
	}
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, "geocoding provider unavailable")
	}

	forecast, err := h.deps.Weather.FetchForecast(ctx, loc)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, "weather provider unavailable")
	}

	// History is only attributed to sessions the client presented itself;
	// a session minted on this very request records nothing.
	if sid, fromCookie := session.ID(c); fromCookie {
		if err := h.deps.History.Add(ctx, sid, city, loc.Country, loc.Latitude, loc.Longitude); err != nil {
			h.deps.Log.Error("failed to record search history",
				zap.String("type", "history"),
				zap.String("request_id", requestID(c)),
				zap.String("session_id", sid),
				zap.String("city", city),
				zap.Error(err),
			)
		}
	}

	return c.JSON(weatherResponse{
		Status:  "success",
		Message: "Weather for " + city,
		Weather: *forecast,
	})
}

func (h *handlers) history(c *fiber.Ctx) error {
	records, err := h.deps.History.BySession(c.UserContext(), c.Params("session_id"))
	if errors.Is(err, storage.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":  "error",
			"message": "history not found",
		})
	}
	if err != nil {
		return fmt.Errorf("fetch history: %w", err)
	}
	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "history found",
		"history": records,
	})
}
