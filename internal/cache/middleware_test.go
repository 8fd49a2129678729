package cache

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crut0i/weatherapp/internal/logger"
	"github.com/crut0i/weatherapp/internal/metrics"
)

type fakeCache struct {
	mu        sync.Mutex
	data      map[string][]byte
	existsErr error
	setErr    error
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (f *fakeCache) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return nil, ErrCacheMiss
}

func (f *fakeCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return nil
}

func (f *fakeCache) Exists(_ context.Context, key string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[key]
	return ok, nil
}

func (f *fakeCache) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

func testApp(t *testing.T, store Store, handler fiber.Handler) *fiber.App {
	t.Helper()
	log, err := logger.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	m := metrics.New(prometheus.NewRegistry())
	app := fiber.New()
	app.Get("/api/logs", Middleware(store, m, log, time.Hour), handler)
	return app
}

func TestKey(t *testing.T) {
	assert.Equal(t, "cache:GET:/api/logs", Key("GET", "/api/logs"))
}

func TestStoresAndReplaysJSONResponse(t *testing.T) {
	store := newFakeCache()
	calls := 0
	app := testApp(t, store, func(c *fiber.Ctx) error {
		calls++
		return c.JSON(fiber.Map{"status": "success"})
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/logs", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, calls)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/logs", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, calls, "second request should be served from cache")
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"success"}`, string(body))
}

func TestErrorResponsesAreNotCached(t *testing.T) {
	store := newFakeCache()
	app := testApp(t, store, func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusInternalServerError, "boom")
	})

	_, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/logs", nil))
	require.NoError(t, err)
	assert.Empty(t, store.data)
}

func TestNonJSONResponsesAreNotCached(t *testing.T) {
	store := newFakeCache()
	app := testApp(t, store, func(c *fiber.Ctx) error {
		return c.SendString("plain text")
	})

	_, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/logs", nil))
	require.NoError(t, err)
	assert.Empty(t, store.data)
}

func TestCacheLookupFailureFallsThrough(t *testing.T) {
	store := newFakeCache()
	store.existsErr = errors.New("redis down")
	calls := 0
	app := testApp(t, store, func(c *fiber.Ctx) error {
		calls++
		return c.JSON(fiber.Map{"status": "success"})
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/logs", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, calls)
}

func TestCacheStoreFailureDoesNotFailRequest(t *testing.T) {
	store := newFakeCache()
	store.setErr = errors.New("redis down")
	app := testApp(t, store, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "success"})
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/logs", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
