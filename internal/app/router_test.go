package app_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carpool/internal/app"
	"carpool/internal/config"
	"carpool/internal/handler"
	internalRedis "carpool/internal/redis"
	"carpool/internal/repository/memory"
	"carpool/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T, redisClient *redis.Client) *gin.Engine {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	repo, err := app.NewRideRepository(config.StoreMemory, nil, redisClient, time.Minute, log)
	require.NoError(t, err)

	svc := service.NewRideService(repo, nil, log, 3)
	return app.NewRouter(app.RouterDeps{
		RideHandler:   handler.NewRideHandler(svc),
		HealthHandler: handler.NewHealthHandler(nil),
		RedisClient:   redisClient,
		Logger:        log,
	})
}

func serve(r http.Handler, method, path string, header map[string]string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const createBody = `{"total_seats":1,"start_location_id":"a","destination_id":"b","scheduled_at":"2026-05-01T08:30:00Z"}`

func TestRouter_HealthAndMetrics(t *testing.T) {
	r := newTestRouter(t, nil)

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/health", nil, "").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/ready", nil, "").Code)

	serve(r, http.MethodGet, "/v1/rides", nil, "")
	w := serve(r, http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "carpool_http_requests_total")
}

func TestRouter_MutationsRequireCaller(t *testing.T) {
	r := newTestRouter(t, nil)

	w := serve(r, http.MethodPost, "/v1/rides", nil, createBody)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, http.MethodPost, "/v1/rides", map[string]string{"X-User-ID": "driver-1"}, createBody)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = serve(r, http.MethodGet, "/v1/rides", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)
}

func TestRouter_IdempotentCreate(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	r := newTestRouter(t, client)

	h := map[string]string{"X-User-ID": "driver-1", "Idempotency-Key": "offer-1"}
	first := serve(r, http.MethodPost, "/v1/rides", h, createBody)
	second := serve(r, http.MethodPost, "/v1/rides", h, createBody)

	require.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	w := serve(r, http.MethodGet, "/v1/rides", nil, "")
	assert.Contains(t, w.Body.String(), `"count":1`)
}

func TestNewRideRepository(t *testing.T) {
	log := slog.Default()

	repo, err := app.NewRideRepository(config.StoreMemory, nil, nil, 0, log)
	require.NoError(t, err)
	assert.IsType(t, &memory.RideRepository{}, repo)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	repo, err = app.NewRideRepository(config.StoreMemory, nil, client, time.Second, log)
	require.NoError(t, err)
	assert.IsType(t, &internalRedis.RideCache{}, repo)

	_, err = app.NewRideRepository(config.StorePostgres, nil, nil, 0, log)
	assert.Error(t, err)

	_, err = app.NewRideRepository("mongo", nil, nil, 0, log)
	assert.Error(t, err)
}
