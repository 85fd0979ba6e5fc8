package middleware_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"carpool/internal/middleware"
)

func idempotentRouter(t *testing.T, status int, transient bool) (*gin.Engine, *int32) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	var calls int32
	r := gin.New()
	r.Use(middleware.CallerIdentity(""))
	r.Use(middleware.Idempotency(client, slog.New(slog.NewTextHandler(io.Discard, nil))))
	r.POST("/rides/:id/seats", func(c *gin.Context) {
		n := atomic.AddInt32(&calls, 1)
		if transient {
			middleware.MarkTransient(c)
		}
		c.JSON(status, gin.H{"call": n})
	})
	return r, &calls
}

func TestIdempotency_ReplaysResponse(t *testing.T) {
	r, calls := idempotentRouter(t, http.StatusCreated, false)
	h := http.Header{"X-User-Id": {"rider-1"}, "Idempotency-Key": {"k-1"}}

	first := do(r, http.MethodPost, "/rides/r1/seats", h)
	second := do(r, http.MethodPost, "/rides/r1/seats", h)

	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replay"))
}

func TestIdempotency_ScopedPerCaller(t *testing.T) {
	r, calls := idempotentRouter(t, http.StatusCreated, false)

	do(r, http.MethodPost, "/rides/r1/seats", http.Header{"X-User-Id": {"rider-1"}, "Idempotency-Key": {"k-1"}})
	do(r, http.MethodPost, "/rides/r1/seats", http.Header{"X-User-Id": {"rider-2"}, "Idempotency-Key": {"k-1"}})

	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
}

func TestIdempotency_NoKeyOrTransient(t *testing.T) {
	r, calls := idempotentRouter(t, http.StatusConflict, true)
	h := http.Header{"X-User-Id": {"rider-1"}, "Idempotency-Key": {"k-1"}}

	do(r, http.MethodPost, "/rides/r1/seats", h)
	do(r, http.MethodPost, "/rides/r1/seats", h)
	do(r, http.MethodPost, "/rides/r1/seats", http.Header{"X-User-Id": {"rider-1"}})

	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
}

func TestIdempotency_NilClientPassesThrough(t *testing.T) {
	r := gin.New()
	r.Use(middleware.Idempotency(nil, slog.Default()))
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusAccepted) })

	w := do(r, http.MethodPost, "/x", http.Header{"Idempotency-Key": {"k"}})

	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestIdempotency_InFlightKeyRejected(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	entered := make(chan struct{})
	release := make(chan struct{})
	var calls int32
	r := gin.New()
	r.Use(middleware.CallerIdentity(""))
	r.Use(middleware.Idempotency(client, slog.New(slog.NewTextHandler(io.Discard, nil))))
	r.POST("/rides/:id/seats", func(c *gin.Context) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(entered)
			<-release
		}
		c.JSON(http.StatusOK, gin.H{"booked": true})
	})
	h := http.Header{"X-User-Id": {"rider-1"}, "Idempotency-Key": {"k-1"}}

	first := make(chan *httptest.ResponseRecorder, 1)
	go func() { first <- do(r, http.MethodPost, "/rides/r1/seats", h) }()
	<-entered

	dup := do(r, http.MethodPost, "/rides/r1/seats", h)
	assert.Equal(t, http.StatusConflict, dup.Code)
	assert.Contains(t, dup.Body.String(), "idempotency_in_flight")

	close(release)
	assert.Equal(t, http.StatusOK, (<-first).Code)

	replay := do(r, http.MethodPost, "/rides/r1/seats", h)
	assert.Equal(t, http.StatusOK, replay.Code)
	assert.Equal(t, "true", replay.Header().Get("Idempotent-Replay"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestIdempotency_TransientReleasesReservation(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	r := gin.New()
	r.Use(middleware.CallerIdentity(""))
	r.Use(middleware.Idempotency(client, slog.New(slog.NewTextHandler(io.Discard, nil))))
	r.POST("/rides/:id/seats", func(c *gin.Context) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"code": "store_unavailable"})
	})

	do(r, http.MethodPost, "/rides/r1/seats", http.Header{"X-User-Id": {"rider-1"}, "Idempotency-Key": {"k-1"}})

	assert.Empty(t, mr.Keys())
}
