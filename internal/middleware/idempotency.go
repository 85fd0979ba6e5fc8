package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyHeader = "Idempotency-Key"
	idempotencyTTL    = 24 * time.Hour

	// A key is reserved with idempotencyPending while its first request runs.
	idempotencyPending    = "pending"
	idempotencyReserveTTL = time.Minute
)

// cachedResponse stores the response for idempotent requests.
type cachedResponse struct {
	StatusCode int             `json:"status_code"`
	Body       json.RawMessage `json:"body"`
	Headers    http.Header     `json:"headers"`
}

// responseWriter wraps gin.ResponseWriter to capture the response.
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency replays the stored response when a mutating request repeats an
// Idempotency-Key. Keys are scoped to the caller, method and route so two
// users cannot collide. A repeat that arrives while the first request is still
// running gets 409 idempotency_in_flight. A nil client disables the middleware.
func Idempotency(redisClient *redis.Client, log *slog.Logger) gin.HandlerFunc {
	if log == nil {
		log = slog.Default()
	}
	return func(c *gin.Context) {
		if redisClient == nil || !isMutating(c.Request.Method) {
			c.Next()
			return
		}

		key := c.GetHeader(idempotencyHeader)
		if key == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		cacheKey := "idempotency:" + CallerID(c) + ":" + c.Request.Method + ":" + c.Request.URL.Path + ":" + key

		cached, pending, err := getCachedResponse(ctx, redisClient, cacheKey)
		if err != nil && !errors.Is(err, redis.Nil) {
			log.WarnContext(ctx, "idempotency lookup failed", "error", err)
			c.Next()
			return
		}

		if cached != nil {
			for k, v := range cached.Headers {
				for _, val := range v {
					c.Header(k, val)
				}
			}
			c.Header("Idempotent-Replay", "true")
			c.Data(cached.StatusCode, "application/json", cached.Body)
			c.Abort()
			return
		}

		if !pending {
			reserved, err := redisClient.SetNX(ctx, cacheKey, idempotencyPending, idempotencyReserveTTL).Result()
			if err != nil {
				log.WarnContext(ctx, "idempotency reserve failed", "error", err)
				c.Next()
				return
			}
			pending = !reserved
		}
		if pending {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"error": "a request with this idempotency key is still in progress",
				"code":  "idempotency_in_flight",
			})
			return
		}

		w := &responseWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
		}
		c.Writer = w

		c.Next()

		// 5xx and contention are transient; let the client retry for real.
		status := c.Writer.Status()
		if status < 200 || status >= 500 || c.GetBool(transientKey) {
			if err := redisClient.Del(ctx, cacheKey).Err(); err != nil {
				log.WarnContext(ctx, "idempotency release failed", "error", err)
			}
			return
		}
		response := cachedResponse{
			StatusCode: status,
			Body:       w.body.Bytes(),
			Headers:    extractResponseHeaders(c),
		}
		if err := setCachedResponse(ctx, redisClient, cacheKey, &response, idempotencyTTL); err != nil {
			log.WarnContext(ctx, "idempotency store failed", "error", err)
		}
	}
}

const transientKey = "transientFailure"

// MarkTransient tells Idempotency not to remember this response.
func MarkTransient(c *gin.Context) {
	c.Set(transientKey, true)
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// getCachedResponse retrieves a cached response from Redis and reports
// whether the key is only reserved.
func getCachedResponse(ctx context.Context, client *redis.Client, key string) (*cachedResponse, bool, error) {
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false, err
	}
	if string(data) == idempotencyPending {
		return nil, true, nil
	}

	var cached cachedResponse
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, false, err
	}

	return &cached, false, nil
}

// setCachedResponse stores a response in Redis.
func setCachedResponse(ctx context.Context, client *redis.Client, key string, response *cachedResponse, ttl time.Duration) error {
	data, err := json.Marshal(response)
	if err != nil {
		return err
	}

	return client.Set(ctx, key, data, ttl).Err()
}

// extractResponseHeaders extracts headers to cache.
func extractResponseHeaders(c *gin.Context) http.Header {
	headers := make(http.Header)
	if ct := c.Writer.Header().Get("Content-Type"); ct != "" {
		headers.Set("Content-Type", ct)
	}
	return headers
}
