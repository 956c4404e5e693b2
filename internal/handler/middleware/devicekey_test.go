//go:build unit

package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"vendfleet/internal/handler/middleware"
	"vendfleet/internal/infra"
	"vendfleet/internal/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
)

type stubResolver struct {
	machineID uuid.UUID
	known     map[string]bool
	calls     int
}

func (r *stubResolver) ResolveMachineID(_ context.Context, apiKey string) (uuid.UUID, error) {
	r.calls++
	if r.known[apiKey] {
		return r.machineID, nil
	}
	return uuid.Nil, infra.WrapRepoErr("device not found", nil, infra.KindNotFound)
}

func newDeviceRouter(mw *middleware.DeviceKeyMiddleware) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/telemetry", mw.RequireDevice(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func performDevice(r *gin.Engine, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/telemetry", nil)
	if key != "" {
		req.Header.Set("X-Device-Key", key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireDevice(t *testing.T) {
	openCfg := config.DeviceConfig{RateLimitPerMinute: 600, RateLimitBurst: 100}

	t.Run("resolved key passes and the lookup is cached", func(t *testing.T) {
		resolver := &stubResolver{machineID: uuid.New(), known: map[string]bool{"key-1": true}}
		mw := middleware.NewDeviceKeyMiddleware(resolver, gocache.New(time.Minute, time.Minute), openCfg)
		r := newDeviceRouter(mw)

		assert.Equal(t, http.StatusOK, performDevice(r, "key-1").Code)
		assert.Equal(t, http.StatusOK, performDevice(r, "key-1").Code)
		assert.Equal(t, 1, resolver.calls, "the second request is served from the key cache")
	})

	t.Run("missing and unknown keys are unauthorized", func(t *testing.T) {
		resolver := &stubResolver{known: map[string]bool{}}
		mw := middleware.NewDeviceKeyMiddleware(resolver, gocache.New(time.Minute, time.Minute), openCfg)
		r := newDeviceRouter(mw)

		assert.Equal(t, http.StatusUnauthorized, performDevice(r, "").Code)
		assert.Equal(t, http.StatusUnauthorized, performDevice(r, "bogus").Code)
	})

	t.Run("per-key limiter throttles bursts", func(t *testing.T) {
		resolver := &stubResolver{machineID: uuid.New(), known: map[string]bool{"key-1": true, "key-2": true}}
		mw := middleware.NewDeviceKeyMiddleware(
			resolver,
			gocache.New(time.Minute, time.Minute),
			config.DeviceConfig{RateLimitPerMinute: 1, RateLimitBurst: 1},
		)
		r := newDeviceRouter(mw)

		assert.Equal(t, http.StatusOK, performDevice(r, "key-1").Code)
		assert.Equal(t, http.StatusTooManyRequests, performDevice(r, "key-1").Code)
		assert.Equal(t, http.StatusOK, performDevice(r, "key-2").Code, "buckets are per key")
	})

	t.Run("limiter entries for bogus keys expire", func(t *testing.T) {
		resolver := &stubResolver{known: map[string]bool{}}
		cache := gocache.New(20*time.Millisecond, time.Minute)
		mw := middleware.NewDeviceKeyMiddleware(resolver, cache, openCfg)
		r := newDeviceRouter(mw)

		for _, key := range []string{"junk-1", "junk-2", "junk-3"} {
			performDevice(r, key)
		}
		assert.Equal(t, 3, cache.ItemCount())

		time.Sleep(40 * time.Millisecond)
		cache.DeleteExpired()
		assert.Equal(t, 0, cache.ItemCount())
	})
}
