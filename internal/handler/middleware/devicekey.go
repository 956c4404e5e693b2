package middleware

import (
	"context"
	"net/http"
	"sync"

	"vendfleet/internal/infra"
	"vendfleet/internal/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const (
	deviceKeyHeader   = "X-Device-Key"
	ctxMachineIDKey   = "device_machine_id"
	deviceKeyCacheTTL = gocache.DefaultExpiration
)

// DeviceResolver maps an API key to the machine it was paired with.
type DeviceResolver interface {
	ResolveMachineID(ctx context.Context, apiKey string) (uuid.UUID, error)
}

// DeviceKeyMiddleware authenticates embedded devices. Key lookups are cached
// so the hot telemetry path does not hit the database on every report, and
// each key gets its own token bucket. Limiters live in the shared cache so
// entries for idle or bogus keys expire with the janitor instead of
// accumulating for the life of the process.
type DeviceKeyMiddleware struct {
	resolver DeviceResolver
	cache    *gocache.Cache
	cfg      config.DeviceConfig

	mu sync.Mutex
}

func NewDeviceKeyMiddleware(resolver DeviceResolver, cache *gocache.Cache, cfg config.DeviceConfig) *DeviceKeyMiddleware {
	return &DeviceKeyMiddleware{
		resolver: resolver,
		cache:    cache,
		cfg:      cfg,
	}
}

func (m *DeviceKeyMiddleware) RequireDevice() gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader(deviceKeyHeader)
		if apiKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Device key required",
			})
			c.Abort()
			return
		}

		if !m.limiterFor(apiKey).Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded",
			})
			c.Abort()
			return
		}

		machineID, err := m.resolveMachineID(c.Request.Context(), apiKey)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				c.JSON(http.StatusUnauthorized, gin.H{
					"error": "Unknown device key",
				})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
			}
			c.Abort()
			return
		}

		c.Set(ctxMachineIDKey, machineID)
		c.Next()
	}
}

func (m *DeviceKeyMiddleware) resolveMachineID(ctx context.Context, apiKey string) (uuid.UUID, error) {
	if cached, found := m.cache.Get("devkey:" + apiKey); found {
		if id, ok := cached.(uuid.UUID); ok {
			return id, nil
		}
	}

	machineID, err := m.resolver.ResolveMachineID(ctx, apiKey)
	if err != nil {
		return uuid.Nil, err
	}

	m.cache.Set("devkey:"+apiKey, machineID, deviceKeyCacheTTL)
	return machineID, nil
}

func (m *DeviceKeyMiddleware) limiterFor(apiKey string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := "devlim:" + apiKey
	if v, found := m.cache.Get(key); found {
		if lim, ok := v.(*rate.Limiter); ok {
			return lim
		}
	}

	lim := rate.NewLimiter(rate.Limit(float64(m.cfg.RateLimitPerMinute)/60.0), m.cfg.RateLimitBurst)
	m.cache.Set(key, lim, deviceKeyCacheTTL)
	return lim
}

func GetDeviceMachineID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(ctxMachineIDKey)
	if !exists {
		return uuid.Nil, false
	}

	id, ok := v.(uuid.UUID)
	return id, ok
}
