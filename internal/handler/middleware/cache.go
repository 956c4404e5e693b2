package middleware

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
)

type cachedResponse struct {
	status      int
	contentType string
	body        []byte
}

type bodyCapturer struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bodyCapturer) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

// CacheResponse serves repeated snapshot reads from memory for the TTL.
// Dashboards poll these endpoints aggressively; bounded staleness is fine.
func CacheResponse(cache *gocache.Cache, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := "resp:" + c.Request.URL.RequestURI()
		if v, found := cache.Get(key); found {
			if cr, ok := v.(cachedResponse); ok {
				c.Data(cr.status, cr.contentType, cr.body)
				c.Abort()
				return
			}
		}

		capturer := &bodyCapturer{ResponseWriter: c.Writer}
		c.Writer = capturer

		c.Next()

		status := c.Writer.Status()
		if status == http.StatusOK {
			cache.Set(key, cachedResponse{
				status:      status,
				contentType: c.Writer.Header().Get("Content-Type"),
				body:        capturer.buf.Bytes(),
			}, ttl)
		}
	}
}
