package mw

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

// ResponseCache keeps successful GET responses in memory for a fixed TTL.
type ResponseCache struct {
	entries *cache.Cache
	ttl     time.Duration
}

type cachedResponse struct {
	status      int
	contentType string
	body        []byte
}

// recordingWriter copies everything written to the client into body.
type recordingWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w recordingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w recordingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

func NewResponseCache(ttl time.Duration) *ResponseCache {
	return &ResponseCache{entries: cache.New(ttl, 2*ttl), ttl: ttl}
}

// Invalidate drops every cached response.
func (rc *ResponseCache) Invalidate() {
	rc.entries.Flush()
}

// cacheKey ignores query parameter order so equivalent reads share an entry.
func cacheKey(r *http.Request) string {
	return r.URL.Path + "?" + r.URL.Query().Encode()
}

// Middleware serves repeated GETs from memory. A successful write passing
// through the same middleware invalidates the cache.
func (rc *ResponseCache) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			if s := c.Writer.Status(); s >= 200 && s < 300 {
				rc.Invalidate()
			}
			return
		}

		key := cacheKey(c.Request)
		if v, found := rc.entries.Get(key); found {
			hit := v.(cachedResponse)
			c.Header("X-Cache", "HIT")
			c.Data(hit.status, hit.contentType, hit.body)
			c.Abort()
			return
		}

		rw := recordingWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = rw
		c.Header("X-Cache", "MISS")
		c.Next()

		if s := rw.Status(); s >= 200 && s < 300 {
			rc.entries.Set(key, cachedResponse{
				status:      s,
				contentType: rw.Header().Get("Content-Type"),
				body:        rw.body.Bytes(),
			}, rc.ttl)
		}
	}
}
