package middleware

import (
	"compress/gzip"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

// CompressionConfig holds configuration for response compression.
type CompressionConfig struct {
	Level        int
	ExcludePaths []string
}

// DefaultCompressionConfig returns balanced defaults.
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		Level:        gzip.DefaultCompression,
		ExcludePaths: []string{"/health"},
	}
}

// CompressionMiddleware provides gzip compression for JSON responses,
// pooling gzip writers across requests.
type CompressionMiddleware struct {
	config     CompressionConfig
	pool       sync.Pool
	compressed int64
	skipped    int64
}

// NewCompressionMiddleware creates a compression middleware.
func NewCompressionMiddleware(config CompressionConfig) *CompressionMiddleware {
	cm := &CompressionMiddleware{config: config}
	cm.pool = sync.Pool{
		New: func() interface{} {
			gz, _ := gzip.NewWriterLevel(io.Discard, config.Level)
			return gz
		},
	}
	return cm
}

// Handler returns the Gin middleware function.
func (cm *CompressionMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.Contains(c.GetHeader("Accept-Encoding"), "gzip") || cm.excluded(c.Request.URL.Path) {
			atomic.AddInt64(&cm.skipped, 1)
			c.Next()
			return
		}

		gz := cm.pool.Get().(*gzip.Writer)
		gz.Reset(c.Writer)
		defer func() {
			gz.Close()
			cm.pool.Put(gz)
		}()

		c.Header("Content-Encoding", "gzip")
		c.Header("Vary", "Accept-Encoding")
		c.Writer = &gzipWriter{ResponseWriter: c.Writer, gz: gz}

		atomic.AddInt64(&cm.compressed, 1)
		c.Next()
	}
}

func (cm *CompressionMiddleware) excluded(path string) bool {
	for _, p := range cm.config.ExcludePaths {
		if path == p {
			return true
		}
	}
	return false
}

// GetStats returns compression counters.
func (cm *CompressionMiddleware) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"compressed_responses": atomic.LoadInt64(&cm.compressed),
		"skipped_responses":    atomic.LoadInt64(&cm.skipped),
		"level":                cm.config.Level,
	}
}

type gzipWriter struct {
	gin.ResponseWriter
	gz *gzip.Writer
}

func (w *gzipWriter) Write(data []byte) (int, error) {
	return w.gz.Write(data)
}

func (w *gzipWriter) WriteString(s string) (int, error) {
	return w.gz.Write([]byte(s))
}
