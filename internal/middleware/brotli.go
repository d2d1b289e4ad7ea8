package middleware

import (
	"net/http"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

type BrotliConfig struct {
	Quality   int
	MinLength int
	// Skipper bypasses compression for matching requests.
	Skipper func(c *gin.Context) bool
}

var DefaultBrotliConfig = BrotliConfig{
	Quality:   brotli.DefaultCompression,
	MinLength: 1024,
}

// brotliWriter buffers until MinLength bytes are written, then switches the
// response to br. Short bodies are sent as-is.
type brotliWriter struct {
	gin.ResponseWriter
	enc        *brotli.Writer
	buf        []byte
	minLength  int
	compressed bool
}

func (bw *brotliWriter) Write(data []byte) (int, error) {
	if bw.compressed {
		return bw.enc.Write(data)
	}

	bw.buf = append(bw.buf, data...)
	if len(bw.buf) < bw.minLength {
		return len(data), nil
	}

	bw.compressed = true
	h := bw.ResponseWriter.Header()
	h.Set("Content-Encoding", "br")
	h.Del("Content-Length")
	bw.enc.Reset(bw.ResponseWriter)

	if _, err := bw.enc.Write(bw.buf); err != nil {
		return 0, err
	}
	bw.buf = bw.buf[:0]
	return len(data), nil
}

func (bw *brotliWriter) WriteString(s string) (int, error) {
	return bw.Write([]byte(s))
}

func (bw *brotliWriter) Flush() {
	if bw.compressed {
		_ = bw.enc.Flush()
	} else if len(bw.buf) > 0 {
		_, _ = bw.ResponseWriter.Write(bw.buf)
		bw.buf = bw.buf[:0]
	}
	bw.ResponseWriter.Flush()
}

// finish drains whatever is still buffered once the handler chain returns.
func (bw *brotliWriter) finish() error {
	if bw.compressed {
		return bw.enc.Close()
	}
	if len(bw.buf) == 0 {
		return nil
	}
	_, err := bw.ResponseWriter.Write(bw.buf)
	bw.buf = bw.buf[:0]
	return err
}

func Brotli() gin.HandlerFunc {
	return BrotliWithConfig(DefaultBrotliConfig)
}

func BrotliWithConfig(cfg BrotliConfig) gin.HandlerFunc {
	if cfg.Quality < brotli.BestSpeed || cfg.Quality > brotli.BestCompression {
		cfg.Quality = brotli.DefaultCompression
	}
	if cfg.MinLength <= 0 {
		cfg.MinLength = DefaultBrotliConfig.MinLength
	}

	encoders := sync.Pool{
		New: func() any { return brotli.NewWriterLevel(nil, cfg.Quality) },
	}

	return func(c *gin.Context) {
		if isStreaming(c) || !acceptsBrotli(c.Request) || (cfg.Skipper != nil && cfg.Skipper(c)) {
			c.Next()
			return
		}

		c.Header("Vary", "Accept-Encoding")

		enc := encoders.Get().(*brotli.Writer)
		bw := &brotliWriter{
			ResponseWriter: c.Writer,
			enc:            enc,
			minLength:      cfg.MinLength,
		}

		defer func() {
			if err := bw.finish(); err != nil {
				_ = c.Error(err)
			}
			enc.Reset(nil)
			encoders.Put(enc)
		}()

		c.Writer = bw
		c.Next()
	}
}

// isStreaming reports requests that must bypass buffering: the composition
// event socket and any event-stream consumer.
func isStreaming(c *gin.Context) bool {
	if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), "text/event-stream")
}

func acceptsBrotli(r *http.Request) bool {
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		name, _, _ := strings.Cut(strings.TrimSpace(enc), ";")
		if strings.EqualFold(name, "br") {
			return true
		}
	}
	return false
}
