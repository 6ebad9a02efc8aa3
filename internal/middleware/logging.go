package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPObserver records request latency.
type HTTPObserver interface {
	ObserveHTTP(method, route string, status int, elapsed time.Duration)
}

// RequestLogger logs every request with slog and reports it to observer.
// observer may be nil.
func RequestLogger(observer HTTPObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)
		status := c.Writer.Status()

		if observer != nil {
			observer.ObserveHTTP(c.Request.Method, c.FullPath(), status, elapsed)
		}

		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}
		slog.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency_ms", elapsed.Milliseconds(),
			"user_id", c.GetString(KeyUserID),
		)
	}
}
