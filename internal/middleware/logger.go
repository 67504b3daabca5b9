package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"schoolbooking/internal/pkg/response"
)

const (
	HeaderRequestID = "X-Request-ID"
	ctxRequestID    = "request_id"
)

// RequestID reuses the caller's X-Request-ID or generates one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Writer.Header().Set(HeaderRequestID, id)
		c.Next()
	}
}

// RequestLogger logs one line per request and recovers panics into the JSON
// error envelope.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		defer func() {
			if recovered := recover(); recovered != nil {
				logger.Error().
					Str("request_id", c.GetString(ctxRequestID)).
					Str("method", c.Request.Method).
					Str("path", c.Request.URL.Path).
					Str("panic", fmt.Sprintf("%v", recovered)).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered")
				response.Abort(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
			}
			logRequest(logger, c, start)
		}()

		c.Next()
	}
}

func logRequest(logger zerolog.Logger, c *gin.Context, start time.Time) {
	status := c.Writer.Status()

	var ev *zerolog.Event
	switch {
	case status >= http.StatusInternalServerError:
		ev = logger.Error()
	case status >= http.StatusBadRequest:
		ev = logger.Warn()
	default:
		ev = logger.Info()
	}

	ev = ev.
		Str("request_id", c.GetString(ctxRequestID)).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Str("query", c.Request.URL.RawQuery).
		Int("status", status).
		Dur("latency", time.Since(start)).
		Str("client_ip", c.ClientIP())
	if uid := c.GetInt64(CtxUserID); uid != 0 {
		ev = ev.Int64("user_id", uid).Str("role", c.GetString(CtxRole))
	}
	for _, err := range c.Errors {
		ev = ev.AnErr("error", err.Err)
	}
	ev.Msg("request")
}
