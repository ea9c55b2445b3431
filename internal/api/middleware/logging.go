package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	loggerpkg "internship-hub/pkg/logger"
)

const (
	requestIDHeader     = "X-Request-ID"
	requestBodyLogLimit = 64 << 10
)

// RequestLogger logs one line per request with a request id, the caller and
// a masked copy of JSON write bodies.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		startedAt := time.Now()

		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		body := snapshotJSONBody(c)

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.String("path", c.Request.URL.Path),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("status", status),
			zap.Int("size", c.Writer.Size()),
			zap.Duration("latency", time.Since(startedAt)),
		}
		if claims, ok := GetClaims(c); ok {
			fields = append(fields, zap.String("user_id", claims.UserID), zap.String("role", claims.Role))
		}
		if header := c.GetHeader("Authorization"); header != "" {
			fields = append(fields, zap.String("authorization", header))
		}
		if body != nil {
			fields = append(fields, zap.Any("request_body", body))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		level := zapcore.InfoLevel
		switch {
		case status >= 500:
			level = zapcore.ErrorLevel
		case status >= 400:
			level = zapcore.WarnLevel
		}
		if ce := logger.Check(level, "http request completed"); ce != nil {
			ce.Write(loggerpkg.SanitizeFields(fields)...)
		}
	}
}

// snapshotJSONBody decodes a JSON write body for logging and restores the
// reader for the handler. Oversized or non-JSON bodies are skipped.
func snapshotJSONBody(c *gin.Context) interface{} {
	req := c.Request
	if req == nil || req.Body == nil {
		return nil
	}
	switch req.Method {
	case "POST", "PUT", "PATCH":
	default:
		return nil
	}
	if !strings.HasPrefix(req.Header.Get("Content-Type"), "application/json") {
		return nil
	}

	raw, err := io.ReadAll(io.LimitReader(req.Body, requestBodyLogLimit+1))
	rest := req.Body
	req.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(raw), rest), rest}
	if err != nil || len(raw) == 0 || len(raw) > requestBodyLogLimit {
		return nil
	}

	var payload interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil
	}
	return payload
}
