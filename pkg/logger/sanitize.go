// Package logger holds zap helpers shared by the HTTP layer.
package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const mask = "***"

// sensitiveFragments are matched against lowercased keys with '-' and '_'
// removed, so "X-Internal-Token" and "api_key" both hit.
var sensitiveFragments = []string{
	"password",
	"token",
	"apikey",
	"cookie",
	"secret",
	"authorization",
}

// SanitizeFields masks values whose key looks like a credential, including
// keys nested inside maps and slices of a structured field.
func SanitizeFields(fields []zap.Field) []zap.Field {
	if len(fields) == 0 {
		return fields
	}

	out := make([]zap.Field, len(fields))
	for i, field := range fields {
		out[i] = sanitizeField(field)
	}
	return out
}

func sanitizeField(field zap.Field) zap.Field {
	if isSensitiveKey(field.Key) {
		return zap.String(field.Key, mask)
	}

	enc := zapcore.NewMapObjectEncoder()
	field.AddTo(enc)
	value, ok := enc.Fields[field.Key]
	if !ok {
		return field
	}

	switch value.(type) {
	case map[string]interface{}, []interface{}:
		return zap.Any(field.Key, maskNested(value))
	default:
		return field
	}
}

func maskNested(value interface{}) interface{} {
	switch typed := value.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(typed))
		for key, item := range typed {
			if isSensitiveKey(key) {
				out[key] = mask
				continue
			}
			out[key] = maskNested(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(typed))
		for i, item := range typed {
			out[i] = maskNested(item)
		}
		return out
	default:
		return value
	}
}

func isSensitiveKey(key string) bool {
	normalized := strings.NewReplacer("-", "", "_", "").Replace(strings.ToLower(strings.TrimSpace(key)))
	if normalized == "" {
		return false
	}
	for _, fragment := range sensitiveFragments {
		if strings.Contains(normalized, fragment) {
			return true
		}
	}
	return false
}
