package middleware

import (
	"crypto/subtle"
	"net/http"
	"net/netip"
	"strings"

	"github.com/gin-gonic/gin"

	"internship-hub/internal/api/response"
)

const internalTokenHeader = "X-Internal-Token"

// InternalTokenAuth guards operator endpoints such as /internal/metrics.
// Loopback scrapers pass without a token; everyone else must present it in
// X-Internal-Token or as a bearer token. An empty token closes the endpoint
// to remote callers.
func InternalTokenAuth(token string) gin.HandlerFunc {
	expected := []byte(strings.TrimSpace(token))

	return func(c *gin.Context) {
		if isLoopbackClient(c.ClientIP()) {
			c.Next()
			return
		}

		provided := strings.TrimSpace(c.GetHeader(internalTokenHeader))
		if provided == "" {
			provided = bearerTokenFromRequest(c.GetHeader("Authorization"))
		}

		if len(expected) == 0 || subtle.ConstantTimeCompare([]byte(provided), expected) != 1 {
			response.Abort(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
			return
		}
		c.Next()
	}
}

func bearerTokenFromRequest(header string) string {
	scheme, value, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(value)
}

func isLoopbackClient(clientIP string) bool {
	addr, err := netip.ParseAddr(strings.TrimSpace(clientIP))
	return err == nil && addr.IsLoopback()
}
