package middleware

import (
	"crypto/rsa"
	"errors"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"

	"internship-hub/internal/api/response"
	jwtutil "internship-hub/pkg/jwt"
)

const claimsContextKey = "claims"

type Claims = jwtutil.Claims

var (
	verifierMu     sync.RWMutex
	verifier       *jwtutil.Verifier
	verifierLoaded bool
)

// ConfigureJWT installs the verification key and optional issuer. Without it
// the key is read from INTERNSHIP_JWT_PUBLIC_KEY(_FILE) on first use.
func ConfigureJWT(key *rsa.PublicKey, issuer string) {
	verifierMu.Lock()
	defer verifierMu.Unlock()

	verifier = jwtutil.NewVerifier(key, issuer)
	verifierLoaded = true
}

func JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetClaims(c); ok {
			c.Next()
			return
		}

		tokenString := tokenFromRequest(c)
		if tokenString == "" {
			response.Abort(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
			return
		}

		claims, err := currentVerifier().Verify(tokenString)
		switch {
		case err == nil:
		case errors.Is(err, jwt.ErrTokenExpired):
			response.Abort(c, http.StatusUnauthorized, response.ErrTokenExpired, "token expired")
			return
		default:
			response.Abort(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
			return
		}

		c.Set(claimsContextKey, claims)
		c.Next()
	}
}

// RequireRole admits callers whose token role matches one of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}

	return func(c *gin.Context) {
		if len(allowed) == 0 {
			c.Next()
			return
		}

		claims, ok := GetClaims(c)
		if !ok {
			response.Abort(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
			return
		}
		if _, ok := allowed[strings.ToLower(claims.Role)]; !ok {
			response.Abort(c, http.StatusForbidden, response.ErrForbidden, "forbidden")
			return
		}
		c.Next()
	}
}

func GetClaims(c *gin.Context) (*Claims, bool) {
	val, ok := c.Get(claimsContextKey)
	if !ok {
		return nil, false
	}
	claims, ok := val.(*Claims)
	if !ok || claims == nil {
		return nil, false
	}
	return claims, true
}

// tokenFromRequest prefers the session cookie and falls back to a bearer header.
func tokenFromRequest(c *gin.Context) string {
	for _, name := range []string{"access_token", "token"} {
		if value, err := c.Cookie(name); err == nil && value != "" {
			return value
		}
	}
	return bearerTokenFromRequest(c.GetHeader("Authorization"))
}

func currentVerifier() *jwtutil.Verifier {
	verifierMu.RLock()
	if verifierLoaded {
		defer verifierMu.RUnlock()
		return verifier
	}
	verifierMu.RUnlock()

	verifierMu.Lock()
	defer verifierMu.Unlock()
	if !verifierLoaded {
		verifier = verifierFromEnv()
		verifierLoaded = true
	}
	return verifier
}

func verifierFromEnv() *jwtutil.Verifier {
	issuer := os.Getenv("INTERNSHIP_JWT_ISSUER")
	pem := strings.TrimSpace(os.Getenv("INTERNSHIP_JWT_PUBLIC_KEY"))
	if pem == "" {
		if path := strings.TrimSpace(os.Getenv("INTERNSHIP_JWT_PUBLIC_KEY_FILE")); path != "" {
			// #nosec G304 -- path is provided by operator environment variable.
			if raw, err := os.ReadFile(path); err == nil {
				pem = string(raw)
			}
		}
	}
	if pem == "" {
		return jwtutil.NewVerifier(nil, issuer)
	}

	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
	if err != nil {
		return jwtutil.NewVerifier(nil, issuer)
	}
	return jwtutil.NewVerifier(key, issuer)
}
