// Package jwtutil verifies access tokens minted by the campus sign-on
// service. Issuing tokens happens elsewhere.
package jwtutil

import (
	"crypto/rsa"
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const defaultLeeway = 30 * time.Second

var (
	ErrNoVerificationKey = errors.New("jwt public key not configured")
	ErrMissingSubject    = errors.New("token carries no user id")
)

type Claims struct {
	UserID       string `json:"uid"`
	Role         string `json:"role"`
	Username     string `json:"username,omitempty"`
	LegacyUserID string `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks RS256 signatures, expiry and the optional issuer.
type Verifier struct {
	key    *rsa.PublicKey
	parser *jwt.Parser
}

func NewVerifier(key *rsa.PublicKey, issuer string) *Verifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(defaultLeeway),
	}
	if trimmed := strings.TrimSpace(issuer); trimmed != "" {
		opts = append(opts, jwt.WithIssuer(trimmed))
	}
	return &Verifier{key: key, parser: jwt.NewParser(opts...)}
}

func (v *Verifier) Verify(tokenStr string) (*Claims, error) {
	if v == nil || v.key == nil {
		return nil, ErrNoVerificationKey
	}

	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return v.key, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenSignatureInvalid
	}

	if claims.UserID == "" {
		claims.UserID = claims.LegacyUserID
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return nil, ErrMissingSubject
	}
	claims.Role = strings.ToLower(strings.TrimSpace(claims.Role))
	return claims, nil
}

// ParseAccessToken verifies a token without issuer pinning.
func ParseAccessToken(tokenStr string, publicKey *rsa.PublicKey) (*Claims, error) {
	return NewVerifier(publicKey, "").Verify(tokenStr)
}
