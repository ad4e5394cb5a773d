package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleOperator       = "operator"
	operatorCookieName = "operator_session"
)

// ===== Operator JWT =====

type OperatorClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// OperatorAuth mints and checks HS256 operator tokens. Only operators may use
// test-mode confirmations.
type OperatorAuth struct {
	secret []byte
	ttl    time.Duration
}

func NewOperatorAuth(secret string, ttl time.Duration) *OperatorAuth {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &OperatorAuth{secret: []byte(secret), ttl: ttl}
}

func (a *OperatorAuth) Mint(subject string) (string, error) {
	if len(a.secret) == 0 {
		return "", errors.New("operator secret is not configured")
	}
	now := time.Now()
	claims := OperatorClaims{
		Role: RoleOperator,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			Subject:   subject,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// ParseFromRequest reads the token from "Authorization: Bearer" or the operator cookie.
func (a *OperatorAuth) ParseFromRequest(r *http.Request) (*OperatorClaims, error) {
	if tok := bearerToken(r); tok != "" {
		return a.parse(tok)
	}
	if c, err := r.Cookie(operatorCookieName); err == nil {
		return a.parse(c.Value)
	}
	return nil, errors.New("missing token")
}

// IsOperator reports whether the request carries a valid operator token.
func (a *OperatorAuth) IsOperator(r *http.Request) bool {
	if a == nil || len(a.secret) == 0 {
		return false
	}
	claims, err := a.ParseFromRequest(r)
	return err == nil && claims.Role == RoleOperator
}

func (a *OperatorAuth) parse(tok string) (*OperatorClaims, error) {
	claims := &OperatorClaims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// ===== Cron secret =====

func bearerToken(r *http.Request) string {
	hdr := r.Header.Get("Authorization")
	if len(hdr) > 7 && strings.EqualFold(hdr[:7], "bearer ") {
		return strings.TrimSpace(hdr[7:])
	}
	return ""
}

// secretMatches compares in constant time. An empty expected secret never matches.
func secretMatches(got, want string) bool {
	if want == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
