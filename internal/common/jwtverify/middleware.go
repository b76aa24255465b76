package jwtverify

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	commonhttp "github.com/AlibekovAA/book-exchange/backend/internal/common/http"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/logger"
)

type Claims struct {
	AccountID string
	Email     string
	Role      string
}

type contextKey string

const claimsKey contextKey = "jwt_claims"

func Middleware(secret string, log *logger.Logger) func(next http.Handler) http.Handler {
	secretBytes := []byte(secret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get("Authorization")
			if raw == "" || !strings.HasPrefix(raw, "Bearer ") {
				log.Warnf("jwt auth failed path=%s: missing or invalid authorization header", r.URL.Path)
				commonhttp.WriteErrorEnvelope(w, http.StatusUnauthorized, commonhttp.CodeMissingAuthorization, "missing or invalid authorization", commonhttp.TraceIDFromContext(r.Context()))
				return
			}

			claims, err := parseToken(strings.TrimPrefix(raw, "Bearer "), secretBytes, nil)
			if err != nil {
				log.Warnf("jwt auth failed path=%s: %v", r.URL.Path, err)
				commonhttp.WriteErrorEnvelope(w, http.StatusUnauthorized, commonhttp.CodeInvalidToken, "invalid token", commonhttp.TraceIDFromContext(r.Context()))
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func FromContext(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(Claims)
	return claims, ok
}

func ParseToken(tokenString string, secret []byte) (Claims, error) {
	return parseToken(tokenString, secret, nil)
}

// ParseTokenAt validates exp and iat against now instead of the wall clock.
func ParseTokenAt(tokenString string, secret []byte, now func() time.Time) (Claims, error) {
	return parseToken(tokenString, secret, now)
}

func parseToken(tokenString string, secret []byte, now func() time.Time) (Claims, error) {
	var opts []jwt.ParserOption
	if now != nil {
		opts = append(opts, jwt.WithTimeFunc(now))
	}
	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		if err == nil {
			err = errors.New("token is not valid")
		}
		return Claims{}, err
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, errors.New("invalid claims type")
	}

	sub, _ := mapClaims["sub"].(string)
	email, _ := mapClaims["usr"].(string)
	role, _ := mapClaims["role"].(string)
	if sub == "" || email == "" {
		return Claims{}, errors.New("missing sub or usr claims")
	}

	return Claims{
		AccountID: sub,
		Email:     email,
		Role:      role,
	}, nil
}
