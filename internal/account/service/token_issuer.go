package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/AlibekovAA/book-exchange/backend/internal/account/domain"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/clock"
	commoncrypto "github.com/AlibekovAA/book-exchange/backend/internal/common/crypto"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/jwtverify"
)

type TokenIssuer struct {
	jwtSecret      []byte
	idGenerator    commoncrypto.IDGenerator
	clock          clock.Clock
	accessTokenTTL time.Duration
}

func NewTokenIssuer(
	jwtSecret string,
	idGenerator commoncrypto.IDGenerator,
	accessTokenTTL time.Duration,
	clk clock.Clock,
) *TokenIssuer {
	if clk == nil {
		clk = clock.NewRealClock()
	}
	return &TokenIssuer{
		jwtSecret:      []byte(jwtSecret),
		idGenerator:    idGenerator,
		clock:          clk,
		accessTokenTTL: accessTokenTTL,
	}
}

func (ti *TokenIssuer) IssueSessionToken(account domain.Account) (string, error) {
	jti, err := ti.idGenerator.NewID()
	if err != nil {
		return "", err
	}

	now := ti.clock.Now()
	claims := jwt.MapClaims{
		"sub":  account.ID,
		"usr":  account.Email,
		"role": string(account.Role),
		"jti":  jti,
		"exp":  now.Add(ti.accessTokenTTL).Unix(),
		"iat":  now.Unix(),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.jwtSecret)
}

func (ti *TokenIssuer) ParseToken(tokenString string) (jwtverify.Claims, error) {
	return jwtverify.ParseTokenAt(tokenString, ti.jwtSecret, ti.clock.Now)
}
