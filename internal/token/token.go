package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token is a signed session token issued for a subject.
type Token struct {
	Key    string
	Expiry int64 // unix seconds
}

// Config holds signing parameters for the issuer.
type Config struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

// Issuer derives signed session tokens from a subject identifier. It is
// stateless: validity is re-derivable from the signature alone.
type Issuer struct {
	cfg Config
}

// NewIssuer builds an issuer with the given signing configuration.
func NewIssuer(cfg Config) *Issuer {
	if cfg.TTL == 0 {
		cfg.TTL = 24 * time.Hour
	}
	return &Issuer{cfg: cfg}
}

// Issue signs a fresh HS256 token for the subject. The random token id
// guarantees two issuances for the same subject never collide.
func (i *Issuer) Issue(subject string) (Token, error) {
	now := time.Now()
	expiry := now.Add(i.cfg.TTL)

	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   subject,
		Issuer:    i.cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiry),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.cfg.Secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}

	return Token{Key: signed, Expiry: expiry.Unix()}, nil
}

// Verify parses a signed token and returns its subject.
func (i *Issuer) Verify(key string) (string, error) {
	parsed, err := jwt.ParseWithClaims(key, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.cfg.Secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid {
		return "", fmt.Errorf("invalid token claims")
	}

	if i.cfg.Issuer != "" && claims.Issuer != i.cfg.Issuer {
		return "", fmt.Errorf("invalid issuer")
	}

	return claims.Subject, nil
}
