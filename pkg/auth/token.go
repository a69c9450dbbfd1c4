// Package auth verifies the customer access tokens issued by the identity
// service.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kupilikula/rocketshop-market-backend/pkg/config"
)

var signingMethod = jwt.SigningMethodHS256

var (
	ErrNoCustomer       = errors.New("token does not identify a customer")
	errSecretRequired   = errors.New("jwt secret is required")
	errIssuerRequired   = errors.New("jwt issuer is required")
	errTTLNotPositive   = errors.New("jwt ttl must be positive")
	errCustomerRequired = errors.New("customer id is required")
)

// AccessTokenClaims is the customer token presented on market endpoints.
// Older tokens carry the customer only in sub.
type AccessTokenClaims struct {
	CustomerID uuid.UUID `json:"customer_id,omitempty"`
	jwt.RegisteredClaims
}

// Customer returns customer_id, or the subject when customer_id is absent.
func (c *AccessTokenClaims) Customer() (uuid.UUID, error) {
	if c.CustomerID != uuid.Nil {
		return c.CustomerID, nil
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, ErrNoCustomer
	}
	return id, nil
}

// MintAccessToken signs a customer token valid for ttl. Local tooling and
// tests use it; production tokens come from the identity service.
func MintAccessToken(cfg config.JWTConfig, now time.Time, customerID uuid.UUID, ttl time.Duration) (string, error) {
	switch {
	case cfg.Secret == "":
		return "", errSecretRequired
	case cfg.Issuer == "":
		return "", errIssuerRequired
	case ttl <= 0:
		return "", errTTLNotPositive
	case customerID == uuid.Nil:
		return "", errCustomerRequired
	}

	token := jwt.NewWithClaims(signingMethod, AccessTokenClaims{
		CustomerID: customerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   customerID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	})
	signed, err := token.SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// ParseAccessToken verifies signature, issuer and expiry (within the
// configured leeway) and returns claims that resolve to a customer.
func ParseAccessToken(cfg config.JWTConfig, raw string) (*AccessTokenClaims, error) {
	if cfg.Secret == "" {
		return nil, errSecretRequired
	}

	claims := &AccessTokenClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(cfg.Leeway),
	)
	if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	}); err != nil {
		return nil, err
	}
	if _, err := claims.Customer(); err != nil {
		return nil, err
	}
	return claims, nil
}
