// Package auth verifies the bearer tokens storefront clients present. Tokens
// are issued by the identity service; Issue exists for tests and local tooling.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

const clockSkew = 30 * time.Second

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

var signingMethod = jwt.SigningMethodHS256

// Claims is the token body. CustomerID doubles as the cart and checkout owner.
type Claims struct {
	CustomerID uuid.UUID          `json:"customer_id"`
	Name       string             `json:"name,omitempty"`
	Role       enums.CustomerRole `json:"role"`
	jwt.RegisteredClaims
}

// Identity is what a freshly issued token asserts.
type Identity struct {
	CustomerID uuid.UUID
	Name       string
	Role       enums.CustomerRole
}

// Keyring holds the HMAC secret and the issuer tokens must name.
type Keyring struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewKeyring(cfg config.JWTConfig) (*Keyring, error) {
	switch {
	case cfg.Secret == "":
		return nil, errors.New("jwt secret is required")
	case cfg.Issuer == "":
		return nil, errors.New("jwt issuer is required")
	case cfg.ExpirationMinutes <= 0:
		return nil, errors.New("jwt expiration minutes must be positive")
	}
	return &Keyring{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    time.Duration(cfg.ExpirationMinutes) * time.Minute,
	}, nil
}

// Issue signs a token valid from now for the configured lifetime.
func (k *Keyring) Issue(now time.Time, id Identity) (string, error) {
	if id.CustomerID == uuid.Nil {
		return "", errors.New("customer id is required")
	}
	if !id.Role.IsValid() {
		return "", fmt.Errorf("invalid customer role %q", id.Role)
	}
	claims := Claims{
		CustomerID: id.CustomerID,
		Name:       strings.TrimSpace(id.Name),
		Role:       id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    k.issuer,
			Subject:   id.CustomerID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(k.ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(k.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, issuer and expiry. Failures wrap ErrTokenExpired or
// ErrTokenInvalid.
func (k *Keyring) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return k.secret, nil },
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(k.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	case claims.CustomerID == uuid.Nil:
		return nil, fmt.Errorf("%w: missing customer_id", ErrTokenInvalid)
	case !claims.Role.IsValid():
		return nil, fmt.Errorf("%w: role %q", ErrTokenInvalid, claims.Role)
	}
	return claims, nil
}
