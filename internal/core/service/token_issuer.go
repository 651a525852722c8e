package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/identikit/identity-api/internal/core/domain"
)

// TokenTTL is how long issued tokens stay valid.
const TokenTTL = 3 * time.Hour

// AccessClaims is the claim set carried by issued tokens. The user id is
// present both as the registered subject and as "uid" for consumers that
// expect either name.
type AccessClaims struct {
	jwt.RegisteredClaims
	UID   string   `json:"uid"`
	Email string   `json:"email"`
	Roles []string `json:"roles,omitempty"`
}

// TokenIssuer signs access tokens with a symmetric HS256 key.
type TokenIssuer struct {
	signingKey []byte
	issuer     string
	audience   jwt.ClaimStrings
}

// NewTokenIssuer validates the signing configuration up front so a missing
// key fails at startup rather than producing unverifiable tokens.
func NewTokenIssuer(signingKey, issuer string, audience []string) (*TokenIssuer, error) {
	if signingKey == "" {
		return nil, domain.ErrMissingSigningKey
	}
	return &TokenIssuer{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   jwt.ClaimStrings(audience),
	}, nil
}

// Issue builds and signs a token for the given user. Roles are embedded in
// input order, duplicates included. Every call mints a fresh jti, so two
// tokens for the same user are never byte-identical even within the same
// expiry second.
func (t *TokenIssuer) Issue(user *domain.User, roles []string) (string, error) {
	now := time.Now()
	claims := &AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   user.ID,
			Audience:  t.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
			ID:        uuid.NewString(),
		},
		UID:   user.ID,
		Email: user.Email,
		Roles: roles,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
