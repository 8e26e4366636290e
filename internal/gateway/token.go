package gateway

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// TokenManager signs and validates the HS256 tokens that authenticate
// inbound webhook deliveries from the platform bridge.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: 5 * time.Minute}
}

// WebhookClaims describes the webhook JWT payload.
type WebhookClaims struct {
	Source string `json:"src,omitempty"`
	jwt.RegisteredClaims
}

// Generate builds and signs a short-lived webhook token. Generation is
// the bridge's side of the shared-secret contract; the bot only verifies
// inbound deliveries.
func (tm *TokenManager) Generate(source string) (string, error) {
	claims := &WebhookClaims{
		Source: source,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tm.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
}

// Verify validates a webhook token and returns its claims.
func (tm *TokenManager) Verify(tokenStr string) (*WebhookClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &WebhookClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*WebhookClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
