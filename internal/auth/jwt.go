package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SpeechTokenClaims is the claim set embedded in a /api/speech/token
// response. It is opaque to the relay's own semantics: the browser passes
// it straight through to its speech recognizer.
type SpeechTokenClaims struct {
	Code string `json:"code,omitempty"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs speech tokens with a process-wide secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer builds an Issuer from a signing secret and token lifetime.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

// IssueSpeechToken signs a short-lived credential scoped to a session code
// and role ("speaker" or "listener").
func (i *Issuer) IssueSpeechToken(code, role string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(i.ttl)
	claims := &SpeechTokenClaims{
		Code: code,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	return signed, expiresAt, err
}

// Validate parses and verifies a previously issued token.
func (i *Issuer) Validate(tokenString string) (*SpeechTokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SpeechTokenClaims{}, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*SpeechTokenClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrTokenInvalidClaims
}
