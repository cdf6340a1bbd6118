package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Metadata carries the session attributes the identity provider copied into
// the token at sign-up. They are a bootstrap fallback, never authoritative
// over a stored profile.
type Metadata struct {
	Role          string `json:"role,omitempty"`
	AcademicLevel string `json:"academic_level,omitempty"`
	FullName      string `json:"full_name,omitempty"`
}

type Claims struct {
	UserID   string   `json:"user_id"`
	Email    string   `json:"email"`
	Metadata Metadata `json:"metadata"`
	jwt.RegisteredClaims
}

// NewSessionToken signs a session token the way the identity provider does.
// The portal itself only parses tokens; this exists for tooling and tests.
func NewSessionToken(secret, issuer string, ttl time.Duration, claims Claims) (string, error) {
	now := time.Now().UTC()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.UserID,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseToken(secret, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
