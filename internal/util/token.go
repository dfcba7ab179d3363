package util

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var jwtSecret []byte

// InitJWT sets the signing secret. Must be called before issuing tokens.
func InitJWT(secret string) {
	jwtSecret = []byte(secret)
}

type adminClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// GenerateToken issues a signed admin token valid for 24 hours. Tokens are
// stateless; restarting the server does not invalidate outstanding sessions.
func GenerateToken(username string) (string, error) {
	claims := adminClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

// ValidateToken parses a token and returns the admin username.
func ValidateToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &adminClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return jwtSecret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*adminClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token")
	}
	return claims.Username, nil
}
