package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// expiryFromToken извлекает время истечения из exp claim access token'а.
// Подпись НЕ проверяется: валидность токена решает платформа, клиенту
// нужен только срок жизни для планирования refresh.
func expiryFromToken(accessToken string) (time.Time, error) {
	parser := jwt.NewParser()

	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}, fmt.Errorf("failed to parse access token: %w", err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read exp claim: %w", err)
	}
	if exp == nil {
		// Токен без exp - платформа управляет сроком сама
		return time.Time{}, nil
	}

	return exp.Time, nil
}
