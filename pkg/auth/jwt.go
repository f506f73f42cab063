package auth

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// RoleAdmin единственная роль, которой открыт административный API
const RoleAdmin = "admin"

var (
	ErrTokenMalformed   = errors.New("token is malformed")
	ErrTokenExpired     = errors.New("token is expired")
	ErrTokenNotValidYet = errors.New("token not valid yet")
	ErrTokenSignature   = errors.New("signature is invalid")
	ErrTokenInvalid     = errors.New("token validation failed")
	ErrSecretMissing    = errors.New("admin jwt secret is not configured")
)

// AdminClaims содержит поля административного токена
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTService выпускает и проверяет административные токены (HS256)
type JWTService struct {
	secret []byte
}

// NewJWTService создает сервис JWT; пустой секрет допустим, но тогда любой токен отклоняется
func NewJWTService(secret string) *JWTService {
	return &JWTService{secret: []byte(secret)}
}

// Enabled сообщает, настроен ли секрет
func (s *JWTService) Enabled() bool {
	return s != nil && len(s.secret) > 0
}

// GenerateAdminToken выпускает токен с role=admin для subject на срок ttl
func (s *JWTService) GenerateAdminToken(subject string, ttl time.Duration) (string, error) {
	if !s.Enabled() {
		return "", ErrSecretMissing
	}
	now := time.Now()
	claims := AdminClaims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign admin token: %w", err)
	}
	return signed, nil
}

// ParseToken проверяет подпись и сроки токена и возвращает его claims
func (s *JWTService) ParseToken(tokenString string) (*AdminClaims, error) {
	if !s.Enabled() {
		return nil, ErrSecretMissing
	}

	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Проверяем метод подписи токена
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			log.Printf("[JWT] Неожиданный метод подписи: %v", token.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if ve, ok := err.(*jwt.ValidationError); ok {
			switch {
			case ve.Errors&jwt.ValidationErrorMalformed != 0:
				log.Printf("[JWT] Ошибка: Токен имеет неверный формат")
				return nil, ErrTokenMalformed
			case ve.Errors&jwt.ValidationErrorExpired != 0:
				log.Printf("[JWT] Ошибка: Истек срок действия токена (sub=%s)", claims.Subject)
				return nil, ErrTokenExpired
			case ve.Errors&jwt.ValidationErrorNotValidYet != 0:
				log.Printf("[JWT] Ошибка: Токен еще не действителен")
				return nil, ErrTokenNotValidYet
			case ve.Errors&jwt.ValidationErrorSignatureInvalid != 0:
				log.Printf("[JWT] Ошибка: Неверная подпись токена (sub=%s)", claims.Subject)
				return nil, ErrTokenSignature
			}
		}
		log.Printf("[JWT] Ошибка при разборе токена: %v", err)
		return nil, ErrTokenInvalid
	}

	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
