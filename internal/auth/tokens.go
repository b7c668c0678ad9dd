package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bigkaa/goartstore/drive-module/internal/domain/model"
)

// tokenIssuer - издатель токенов сессии mock-провайдера.
const tokenIssuer = "drive-module"

// sessionClaims - claims токена сессии.
type sessionClaims struct {
	Email    string `json:"email"`
	Username string `json:"preferred_username"`
	jwt.RegisteredClaims
}

// TokenSigner выпускает и проверяет HS256-токены сессий.
type TokenSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenSigner создаёт подписчик. Пустой secret - случайный ключ.
func NewTokenSigner(secret string, ttl time.Duration) (*TokenSigner, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := io.ReadFull(rand.Reader, key); err != nil {
			return nil, fmt.Errorf("генерация ключа подписи: %w", err)
		}
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &TokenSigner{secret: key, ttl: ttl, now: time.Now}, nil
}

// Issue выпускает токен для пользователя.
func (s *TokenSigner) Issue(u model.User) (Session, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := sessionClaims{
		Email:    u.Email,
		Username: u.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Session{}, fmt.Errorf("подпись токена: %w", err)
	}
	return Session{Token: signed, User: u, ExpiresAt: exp}, nil
}

// Parse проверяет подпись и срок действия, возвращает пользователя из claims.
func (s *TokenSigner) Parse(token string) (model.User, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return model.User{}, err
	}
	if claims.Subject == "" {
		return model.User{}, errors.New("в токене нет sub")
	}
	return model.User{ID: claims.Subject, Email: claims.Email, Username: claims.Username}, nil
}
