// Пакет auth - аутентификация пользователей Drive Module.
//
// Provider - контракт провайдера: регистрация с подтверждением email,
// вход, сброс пароля, текущий пользователь по токену сессии.
// Реализации: MockProvider (в памяти, режим разработки) и
// RemoteProvider (HTTP API провайдера). Токен сессии хранится у клиента
// в зашифрованном cookie (SessionManager).
package auth

import (
	"context"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bigkaa/goartstore/drive-module/internal/domain/model"
)

// MinPasswordLength - минимальная длина пароля.
const MinPasswordLength = 8

// SignUpRequest - данные регистрации.
type SignUpRequest struct {
	Email    string
	Password string
	Username string
}

// SignUpResult - результат регистрации: аккаунт создан, ждёт подтверждения кода.
type SignUpResult struct {
	UserID  string
	Email   string
	Message string
}

// Session - выданная сессия.
type Session struct {
	Token     string
	User      model.User
	ExpiresAt time.Time
}

// Provider - провайдер аутентификации.
// Ошибки - *model.Error с классами Auth, Validation, NotFound, Network.
type Provider interface {
	SignUp(ctx context.Context, req SignUpRequest) (SignUpResult, error)
	VerifyCode(ctx context.Context, email, code string) (Session, error)
	ResendCode(ctx context.Context, email string) error
	SignIn(ctx context.Context, email, password string) (Session, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
	CurrentUser(ctx context.Context, token string) (model.User, error)
}

// Назначение одноразовых кодов.
const (
	PurposeVerify = "verify"
	PurposeReset  = "reset"
)

// Notifier доставляет одноразовые коды пользователю.
type Notifier interface {
	SendCode(ctx context.Context, email, purpose, code string) error
}

// LogNotifier пишет коды в лог. Используется в режиме разработки вместо почты.
type LogNotifier struct {
	Logger *slog.Logger
}

// SendCode записывает код в лог.
func (n LogNotifier) SendCode(_ context.Context, email, purpose, code string) error {
	n.Logger.Info("Одноразовый код",
		slog.String("email", email),
		slog.String("purpose", purpose),
		slog.String("code", code),
	)
	return nil
}

// normalizeEmail проверяет адрес и приводит его к нижнему регистру.
func normalizeEmail(op, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", model.Errorf(model.KindValidation, op, "некорректный email %q", email)
	}
	return email, nil
}

func checkPassword(op, password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return model.Errorf(model.KindValidation, op, "пароль короче %d символов", MinPasswordLength)
	}
	return nil
}
