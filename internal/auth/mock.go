package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/bigkaa/goartstore/drive-module/internal/domain/model"
)

// DefaultCodeTTL - время жизни одноразового кода по умолчанию.
const DefaultCodeTTL = 10 * time.Minute

type mockUser struct {
	user     model.User
	hash     []byte
	verified bool
}

// MockOptions - параметры mock-провайдера.
type MockOptions struct {
	// CodeTTL - время жизни одноразовых кодов
	CodeTTL time.Duration
	// BcryptCost - стоимость bcrypt (0 - bcrypt.DefaultCost)
	BcryptCost int
	// SeedEmail, SeedUsername, SeedPassword - подтверждённый пользователь,
	// создаваемый при старте (пустой пароль - не создавать)
	SeedEmail    string
	SeedUsername string
	SeedPassword string
}

// MockProvider - провайдер аутентификации в памяти.
// Пароли хранятся как bcrypt-хеши, коды - в CodeStore, сессии - JWT.
type MockProvider struct {
	mu    sync.RWMutex
	users map[string]*mockUser // email → пользователь

	codes    *CodeStore
	signer   *TokenSigner
	notifier Notifier
	opts     MockOptions
	logger   *slog.Logger
}

var _ Provider = (*MockProvider)(nil)

// NewMockProvider создаёт mock-провайдер.
func NewMockProvider(
	codes *CodeStore,
	signer *TokenSigner,
	notifier Notifier,
	opts MockOptions,
	logger *slog.Logger,
) (*MockProvider, error) {
	if opts.CodeTTL <= 0 {
		opts.CodeTTL = DefaultCodeTTL
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}

	p := &MockProvider{
		users:    make(map[string]*mockUser),
		codes:    codes,
		signer:   signer,
		notifier: notifier,
		opts:     opts,
		logger:   logger.With(slog.String("component", "mock_auth")),
	}

	if opts.SeedPassword != "" {
		email, err := normalizeEmail("auth.Seed", opts.SeedEmail)
		if err != nil {
			return nil, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(opts.SeedPassword), opts.BcryptCost)
		if err != nil {
			return nil, fmt.Errorf("хеширование пароля: %w", err)
		}
		p.users[email] = &mockUser{
			user:     model.User{ID: "dev-user-1", Email: email, Username: opts.SeedUsername},
			hash:     hash,
			verified: true,
		}
		p.logger.Info("Создан пользователь для разработки", slog.String("email", email))
	}
	return p, nil
}

// SignUp создаёт неподтверждённый аккаунт и отправляет код подтверждения.
func (p *MockProvider) SignUp(ctx context.Context, req SignUpRequest) (SignUpResult, error) {
	const op = "auth.SignUp"

	email, err := normalizeEmail(op, req.Email)
	if err != nil {
		return SignUpResult{}, err
	}
	if err := checkPassword(op, req.Password); err != nil {
		return SignUpResult{}, err
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return SignUpResult{}, model.Errorf(model.KindValidation, op, "имя пользователя не может быть пустым")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), p.opts.BcryptCost)
	if err != nil {
		return SignUpResult{}, fmt.Errorf("%s: хеширование пароля: %w", op, err)
	}

	p.mu.Lock()
	if existing, ok := p.users[email]; ok && existing.verified {
		p.mu.Unlock()
		return SignUpResult{}, model.Errorf(model.KindValidation, op, "email %s уже зарегистрирован", email)
	}
	u := &mockUser{
		user: model.User{ID: "dev-user-" + uuid.New().String(), Email: email, Username: username},
		hash: hash,
	}
	p.users[email] = u
	p.mu.Unlock()

	if err := p.sendCode(ctx, PurposeVerify, email); err != nil {
		return SignUpResult{}, err
	}

	return SignUpResult{
		UserID:  u.user.ID,
		Email:   email,
		Message: "Аккаунт создан. Код подтверждения отправлен на email.",
	}, nil
}

// VerifyCode подтверждает email и открывает сессию.
func (p *MockProvider) VerifyCode(ctx context.Context, email, code string) (Session, error) {
	const op = "auth.VerifyCode"

	email, err := normalizeEmail(op, email)
	if err != nil {
		return Session{}, err
	}
	u, ok := p.lookup(email)
	if !ok {
		return Session{}, model.Errorf(model.KindNotFound, op, "пользователь %s не найден", email)
	}
	if !p.codes.Consume(ctx, PurposeVerify, email, strings.TrimSpace(code)) {
		return Session{}, model.Errorf(model.KindAuth, op, "неверный или просроченный код")
	}

	p.mu.Lock()
	u.verified = true
	user := u.user
	p.mu.Unlock()

	return p.signer.Issue(user)
}

// ResendCode отправляет новый код подтверждения.
func (p *MockProvider) ResendCode(ctx context.Context, email string) error {
	const op = "auth.ResendCode"

	email, err := normalizeEmail(op, email)
	if err != nil {
		return err
	}
	if _, ok := p.lookup(email); !ok {
		return model.Errorf(model.KindNotFound, op, "пользователь %s не найден", email)
	}
	return p.sendCode(ctx, PurposeVerify, email)
}

// SignIn проверяет пароль и открывает сессию.
func (p *MockProvider) SignIn(_ context.Context, email, password string) (Session, error) {
	const op = "auth.SignIn"

	email, err := normalizeEmail(op, email)
	if err != nil {
		return Session{}, err
	}

	p.mu.RLock()
	u, ok := p.users[email]
	var (
		hash     []byte
		verified bool
		user     model.User
	)
	if ok {
		hash, verified, user = u.hash, u.verified, u.user
	}
	p.mu.RUnlock()

	if !ok || bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
		return Session{}, model.Errorf(model.KindAuth, op, "неверный email или пароль")
	}
	if !verified {
		return Session{}, model.Errorf(model.KindAuth, op, "email не подтверждён")
	}
	return p.signer.Issue(user)
}

// ForgotPassword отправляет код сброса пароля.
// Для неизвестного адреса молча ничего не делает.
func (p *MockProvider) ForgotPassword(ctx context.Context, email string) error {
	const op = "auth.ForgotPassword"

	email, err := normalizeEmail(op, email)
	if err != nil {
		return err
	}
	if _, ok := p.lookup(email); !ok {
		p.logger.Debug("Сброс пароля для неизвестного адреса", slog.String("email", email))
		return nil
	}
	return p.sendCode(ctx, PurposeReset, email)
}

// ResetPassword устанавливает новый пароль по коду сброса.
func (p *MockProvider) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	const op = "auth.ResetPassword"

	email, err := normalizeEmail(op, email)
	if err != nil {
		return err
	}
	if err := checkPassword(op, newPassword); err != nil {
		return err
	}
	u, ok := p.lookup(email)
	if !ok || !p.codes.Consume(ctx, PurposeReset, email, strings.TrimSpace(code)) {
		return model.Errorf(model.KindAuth, op, "неверный или просроченный код")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), p.opts.BcryptCost)
	if err != nil {
		return fmt.Errorf("%s: хеширование пароля: %w", op, err)
	}

	p.mu.Lock()
	u.hash = hash
	u.verified = true
	p.mu.Unlock()
	return nil
}

// CurrentUser проверяет токен и возвращает пользователя.
func (p *MockProvider) CurrentUser(_ context.Context, token string) (model.User, error) {
	const op = "auth.CurrentUser"

	claims, err := p.signer.Parse(token)
	if err != nil {
		return model.User{}, model.NewError(model.KindAuth, op, err)
	}
	u, ok := p.lookup(claims.Email)
	if !ok || u.user.ID != claims.ID {
		return model.User{}, model.Errorf(model.KindAuth, op, "пользователь сессии не найден")
	}
	return u.user, nil
}

func (p *MockProvider) lookup(email string) (*mockUser, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	u, ok := p.users[email]
	return u, ok
}

func (p *MockProvider) sendCode(ctx context.Context, purpose, email string) error {
	code, err := GenerateCode()
	if err != nil {
		return fmt.Errorf("генерация кода: %w", err)
	}
	p.codes.Save(ctx, purpose, email, code, p.opts.CodeTTL)
	if err := p.notifier.SendCode(ctx, email, purpose, code); err != nil {
		return model.NewError(model.KindNetwork, "auth.SendCode", err)
	}
	return nil
}
