package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"github.com/bigkaa/goartstore/drive-module/internal/domain/model"
)

// jwksRefreshInterval - интервал фонового обновления JWKS.
const jwksRefreshInterval = 15 * time.Minute

// TokenVerifier локально проверяет подпись RS256-токенов провайдера по JWKS.
type TokenVerifier struct {
	jwks   keyfunc.Keyfunc
	leeway time.Duration
}

// NewTokenVerifier создаёт проверку по JWKS endpoint с фоновым обновлением ключей.
// Старт не блокируется недоступностью endpoint.
func NewTokenVerifier(jwksURL string, httpClient *http.Client, logger *slog.Logger) (*TokenVerifier, error) {
	storage, err := jwkset.NewStorageFromHTTP(jwksURL, jwkset.HTTPClientStorageOptions{
		Client:                    httpClient,
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           jwksRefreshInterval,
		RefreshErrorHandler: func(_ context.Context, err error) {
			logger.Error("Ошибка обновления JWKS",
				slog.String("error", err.Error()),
				slog.String("url", jwksURL),
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("создание JWKS storage: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{Storage: storage})
	if err != nil {
		return nil, fmt.Errorf("создание keyfunc: %w", err)
	}
	return NewTokenVerifierWithKeyfunc(k), nil
}

// NewTokenVerifierWithKeyfunc создаёт проверку с готовой keyfunc (для тестов).
func NewTokenVerifierWithKeyfunc(k keyfunc.Keyfunc) *TokenVerifier {
	return &TokenVerifier{jwks: k, leeway: 5 * time.Second}
}

// Verify проверяет подпись и срок действия токена.
func (v *TokenVerifier) Verify(ctx context.Context, token string) error {
	_, err := jwt.Parse(token, v.jwks.KeyfuncCtx(ctx),
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	)
	return err
}

// RemoteProvider - провайдер аутентификации поверх HTTP API провайдера.
type RemoteProvider struct {
	httpClient *http.Client
	baseURL    string
	verifier   *TokenVerifier
	sessionTTL time.Duration
	logger     *slog.Logger
}

var _ Provider = (*RemoteProvider)(nil)

// NewRemoteProvider создаёт провайдер. verifier может быть nil:
// тогда токен проверяется только вызовом /auth/me.
func NewRemoteProvider(
	baseURL string,
	httpClient *http.Client,
	verifier *TokenVerifier,
	sessionTTL time.Duration,
	logger *slog.Logger,
) *RemoteProvider {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &RemoteProvider{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		verifier:   verifier,
		sessionTTL: sessionTTL,
		logger:     logger.With(slog.String("component", "remote_auth")),
	}
}

type remoteUser struct {
	ID       string `json:"id"`
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Token    string `json:"token"`
	Message  string `json:"message"`
}

func (u remoteUser) toModel() model.User {
	id := u.ID
	if id == "" {
		id = u.UserID
	}
	return model.User{ID: id, Email: u.Email, Username: u.Username}
}

// SignUp - POST /auth/signup
func (p *RemoteProvider) SignUp(ctx context.Context, req SignUpRequest) (SignUpResult, error) {
	const op = "auth.SignUp"
	email, err := normalizeEmail(op, req.Email)
	if err != nil {
		return SignUpResult{}, err
	}
	if err := checkPassword(op, req.Password); err != nil {
		return SignUpResult{}, err
	}

	var resp remoteUser
	body := map[string]string{"email": email, "password": req.Password, "username": req.Username}
	if err := p.post(ctx, op, "/auth/signup", "", body, &resp); err != nil {
		return SignUpResult{}, err
	}
	return SignUpResult{UserID: resp.toModel().ID, Email: email, Message: resp.Message}, nil
}

// VerifyCode - POST /auth/verify
func (p *RemoteProvider) VerifyCode(ctx context.Context, email, code string) (Session, error) {
	const op = "auth.VerifyCode"
	var resp remoteUser
	body := map[string]string{"email": strings.ToLower(strings.TrimSpace(email)), "otp": strings.TrimSpace(code)}
	if err := p.post(ctx, op, "/auth/verify", "", body, &resp); err != nil {
		return Session{}, err
	}
	return p.session(op, resp)
}

// ResendCode - POST /auth/resend-otp
func (p *RemoteProvider) ResendCode(ctx context.Context, email string) error {
	body := map[string]string{"email": strings.ToLower(strings.TrimSpace(email))}
	return p.post(ctx, "auth.ResendCode", "/auth/resend-otp", "", body, nil)
}

// SignIn - POST /auth/signin
func (p *RemoteProvider) SignIn(ctx context.Context, email, password string) (Session, error) {
	const op = "auth.SignIn"
	var resp remoteUser
	body := map[string]string{"email": strings.ToLower(strings.TrimSpace(email)), "password": password}
	if err := p.post(ctx, op, "/auth/signin", "", body, &resp); err != nil {
		return Session{}, err
	}
	return p.session(op, resp)
}

// ForgotPassword - POST /auth/forgot-password
func (p *RemoteProvider) ForgotPassword(ctx context.Context, email string) error {
	body := map[string]string{"email": strings.ToLower(strings.TrimSpace(email))}
	return p.post(ctx, "auth.ForgotPassword", "/auth/forgot-password", "", body, nil)
}

// ResetPassword - POST /auth/reset-password
func (p *RemoteProvider) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	const op = "auth.ResetPassword"
	if err := checkPassword(op, newPassword); err != nil {
		return err
	}
	body := map[string]string{
		"email":       strings.ToLower(strings.TrimSpace(email)),
		"resetCode":   strings.TrimSpace(code),
		"newPassword": newPassword,
	}
	return p.post(ctx, op, "/auth/reset-password", "", body, nil)
}

// CurrentUser - GET /auth/me. При наличии JWKS подпись проверяется до запроса.
func (p *RemoteProvider) CurrentUser(ctx context.Context, token string) (model.User, error) {
	const op = "auth.CurrentUser"
	if token == "" {
		return model.User{}, model.Errorf(model.KindAuth, op, "нет токена")
	}
	if p.verifier != nil {
		if err := p.verifier.Verify(ctx, token); err != nil {
			return model.User{}, model.NewError(model.KindAuth, op, err)
		}
	}

	var resp remoteUser
	if err := p.call(ctx, op, http.MethodGet, "/auth/me", token, nil, &resp); err != nil {
		return model.User{}, err
	}
	return resp.toModel(), nil
}

func (p *RemoteProvider) session(op string, resp remoteUser) (Session, error) {
	if resp.Token == "" {
		return Session{}, model.Errorf(model.KindAuth, op, "провайдер не вернул токен")
	}
	return Session{
		Token:     resp.Token,
		User:      resp.toModel(),
		ExpiresAt: time.Now().Add(p.sessionTTL),
	}, nil
}

func (p *RemoteProvider) post(ctx context.Context, op, path, token string, in, out any) error {
	return p.call(ctx, op, http.MethodPost, path, token, in, out)
}

func (p *RemoteProvider) call(ctx context.Context, op, method, path, token string, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: кодирование запроса: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: создание запроса: %w", op, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := p.httpClient.Do(req) //nolint:gosec // G107: URL из конфигурации
	if err != nil {
		return model.NewError(model.KindNetwork, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return remoteError(op, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return model.NewError(model.KindNetwork, op, fmt.Errorf("декодирование ответа: %w", err))
	}
	return nil
}

// remoteError разбирает ответ об ошибке вида {"error": "..."}.
func remoteError(op string, resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if json.Unmarshal(data, &payload) != nil || payload.Error == "" {
		payload.Error = strings.TrimSpace(string(data))
	}
	if payload.Error == "" {
		payload.Error = http.StatusText(resp.StatusCode)
	}
	err := fmt.Errorf("провайдер вернул статус %d: %s", resp.StatusCode, payload.Error)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return model.NewError(model.KindAuth, op, err)
	case http.StatusNotFound:
		return model.NewError(model.KindNotFound, op, err)
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		return model.NewError(model.KindValidation, op, err)
	default:
		return model.NewError(model.KindNetwork, op, err)
	}
}
