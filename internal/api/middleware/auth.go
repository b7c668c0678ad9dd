// auth.go - проверка сессии из зашифрованного cookie.
// Пользователь и токен провайдера кладутся в контекст запроса.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/goartstore/drive-module/internal/api/errors"
	"github.com/bigkaa/goartstore/drive-module/internal/auth"
	"github.com/bigkaa/goartstore/drive-module/internal/domain/model"
)

type contextKey string

const (
	contextKeyUser  contextKey = "user"
	contextKeyToken contextKey = "session_token"
)

// UserProvider определяет пользователя по токену сессии.
// Реализуется auth.Provider.
type UserProvider interface {
	CurrentUser(ctx context.Context, token string) (model.User, error)
}

// SessionAuth - middleware обязательной сессии для /api/v1/files и /files.
type SessionAuth struct {
	sessions *auth.SessionManager
	users    UserProvider
	logger   *slog.Logger
}

// NewSessionAuth создаёт middleware.
func NewSessionAuth(sessions *auth.SessionManager, users UserProvider, logger *slog.Logger) *SessionAuth {
	return &SessionAuth{
		sessions: sessions,
		users:    users,
		logger:   logger.With(slog.String("component", "session_auth")),
	}
}

// Middleware отвечает 401, если сессии нет, она истекла или провайдер
// не признаёт токен. Повреждённый или отвергнутый cookie очищается.
func (sa *SessionAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data, err := sa.sessions.SessionFromRequest(r)
			if err != nil {
				sa.logger.Debug("Повреждённый cookie сессии",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				sa.sessions.ClearSession(w)
				apierrors.Unauthorized(w, "требуется вход")
				return
			}
			if data == nil {
				apierrors.Unauthorized(w, "требуется вход")
				return
			}
			if data.IsExpired() {
				sa.sessions.ClearSession(w)
				apierrors.Unauthorized(w, "сессия истекла")
				return
			}

			user, err := sa.users.CurrentUser(r.Context(), data.Token)
			if err != nil {
				if kind, _ := model.KindOf(err); kind == model.KindAuth {
					sa.sessions.ClearSession(w)
				}
				apierrors.FromError(w, sa.logger, err)
				return
			}

			ctx := WithSession(r.Context(), user, data.Token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithSession возвращает контекст с пользователем и токеном.
func WithSession(ctx context.Context, user model.User, token string) context.Context {
	ctx = context.WithValue(ctx, contextKeyUser, user)
	return context.WithValue(ctx, contextKeyToken, token)
}

// UserFromContext возвращает пользователя текущей сессии.
func UserFromContext(ctx context.Context) (model.User, bool) {
	u, ok := ctx.Value(contextKeyUser).(model.User)
	return u, ok
}

// TokenFromContext возвращает токен сессии. Без сессии - ошибка класса Auth.
// Подходит как TokenProvider для remote-реестра и клиента содержимого.
func TokenFromContext(ctx context.Context) (string, error) {
	token, _ := ctx.Value(contextKeyToken).(string)
	if token == "" {
		return "", model.Errorf(model.KindAuth, "session.Token", "нет токена сессии")
	}
	return token, nil
}
