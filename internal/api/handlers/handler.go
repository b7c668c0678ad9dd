// handler.go - обработчик API Drive Module.
// Разбирает HTTP-запросы и делегирует в сервисный слой и провайдер аутентификации.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/goartstore/drive-module/internal/api/errors"
	"github.com/bigkaa/goartstore/drive-module/internal/auth"
	"github.com/bigkaa/goartstore/drive-module/internal/registry"
	"github.com/bigkaa/goartstore/drive-module/internal/service"
)

// maxJSONBody - ограничение JSON-тела запроса.
const maxJSONBody = 1 << 20

// Deps - зависимости обработчика.
type Deps struct {
	Files    *service.FileService
	Resolver *service.Resolver
	Auth     auth.Provider
	Sessions *auth.SessionManager
	// Content - реестр, хранящий содержимое сам (nil для remote)
	Content registry.ContentSource
	// MaxUploadSize - лимит загрузки в байтах
	MaxUploadSize int64
}

// APIHandler - обработчик /api/v1.
type APIHandler struct {
	files     *service.FileService
	resolver  *service.Resolver
	auth      auth.Provider
	sessions  *auth.SessionManager
	content   registry.ContentSource
	maxUpload int64
	logger    *slog.Logger
}

// NewAPIHandler создаёт обработчик.
func NewAPIHandler(deps Deps, logger *slog.Logger) *APIHandler {
	return &APIHandler{
		files:     deps.Files,
		resolver:  deps.Resolver,
		auth:      deps.Auth,
		sessions:  deps.Sessions,
		content:   deps.Content,
		maxUpload: deps.MaxUploadSize,
		logger:    logger.With(slog.String("component", "api_handler")),
	}
}

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// readJSON декодирует тело запроса в dst.
// Ошибки разбора (в том числе некорректный email) - текст для 400.
func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return fmt.Errorf("тело запроса больше %d байт", maxErr.Limit)
		case errors.Is(err, io.EOF):
			return errors.New("пустое тело запроса")
		default:
			return fmt.Errorf("некорректный JSON: %w", err)
		}
	}
	return nil
}

// badRequest - 400 с текстом ошибки разбора.
func badRequest(w http.ResponseWriter, err error) {
	apierrors.ValidationError(w, err.Error())
}
