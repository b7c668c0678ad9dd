// Пакет errors - ответы с ошибками в едином формате:
// {"error": {"code": "...", "message": "..."}}.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/bigkaa/goartstore/drive-module/internal/domain/model"
)

// Коды ошибок из OpenAPI контракта.
const (
	CodeValidationError     = "VALIDATION_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeTooManyRequests     = "TOO_MANY_REQUESTS"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	CodeInternalError       = "INTERNAL_ERROR"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError записывает ответ ошибки.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// ValidationError - 400.
func ValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidationError, message)
}

// NotFound - 404.
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message)
}

// Unauthorized - 401.
func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, CodeUnauthorized, message)
}

// TooManyRequests - 429.
func TooManyRequests(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, CodeTooManyRequests, message)
}

// UpstreamUnavailable - 502 провайдер (API gateway, S3, PostgreSQL) недоступен.
func UpstreamUnavailable(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadGateway, CodeUpstreamUnavailable, message)
}

// InternalError - 500.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeInternalError, message)
}

// FromError отвечает по классу ошибки реестра или провайдера аутентификации
// и логирует её. Сообщения внутренних ошибок клиенту не раскрываются.
func FromError(w http.ResponseWriter, logger *slog.Logger, err error) {
	kind, ok := model.KindOf(err)
	if !ok {
		logger.Error("Внутренняя ошибка", slog.String("error", err.Error()))
		InternalError(w, "внутренняя ошибка сервера")
		return
	}

	message := err.Error()
	var me *model.Error
	if stderrors.As(err, &me) && me.Err != nil {
		message = me.Err.Error()
	}

	switch kind {
	case model.KindAuth:
		logger.Warn("Ошибка аутентификации", slog.String("error", err.Error()))
		Unauthorized(w, message)
	case model.KindValidation:
		logger.Warn("Некорректный запрос", slog.String("error", err.Error()))
		ValidationError(w, message)
	case model.KindNotFound:
		logger.Info("Не найдено", slog.String("error", err.Error()))
		NotFound(w, message)
	case model.KindNetwork:
		logger.Error("Провайдер недоступен", slog.String("error", err.Error()))
		UpstreamUnavailable(w, "провайдер недоступен")
	default:
		logger.Error("Внутренняя ошибка", slog.String("error", err.Error()))
		InternalError(w, "внутренняя ошибка сервера")
	}
}
