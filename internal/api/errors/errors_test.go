package errors

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bigkaa/goartstore/drive-module/internal/domain/model"
)

func TestFromError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"auth", model.Errorf(model.KindAuth, "op", "нет сессии"), http.StatusUnauthorized, CodeUnauthorized, "нет сессии"},
		{"validation", model.Errorf(model.KindValidation, "op", "пустое имя"), http.StatusBadRequest, CodeValidationError, "пустое имя"},
		{"not found", fmt.Errorf("обёртка: %w", model.Errorf(model.KindNotFound, "op", "файл x не найден")), http.StatusNotFound, CodeNotFound, "файл x не найден"},
		{"network", model.Errorf(model.KindNetwork, "op", "dial tcp: refused"), http.StatusBadGateway, CodeUpstreamUnavailable, "провайдер недоступен"},
		{"untyped", fmt.Errorf("паника в коде"), http.StatusInternalServerError, CodeInternalError, "внутренняя ошибка сервера"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			FromError(rec, logger, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("статус = %d, ожидается %d", rec.Code, tt.wantStatus)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
			var body errorBody
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("тело ответа не JSON: %v", err)
			}
			if body.Error.Code != tt.wantCode || body.Error.Message != tt.wantMsg {
				t.Errorf("ошибка = %+v, ожидается {%s %s}", body.Error, tt.wantCode, tt.wantMsg)
			}
		})
	}
}
