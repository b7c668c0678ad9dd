// Пакет handlers - HTTP-обработчики HTML-страниц.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/goartstore/drive-module/internal/api/middleware"
	"github.com/bigkaa/goartstore/drive-module/internal/domain/model"
	domainpreview "github.com/bigkaa/goartstore/drive-module/internal/domain/preview"
	"github.com/bigkaa/goartstore/drive-module/internal/service"
	"github.com/bigkaa/goartstore/drive-module/internal/ui/preview"
)

// PreviewHandler - страница предпросмотра файла.
type PreviewHandler struct {
	files    *service.FileService
	resolver *service.Resolver
	logger   *slog.Logger
}

// NewPreviewHandler создаёт новый PreviewHandler.
func NewPreviewHandler(files *service.FileService, resolver *service.Resolver, logger *slog.Logger) *PreviewHandler {
	return &PreviewHandler{
		files:    files,
		resolver: resolver,
		logger:   logger.With(slog.String("component", "ui.preview")),
	}
}

// HandlePreview обрабатывает GET /files/{id}/preview.
func (h *PreviewHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.UserFromContext(r.Context()); !ok {
		http.Error(w, "Требуется вход", http.StatusUnauthorized)
		return
	}

	id := chi.URLParam(r, "id")
	rec, err := h.files.Get(r.Context(), id)
	switch {
	case errors.Is(err, model.ErrNotFound):
		http.Error(w, "Файл не найден", http.StatusNotFound)
		return
	case err != nil:
		h.logger.Error("Ошибка получения файла",
			slog.String("file_id", id),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Не удалось получить файл", http.StatusBadGateway)
		return
	}

	data := preview.PageData{
		Name:        rec.Name,
		Mode:        domainpreview.Classify(rec.Type),
		MIMEType:    domainpreview.MIMEType(rec.Extension),
		URL:         h.resolver.RetrievalURL(r.Context(), rec),
		DownloadURL: "/api/v1/files/" + url.PathEscape(rec.ID) + "/download",
		Zoom:        domainpreview.NewZoom(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if err := preview.Page(data).Render(r.Context(), w); err != nil {
		h.logger.Error("Ошибка рендеринга предпросмотра",
			slog.String("error", err.Error()),
			slog.String("file_id", rec.ID),
		)
		http.Error(w, "Ошибка рендеринга страницы", http.StatusInternalServerError)
	}
}
