// download.go - скачивание и параметры предпросмотра.
package handlers

import (
	"context"
	"errors"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/goartstore/drive-module/internal/api/errors"
	"github.com/bigkaa/goartstore/drive-module/internal/domain/preview"
	"github.com/bigkaa/goartstore/drive-module/internal/service"
)

// trackingWriter запоминает, начат ли ответ.
type trackingWriter struct {
	http.ResponseWriter
	started bool
}

func (t *trackingWriter) WriteHeader(code int) {
	t.started = true
	t.ResponseWriter.WriteHeader(code)
}

func (t *trackingWriter) Write(b []byte) (int, error) {
	t.started = true
	return t.ResponseWriter.Write(b)
}

func (t *trackingWriter) Unwrap() http.ResponseWriter { return t.ResponseWriter }

// httpSaver отдаёт blob как вложение с поддержкой Range.
type httpSaver struct {
	w *trackingWriter
	r *http.Request
}

func (s httpSaver) Save(_ context.Context, blob *service.Blob, filename string) error {
	rs, err := blob.Reader()
	if err != nil {
		return err
	}

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": filename})
	if disposition == "" {
		disposition = "attachment"
	}
	s.w.Header().Set("Content-Type", blob.MIMEType())
	s.w.Header().Set("Content-Disposition", disposition)
	http.ServeContent(s.w, s.r, filename, blob.ModTime(), rs)
	return nil
}

// httpViewer - резервный путь: переход на адрес содержимого.
type httpViewer struct {
	w *trackingWriter
	r *http.Request
}

func (v httpViewer) Open(_ context.Context, rawURL string) error {
	if v.w.started {
		return errors.New("ответ уже начат")
	}
	if rawURL == "" {
		return errors.New("нет адреса содержимого")
	}
	http.Redirect(v.w, v.r, rawURL, http.StatusFound)
	return nil
}

// DownloadFile - GET /api/v1/files/{id}/download
// Содержимое отдаётся вложением с MIME по расширению; при ошибке
// загрузки клиент перенаправляется на адрес содержимого.
func (h *APIHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	rec, err := h.files.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		apierrors.FromError(w, h.logger, err)
		return
	}

	tw := &trackingWriter{ResponseWriter: w}
	outcome := h.resolver.Download(r.Context(), rec, httpSaver{w: tw, r: r}, httpViewer{w: tw, r: r})
	if outcome == service.OutcomeFallbackFailed && !tw.started {
		apierrors.UpstreamUnavailable(w, "содержимое файла недоступно")
	}
}

// PreviewFile - GET /api/v1/files/{id}/preview
func (h *APIHandler) PreviewFile(w http.ResponseWriter, r *http.Request) {
	rec, err := h.files.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		apierrors.FromError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, previewDTO{
		Mode:     string(preview.Classify(rec.Type)),
		MIMEType: preview.MIMEType(rec.Extension),
		URL:      h.resolver.RetrievalURL(r.Context(), rec),
		Zoom: zoomDTO{
			Min:     preview.ZoomMin,
			Max:     preview.ZoomMax,
			Step:    preview.ZoomStep,
			Initial: preview.ZoomInitial,
		},
	})
}
