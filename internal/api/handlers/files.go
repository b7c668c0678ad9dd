// files.go - каталог файлов: выборка, карточка, загрузка, действия, сводка.
package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	apierrors "github.com/bigkaa/goartstore/drive-module/internal/api/errors"
	"github.com/bigkaa/goartstore/drive-module/internal/api/middleware"
	"github.com/bigkaa/goartstore/drive-module/internal/domain/model"
	"github.com/bigkaa/goartstore/drive-module/internal/domain/preview"
	"github.com/bigkaa/goartstore/drive-module/internal/registry"
	"github.com/bigkaa/goartstore/drive-module/internal/service"
)

// multipartOverhead - запас на заголовки multipart сверх лимита файла.
const multipartOverhead = 1 << 20

// parseQuerySpec разбирает types, search, sort, limit.
func parseQuerySpec(q url.Values) (model.QuerySpec, error) {
	var (
		spec   model.QuerySpec
		types  []string
		search *string
		sort   *string
		limit  *int
	)

	if err := runtime.BindQueryParameter("form", false, false, "types", q, &types); err != nil {
		return spec, fmt.Errorf("параметр types: %w", err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "search", q, &search); err != nil {
		return spec, fmt.Errorf("параметр search: %w", err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "sort", q, &sort); err != nil {
		return spec, fmt.Errorf("параметр sort: %w", err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", q, &limit); err != nil {
		return spec, fmt.Errorf("параметр limit: %w", err)
	}

	for _, t := range types {
		c, ok := model.ParseCategory(t)
		if !ok {
			return spec, fmt.Errorf("неизвестная категория %q", t)
		}
		spec.Types = append(spec.Types, c)
	}
	if search != nil {
		spec.SearchText = *search
	}
	spec.Sort = model.DefaultSort
	if sort != nil {
		key, err := model.ParseSortKey(*sort)
		if err != nil {
			return spec, err
		}
		spec.Sort = key
	}
	if limit != nil {
		if *limit < 1 {
			return spec, errors.New("limit должен быть положительным")
		}
		spec.Limit = *limit
	}
	return spec, nil
}

// ListFiles - GET /api/v1/files?types=&search=&sort=&limit=
func (h *APIHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	spec, err := parseQuerySpec(r.URL.Query())
	if err != nil {
		badRequest(w, err)
		return
	}

	res, err := h.files.List(r.Context(), spec)
	if err != nil {
		apierrors.FromError(w, h.logger, err)
		return
	}

	out := fileListDTO{Documents: make([]fileDTO, 0, len(res.Documents)), Total: res.Total}
	for _, rec := range res.Documents {
		out.Documents = append(out.Documents, toFileDTO(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetFile - GET /api/v1/files/{id}
func (h *APIHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	rec, err := h.files.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		apierrors.FromError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toFileDTO(rec))
}

// UploadFile - POST /api/v1/files (multipart, поле file).
// Содержимое читается потоком, без буферизации формы.
func (h *APIHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())

	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+multipartOverhead)
	}
	mr, err := r.MultipartReader()
	if err != nil {
		apierrors.ValidationError(w, "ожидается multipart/form-data")
		return
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			apierrors.ValidationError(w, "нет поля file")
			return
		}
		if err != nil {
			apierrors.ValidationError(w, "некорректное тело multipart")
			return
		}
		if part.FormName() != "file" {
			_ = part.Close()
			continue
		}

		size, _ := strconv.ParseInt(part.Header.Get("Content-Length"), 10, 64)
		rec, err := h.files.Upload(r.Context(), registry.Upload{
			Name:        part.FileName(),
			Size:        size,
			ContentType: part.Header.Get("Content-Type"),
			Body:        part,
		}, model.Owner{ID: user.ID, Name: user.Username})
		_ = part.Close()
		if err != nil {
			apierrors.FromError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, toFileDTO(rec))
		return
	}
}

type renameRequest struct {
	Name string `json:"name"`
}

// RenameFile - PATCH /api/v1/files/{id} {"name": ...}
func (h *APIHandler) RenameFile(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	h.apply(w, r, service.RenameAction{FileID: chi.URLParam(r, "id"), NewName: req.Name})
}

type shareRequest struct {
	Emails []string `json:"emails"`
}

// ShareFile - PUT /api/v1/files/{id}/share {"emails": [...]}
func (h *APIHandler) ShareFile(w http.ResponseWriter, r *http.Request) {
	var req shareRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	h.apply(w, r, service.ShareAction{FileID: chi.URLParam(r, "id"), Emails: req.Emails})
}

// DeleteFile - DELETE /api/v1/files/{id}
func (h *APIHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, service.DeleteAction{FileID: chi.URLParam(r, "id")})
}

func (h *APIHandler) apply(w http.ResponseWriter, r *http.Request, a service.Action) {
	if err := h.files.Apply(r.Context(), a); err != nil {
		apierrors.FromError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Usage - GET /api/v1/usage
func (h *APIHandler) Usage(w http.ResponseWriter, r *http.Request) {
	u, err := h.files.Usage(r.Context())
	if err != nil {
		apierrors.FromError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toUsageDTO(u))
}

// contentSandboxCSP запрещает скрипты и загрузку ресурсов из содержимого.
const contentSandboxCSP = "sandbox; default-src 'none'"

// inlineSafe - типы, которые браузер показывает без выполнения кода.
// SVG и HTML-подобные документы сюда не входят.
func inlineSafe(contentType string) bool {
	switch contentType {
	case "image/jpeg", "image/png", "image/gif", "image/webp",
		"application/pdf", "text/plain":
		return true
	}
	return strings.HasPrefix(contentType, "video/") || strings.HasPrefix(contentType, "audio/")
}

// setContentSecurityHeaders выставляет заголовки отдачи пользовательского
// содержимого с собственного origin. Остальное отдаётся вложением.
func setContentSecurityHeaders(h http.Header, contentType, filename string) {
	h.Set("Content-Type", contentType)
	h.Set("X-Content-Type-Options", "nosniff")
	// встроенный просмотрщик PDF не работает в sandbox
	if contentType == "application/pdf" {
		h.Set("Content-Security-Policy", "default-src 'none'; object-src 'self'")
	} else {
		h.Set("Content-Security-Policy", contentSandboxCSP)
	}
	if inlineSafe(contentType) {
		return
	}
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": filename})
	if disposition == "" {
		disposition = "attachment"
	}
	h.Set("Content-Disposition", disposition)
}

// FileContent - GET /api/v1/files/{id}/content
// Только для реестров, хранящих содержимое (mock, postgres).
func (h *APIHandler) FileContent(w http.ResponseWriter, r *http.Request) {
	if h.content == nil {
		apierrors.NotFound(w, "реестр не хранит содержимое")
		return
	}

	id := chi.URLParam(r, "id")
	rec, err := h.files.Get(r.Context(), id)
	if err != nil {
		apierrors.FromError(w, h.logger, err)
		return
	}
	body, size, err := h.content.Content(r.Context(), id)
	if err != nil {
		apierrors.FromError(w, h.logger, err)
		return
	}
	defer body.Close()

	setContentSecurityHeaders(w.Header(), preview.MIMEType(rec.Extension), rec.Name)
	if size >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, body)
}
