// Пакет remote - реестр файлов поверх HTTP API провайдера (API gateway).
// Каждый запрос авторизуется токеном сессии текущего пользователя.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/bigkaa/goartstore/drive-module/internal/domain/model"
	"github.com/bigkaa/goartstore/drive-module/internal/registry"
)

// TokenProvider возвращает токен сессии для запроса.
// Обычно извлекает его из контекста HTTP-запроса.
type TokenProvider func(ctx context.Context) (string, error)

// Client - реестр поверх API провайдера.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	tokenProvider TokenProvider
	logger        *slog.Logger
}

var _ registry.Registry = (*Client)(nil)

// New создаёт клиент. baseURL - адрес API gateway.
func New(baseURL string, httpClient *http.Client, tokenProvider TokenProvider, logger *slog.Logger) *Client {
	return &Client{
		httpClient:    httpClient,
		baseURL:       strings.TrimRight(baseURL, "/"),
		tokenProvider: tokenProvider,
		logger:        logger.With(slog.String("component", "remote_registry")),
	}
}

// BaseURL возвращает адрес API gateway.
func (c *Client) BaseURL() string { return c.baseURL }

// List - GET /files?types=&search=&sort=&limit=
func (c *Client) List(ctx context.Context, spec model.QuerySpec) (model.ListResult, error) {
	const op = "remote.List"

	q := url.Values{}
	if len(spec.Types) > 0 {
		types := make([]string, len(spec.Types))
		for i, t := range spec.Types {
			types[i] = string(t)
		}
		q.Set("types", strings.Join(types, ","))
	}
	if spec.SearchText != "" {
		q.Set("search", spec.SearchText)
	}
	q.Set("sort", wireSort(spec.EffectiveSort()))
	if spec.Limit > 0 {
		q.Set("limit", strconv.Itoa(spec.Limit))
	}

	var resp listResponse
	if err := c.doJSON(ctx, op, http.MethodGet, "/files?"+q.Encode(), nil, &resp); err != nil {
		return model.ListResult{}, err
	}

	docs := make([]model.FileRecord, 0, len(resp.Documents))
	for _, d := range resp.Documents {
		docs = append(docs, d.toModel())
	}
	total := resp.Total
	if total < len(docs) {
		total = len(docs)
	}
	return model.ListResult{Documents: docs, Total: total}, nil
}

// Get - GET /files/{id}
func (c *Client) Get(ctx context.Context, id string) (model.FileRecord, error) {
	var d fileDTO
	if err := c.doJSON(ctx, "remote.Get", http.MethodGet, "/files/"+url.PathEscape(id), nil, &d); err != nil {
		return model.FileRecord{}, err
	}
	return d.toModel(), nil
}

// Create - POST /upload (multipart: file, userId)
func (c *Client) Create(ctx context.Context, up registry.Upload, owner model.Owner) (model.FileRecord, error) {
	const op = "remote.Create"

	name, err := registry.CheckName(op, up.Name)
	if err != nil {
		return model.FileRecord{}, err
	}
	if up.Body == nil {
		return model.FileRecord{}, model.Errorf(model.KindValidation, op, "пустое содержимое")
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", name)
		if err == nil {
			_, err = io.Copy(part, up.Body)
		}
		if err == nil {
			err = mw.WriteField("userId", owner.ID)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := c.newRequest(ctx, op, http.MethodPost, "/upload", pr)
	if err != nil {
		_ = pr.Close()
		return model.FileRecord{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var d fileDTO
	if err := c.do(req, op, &d); err != nil {
		_ = pr.Close()
		return model.FileRecord{}, err
	}

	rec := d.toModel()
	if rec.Name == "" {
		rec.Name = name
	}
	c.logger.Info("Файл загружен через API провайдера",
		slog.String("file_id", rec.ID),
		slog.String("name", rec.Name),
	)
	return rec, nil
}

// Rename - PUT /files/{id} {"name": ...}
func (c *Client) Rename(ctx context.Context, id, newName string) error {
	const op = "remote.Rename"
	name, err := registry.CheckName(op, newName)
	if err != nil {
		return err
	}
	body := map[string]string{"name": name}
	return c.doJSON(ctx, op, http.MethodPut, "/files/"+url.PathEscape(id), body, nil)
}

// UpdateSharing - PUT /files/{id}/share {"emails": [...]}
func (c *Client) UpdateSharing(ctx context.Context, id string, emails []string) error {
	const op = "remote.UpdateSharing"
	normalized, err := registry.NormalizeEmails(op, emails)
	if err != nil {
		return err
	}
	body := map[string][]string{"emails": normalized}
	return c.doJSON(ctx, op, http.MethodPut, "/files/"+url.PathEscape(id)+"/share", body, nil)
}

// Delete - DELETE /files/{id}
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.doJSON(ctx, "remote.Delete", http.MethodDelete, "/files/"+url.PathEscape(id), nil, nil)
}

// Usage - GET /files/stats
func (c *Client) Usage(ctx context.Context) (model.Usage, error) {
	var resp statsResponse
	if err := c.doJSON(ctx, "remote.Usage", http.MethodGet, "/files/stats", nil, &resp); err != nil {
		return model.Usage{}, err
	}
	return resp.toModel(), nil
}

// doJSON выполняет запрос с JSON-телом (nil - без тела) и декодирует ответ в out (nil - игнорировать).
func (c *Client) doJSON(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: кодирование запроса: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, op, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, op, out)
}

func (c *Client) newRequest(ctx context.Context, op, method, path string, body io.Reader) (*http.Request, error) {
	token, err := c.token(ctx, op)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%s: создание запроса: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) token(ctx context.Context, op string) (string, error) {
	if c.tokenProvider == nil {
		return "", model.Errorf(model.KindAuth, op, "нет токена аутентификации")
	}
	token, err := c.tokenProvider(ctx)
	if err != nil {
		return "", model.NewError(model.KindAuth, op, err)
	}
	if token == "" {
		return "", model.Errorf(model.KindAuth, op, "нет токена аутентификации")
	}
	return token, nil
}

func (c *Client) do(req *http.Request, op string, out any) error {
	resp, err := c.httpClient.Do(req) //nolint:gosec // G107: URL из конфигурации
	if err != nil {
		// ошибка из тела запроса (например, превышен лимит загрузки) уже типизирована
		var typed *model.Error
		if errors.As(err, &typed) && typed.Kind != model.KindNetwork {
			return typed
		}
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", op, ctxErr)
		}
		return model.NewError(model.KindNetwork, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(op, resp)
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

// statusError переводит HTTP-статус провайдера в класс ошибки.
func statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	err := fmt.Errorf("провайдер вернул статус %d: %s", resp.StatusCode, msg)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return model.NewError(model.KindAuth, op, err)
	case resp.StatusCode == http.StatusNotFound:
		return model.NewError(model.KindNotFound, op, err)
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return model.NewError(model.KindValidation, op, err)
	default:
		return model.NewError(model.KindNetwork, op, err)
	}
}

// wireSort - написание ключа сортировки, принятое у провайдера.
func wireSort(k model.SortKey) string {
	if k.Field == model.SortByCreatedAt {
		return "$" + k.String()
	}
	return k.String()
}

var errNoBaseURL = errors.New("не задан адрес API gateway")

// Validate проверяет конфигурацию клиента.
func (c *Client) Validate() error {
	if c.baseURL == "" {
		return errNoBaseURL
	}
	if _, err := url.ParseRequestURI(c.baseURL); err != nil {
		return fmt.Errorf("некорректный адрес API gateway: %w", err)
	}
	return nil
}
