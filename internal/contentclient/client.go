// Пакет contentclient - HTTP-клиент для получения содержимого файлов
// по адресу из реестра (прямой URL, endpoint хранилища, подписанный S3 URL).
package contentclient

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/bigkaa/goartstore/drive-module/internal/domain/model"
)

// TokenProvider возвращает токен для заголовка Authorization.
// Пустой токен - запрос без авторизации.
type TokenProvider func(ctx context.Context) (string, error)

// LocalSource - реестр, который хранит содержимое сам.
// Реализуется registry.ContentSource.
type LocalSource interface {
	Content(ctx context.Context, id string) (io.ReadCloser, int64, error)
}

// Client - клиент скачивания содержимого.
type Client struct {
	httpClient    *http.Client
	tokenProvider TokenProvider
	// tokenScope - токен отправляется только на адреса внутри этого URL
	tokenScope *url.URL
	// scopeInvalid - prefix не разобран, токен не отправляется никуда
	scopeInvalid bool

	localBase string
	local     LocalSource
	logger    *slog.Logger
}

// New создаёт клиент. tokenProvider может быть nil.
func New(httpClient *http.Client, tokenProvider TokenProvider, logger *slog.Logger) *Client {
	return &Client{
		httpClient:    httpClient,
		tokenProvider: tokenProvider,
		logger:        logger.With(slog.String("component", "content_client")),
	}
}

// WithTokenScope ограничивает отправку токена адресами внутри prefix
// (обычно адрес API gateway): та же схема, тот же хост, путь под prefix.
// Адреса с userinfo токен не получают. Пустой prefix - токен отправляется всегда.
func (c *Client) WithTokenScope(prefix string) *Client {
	c.tokenScope, c.scopeInvalid = nil, false
	if prefix == "" {
		return c
	}
	u, err := url.Parse(prefix)
	if err != nil || u.Host == "" || u.User != nil {
		c.scopeInvalid = true
		return c
	}
	u.Path = strings.TrimRight(u.Path, "/")
	c.tokenScope = u
	return c
}

// inScope проверяет, можно ли отправить токен на адрес target.
// Сравниваются схема, хост (с портом) и путь по границе сегмента.
func (c *Client) inScope(target *url.URL) bool {
	if c.scopeInvalid {
		return false
	}
	if c.tokenScope == nil {
		return true
	}
	if target.User != nil {
		return false
	}
	if !strings.EqualFold(target.Scheme, c.tokenScope.Scheme) ||
		!strings.EqualFold(target.Host, c.tokenScope.Host) {
		return false
	}
	base := c.tokenScope.Path
	if base == "" {
		return true
	}
	return target.Path == base || strings.HasPrefix(target.Path, base+"/")
}

// WithLocalSource читает адреса вида {baseURL}/{id}/content напрямую
// из src, без HTTP-запроса к собственному API.
func (c *Client) WithLocalSource(baseURL string, src LocalSource) *Client {
	c.localBase = strings.TrimRight(baseURL, "/")
	c.local = src
	return c
}

// localID извлекает id из адреса собственного содержимого.
func (c *Client) localID(rawURL string) (string, bool) {
	if c.local == nil || c.localBase == "" {
		return "", false
	}
	rest, ok := strings.CutPrefix(rawURL, c.localBase+"/")
	if !ok {
		return "", false
	}
	id, ok := strings.CutSuffix(rest, "/content")
	if !ok || id == "" || strings.ContainsAny(id, "/?#") {
		return "", false
	}
	return id, true
}

// Fetch выполняет streaming-загрузку содержимого.
// Возвращает тело ответа и длину (-1, если неизвестна); вызывающий код
// обязан закрыть тело. Ответ не 2xx и ошибки транспорта - NetworkError.
func (c *Client) Fetch(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	const op = "content.Fetch"

	if id, ok := c.localID(rawURL); ok {
		return c.local.Content(ctx, id)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, 0, model.NewError(model.KindNetwork, op, fmt.Errorf("создание запроса: %w", err))
	}

	if c.tokenProvider != nil && c.inScope(req.URL) {
		token, tokenErr := c.tokenProvider(ctx)
		if tokenErr != nil {
			return nil, 0, model.NewError(model.KindAuth, op, tokenErr)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req) //nolint:gosec // G107: URL из реестра файлов
	if err != nil {
		return nil, 0, model.NewError(model.KindNetwork, op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		c.logger.Warn("Содержимое недоступно",
			slog.String("url", req.URL.Redacted()),
			slog.Int("status", resp.StatusCode),
		)
		return nil, 0, model.Errorf(model.KindNetwork, op, "статус %d", resp.StatusCode)
	}

	return resp.Body, resp.ContentLength, nil
}
