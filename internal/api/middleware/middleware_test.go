package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bigkaa/goartstore/drive-module/internal/api/openapi"
	"github.com/bigkaa/goartstore/drive-module/internal/auth"
	"github.com/bigkaa/goartstore/drive-module/internal/domain/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

// --- normalizePath ---

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/health/live", "/health/live"},
		{"/api/v1/files", "/api/v1/files"},
		{"/api/v1/files/dev-file-3", "/api/v1/files/{id}"},
		{"/api/v1/files/0b9f2c4e-1d7a-4a7e-9a55-8f0e3c2d1b6a/download", "/api/v1/files/{id}/download"},
		{"/api/v1/files/x/share", "/api/v1/files/{id}/share"},
		{"/files/x/preview", "/files/{id}/preview"},
		{"/api/v1/auth/signin", "/api/v1/auth/signin"},
		{"/api/v1/auth/../../etc", "other"},
		{"/api/v1/files/x/unknown", "other"},
		{"/favicon.ico", "other"},
	}
	for _, tt := range tests {
		if got := normalizePath(tt.path); got != tt.want {
			t.Errorf("normalizePath(%q) = %q, ожидается %q", tt.path, got, tt.want)
		}
	}
}

// --- RequestLogger ---

func TestResponseWriter_FirstStatusWins(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)
	_, _ = rw.Write([]byte("ok"))
	rw.WriteHeader(http.StatusInternalServerError)
	if rw.statusCode != http.StatusOK || rw.written != 2 {
		t.Errorf("statusCode = %d, written = %d", rw.statusCode, rw.written)
	}
}

// --- IPRateLimiter ---

func TestIPRateLimiter(t *testing.T) {
	l := NewIPRateLimiter(1, 2)
	h := l.Middleware()(okHandler)

	do := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signin", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for i := range 2 {
		if rec := do("10.0.0.1:5000"); rec.Code != http.StatusOK {
			t.Fatalf("запрос %d: статус %d, ожидается 200", i, rec.Code)
		}
	}
	rec := do("10.0.0.1:5001")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("статус %d, ожидается 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q, ожидается 60", rec.Header().Get("Retry-After"))
	}
	// Другой IP не затронут
	if rec := do("10.0.0.2:5000"); rec.Code != http.StatusOK {
		t.Errorf("другой IP: статус %d, ожидается 200", rec.Code)
	}
}

func TestIPRateLimiter_ConcurrentFirstRequests(t *testing.T) {
	l := NewIPRateLimiter(1, 2)

	var (
		wg      sync.WaitGroup
		allowed atomic.Int32
	)
	start := make(chan struct{})
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if l.Allow("10.0.0.9") {
				allowed.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := allowed.Load(); got != 2 {
		t.Errorf("пропущено %d запросов, ожидается burst = 2", got)
	}
}

// --- SessionAuth ---

type mockUsers struct {
	currentUserFn func(ctx context.Context, token string) (model.User, error)
}

func (m *mockUsers) CurrentUser(ctx context.Context, token string) (model.User, error) {
	return m.currentUserFn(ctx, token)
}

func newSessionRequest(t *testing.T, sm *auth.SessionManager, s auth.Session) *http.Request {
	t.Helper()
	rec := httptest.NewRecorder()
	if err := sm.SetSession(rec, s); err != nil {
		t.Fatalf("SetSession ошибка: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/files", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestSessionAuth(t *testing.T) {
	sm, err := auth.NewSessionManager("test-key", false, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	users := &mockUsers{
		currentUserFn: func(_ context.Context, token string) (model.User, error) {
			if token != "good" {
				return model.User{}, model.Errorf(model.KindAuth, "test", "токен отозван")
			}
			return model.User{ID: "u1", Email: "a@b.io", Username: "Ann"}, nil
		},
	}

	var gotUser model.User
	var gotToken string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = UserFromContext(r.Context())
		gotToken, _ = TokenFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	h := NewSessionAuth(sm, users, testLogger()).Middleware()(next)

	t.Run("без cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/files", nil))
		if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), "UNAUTHORIZED") {
			t.Errorf("статус %d, тело %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("повреждённый cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/files", nil)
		req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "мусор"})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("статус %d, ожидается 401", rec.Code)
		}
		if !strings.Contains(rec.Header().Get("Set-Cookie"), "Max-Age=0") {
			t.Errorf("cookie не очищен: %q", rec.Header().Get("Set-Cookie"))
		}
	})

	t.Run("действующая сессия", func(t *testing.T) {
		req := newSessionRequest(t, sm, auth.Session{Token: "good", User: model.User{ID: "u1"}})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("статус %d, ожидается 204", rec.Code)
		}
		if gotUser.Username != "Ann" || gotToken != "good" {
			t.Errorf("контекст: user = %+v, token = %q", gotUser, gotToken)
		}
	})

	t.Run("токен отвергнут провайдером", func(t *testing.T) {
		req := newSessionRequest(t, sm, auth.Session{Token: "revoked"})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("статус %d, ожидается 401", rec.Code)
		}
	})
}

func TestTokenFromContext_Missing(t *testing.T) {
	if _, err := TokenFromContext(context.Background()); err == nil {
		t.Error("ожидается ошибка без токена")
	}
}

// --- RequestValidator ---

func TestRequestValidator(t *testing.T) {
	doc, err := openapi.Load(context.Background())
	if err != nil {
		t.Fatalf("openapi.Load ошибка: %v", err)
	}
	v, err := NewRequestValidator(doc, testLogger())
	if err != nil {
		t.Fatalf("NewRequestValidator ошибка: %v", err)
	}
	h := v.Middleware()(okHandler)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		ctype  string
		want   int
	}{
		{"корректная выборка", http.MethodGet, "/api/v1/files?types=image,video&sort=size-desc&limit=10", "", "", http.StatusOK},
		{"сортировка провайдера", http.MethodGet, "/api/v1/files?sort=$createdAt-desc", "", "", http.StatusOK},
		{"неизвестная категория", http.MethodGet, "/api/v1/files?types=binary", "", "", http.StatusBadRequest},
		{"неизвестная сортировка", http.MethodGet, "/api/v1/files?sort=owner-asc", "", "", http.StatusBadRequest},
		{"нулевой лимит", http.MethodGet, "/api/v1/files?limit=0", "", "", http.StatusBadRequest},
		{"пустое имя", http.MethodPatch, "/api/v1/files/f1", `{"name":""}`, "application/json", http.StatusBadRequest},
		{"переименование", http.MethodPatch, "/api/v1/files/f1", `{"name":"b.pdf"}`, "application/json", http.StatusOK},
		{"multipart не читается", http.MethodPost, "/api/v1/files", "--x--", "multipart/form-data; boundary=x", http.StatusOK},
		{"путь вне контракта", http.MethodGet, "/files/f1/preview", "", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			if tt.ctype != "" {
				req.Header.Set("Content-Type", tt.ctype)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("статус %d, ожидается %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}
