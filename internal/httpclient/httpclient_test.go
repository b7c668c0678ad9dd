package httpclient

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNew_Default(t *testing.T) {
	c, err := New("", 5*time.Second, testLogger())
	if err != nil {
		t.Fatalf("New ошибка: %v", err)
	}
	if c.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, ожидается 5s", c.Timeout)
	}
}

func TestNew_MissingCA(t *testing.T) {
	if _, err := New("/nonexistent/ca.pem", time.Second, testLogger()); err == nil {
		t.Error("ожидается ошибка для несуществующего CA")
	}
}

func TestNew_InvalidPEM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ca.pem")
	if err := os.WriteFile(path, []byte("not a certificate"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := New(path, time.Second, testLogger()); err == nil {
		t.Error("ожидается ошибка для файла без PEM")
	}
}
