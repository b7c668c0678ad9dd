package preview

import (
	"bytes"
	"context"
	"strings"
	"testing"

	domainpreview "github.com/bigkaa/goartstore/drive-module/internal/domain/preview"
)

func render(t *testing.T, d PageData) string {
	t.Helper()
	var buf bytes.Buffer
	if err := Page(d).Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render ошибка: %v", err)
	}
	return buf.String()
}

func TestPage_Modes(t *testing.T) {
	tests := []struct {
		mode domainpreview.Mode
		want string
	}{
		{domainpreview.ModeImage, `<img id="preview-image"`},
		{domainpreview.ModeVideo, `<video controls`},
		{domainpreview.ModeAudio, `<audio controls`},
		{domainpreview.ModeDocument, `<iframe src=`},
		{domainpreview.ModeFallback, `Открыть в новой вкладке`},
	}
	for _, tt := range tests {
		html := render(t, PageData{
			Name:     "file",
			Mode:     tt.mode,
			MIMEType: "video/mp4",
			URL:      "https://cdn.example.com/f1",
			Zoom:     domainpreview.NewZoom(),
		})
		if !strings.Contains(html, tt.want) {
			t.Errorf("режим %s: нет %q", tt.mode, tt.want)
		}
		hasZoom := strings.Contains(html, `data-zoom="in"`)
		if hasZoom != (tt.mode == domainpreview.ModeImage) {
			t.Errorf("режим %s: кнопки масштаба = %v", tt.mode, hasZoom)
		}
	}
}

func TestPage_Zoom(t *testing.T) {
	html := render(t, PageData{
		Name: "a.png",
		Mode: domainpreview.ModeImage,
		URL:  "/api/v1/files/f1/content",
		Zoom: domainpreview.NewZoom().In().In(),
	})
	if !strings.Contains(html, "scale(1.5)") || !strings.Contains(html, ">150%<") {
		t.Error("ожидается масштаб 150%")
	}
	if !strings.Contains(html, "min=0.5,max=3,step=0.25,init=1") {
		t.Error("границы масштаба не переданы в скрипт")
	}
}

func TestPage_Escaping(t *testing.T) {
	html := render(t, PageData{
		Name:        `<script>alert(1)</script>.png`,
		Mode:        domainpreview.ModeFallback,
		URL:         "javascript:alert(1)",
		DownloadURL: "/api/v1/files/f1/download",
	})
	if strings.Contains(html, "<script>alert(1)") {
		t.Error("имя файла не экранировано")
	}
	if strings.Contains(html, `href="javascript:`) {
		t.Error("небезопасный URL не отфильтрован")
	}
	if !strings.Contains(html, `href="/api/v1/files/f1/download"`) {
		t.Error("нет ссылки на скачивание")
	}
}
