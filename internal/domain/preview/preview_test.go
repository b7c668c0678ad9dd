package preview

import (
	"testing"
	"time"

	"github.com/bigkaa/goartstore/drive-module/internal/domain/model"
)

func TestClassify(t *testing.T) {
	tests := map[model.Category]Mode{
		model.CategoryImage:    ModeImage,
		model.CategoryVideo:    ModeVideo,
		model.CategoryAudio:    ModeAudio,
		model.CategoryDocument: ModeDocument,
		model.CategoryOther:    ModeFallback,
		"archive":              ModeFallback,
	}
	for c, want := range tests {
		if got := Classify(c); got != want {
			t.Errorf("Classify(%q) = %q, ожидается %q", c, got, want)
		}
	}
}

// TestClassify_IgnoresName проверяет, что переименование не меняет режим.
func TestClassify_IgnoresName(t *testing.T) {
	r := model.FileRecord{Name: "clip.mp4", Extension: "mp4", Type: model.CategoryVideo}
	before := Classify(r.Type)
	r.Name = "notes.txt"
	r.Extension = model.ExtensionOf(r.Name)
	if after := Classify(r.Type); after != before {
		t.Errorf("режим после переименования = %q, ожидается %q", after, before)
	}
}

func TestMIMEType(t *testing.T) {
	tests := map[string]string{
		"pdf":     "application/pdf",
		"PDF":     "application/pdf",
		".Pdf":    "application/pdf",
		"jpeg":    "image/jpeg",
		"JPG":     "image/jpeg",
		"mkv":     "video/x-matroska",
		"mp3":     "audio/mpeg",
		"xlsx":    "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"zip":     DefaultMIMEType,
		"":        DefaultMIMEType,
		"tar.gz":  DefaultMIMEType,
		" flac ":  "audio/flac",
		"svg":     "image/svg+xml",
		"unknown": DefaultMIMEType,
	}
	for ext, want := range tests {
		if got := MIMEType(ext); got != want {
			t.Errorf("MIMEType(%q) = %q, ожидается %q", ext, got, want)
		}
	}
}

func TestZoom_Bounds(t *testing.T) {
	z := NewZoom()
	if z.Factor() != 1.0 || z.Percent() != "100%" {
		t.Fatalf("начальный масштаб = %v (%s), ожидается 1.0", z.Factor(), z.Percent())
	}

	for range 20 {
		z = z.In()
	}
	if z.Factor() != ZoomMax {
		t.Errorf("после многократного In = %v, ожидается %v", z.Factor(), ZoomMax)
	}

	for range 20 {
		z = z.Out()
	}
	if z.Factor() != ZoomMin {
		t.Errorf("после многократного Out = %v, ожидается %v", z.Factor(), ZoomMin)
	}
	if z.Percent() != "50%" {
		t.Errorf("Percent = %s, ожидается 50%%", z.Percent())
	}

	if got := z.In().In().Factor(); got != 1.0 {
		t.Errorf("0.5 + 2 шага = %v, ожидается 1.0", got)
	}
	if got := z.Reset().Factor(); got != ZoomInitial {
		t.Errorf("Reset = %v", got)
	}
}

func TestPlayback(t *testing.T) {
	p := NewPlayback(10 * time.Second)
	if p.Playing() {
		t.Fatal("новый плеер не должен играть")
	}

	p.Toggle()
	if !p.Playing() {
		t.Fatal("после Toggle ожидается воспроизведение")
	}

	p.Advance(4 * time.Second)
	if p.Position() != 4*time.Second {
		t.Errorf("Position = %v, ожидается 4s", p.Position())
	}

	p.Seek(-time.Second)
	if p.Position() != 0 {
		t.Errorf("Seek(-1s) = %v, ожидается 0", p.Position())
	}

	p.Advance(time.Minute)
	if p.Position() != 10*time.Second || p.Playing() {
		t.Errorf("в конце: позиция %v, playing %v", p.Position(), p.Playing())
	}

	p.Play()
	if p.Position() != 0 || !p.Playing() {
		t.Errorf("Play в конце должен начать сначала: позиция %v", p.Position())
	}

	p.Toggle()
	p.Advance(time.Second)
	if p.Position() != 0 {
		t.Errorf("на паузе позиция не должна меняться: %v", p.Position())
	}
}
