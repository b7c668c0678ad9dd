package mock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bigkaa/goartstore/drive-module/internal/domain/model"
	"github.com/bigkaa/goartstore/drive-module/internal/registry"
)

// testLogger возвращает логгер для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newSeeded() *Registry {
	return New(Options{
		ContentBaseURL: "http://localhost:8040/api/v1/files",
		Seed:           true,
		Now:            func() time.Time { return fixedNow },
	}, testLogger())
}

func TestNew_Seed(t *testing.T) {
	r := newSeeded()
	res, err := r.List(context.Background(), model.QuerySpec{})
	if err != nil {
		t.Fatalf("List ошибка: %v", err)
	}
	if res.Total != 30 || len(res.Documents) != 30 {
		t.Fatalf("Total = %d, Documents = %d; ожидается 30", res.Total, len(res.Documents))
	}

	// createdAt-desc: dev-file-1 и dev-file-30 созданы одновременно,
	// при равенстве сохраняется порядок вставки.
	if res.Documents[0].ID != "dev-file-1" || res.Documents[1].ID != "dev-file-30" {
		t.Errorf("первые записи = %s, %s; ожидаются dev-file-1, dev-file-30",
			res.Documents[0].ID, res.Documents[1].ID)
	}
	if last := res.Documents[29].ID; last != "dev-file-5" {
		t.Errorf("последняя запись = %s, ожидается dev-file-5", last)
	}
}

func TestNew_Empty(t *testing.T) {
	r := New(Options{}, testLogger())
	res, _ := r.List(context.Background(), model.QuerySpec{})
	if res.Total != 0 {
		t.Errorf("Total = %d, ожидается 0", res.Total)
	}
}

func TestList_FilterSortLimit(t *testing.T) {
	r := newSeeded()
	res, err := r.List(context.Background(), model.QuerySpec{
		Types: []model.Category{model.CategoryVideo},
		Sort:  model.SortKey{Field: model.SortBySize, Direction: model.Desc},
		Limit: 2,
	})
	if err != nil {
		t.Fatalf("List ошибка: %v", err)
	}
	if res.Total != 4 {
		t.Errorf("Total = %d, ожидается 4 видео", res.Total)
	}
	got := []string{res.Documents[0].Name, res.Documents[1].Name}
	want := []string{"video-tutorial.mp4", "team-meeting.mp4"}
	if !slices.Equal(got, want) {
		t.Errorf("Documents = %v, ожидается %v", got, want)
	}
}

func TestList_Search(t *testing.T) {
	r := newSeeded()
	res, _ := r.List(context.Background(), model.QuerySpec{SearchText: "BACKUP"})
	var names []string
	for _, d := range res.Documents {
		names = append(names, d.Name)
	}
	slices.Sort(names)
	if !slices.Equal(names, []string{"data-backup.tar.gz", "database-backup.sql"}) {
		t.Errorf("search BACKUP = %v", names)
	}
}

func TestList_ReturnsCopies(t *testing.T) {
	r := newSeeded()
	res, _ := r.List(context.Background(), model.QuerySpec{Limit: 1})
	res.Documents[0].Name = "changed"

	rec, _ := r.Get(context.Background(), res.Documents[0].ID)
	if rec.Name == "changed" {
		t.Error("изменение результата List повлияло на реестр")
	}
}

func TestGet_NotFound(t *testing.T) {
	r := newSeeded()
	_, err := r.Get(context.Background(), "missing")
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("ожидается ErrNotFound, получено %v", err)
	}
}

func TestCreate_AndContent(t *testing.T) {
	r := newSeeded()
	ctx := context.Background()

	rec, err := r.Create(ctx, registry.Upload{
		Name: "Notes.TXT",
		Body: strings.NewReader("hello"),
	}, model.Owner{ID: "u1", Name: "Jane"})
	if err != nil {
		t.Fatalf("Create ошибка: %v", err)
	}

	if rec.Size != 5 || rec.Extension != "txt" || rec.Type != model.CategoryDocument {
		t.Errorf("запись = %+v", rec)
	}
	if !rec.CreatedAt.Equal(fixedNow) {
		t.Errorf("CreatedAt = %v, ожидается %v", rec.CreatedAt, fixedNow)
	}
	if want := "http://localhost:8040/api/v1/files/" + rec.ID + "/content"; rec.URL != want {
		t.Errorf("URL = %q, ожидается %q", rec.URL, want)
	}

	body, size, err := r.Content(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Content ошибка: %v", err)
	}
	defer body.Close()
	data, _ := io.ReadAll(body)
	if string(data) != "hello" || size != 5 {
		t.Errorf("Content = %q (%d)", data, size)
	}

	res, _ := r.List(ctx, model.QuerySpec{})
	if res.Total != 31 {
		t.Errorf("Total после Create = %d, ожидается 31", res.Total)
	}
}

func TestCreate_Validation(t *testing.T) {
	r := newSeeded()
	_, err := r.Create(context.Background(), registry.Upload{Name: "  ", Body: strings.NewReader("x")}, model.Owner{})
	if !errors.Is(err, model.ErrValidation) {
		t.Errorf("ожидается ErrValidation, получено %v", err)
	}
}

func TestRename_KeepsCategory(t *testing.T) {
	r := newSeeded()
	ctx := context.Background()

	if err := r.Rename(ctx, "dev-file-3", "holiday.pdf"); err != nil {
		t.Fatalf("Rename ошибка: %v", err)
	}
	rec, _ := r.Get(ctx, "dev-file-3")
	if rec.Name != "holiday.pdf" || rec.Extension != "pdf" {
		t.Errorf("после Rename: name=%q ext=%q", rec.Name, rec.Extension)
	}
	if rec.Type != model.CategoryVideo {
		t.Errorf("Type = %q, категория не должна пересчитываться", rec.Type)
	}

	if err := r.Rename(ctx, "missing", "x.txt"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("ожидается ErrNotFound, получено %v", err)
	}
}

func TestUpdateSharing(t *testing.T) {
	r := newSeeded()
	ctx := context.Background()

	err := r.UpdateSharing(ctx, "dev-file-1", []string{"A@x.io", "b@x.io", "a@x.io"})
	if err != nil {
		t.Fatalf("UpdateSharing ошибка: %v", err)
	}
	rec, _ := r.Get(ctx, "dev-file-1")
	if !slices.Equal(rec.SharedWith, []string{"a@x.io", "b@x.io"}) {
		t.Errorf("SharedWith = %v", rec.SharedWith)
	}

	if err := r.UpdateSharing(ctx, "dev-file-1", []string{"bad"}); !errors.Is(err, model.ErrValidation) {
		t.Errorf("ожидается ErrValidation, получено %v", err)
	}
}

func TestDelete(t *testing.T) {
	r := newSeeded()
	ctx := context.Background()

	if err := r.Delete(ctx, "dev-file-2"); err != nil {
		t.Fatalf("Delete ошибка: %v", err)
	}
	if _, err := r.Get(ctx, "dev-file-2"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("после Delete ожидается ErrNotFound, получено %v", err)
	}
	if err := r.Delete(ctx, "dev-file-2"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("повторный Delete: ожидается ErrNotFound, получено %v", err)
	}
	res, _ := r.List(ctx, model.QuerySpec{})
	if res.Total != 29 {
		t.Errorf("Total = %d, ожидается 29", res.Total)
	}
}

func TestUsage(t *testing.T) {
	r := newSeeded()
	u, err := r.Usage(context.Background())
	if err != nil {
		t.Fatalf("Usage ошибка: %v", err)
	}

	want := map[model.Category]int64{
		model.CategoryDocument: 16768 * kib,
		model.CategoryImage:    7040 * kib,
		model.CategoryVideo:    21504 * kib,
		model.CategoryAudio:    3328 * kib,
		model.CategoryOther:    13312 * kib,
	}
	for c, size := range want {
		if got := u.ByCategory[c].Size; got != size {
			t.Errorf("%s: %d, ожидается %d", c, got, size)
		}
	}
	if u.Used != 61952*kib {
		t.Errorf("Used = %d, ожидается %d", u.Used, 61952*kib)
	}
	if u.All != 2*1024*1024*1024 {
		t.Errorf("All = %d, ожидается 2 GiB", u.All)
	}
	if latest := u.ByCategory[model.CategoryDocument].Latest; latest == nil || !latest.Equal(fixedNow) {
		t.Errorf("document.Latest = %v, ожидается %v", latest, fixedNow)
	}
}

// TestConcurrentAccess проверяет отсутствие гонок при параллельных операциях.
func TestConcurrentAccess(t *testing.T) {
	r := newSeeded()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = r.Rename(ctx, "dev-file-1", fmt.Sprintf("doc-%d.pdf", i))
		}()
		go func() {
			defer wg.Done()
			_, _ = r.List(ctx, model.QuerySpec{SearchText: "doc"})
			_, _ = r.Usage(ctx)
		}()
	}
	wg.Wait()

	rec, _ := r.Get(ctx, "dev-file-1")
	if !strings.HasPrefix(rec.Name, "doc-") {
		t.Errorf("Name = %q, ожидается одно из записанных имён", rec.Name)
	}
}
