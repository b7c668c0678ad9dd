package repository

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bigkaa/goartstore/drive-module/internal/domain/model"
	"github.com/bigkaa/goartstore/drive-module/internal/registry"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// --- Тесты построения SQL ---

func TestBuildListWhere_Empty(t *testing.T) {
	where, args := buildListWhere(model.QuerySpec{}, 1)
	if where != "" || len(args) != 0 {
		t.Errorf("where = %q, args = %v, ожидается пусто", where, args)
	}
}

func TestBuildListWhere_TypesAndSearch(t *testing.T) {
	spec := model.QuerySpec{
		Types:      []model.Category{model.CategoryImage, model.CategoryVideo},
		SearchText: "50%_off",
	}
	where, args := buildListWhere(spec, 1)

	if !strings.Contains(where, "category = ANY($1)") || !strings.Contains(where, "name ILIKE $2") {
		t.Errorf("where = %q", where)
	}
	if len(args) != 2 {
		t.Fatalf("args count = %d, ожидается 2", len(args))
	}
	types, ok := args[0].([]string)
	if !ok || strings.Join(types, ",") != "image,video" {
		t.Errorf("args[0] = %v", args[0])
	}
	if args[1] != `%50\%\_off%` {
		t.Errorf("args[1] = %v, ожидается экранированный шаблон", args[1])
	}
}

func TestBuildListWhere_StartArg(t *testing.T) {
	where, _ := buildListWhere(model.QuerySpec{SearchText: "a"}, 3)
	if !strings.Contains(where, "$3") {
		t.Errorf("where = %q, ожидается $3", where)
	}
}

func TestBuildOrderBy(t *testing.T) {
	tests := []struct {
		key  model.SortKey
		want string
	}{
		{model.SortKey{Field: model.SortByCreatedAt, Direction: model.Desc}, "ORDER BY created_at DESC, seq ASC"},
		{model.SortKey{Field: model.SortByName, Direction: model.Asc}, "ORDER BY LOWER(name) ASC, seq ASC"},
		{model.SortKey{Field: model.SortBySize, Direction: model.Desc}, "ORDER BY size DESC, seq ASC"},
		// Неизвестное поле не попадает в SQL
		{model.SortKey{Field: "name; DROP TABLE files", Direction: model.Asc}, "ORDER BY created_at ASC, seq ASC"},
	}
	for _, tt := range tests {
		if got := buildOrderBy(tt.key); got != tt.want {
			t.Errorf("buildOrderBy(%v) = %q, ожидается %q", tt.key, got, tt.want)
		}
	}
}

// --- Тесты без базы: фейковый DBTX ---

type fakeRow struct {
	scan func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

type fakeDB struct {
	execFn     func(sql string, args ...any) (pgconn.CommandTag, error)
	queryRowFn func(sql string, args ...any) pgx.Row
}

func (d *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return d.execFn(sql, args...)
}

func (d *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("не используется")
}

func (d *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	return d.queryRowFn(sql, args...)
}

// memStore - ObjectStore в памяти.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (s *memStore) Put(_ context.Context, key, contentType string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	s.types[key] = contentType
	return nil
}

func (s *memStore) Get(_ context.Context, key string) (io.ReadCloser, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, 0, model.Errorf(model.KindNotFound, "memStore.Get", "нет объекта %s", key)
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

func TestFileRegistry_CreateRemovesObjectOnInsertError(t *testing.T) {
	store := newMemStore()
	db := &fakeDB{
		queryRowFn: func(string, ...any) pgx.Row {
			return fakeRow{scan: func(...any) error { return errors.New("connection reset") }}
		},
	}
	reg := NewFileRegistry(db, store, Options{ContentBaseURL: "/api/v1/files"}, testLogger())

	_, err := reg.Create(context.Background(), registry.Upload{Name: "a.txt", Body: strings.NewReader("abc")}, model.Owner{})
	if !errors.Is(err, model.ErrNetwork) {
		t.Errorf("ожидается ErrNetwork, получено %v", err)
	}
	if store.len() != 0 {
		t.Errorf("объект не удалён после ошибки вставки: %d шт.", store.len())
	}
}

func TestFileRegistry_CreateInsertsRecord(t *testing.T) {
	store := newMemStore()
	var args []any
	db := &fakeDB{
		queryRowFn: func(_ string, a ...any) pgx.Row {
			args = a
			return fakeRow{scan: func(...any) error { return nil }}
		},
	}
	reg := NewFileRegistry(db, store, Options{ContentBaseURL: "/api/v1/files/"}, testLogger())

	rec, err := reg.Create(context.Background(),
		registry.Upload{Name: " Photo.JPG ", Body: strings.NewReader("jpeg-bytes")},
		model.Owner{ID: "u1", Name: "John Doe"})
	if err != nil {
		t.Fatalf("Create ошибка: %v", err)
	}
	if rec.Name != "Photo.JPG" || rec.Extension != "jpg" || rec.Type != model.CategoryImage {
		t.Errorf("запись = %+v", rec)
	}
	if rec.Size != int64(len("jpeg-bytes")) || rec.BucketFileID != rec.ID {
		t.Errorf("Size = %d, BucketFileID = %q", rec.Size, rec.BucketFileID)
	}
	if rec.URL != "/api/v1/files/"+rec.ID+"/content" {
		t.Errorf("URL = %q", rec.URL)
	}
	if store.types[rec.ID] != "image/jpeg" {
		t.Errorf("Content-Type объекта = %q, ожидается image/jpeg", store.types[rec.ID])
	}
	if len(args) != 10 || args[7] != "John Doe" || args[8] != "u1" {
		t.Errorf("параметры INSERT = %v", args)
	}
}

func TestFileRegistry_NotFound(t *testing.T) {
	db := &fakeDB{
		execFn: func(string, ...any) (pgconn.CommandTag, error) {
			return pgconn.NewCommandTag("UPDATE 0"), nil
		},
		queryRowFn: func(string, ...any) pgx.Row {
			return fakeRow{scan: func(...any) error { return pgx.ErrNoRows }}
		},
	}
	reg := NewFileRegistry(db, newMemStore(), Options{}, testLogger())
	ctx := context.Background()

	if _, err := reg.Get(ctx, "x"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("Get: ожидается ErrNotFound, получено %v", err)
	}
	if err := reg.Rename(ctx, "x", "b.txt"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("Rename: ожидается ErrNotFound, получено %v", err)
	}
	if err := reg.UpdateSharing(ctx, "x", []string{"a@b.io"}); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("UpdateSharing: ожидается ErrNotFound, получено %v", err)
	}
	if err := reg.Delete(ctx, "x"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("Delete: ожидается ErrNotFound, получено %v", err)
	}
	if _, _, err := reg.Content(ctx, "x"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("Content: ожидается ErrNotFound, получено %v", err)
	}
}

func TestFileRegistry_ValidationBeforeDB(t *testing.T) {
	reg := NewFileRegistry(&fakeDB{}, newMemStore(), Options{}, testLogger())
	ctx := context.Background()

	if err := reg.Rename(ctx, "x", "dir/b.txt"); !errors.Is(err, model.ErrValidation) {
		t.Errorf("Rename: ожидается ErrValidation, получено %v", err)
	}
	if err := reg.UpdateSharing(ctx, "x", []string{"broken"}); !errors.Is(err, model.ErrValidation) {
		t.Errorf("UpdateSharing: ожидается ErrValidation, получено %v", err)
	}
	if _, err := reg.Create(ctx, registry.Upload{Name: "a.txt"}, model.Owner{}); !errors.Is(err, model.ErrValidation) {
		t.Errorf("Create без содержимого: ожидается ErrValidation, получено %v", err)
	}
}
