// Пакет mock - реестр файлов в памяти (режим разработки).
//
// Каталог заполняется демонстрационными файлами при создании и
// меняется операциями Create, Rename, UpdateSharing, Delete.
// Выборка выполняется конвейером query. Содержимое загруженных
// файлов хранится в памяти и отдаётся через Content.
//
// Не персистентный: при рестарте возвращается к исходному набору.
package mock

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/goartstore/drive-module/internal/domain/model"
	"github.com/bigkaa/goartstore/drive-module/internal/domain/query"
	"github.com/bigkaa/goartstore/drive-module/internal/registry"
)

// Options - параметры mock-реестра.
type Options struct {
	// ContentBaseURL - префикс адресов содержимого загруженных файлов,
	// например "http://localhost:8040/api/v1/files"
	ContentBaseURL string
	// Quota - квота для сводки использования
	Quota int64
	// Pipeline - конвейер выборки (nil - query.Default)
	Pipeline *query.Pipeline
	// Seed - заполнять ли каталог демонстрационными файлами
	Seed bool
	// Now - источник времени (nil - time.Now)
	Now func() time.Time
}

// Registry - потокобезопасный реестр в памяти.
type Registry struct {
	mu       sync.RWMutex
	files    map[string]model.FileRecord // id → запись
	order    []string                    // порядок вставки, задаёт исходный порядок выборки
	content  map[string][]byte           // id → содержимое загруженного файла
	opts     Options
	pipeline *query.Pipeline
	logger   *slog.Logger
}

var _ registry.Registry = (*Registry)(nil)
var _ registry.ContentSource = (*Registry)(nil)

// New создаёт mock-реестр.
func New(opts Options, logger *slog.Logger) *Registry {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Quota <= 0 {
		opts.Quota = query.DefaultQuota
	}
	p := opts.Pipeline
	if p == nil {
		p = query.Default
	}

	r := &Registry{
		files:    make(map[string]model.FileRecord),
		content:  make(map[string][]byte),
		opts:     opts,
		pipeline: p,
		logger:   logger.With(slog.String("component", "mock_registry")),
	}

	if opts.Seed {
		for _, rec := range Fixtures(opts.Now()) {
			r.insertLocked(rec)
		}
		r.logger.Info("Mock-реестр заполнен демонстрационными файлами",
			slog.Int("files", len(r.files)),
		)
	}
	return r
}

func (r *Registry) insertLocked(rec model.FileRecord) {
	if _, exists := r.files[rec.ID]; !exists {
		r.order = append(r.order, rec.ID)
	}
	r.files[rec.ID] = rec.Clone()
}

// snapshot возвращает копии записей в порядке вставки.
func (r *Registry) snapshot() []model.FileRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.FileRecord, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.files[id].Clone())
	}
	return out
}

// List возвращает выборку по параметрам. Total - количество совпадений до лимита.
func (r *Registry) List(_ context.Context, spec model.QuerySpec) (model.ListResult, error) {
	all := r.snapshot()
	return model.ListResult{
		Documents: r.pipeline.Select(all, spec),
		Total:     query.Count(all, spec),
	}, nil
}

// Get возвращает запись по id.
func (r *Registry) Get(_ context.Context, id string) (model.FileRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.files[id]
	if !ok {
		return model.FileRecord{}, model.Errorf(model.KindNotFound, "mock.Get", "файл %s не найден", id)
	}
	return rec.Clone(), nil
}

// Create сохраняет файл и его содержимое в памяти.
func (r *Registry) Create(_ context.Context, up registry.Upload, owner model.Owner) (model.FileRecord, error) {
	name, err := registry.CheckName("mock.Create", up.Name)
	if err != nil {
		return model.FileRecord{}, err
	}
	if up.Body == nil {
		return model.FileRecord{}, model.Errorf(model.KindValidation, "mock.Create", "пустое содержимое")
	}

	data, err := io.ReadAll(up.Body)
	if err != nil {
		return model.FileRecord{}, fmt.Errorf("чтение содержимого %s: %w", name, err)
	}

	id := uuid.New().String()
	rec := registry.NewRecord(id, name, int64(len(data)), owner)
	rec.CreatedAt = r.opts.Now().UTC()
	rec.URL = strings.TrimRight(r.opts.ContentBaseURL, "/") + "/" + id + "/content"

	r.mu.Lock()
	r.insertLocked(rec)
	r.content[id] = data
	r.mu.Unlock()

	r.logger.Info("Файл добавлен",
		slog.String("file_id", id),
		slog.String("name", name),
		slog.Int64("size", rec.Size),
	)
	return rec.Clone(), nil
}

// Rename меняет имя и расширение. Категория не пересчитывается.
func (r *Registry) Rename(_ context.Context, id, newName string) error {
	name, err := registry.CheckName("mock.Rename", newName)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.files[id]
	if !ok {
		return model.Errorf(model.KindNotFound, "mock.Rename", "файл %s не найден", id)
	}
	rec.Name = name
	rec.Extension = model.ExtensionOf(name)
	r.files[id] = rec
	return nil
}

// UpdateSharing заменяет список адресов доступа.
func (r *Registry) UpdateSharing(_ context.Context, id string, emails []string) error {
	normalized, err := registry.NormalizeEmails("mock.UpdateSharing", emails)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.files[id]
	if !ok {
		return model.Errorf(model.KindNotFound, "mock.UpdateSharing", "файл %s не найден", id)
	}
	rec.SharedWith = normalized
	r.files[id] = rec
	return nil
}

// Delete удаляет запись и содержимое.
func (r *Registry) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.files[id]; !ok {
		return model.Errorf(model.KindNotFound, "mock.Delete", "файл %s не найден", id)
	}
	delete(r.files, id)
	delete(r.content, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Usage считает сводку использования по всему каталогу.
func (r *Registry) Usage(_ context.Context) (model.Usage, error) {
	return query.Aggregate(r.snapshot(), r.opts.Quota), nil
}

// Content возвращает содержимое загруженного файла.
// Для демонстрационных файлов содержимого нет: их URL внешние.
func (r *Registry) Content(_ context.Context, id string) (io.ReadCloser, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data, ok := r.content[id]
	if !ok {
		return nil, 0, model.Errorf(model.KindNotFound, "mock.Content", "содержимое файла %s не найдено", id)
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}
