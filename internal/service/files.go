// files.go - сервис каталога файлов: выборка, загрузка, сводка
// использования и изменяющие действия над записями.
package service

import (
	"context"
	"html"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/drive-module/internal/domain/model"
	"github.com/bigkaa/goartstore/drive-module/internal/registry"
)

// Prometheus-метрики каталога.
var (
	filesListTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dm_files_list_total",
		Help: "Общее количество запросов списка файлов.",
	})
	filesListDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dm_files_list_duration_seconds",
		Help:    "Длительность запросов списка файлов.",
		Buckets: prometheus.DefBuckets,
	})
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dm_uploads_total",
		Help: "Количество загрузок файлов (status: success, error).",
	}, []string{"status"})
	uploadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dm_upload_bytes_total",
		Help: "Общее количество загруженных байт.",
	})
	actionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dm_file_actions_total",
		Help: "Количество действий над файлами (action: rename, share, delete).",
	}, []string{"action", "status"})
)

// FileService - сервис каталога файлов поверх выбранного реестра.
type FileService struct {
	reg       registry.Registry
	cache     *RecordCache
	sanitizer *bluemonday.Policy
	maxUpload int64
	onDelete  []func(model.FileRecord)
	logger    *slog.Logger
}

// FileServiceOption - опция FileService.
type FileServiceOption func(*FileService)

// WithMaxUploadSize ограничивает размер загружаемого файла.
func WithMaxUploadSize(n int64) FileServiceOption {
	return func(s *FileService) { s.maxUpload = n }
}

// WithDeleteHook добавляет обработчик, вызываемый после удаления файла.
func WithDeleteHook(fn func(model.FileRecord)) FileServiceOption {
	return func(s *FileService) { s.onDelete = append(s.onDelete, fn) }
}

// NewFileService создаёт сервис каталога.
func NewFileService(reg registry.Registry, cache *RecordCache, logger *slog.Logger, opts ...FileServiceOption) *FileService {
	s := &FileService{
		reg:       reg,
		cache:     cache,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With(slog.String("component", "file_service")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List возвращает выборку файлов по параметрам запроса.
func (s *FileService) List(ctx context.Context, spec model.QuerySpec) (model.ListResult, error) {
	start := time.Now()
	filesListTotal.Inc()

	res, err := s.reg.List(ctx, spec)
	if err != nil {
		return model.ListResult{}, err
	}

	duration := time.Since(start)
	filesListDuration.Observe(duration.Seconds())
	s.logger.Debug("Список файлов получен",
		slog.Int("total", res.Total),
		slog.Int("returned", len(res.Documents)),
		slog.String("sort", spec.EffectiveSort().String()),
		slog.Duration("duration", duration),
	)
	return res, nil
}

// Get возвращает запись файла. Сначала проверяется кэш.
func (s *FileService) Get(ctx context.Context, id string) (model.FileRecord, error) {
	if rec, ok := s.cache.Get(id); ok {
		return rec, nil
	}
	rec, err := s.reg.Get(ctx, id)
	if err != nil {
		return model.FileRecord{}, err
	}
	s.cache.Set(rec)
	return rec, nil
}

// Upload сохраняет новый файл. Имя очищается от разметки.
func (s *FileService) Upload(ctx context.Context, up registry.Upload, owner model.Owner) (model.FileRecord, error) {
	const op = "files.Upload"

	name, err := s.cleanName(op, up.Name)
	if err != nil {
		uploadsTotal.WithLabelValues("error").Inc()
		return model.FileRecord{}, err
	}
	up.Name = name

	if s.maxUpload > 0 {
		if up.Size > s.maxUpload {
			uploadsTotal.WithLabelValues("error").Inc()
			return model.FileRecord{}, model.Errorf(model.KindValidation, op,
				"размер файла %d превышает лимит %d", up.Size, s.maxUpload)
		}
		if up.Body != nil {
			up.Body = &limitedReader{r: up.Body, n: s.maxUpload, op: op}
		}
	}

	rec, err := s.reg.Create(ctx, up, owner)
	if err != nil {
		uploadsTotal.WithLabelValues("error").Inc()
		return model.FileRecord{}, err
	}

	uploadsTotal.WithLabelValues("success").Inc()
	uploadBytesTotal.Add(float64(rec.Size))
	s.cache.Set(rec)
	s.logger.Info("Файл загружен",
		slog.String("file_id", rec.ID),
		slog.String("name", rec.Name),
		slog.String("type", string(rec.Type)),
		slog.Int64("size", rec.Size),
	)
	return rec, nil
}

// Usage возвращает сводку использования хранилища.
func (s *FileService) Usage(ctx context.Context) (model.Usage, error) {
	return s.reg.Usage(ctx)
}

// cleanName превращает имя в простой текст: теги удаляются, сущности
// раскодируются обратно.
func (s *FileService) cleanName(op, name string) (string, error) {
	clean := html.UnescapeString(s.sanitizer.Sanitize(name))
	return registry.CheckName(op, clean)
}

// --- Действия над файлами ---

// Action - изменяющее действие над записью файла.
// Набор закрыт: реализации есть только в этом пакете.
type Action interface {
	// Name - имя действия для логов и метрик
	Name() string
	// Target - ID файла
	Target() string
	apply(ctx context.Context, s *FileService) error
}

// RenameAction переименовывает файл.
type RenameAction struct {
	FileID  string
	NewName string
}

// ShareAction заменяет список адресов, с которыми расшарен файл.
type ShareAction struct {
	FileID string
	Emails []string
}

// DeleteAction удаляет файл.
type DeleteAction struct {
	FileID string
}

func (RenameAction) Name() string { return "rename" }
func (ShareAction) Name() string  { return "share" }
func (DeleteAction) Name() string { return "delete" }

func (a RenameAction) Target() string { return a.FileID }
func (a ShareAction) Target() string  { return a.FileID }
func (a DeleteAction) Target() string { return a.FileID }

func (a RenameAction) apply(ctx context.Context, s *FileService) error {
	name, err := s.cleanName("files.Rename", a.NewName)
	if err != nil {
		return err
	}
	return s.reg.Rename(ctx, a.FileID, name)
}

func (a ShareAction) apply(ctx context.Context, s *FileService) error {
	emails, err := registry.NormalizeEmails("files.Share", a.Emails)
	if err != nil {
		return err
	}
	return s.reg.UpdateSharing(ctx, a.FileID, emails)
}

func (a DeleteAction) apply(ctx context.Context, s *FileService) error {
	var rec model.FileRecord
	if len(s.onDelete) > 0 {
		var err error
		if rec, err = s.Get(ctx, a.FileID); err != nil {
			return err
		}
	}
	if err := s.reg.Delete(ctx, a.FileID); err != nil {
		return err
	}
	for _, fn := range s.onDelete {
		fn(rec)
	}
	return nil
}

// Apply выполняет действие и инвалидирует кэш записи.
func (s *FileService) Apply(ctx context.Context, a Action) error {
	if strings.TrimSpace(a.Target()) == "" {
		return model.Errorf(model.KindValidation, "files."+a.Name(), "не указан ID файла")
	}

	err := a.apply(ctx, s)
	s.cache.Delete(a.Target())
	if err != nil {
		actionsTotal.WithLabelValues(a.Name(), "error").Inc()
		return err
	}

	actionsTotal.WithLabelValues(a.Name(), "success").Inc()
	s.logger.Info("Действие над файлом выполнено",
		slog.String("action", a.Name()),
		slog.String("file_id", a.Target()),
	)
	return nil
}

// limitedReader возвращает ValidationError, если содержимое длиннее n байт.
type limitedReader struct {
	r    io.Reader
	n    int64
	read int64
	op   string
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.read += int64(n)
	if l.read > l.n {
		return n, model.Errorf(model.KindValidation, l.op, "размер файла превышает лимит %d", l.n)
	}
	return n, err
}
