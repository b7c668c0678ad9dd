// download.go - материализация содержимого файла для сохранения.
//
// Pipeline: адрес получения (endpoint хранилища / подписанный S3 URL / URL записи)
// → загрузка байтов → MIME по расширению → временный файл → Saver.
// При любой ошибке адрес открывается через Viewer. Download ошибок не возвращает.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/drive-module/internal/domain/model"
	"github.com/bigkaa/goartstore/drive-module/internal/domain/preview"
	"github.com/bigkaa/goartstore/drive-module/internal/objectstore"
)

// Prometheus-метрики скачивания.
var (
	downloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dm_downloads_total",
		Help: "Количество скачиваний по исходу (saved, fallback_opened, fallback_failed).",
	}, []string{"outcome"})

	downloadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dm_download_duration_seconds",
		Help:    "Длительность скачивания от запроса до передачи Saver.",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	})

	downloadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dm_download_bytes_total",
		Help: "Общее количество материализованных байт.",
	})

	activeBlobs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dm_active_download_blobs",
		Help: "Количество ещё не освобождённых временных файлов скачивания.",
	})
)

// Outcome - исход скачивания.
type Outcome string

const (
	OutcomeSaved          Outcome = "saved"
	OutcomeFallbackOpened Outcome = "fallback_opened"
	OutcomeFallbackFailed Outcome = "fallback_failed"
)

// Fetcher загружает содержимое по адресу. Реализуется contentclient.Client.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (io.ReadCloser, int64, error)
}

// Saver передаёт материализованный blob пользователю.
type Saver interface {
	Save(ctx context.Context, blob *Blob, filename string) error
}

// Viewer открывает адрес в новом контексте просмотра (резервный путь).
type Viewer interface {
	Open(ctx context.Context, rawURL string) error
}

// Blob - временный локальный файл с содержимым и MIME-типом.
type Blob struct {
	file     *os.File
	mimeType string
	size     int64
	modTime  time.Time
}

// MIMEType возвращает тип содержимого, выведенный из расширения.
func (b *Blob) MIMEType() string { return b.mimeType }

// Size возвращает размер в байтах.
func (b *Blob) Size() int64 { return b.size }

// ModTime возвращает время материализации.
func (b *Blob) ModTime() time.Time { return b.modTime }

// Path возвращает путь временного файла.
func (b *Blob) Path() string { return b.file.Name() }

// Reader возвращает содержимое с начала.
func (b *Blob) Reader() (io.ReadSeeker, error) {
	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return b.file, nil
}

func (b *Blob) release() error {
	closeErr := b.file.Close()
	removeErr := os.Remove(b.file.Name())
	activeBlobs.Dec()
	if removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
		return removeErr
	}
	if closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
		return closeErr
	}
	return nil
}

// ResolverOptions - параметры Resolver.
type ResolverOptions struct {
	// Builder строит адрес по BucketFileID (nil - всегда URL записи)
	Builder objectstore.URLBuilder
	// TmpDir - каталог временных файлов (пусто - os.TempDir)
	TmpDir string
	// ReleaseDelay - задержка освобождения blob после передачи Saver
	ReleaseDelay time.Duration
	// Timeout - таймаут загрузки содержимого (0 - без таймаута)
	Timeout time.Duration
}

// Resolver выполняет скачивание файлов с резервным открытием адреса.
type Resolver struct {
	fetcher Fetcher
	opts    ResolverOptions
	pending sync.WaitGroup
	logger  *slog.Logger
}

// NewResolver создаёт Resolver.
func NewResolver(fetcher Fetcher, opts ResolverOptions, logger *slog.Logger) *Resolver {
	return &Resolver{
		fetcher: fetcher,
		opts:    opts,
		logger:  logger.With(slog.String("component", "download_resolver")),
	}
}

// RetrievalURL возвращает адрес получения содержимого записи.
// Ошибка построителя логируется, используется URL записи.
func (r *Resolver) RetrievalURL(ctx context.Context, rec model.FileRecord) string {
	if rec.BucketFileID == "" || r.opts.Builder == nil {
		return rec.URL
	}
	u, err := r.opts.Builder.RetrievalURL(ctx, rec)
	if err != nil {
		r.logger.Warn("Не удалось построить адрес получения, используется URL записи",
			slog.String("file_id", rec.ID),
			slog.String("error", err.Error()),
		)
		return rec.URL
	}
	return u
}

// Download материализует содержимое и передаёт его saver.
// При ошибке на любом шаге вызывается viewer.Open с адресом получения;
// ошибка viewer только логируется.
func (r *Resolver) Download(ctx context.Context, rec model.FileRecord, saver Saver, viewer Viewer) Outcome {
	start := time.Now()
	url := r.RetrievalURL(ctx, rec)

	err := r.save(ctx, rec, url, saver)
	if err == nil {
		downloadsTotal.WithLabelValues(string(OutcomeSaved)).Inc()
		downloadDuration.Observe(time.Since(start).Seconds())
		r.logger.Debug("Файл передан на сохранение",
			slog.String("file_id", rec.ID),
			slog.Duration("duration", time.Since(start)),
		)
		return OutcomeSaved
	}

	r.logger.Warn("Скачивание не удалось, открываем адрес напрямую",
		slog.String("file_id", rec.ID),
		slog.String("error", err.Error()),
	)
	if openErr := viewer.Open(ctx, url); openErr != nil {
		r.logger.Error("Резервное открытие не удалось",
			slog.String("file_id", rec.ID),
			slog.String("error", openErr.Error()),
		)
		downloadsTotal.WithLabelValues(string(OutcomeFallbackFailed)).Inc()
		return OutcomeFallbackFailed
	}
	downloadsTotal.WithLabelValues(string(OutcomeFallbackOpened)).Inc()
	return OutcomeFallbackOpened
}

// Wait ожидает освобождения всех отложенных blob.
func (r *Resolver) Wait() {
	r.pending.Wait()
}

func (r *Resolver) save(ctx context.Context, rec model.FileRecord, url string, saver Saver) error {
	if url == "" {
		return fmt.Errorf("у файла %s нет адреса содержимого", rec.ID)
	}

	blob, err := r.materialize(ctx, url, rec.Extension)
	if err != nil {
		return err
	}
	defer r.release(blob)

	if err := saver.Save(ctx, blob, rec.Name); err != nil {
		return fmt.Errorf("сохранение: %w", err)
	}
	return nil
}

func (r *Resolver) materialize(ctx context.Context, url, extension string) (*Blob, error) {
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	body, _, err := r.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	f, err := os.CreateTemp(r.opts.TmpDir, "drive-download-*")
	if err != nil {
		return nil, fmt.Errorf("создание временного файла: %w", err)
	}
	activeBlobs.Inc()
	blob := &Blob{file: f, mimeType: preview.MIMEType(extension), modTime: time.Now()}

	n, err := io.Copy(f, body)
	if err != nil {
		_ = blob.release()
		return nil, model.NewError(model.KindNetwork, "download.Materialize", err)
	}
	blob.size = n
	downloadBytesTotal.Add(float64(n))
	return blob, nil
}

// release освобождает blob сразу или после ReleaseDelay.
func (r *Resolver) release(blob *Blob) {
	if r.opts.ReleaseDelay <= 0 {
		r.releaseNow(blob)
		return
	}
	r.pending.Add(1)
	time.AfterFunc(r.opts.ReleaseDelay, func() {
		defer r.pending.Done()
		r.releaseNow(blob)
	})
}

func (r *Resolver) releaseNow(blob *Blob) {
	if err := blob.release(); err != nil {
		r.logger.Error("Ошибка освобождения временного файла",
			slog.String("path", blob.Path()),
			slog.String("error", err.Error()),
		)
	}
}
