package objectstore

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/drive-module/internal/domain/model"
)

var presignCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "dm_presign_cache_total",
	Help: "Обращения к кэшу подписанных URL (result: hit, miss).",
}, []string{"result"})

// URLBuilder строит адрес получения содержимого по BucketFileID записи.
type URLBuilder interface {
	RetrievalURL(ctx context.Context, rec model.FileRecord) (string, error)
}

// EndpointBuilder строит адрес вида
// {endpoint}/storage/buckets/{bucket}/files/{bucketFileId}/download?project={project}.
type EndpointBuilder struct {
	Endpoint string
	Bucket   string
	Project  string
}

// RetrievalURL реализует URLBuilder.
func (b EndpointBuilder) RetrievalURL(_ context.Context, rec model.FileRecord) (string, error) {
	if rec.BucketFileID == "" {
		return "", fmt.Errorf("у файла %s нет BucketFileID", rec.ID)
	}
	u := fmt.Sprintf("%s/storage/buckets/%s/files/%s/download",
		b.Endpoint, url.PathEscape(b.Bucket), url.PathEscape(rec.BucketFileID))
	if b.Project != "" {
		u += "?project=" + url.QueryEscape(b.Project)
	}
	return u, nil
}

// Presigner подписывает GET URL объекта.
type Presigner interface {
	Presign(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// PresignBuilder выдаёт подписанные S3 URL и кэширует их.
// Запись в кэше живёт половину срока подписи, поэтому выданный URL
// всегда действителен ещё минимум ttl/2.
type PresignBuilder struct {
	presigner Presigner
	ttl       time.Duration
	cache     *expirable.LRU[string, string]
	logger    *slog.Logger
}

// NewPresignBuilder создаёт построитель подписанных URL.
func NewPresignBuilder(p Presigner, ttl time.Duration, cacheSize int, logger *slog.Logger) *PresignBuilder {
	return &PresignBuilder{
		presigner: p,
		ttl:       ttl,
		cache:     expirable.NewLRU[string, string](cacheSize, nil, ttl/2),
		logger:    logger.With(slog.String("component", "presign_builder")),
	}
}

// RetrievalURL реализует URLBuilder.
func (b *PresignBuilder) RetrievalURL(ctx context.Context, rec model.FileRecord) (string, error) {
	key := rec.BucketFileID
	if key == "" {
		return "", fmt.Errorf("у файла %s нет BucketFileID", rec.ID)
	}
	if u, ok := b.cache.Get(key); ok {
		presignCacheTotal.WithLabelValues("hit").Inc()
		return u, nil
	}
	presignCacheTotal.WithLabelValues("miss").Inc()

	u, err := b.presigner.Presign(ctx, key, b.ttl)
	if err != nil {
		return "", err
	}
	b.cache.Add(key, u)
	b.logger.Debug("Подписан URL", slog.String("key", key))
	return u, nil
}

// Forget убирает URL объекта из кэша (после удаления файла).
func (b *PresignBuilder) Forget(key string) {
	b.cache.Remove(key)
}
