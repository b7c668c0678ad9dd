// Пакет service - бизнес-логика Drive Module.
// RecordCache - LRU-кэш записей файлов с TTL поверх
// hashicorp/golang-lru/v2/expirable.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/drive-module/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dm_cache_hits_total",
		Help: "Общее количество попаданий в кэш записей файлов.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dm_cache_misses_total",
		Help: "Общее количество промахов кэша записей файлов.",
	})
)

// RecordCache - кэш записей по ID. Хранит копии: вызывающий код
// может свободно менять полученную запись.
type RecordCache struct {
	cache *expirable.LRU[string, model.FileRecord]
}

// NewRecordCache создаёт кэш на maxSize записей с временем жизни ttl.
func NewRecordCache(maxSize int, ttl time.Duration) *RecordCache {
	return &RecordCache{cache: expirable.NewLRU[string, model.FileRecord](maxSize, nil, ttl)}
}

// Get возвращает запись из кэша.
func (c *RecordCache) Get(id string) (model.FileRecord, bool) {
	rec, ok := c.cache.Get(id)
	if !ok {
		cacheMissesTotal.Inc()
		return model.FileRecord{}, false
	}
	cacheHitsTotal.Inc()
	return rec.Clone(), true
}

// Set добавляет или обновляет запись.
func (c *RecordCache) Set(rec model.FileRecord) {
	c.cache.Add(rec.ID, rec.Clone())
}

// Delete удаляет запись (инвалидация после изменения).
func (c *RecordCache) Delete(id string) {
	c.cache.Remove(id)
}

// Purge очищает кэш.
func (c *RecordCache) Purge() {
	c.cache.Purge()
}

// Len возвращает число записей.
func (c *RecordCache) Len() int {
	return c.cache.Len()
}
