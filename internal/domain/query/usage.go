package query

import (
	"time"

	"github.com/bigkaa/goartstore/drive-module/internal/domain/model"
)

// DefaultQuota - квота по умолчанию, 2 GiB.
const DefaultQuota int64 = 2 * 1024 * 1024 * 1024

// Aggregate считает сводку использования: размер и время последнего файла
// по каждой категории, общий объём и квоту.
func Aggregate(records []model.FileRecord, quota int64) model.Usage {
	usage := model.Usage{
		ByCategory: make(map[model.Category]model.CategoryUsage, len(model.Categories)),
		All:        quota,
	}
	for _, c := range model.Categories {
		usage.ByCategory[c] = model.CategoryUsage{}
	}

	for i := range records {
		r := &records[i]
		c := model.NormalizeCategory(string(r.Type))
		cu := usage.ByCategory[c]
		cu.Size += r.Size
		if cu.Latest == nil || r.CreatedAt.After(*cu.Latest) {
			t := r.CreatedAt
			cu.Latest = &t
		}
		usage.ByCategory[c] = cu
		usage.Used += r.Size
	}
	return usage
}

// LatestOf возвращает время последнего файла среди всех категорий.
func LatestOf(u model.Usage) *time.Time {
	var latest *time.Time
	for _, cu := range u.ByCategory {
		if cu.Latest != nil && (latest == nil || cu.Latest.After(*latest)) {
			latest = cu.Latest
		}
	}
	return latest
}
