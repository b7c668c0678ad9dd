package remote

import (
	"time"

	"github.com/bigkaa/goartstore/drive-module/internal/domain/model"
)

// fileDTO - запись файла в формате API провайдера.
type fileDTO struct {
	ID           string    `json:"$id"`
	CreatedAt    time.Time `json:"$createdAt"`
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	Type         string    `json:"type"`
	URL          string    `json:"url"`
	Extension    string    `json:"extension"`
	BucketFileID string    `json:"bucketFileId"`
	Users        []string  `json:"users"`
	Owner        struct {
		ID       string `json:"$id"`
		FullName string `json:"fullName"`
	} `json:"owner"`
}

func (d fileDTO) toModel() model.FileRecord {
	ext := d.Extension
	if ext == "" {
		ext = model.ExtensionOf(d.Name)
	}
	size := d.Size
	if size < 0 {
		size = 0
	}
	users := d.Users
	if users == nil {
		users = []string{}
	}
	return model.FileRecord{
		ID:           d.ID,
		Name:         d.Name,
		Extension:    ext,
		Type:         model.NormalizeCategory(d.Type),
		Size:         size,
		CreatedAt:    d.CreatedAt,
		URL:          d.URL,
		BucketFileID: d.BucketFileID,
		Owner:        d.Owner.FullName,
		OwnerID:      d.Owner.ID,
		SharedWith:   users,
	}
}

type listResponse struct {
	Documents []fileDTO `json:"documents"`
	Total     int       `json:"total"`
}

type categoryStats struct {
	Size       int64      `json:"size"`
	LatestDate *time.Time `json:"latestDate"`
}

// statsResponse - сводка использования: по ключу на категорию, плюс used и all.
type statsResponse struct {
	Image    categoryStats `json:"image"`
	Document categoryStats `json:"document"`
	Video    categoryStats `json:"video"`
	Audio    categoryStats `json:"audio"`
	Other    categoryStats `json:"other"`
	Used     int64         `json:"used"`
	All      int64         `json:"all"`
}

func (s statsResponse) toModel() model.Usage {
	return model.Usage{
		ByCategory: map[model.Category]model.CategoryUsage{
			model.CategoryImage:    {Size: s.Image.Size, Latest: s.Image.LatestDate},
			model.CategoryDocument: {Size: s.Document.Size, Latest: s.Document.LatestDate},
			model.CategoryVideo:    {Size: s.Video.Size, Latest: s.Video.LatestDate},
			model.CategoryAudio:    {Size: s.Audio.Size, Latest: s.Audio.LatestDate},
			model.CategoryOther:    {Size: s.Other.Size, Latest: s.Other.LatestDate},
		},
		Used: s.Used,
		All:  s.All,
	}
}
