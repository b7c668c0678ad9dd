package handlers

import (
	"time"

	"github.com/bigkaa/goartstore/drive-module/internal/domain/model"
)

type fileDTO struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Extension    string    `json:"extension"`
	Type         string    `json:"type"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"created_at"`
	URL          string    `json:"url"`
	BucketFileID string    `json:"bucket_file_id,omitempty"`
	Owner        string    `json:"owner"`
	OwnerID      string    `json:"owner_id,omitempty"`
	SharedWith   []string  `json:"shared_with"`
}

func toFileDTO(r model.FileRecord) fileDTO {
	shared := r.SharedWith
	if shared == nil {
		shared = []string{}
	}
	return fileDTO{
		ID:           r.ID,
		Name:         r.Name,
		Extension:    r.Extension,
		Type:         string(r.Type),
		Size:         r.Size,
		CreatedAt:    r.CreatedAt,
		URL:          r.URL,
		BucketFileID: r.BucketFileID,
		Owner:        r.Owner,
		OwnerID:      r.OwnerID,
		SharedWith:   shared,
	}
}

type fileListDTO struct {
	Documents []fileDTO `json:"documents"`
	Total     int       `json:"total"`
}

type categoryUsageDTO struct {
	Size       int64      `json:"size"`
	LatestDate *time.Time `json:"latest_date"`
}

type usageDTO struct {
	Document categoryUsageDTO `json:"document"`
	Image    categoryUsageDTO `json:"image"`
	Video    categoryUsageDTO `json:"video"`
	Audio    categoryUsageDTO `json:"audio"`
	Other    categoryUsageDTO `json:"other"`
	Used     int64            `json:"used"`
	All      int64            `json:"all"`
}

func toUsageDTO(u model.Usage) usageDTO {
	cat := func(c model.Category) categoryUsageDTO {
		cu := u.ByCategory[c]
		return categoryUsageDTO{Size: cu.Size, LatestDate: cu.Latest}
	}
	return usageDTO{
		Document: cat(model.CategoryDocument),
		Image:    cat(model.CategoryImage),
		Video:    cat(model.CategoryVideo),
		Audio:    cat(model.CategoryAudio),
		Other:    cat(model.CategoryOther),
		Used:     u.Used,
		All:      u.All,
	}
}

type zoomDTO struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Step    float64 `json:"step"`
	Initial float64 `json:"initial"`
}

type previewDTO struct {
	Mode     string  `json:"mode"`
	MIMEType string  `json:"mime_type"`
	URL      string  `json:"url"`
	Zoom     zoomDTO `json:"zoom"`
}

type userDTO struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

func toUserDTO(u model.User) userDTO {
	return userDTO{ID: u.ID, Email: u.Email, Username: u.Username}
}
