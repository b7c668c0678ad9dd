// Пакет model - доменные модели Drive Module.
// FileRecord - запись каталога файлов, общая для всех реализаций реестра.
package model

import (
	"strings"
	"time"
)

// Category - категория файла, определяет режим предпросмотра.
type Category string

// Допустимые категории файлов.
const (
	CategoryImage    Category = "image"
	CategoryDocument Category = "document"
	CategoryVideo    Category = "video"
	CategoryAudio    Category = "audio"
	CategoryOther    Category = "other"
)

// Categories - все категории в порядке отображения в сводке использования.
var Categories = []Category{
	CategoryDocument,
	CategoryImage,
	CategoryVideo,
	CategoryAudio,
	CategoryOther,
}

// ParseCategory разбирает строку категории (без учёта регистра).
// ok == false для неизвестных значений.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case CategoryImage, CategoryDocument, CategoryVideo, CategoryAudio, CategoryOther:
		return c, true
	}
	return "", false
}

// NormalizeCategory приводит произвольную категорию к одной из пяти.
// Неизвестные значения внешнего реестра становятся CategoryOther.
func NormalizeCategory(s string) Category {
	if c, ok := ParseCategory(s); ok {
		return c
	}
	return CategoryOther
}

// FileRecord - запись файла в каталоге.
type FileRecord struct {
	// ID - непрозрачный уникальный идентификатор, неизменяемый
	ID string
	// Name - отображаемое имя вместе с расширением
	Name string
	// Extension - расширение в нижнем регистре (без точки)
	Extension string
	// Type - категория файла; при переименовании не пересчитывается
	Type Category
	// Size - размер в байтах
	Size int64
	// CreatedAt - время создания записи
	CreatedAt time.Time
	// URL - прямой адрес содержимого
	URL string
	// BucketFileID - идентификатор объекта в бакете (опционально)
	BucketFileID string
	// Owner - отображаемое имя владельца
	Owner string
	// OwnerID - идентификатор владельца
	OwnerID string
	// SharedWith - адреса, с которыми файл расшарен
	SharedWith []string
}

// Clone возвращает копию записи, не разделяющую SharedWith с оригиналом.
func (r FileRecord) Clone() FileRecord {
	if r.SharedWith != nil {
		r.SharedWith = append([]string(nil), r.SharedWith...)
	}
	return r
}

// Owner - владелец загружаемого файла.
type Owner struct {
	ID   string
	Name string
}

// CategoryUsage - занятое место в одной категории.
type CategoryUsage struct {
	// Size - суммарный размер в байтах
	Size int64
	// Latest - время последнего файла категории (nil, если файлов нет)
	Latest *time.Time
}

// Usage - сводка использования хранилища.
type Usage struct {
	ByCategory map[Category]CategoryUsage
	// Used - суммарный размер всех файлов
	Used int64
	// All - квота
	All int64
}

// User - пользователь, как его видит провайдер аутентификации.
type User struct {
	ID       string
	Email    string
	Username string
}
