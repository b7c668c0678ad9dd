// Пакет preview - выбор режима предпросмотра и MIME-типа содержимого.
package preview

import (
	"strings"

	"github.com/bigkaa/goartstore/drive-module/internal/domain/model"
)

// Mode - режим предпросмотра.
type Mode string

const (
	ModeImage    Mode = "image"
	ModeVideo    Mode = "video"
	ModeAudio    Mode = "audio"
	ModeDocument Mode = "document"
	ModeFallback Mode = "fallback"
)

// Classify выбирает режим по категории файла.
// Зависит только от категории: имя и расширение не учитываются.
func Classify(c model.Category) Mode {
	switch c {
	case model.CategoryImage:
		return ModeImage
	case model.CategoryVideo:
		return ModeVideo
	case model.CategoryAudio:
		return ModeAudio
	case model.CategoryDocument:
		return ModeDocument
	default:
		return ModeFallback
	}
}

// DefaultMIMEType - тип для неизвестных расширений.
const DefaultMIMEType = "application/octet-stream"

var mimeTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"svg":  "image/svg+xml",
	"pdf":  "application/pdf",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"txt":  "text/plain",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"ppt":  "application/vnd.ms-powerpoint",
	"pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"mp4":  "video/mp4",
	"avi":  "video/x-msvideo",
	"mov":  "video/quicktime",
	"mkv":  "video/x-matroska",
	"webm": "video/webm",
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"ogg":  "audio/ogg",
	"flac": "audio/flac",
}

// MIMEType возвращает MIME-тип по расширению (без учёта регистра,
// ведущая точка допускается). Неизвестное расширение - DefaultMIMEType.
func MIMEType(extension string) string {
	ext := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(extension), "."))
	if t, ok := mimeTypes[ext]; ok {
		return t
	}
	return DefaultMIMEType
}
