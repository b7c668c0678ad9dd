package model

import "strings"

// ExtensionOf возвращает расширение имени в нижнем регистре.
// Пустая строка, если точки нет или единственная точка в начале имени.
func ExtensionOf(name string) string {
	idx := strings.LastIndexByte(name, '.')
	if idx <= 0 || idx == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[idx+1:])
}

var extensionCategories = map[string]Category{
	"jpg":  CategoryImage,
	"jpeg": CategoryImage,
	"png":  CategoryImage,
	"gif":  CategoryImage,
	"bmp":  CategoryImage,
	"svg":  CategoryImage,
	"webp": CategoryImage,

	"pdf":  CategoryDocument,
	"doc":  CategoryDocument,
	"docx": CategoryDocument,
	"txt":  CategoryDocument,
	"xls":  CategoryDocument,
	"xlsx": CategoryDocument,
	"csv":  CategoryDocument,
	"rtf":  CategoryDocument,
	"ods":  CategoryDocument,
	"ppt":  CategoryDocument,
	"pptx": CategoryDocument,
	"odp":  CategoryDocument,
	"md":   CategoryDocument,
	"html": CategoryDocument,
	"htm":  CategoryDocument,
	"epub": CategoryDocument,

	"mp4":  CategoryVideo,
	"avi":  CategoryVideo,
	"mov":  CategoryVideo,
	"mkv":  CategoryVideo,
	"webm": CategoryVideo,

	"mp3":  CategoryAudio,
	"wav":  CategoryAudio,
	"ogg":  CategoryAudio,
	"flac": CategoryAudio,
	"m4a":  CategoryAudio,
	"aac":  CategoryAudio,
}

// CategoryOf определяет категорию по расширению.
func CategoryOf(extension string) Category {
	ext := strings.ToLower(strings.TrimPrefix(extension, "."))
	if c, ok := extensionCategories[ext]; ok {
		return c
	}
	return CategoryOther
}
