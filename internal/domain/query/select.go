// Пакет query - конвейер выборки из каталога файлов.
// Чистые функции: фильтр по категориям и подстроке имени, устойчивая
// сортировка, лимит. Используются mock-реестром и сервисным слоем.
package query

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/bigkaa/goartstore/drive-module/internal/domain/model"
)

// Pipeline - конвейер выборки с локалью для сравнения имён.
type Pipeline struct {
	tag language.Tag
}

// New создаёт конвейер для указанной локали (BCP 47).
// Некорректная локаль заменяется на английскую.
func New(locale string) *Pipeline {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return &Pipeline{tag: tag}
}

// Default - конвейер с английской локалью.
var Default = New("en")

// Select применяет фильтр, сортировку и лимит к записям.
// Входной срез не изменяется.
func Select(records []model.FileRecord, spec model.QuerySpec) []model.FileRecord {
	return Default.Select(records, spec)
}

// Count возвращает количество записей, проходящих фильтр.
func Count(records []model.FileRecord, spec model.QuerySpec) int {
	n := 0
	for i := range records {
		if matches(&records[i], spec) {
			n++
		}
	}
	return n
}

// Select применяет фильтр, сортировку и лимит к записям.
func (p *Pipeline) Select(records []model.FileRecord, spec model.QuerySpec) []model.FileRecord {
	out := make([]model.FileRecord, 0, len(records))
	for i := range records {
		if matches(&records[i], spec) {
			out = append(out, records[i])
		}
	}

	slices.SortStableFunc(out, p.comparator(spec.EffectiveSort()))

	if spec.Limit > 0 && len(out) > spec.Limit {
		out = out[:spec.Limit]
	}
	return out
}

func matches(r *model.FileRecord, spec model.QuerySpec) bool {
	if len(spec.Types) > 0 && !slices.Contains(spec.Types, r.Type) {
		return false
	}
	if spec.SearchText != "" &&
		!strings.Contains(strings.ToLower(r.Name), strings.ToLower(spec.SearchText)) {
		return false
	}
	return true
}

// comparator возвращает функцию сравнения для ключа.
// Collator не потокобезопасен, поэтому создаётся на каждый вызов Select.
func (p *Pipeline) comparator(key model.SortKey) func(a, b model.FileRecord) int {
	var base func(a, b model.FileRecord) int
	switch key.Field {
	case model.SortByName:
		col := collate.New(p.tag, collate.IgnoreCase)
		base = func(a, b model.FileRecord) int {
			return col.CompareString(a.Name, b.Name)
		}
	case model.SortBySize:
		base = func(a, b model.FileRecord) int {
			return cmp.Compare(a.Size, b.Size)
		}
	default:
		base = func(a, b model.FileRecord) int {
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	}

	if key.Direction == model.Desc {
		return func(a, b model.FileRecord) int {
			return -base(a, b)
		}
	}
	return base
}
