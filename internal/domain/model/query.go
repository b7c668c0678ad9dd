package model

import (
	"fmt"
	"strings"
)

// SortField - поле сортировки.
type SortField string

const (
	SortByCreatedAt SortField = "createdAt"
	SortByName      SortField = "name"
	SortBySize      SortField = "size"
)

// SortDirection - направление сортировки.
type SortDirection string

const (
	Asc  SortDirection = "asc"
	Desc SortDirection = "desc"
)

// SortKey - ключ сортировки: поле и направление.
type SortKey struct {
	Field     SortField
	Direction SortDirection
}

// DefaultSort - сортировка по умолчанию: сначала новые.
var DefaultSort = SortKey{Field: SortByCreatedAt, Direction: Desc}

// String возвращает ключ в формате "field-direction".
func (k SortKey) String() string {
	return string(k.Field) + "-" + string(k.Direction)
}

// IsZero сообщает, что ключ не задан.
func (k SortKey) IsZero() bool {
	return k.Field == "" && k.Direction == ""
}

// ParseSortKey разбирает ключ сортировки.
// Допускается ведущий "$" ("$createdAt-desc"), как его пишет провайдер.
// Пустая строка даёт DefaultSort.
func ParseSortKey(s string) (SortKey, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "$")
	if s == "" {
		return DefaultSort, nil
	}

	field, dir, ok := strings.Cut(s, "-")
	if !ok {
		return SortKey{}, fmt.Errorf("некорректный ключ сортировки %q", s)
	}

	key := SortKey{Field: SortField(field), Direction: SortDirection(dir)}
	switch key.Field {
	case SortByCreatedAt, SortByName, SortBySize:
	default:
		return SortKey{}, fmt.Errorf("неизвестное поле сортировки %q", field)
	}
	switch key.Direction {
	case Asc, Desc:
	default:
		return SortKey{}, fmt.Errorf("неизвестное направление сортировки %q", dir)
	}
	return key, nil
}

// QuerySpec - параметры выборки из каталога.
// Живёт в пределах одного запроса.
type QuerySpec struct {
	// Types - допустимые категории (пусто - все)
	Types []Category
	// SearchText - подстрока имени без учёта регистра (пусто - без фильтра)
	SearchText string
	// Sort - ключ сортировки (нулевой - DefaultSort)
	Sort SortKey
	// Limit - максимум записей после сортировки (0 - без ограничения)
	Limit int
}

// EffectiveSort возвращает ключ сортировки с учётом значения по умолчанию.
func (q QuerySpec) EffectiveSort() SortKey {
	if q.Sort.IsZero() {
		return DefaultSort
	}
	return q.Sort
}

// ListResult - результат выборки.
type ListResult struct {
	// Documents - записи после фильтра, сортировки и лимита
	Documents []FileRecord
	// Total - количество совпадений до применения лимита
	Total int
}
