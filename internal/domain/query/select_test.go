package query

import (
	"slices"
	"testing"
	"time"

	"github.com/bigkaa/goartstore/drive-module/internal/domain/model"
)

var (
	t1 = time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	t2 = t1.Add(time.Hour)
	t3 = t2.Add(time.Hour)
)

// scenario - каталог из трёх файлов: a.pdf, b.jpg, c.mp4.
func scenario() []model.FileRecord {
	return []model.FileRecord{
		{ID: "a", Name: "a.pdf", Extension: "pdf", Type: model.CategoryDocument, Size: 100, CreatedAt: t1},
		{ID: "b", Name: "b.jpg", Extension: "jpg", Type: model.CategoryImage, Size: 50, CreatedAt: t2},
		{ID: "c", Name: "c.mp4", Extension: "mp4", Type: model.CategoryVideo, Size: 200, CreatedAt: t3},
	}
}

func ids(records []model.FileRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestSelect_SizeDesc(t *testing.T) {
	got := ids(Select(scenario(), model.QuerySpec{Sort: model.SortKey{Field: model.SortBySize, Direction: model.Desc}}))
	want := []string{"c", "a", "b"}
	if !slices.Equal(got, want) {
		t.Errorf("size-desc = %v, ожидается %v", got, want)
	}
}

func TestSelect_TypesFilter(t *testing.T) {
	spec := model.QuerySpec{Types: []model.Category{model.CategoryImage, model.CategoryVideo}}
	got := ids(Select(scenario(), spec))
	want := []string{"c", "b"}
	if !slices.Equal(got, want) {
		t.Errorf("types{image,video} = %v, ожидается %v", got, want)
	}
	for _, r := range Select(scenario(), spec) {
		if !slices.Contains(spec.Types, r.Type) {
			t.Errorf("запись %s с категорией %s не входит в фильтр", r.ID, r.Type)
		}
	}
}

func TestSelect_Search(t *testing.T) {
	got := ids(Select(scenario(), model.QuerySpec{SearchText: "a"}))
	if !slices.Equal(got, []string{"a"}) {
		t.Errorf("search \"a\" = %v, ожидается [a]", got)
	}

	got = ids(Select(scenario(), model.QuerySpec{SearchText: "MP4"}))
	if !slices.Equal(got, []string{"c"}) {
		t.Errorf("search \"MP4\" = %v, ожидается [c] (без учёта регистра)", got)
	}
}

func TestSelect_DefaultSortIsCreatedAtDesc(t *testing.T) {
	got := ids(Select(scenario(), model.QuerySpec{}))
	want := []string{"c", "b", "a"}
	if !slices.Equal(got, want) {
		t.Errorf("сортировка по умолчанию = %v, ожидается %v", got, want)
	}
}

func TestSelect_CreatedAtAsc(t *testing.T) {
	got := ids(Select(scenario(), model.QuerySpec{Sort: model.SortKey{Field: model.SortByCreatedAt, Direction: model.Asc}}))
	want := []string{"a", "b", "c"}
	if !slices.Equal(got, want) {
		t.Errorf("createdAt-asc = %v, ожидается %v", got, want)
	}
}

func TestSelect_NameCollation(t *testing.T) {
	records := []model.FileRecord{
		{ID: "1", Name: "beta.txt"},
		{ID: "2", Name: "Alpha.txt"},
		{ID: "3", Name: "éclair.txt"},
		{ID: "4", Name: "zeta.txt"},
	}
	got := ids(Select(records, model.QuerySpec{Sort: model.SortKey{Field: model.SortByName, Direction: model.Asc}}))
	want := []string{"2", "1", "3", "4"}
	if !slices.Equal(got, want) {
		t.Errorf("name-asc = %v, ожидается %v", got, want)
	}

	got = ids(Select(records, model.QuerySpec{Sort: model.SortKey{Field: model.SortByName, Direction: model.Desc}}))
	slices.Reverse(want)
	if !slices.Equal(got, want) {
		t.Errorf("name-desc = %v, ожидается %v", got, want)
	}
}

// TestSelect_Stable проверяет, что записи с равным ключом сохраняют порядок.
func TestSelect_Stable(t *testing.T) {
	records := []model.FileRecord{
		{ID: "x", Size: 10},
		{ID: "y", Size: 5},
		{ID: "z", Size: 10},
		{ID: "w", Size: 10},
	}
	for _, dir := range []model.SortDirection{model.Asc, model.Desc} {
		got := ids(Select(records, model.QuerySpec{Sort: model.SortKey{Field: model.SortBySize, Direction: dir}}))
		var equal []string
		for _, id := range got {
			if id != "y" {
				equal = append(equal, id)
			}
		}
		if !slices.Equal(equal, []string{"x", "z", "w"}) {
			t.Errorf("%s: равные ключи в порядке %v, ожидается [x z w]", dir, equal)
		}
	}
}

func TestSelect_Limit(t *testing.T) {
	spec := model.QuerySpec{Sort: model.SortKey{Field: model.SortBySize, Direction: model.Asc}, Limit: 2}
	got := ids(Select(scenario(), spec))
	if !slices.Equal(got, []string{"b", "a"}) {
		t.Errorf("limit 2 = %v, ожидается [b a]", got)
	}
	if n := Count(scenario(), spec); n != 3 {
		t.Errorf("Count = %d, ожидается 3 (до лимита)", n)
	}
}

// TestSelect_Permutation проверяет, что без фильтров результат - перестановка входа.
func TestSelect_Permutation(t *testing.T) {
	in := scenario()
	got := ids(Select(in, model.QuerySpec{Sort: model.SortKey{Field: model.SortByName, Direction: model.Desc}}))
	want := ids(in)
	slices.Sort(got)
	slices.Sort(want)
	if !slices.Equal(got, want) {
		t.Errorf("результат %v не является перестановкой %v", got, want)
	}
}

func TestSelect_Idempotent(t *testing.T) {
	specs := []model.QuerySpec{
		{},
		{Types: []model.Category{model.CategoryImage, model.CategoryDocument}},
		{SearchText: "c", Sort: model.SortKey{Field: model.SortBySize, Direction: model.Asc}},
		{Sort: model.SortKey{Field: model.SortByName, Direction: model.Desc}},
	}
	for i, spec := range specs {
		once := Select(scenario(), spec)
		twice := Select(once, spec)
		if !slices.Equal(ids(once), ids(twice)) {
			t.Errorf("spec #%d: Select(Select(R)) = %v, ожидается %v", i, ids(twice), ids(once))
		}
	}
}

func TestSelect_DoesNotMutateInput(t *testing.T) {
	in := scenario()
	before := ids(in)
	_ = Select(in, model.QuerySpec{Sort: model.SortKey{Field: model.SortBySize, Direction: model.Desc}})
	if !slices.Equal(ids(in), before) {
		t.Errorf("входной срез изменён: %v, было %v", ids(in), before)
	}
}

func TestNew_InvalidLocale(t *testing.T) {
	p := New("not a locale!!")
	got := ids(p.Select(scenario(), model.QuerySpec{Sort: model.SortKey{Field: model.SortByName, Direction: model.Asc}}))
	if !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("name-asc = %v, ожидается [a b c]", got)
	}
}

func TestAggregate(t *testing.T) {
	records := append(scenario(), model.FileRecord{
		ID: "d", Name: "d.png", Type: model.CategoryImage, Size: 25, CreatedAt: t3.Add(time.Hour),
	})
	u := Aggregate(records, DefaultQuota)

	if u.Used != 375 {
		t.Errorf("Used = %d, ожидается 375", u.Used)
	}
	if u.All != DefaultQuota {
		t.Errorf("All = %d, ожидается %d", u.All, DefaultQuota)
	}
	img := u.ByCategory[model.CategoryImage]
	if img.Size != 75 {
		t.Errorf("image.Size = %d, ожидается 75", img.Size)
	}
	if img.Latest == nil || !img.Latest.Equal(t3.Add(time.Hour)) {
		t.Errorf("image.Latest = %v, ожидается %v", img.Latest, t3.Add(time.Hour))
	}
	if audio := u.ByCategory[model.CategoryAudio]; audio.Size != 0 || audio.Latest != nil {
		t.Errorf("audio = %+v, ожидается пустая категория", audio)
	}
	if latest := LatestOf(u); latest == nil || !latest.Equal(t3.Add(time.Hour)) {
		t.Errorf("LatestOf = %v", latest)
	}
}
