package registry

import (
	"errors"
	"slices"
	"testing"

	"github.com/bigkaa/goartstore/drive-module/internal/domain/model"
)

func TestNewRecord(t *testing.T) {
	r := NewRecord("id-1", "Holiday.JPG", 42, model.Owner{ID: "u1", Name: "John Doe"})
	if r.Extension != "jpg" {
		t.Errorf("Extension = %q, ожидается jpg", r.Extension)
	}
	if r.Type != model.CategoryImage {
		t.Errorf("Type = %q, ожидается image", r.Type)
	}
	if r.Owner != "John Doe" || r.OwnerID != "u1" {
		t.Errorf("Owner = %q/%q", r.Owner, r.OwnerID)
	}
}

func TestCheckName(t *testing.T) {
	name, err := CheckName("op", "  report.pdf ")
	if err != nil || name != "report.pdf" {
		t.Errorf("CheckName = %q, %v", name, err)
	}
	for _, bad := range []string{"", "   ", "a/b.txt", `a\b.txt`} {
		if _, err := CheckName("op", bad); !errors.Is(err, model.ErrValidation) {
			t.Errorf("CheckName(%q): ожидается ErrValidation, получено %v", bad, err)
		}
	}
}

func TestNormalizeEmails(t *testing.T) {
	got, err := NormalizeEmails("op", []string{"Bob@Example.com", "", "alice@example.com", "bob@example.com"})
	if err != nil {
		t.Fatalf("NormalizeEmails ошибка: %v", err)
	}
	want := []string{"bob@example.com", "alice@example.com"}
	if !slices.Equal(got, want) {
		t.Errorf("NormalizeEmails = %v, ожидается %v", got, want)
	}

	if _, err := NormalizeEmails("op", []string{"not-an-email"}); !errors.Is(err, model.ErrValidation) {
		t.Errorf("ожидается ErrValidation, получено %v", err)
	}
	if _, err := NormalizeEmails("op", []string{"Bob <bob@example.com>"}); !errors.Is(err, model.ErrValidation) {
		t.Errorf("адрес с именем должен отклоняться, получено %v", err)
	}
}
