// Пакет registry - контракт каталога файлов.
// Реализации: mock (в памяти), remote (HTTP API провайдера),
// repository.FileRegistry (PostgreSQL + S3). Выбор - при старте процесса.
package registry

import (
	"context"
	"io"
	"net/mail"
	"strings"

	"github.com/bigkaa/goartstore/drive-module/internal/domain/model"
)

// Upload - загружаемый файл.
type Upload struct {
	// Name - исходное имя файла
	Name string
	// Size - размер в байтах
	Size int64
	// ContentType - тип, присланный клиентом (может быть пустым)
	ContentType string
	// Body - содержимое
	Body io.Reader
}

// Registry - каталог файлов.
// Ошибки - *model.Error с классами Auth, Network, Validation, NotFound.
type Registry interface {
	List(ctx context.Context, spec model.QuerySpec) (model.ListResult, error)
	Get(ctx context.Context, id string) (model.FileRecord, error)
	Create(ctx context.Context, up Upload, owner model.Owner) (model.FileRecord, error)
	Rename(ctx context.Context, id, newName string) error
	UpdateSharing(ctx context.Context, id string, emails []string) error
	Delete(ctx context.Context, id string) error
	Usage(ctx context.Context) (model.Usage, error)
}

// ContentSource - реестр, который сам хранит содержимое файлов.
type ContentSource interface {
	Content(ctx context.Context, id string) (io.ReadCloser, int64, error)
}

// NewRecord собирает запись для нового файла: расширение и категория
// выводятся из имени.
func NewRecord(id, name string, size int64, owner model.Owner) model.FileRecord {
	ext := model.ExtensionOf(name)
	return model.FileRecord{
		ID:        id,
		Name:      name,
		Extension: ext,
		Type:      model.CategoryOf(ext),
		Size:      size,
		Owner:     owner.Name,
		OwnerID:   owner.ID,
	}
}

// CheckName проверяет новое имя файла.
func CheckName(op, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", model.Errorf(model.KindValidation, op, "имя файла не может быть пустым")
	}
	if strings.ContainsAny(name, "/\\") {
		return "", model.Errorf(model.KindValidation, op, "имя файла не может содержать разделители пути")
	}
	return name, nil
}

// NormalizeEmails проверяет адреса, приводит к нижнему регистру
// и убирает дубликаты, сохраняя порядок первого появления.
func NormalizeEmails(op string, emails []string) ([]string, error) {
	out := make([]string, 0, len(emails))
	seen := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		addr, err := mail.ParseAddress(e)
		if err != nil || addr.Address != e {
			return nil, model.Errorf(model.KindValidation, op, "некорректный email %q", e)
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out, nil
}
