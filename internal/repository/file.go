package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/goartstore/drive-module/internal/domain/model"
	"github.com/bigkaa/goartstore/drive-module/internal/domain/preview"
	"github.com/bigkaa/goartstore/drive-module/internal/domain/query"
	"github.com/bigkaa/goartstore/drive-module/internal/registry"
)

// fileColumns - колонки для SELECT в порядке scanFile.
const fileColumns = `id, name, extension, category, size, created_at,
	url, bucket_file_id, owner_name, owner_id, shared_with`

// Options - параметры реестра.
type Options struct {
	// ContentBaseURL - префикс адреса содержимого: {base}/{id}/content
	ContentBaseURL string
	// Quota - квота в байтах для сводки использования
	Quota int64
}

// FileRegistry реализует registry.Registry и registry.ContentSource.
type FileRegistry struct {
	db     DBTX
	store  ObjectStore
	opts   Options
	logger *slog.Logger
}

// NewFileRegistry создаёт реестр.
func NewFileRegistry(db DBTX, store ObjectStore, opts Options, logger *slog.Logger) *FileRegistry {
	if opts.Quota <= 0 {
		opts.Quota = query.DefaultQuota
	}
	return &FileRegistry{
		db:     db,
		store:  store,
		opts:   opts,
		logger: logger.With(slog.String("component", "file_registry")),
	}
}

// List выполняет выборку в SQL: фильтр, сортировка с устойчивым
// порядком при равенстве ключей, лимит. Total считается до лимита.
func (r *FileRegistry) List(ctx context.Context, spec model.QuerySpec) (model.ListResult, error) {
	const op = "repository.List"

	where, args := buildListWhere(spec, 1)

	dataQuery := fmt.Sprintf(`SELECT %s FROM files %s %s`, fileColumns, where, buildOrderBy(spec.EffectiveSort()))
	if spec.Limit > 0 {
		dataQuery += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, spec.Limit)
	}

	rows, err := r.db.Query(ctx, dataQuery, args...)
	if err != nil {
		return model.ListResult{}, model.NewError(model.KindNetwork, op, err)
	}
	defer rows.Close()

	docs := make([]model.FileRecord, 0)
	for rows.Next() {
		rec, err := scanFile(rows)
		if err != nil {
			return model.ListResult{}, model.NewError(model.KindNetwork, op, err)
		}
		docs = append(docs, rec)
	}
	if err := rows.Err(); err != nil {
		return model.ListResult{}, model.NewError(model.KindNetwork, op, err)
	}

	countWhere, countArgs := buildListWhere(spec, 1)
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM files `+countWhere, countArgs...).Scan(&total); err != nil {
		return model.ListResult{}, model.NewError(model.KindNetwork, op, err)
	}

	return model.ListResult{Documents: docs, Total: total}, nil
}

// Get возвращает запись по id.
func (r *FileRegistry) Get(ctx context.Context, id string) (model.FileRecord, error) {
	const op = "repository.Get"

	row := r.db.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM files WHERE id = $1`, fileColumns), id)
	rec, err := scanFile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.FileRecord{}, model.Errorf(model.KindNotFound, op, "файл %s не найден", id)
	}
	if err != nil {
		return model.FileRecord{}, model.NewError(model.KindNetwork, op, err)
	}
	return rec, nil
}

// Create сохраняет содержимое в бакет и добавляет запись.
// Если запись не удалось вставить, объект удаляется.
func (r *FileRegistry) Create(ctx context.Context, up registry.Upload, owner model.Owner) (model.FileRecord, error) {
	const op = "repository.Create"

	name, err := registry.CheckName(op, up.Name)
	if err != nil {
		return model.FileRecord{}, err
	}
	if up.Body == nil {
		return model.FileRecord{}, model.Errorf(model.KindValidation, op, "пустое содержимое")
	}

	id := uuid.New().String()
	rec := registry.NewRecord(id, name, 0, owner)
	rec.BucketFileID = id
	rec.URL = strings.TrimRight(r.opts.ContentBaseURL, "/") + "/" + id + "/content"
	rec.SharedWith = []string{}

	contentType := up.ContentType
	if contentType == "" {
		contentType = preview.MIMEType(rec.Extension)
	}

	body := &countingReader{r: up.Body}
	if err := r.store.Put(ctx, rec.BucketFileID, contentType, body); err != nil {
		return model.FileRecord{}, err
	}
	rec.Size = body.n

	err = r.db.QueryRow(ctx, `
		INSERT INTO files (id, name, extension, category, size, url,
			bucket_file_id, owner_name, owner_id, shared_with)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`,
		rec.ID, rec.Name, rec.Extension, string(rec.Type), rec.Size, rec.URL,
		rec.BucketFileID, rec.Owner, rec.OwnerID, rec.SharedWith,
	).Scan(&rec.CreatedAt)
	if err != nil {
		if delErr := r.store.Delete(context.WithoutCancel(ctx), rec.BucketFileID); delErr != nil {
			r.logger.Warn("Не удалось удалить объект после ошибки вставки",
				slog.String("file_id", id),
				slog.String("error", delErr.Error()),
			)
		}
		return model.FileRecord{}, model.NewError(model.KindNetwork, op, err)
	}
	rec.CreatedAt = rec.CreatedAt.UTC()

	r.logger.Info("Файл добавлен",
		slog.String("file_id", id),
		slog.String("name", name),
		slog.Int64("size", rec.Size),
	)
	return rec, nil
}

// Rename меняет имя и расширение. Категория не пересчитывается.
func (r *FileRegistry) Rename(ctx context.Context, id, newName string) error {
	const op = "repository.Rename"

	name, err := registry.CheckName(op, newName)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `UPDATE files SET name = $2, extension = $3 WHERE id = $1`,
		id, name, model.ExtensionOf(name))
	if err != nil {
		return model.NewError(model.KindNetwork, op, err)
	}
	if tag.RowsAffected() == 0 {
		return model.Errorf(model.KindNotFound, op, "файл %s не найден", id)
	}
	return nil
}

// UpdateSharing заменяет список адресов доступа.
func (r *FileRegistry) UpdateSharing(ctx context.Context, id string, emails []string) error {
	const op = "repository.UpdateSharing"

	normalized, err := registry.NormalizeEmails(op, emails)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `UPDATE files SET shared_with = $2 WHERE id = $1`, id, normalized)
	if err != nil {
		return model.NewError(model.KindNetwork, op, err)
	}
	if tag.RowsAffected() == 0 {
		return model.Errorf(model.KindNotFound, op, "файл %s не найден", id)
	}
	return nil
}

// Delete удаляет запись, затем объект в бакете.
// Ошибка удаления объекта только логируется: запись уже удалена.
func (r *FileRegistry) Delete(ctx context.Context, id string) error {
	const op = "repository.Delete"

	var key string
	err := r.db.QueryRow(ctx, `DELETE FROM files WHERE id = $1 RETURNING bucket_file_id`, id).Scan(&key)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Errorf(model.KindNotFound, op, "файл %s не найден", id)
	}
	if err != nil {
		return model.NewError(model.KindNetwork, op, err)
	}

	if key != "" {
		if err := r.store.Delete(ctx, key); err != nil {
			r.logger.Warn("Объект не удалён из бакета",
				slog.String("file_id", id),
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// Usage считает сводку использования группировкой по категориям.
func (r *FileRegistry) Usage(ctx context.Context) (model.Usage, error) {
	const op = "repository.Usage"

	rows, err := r.db.Query(ctx, `
		SELECT category, COALESCE(SUM(size), 0)::BIGINT, MAX(created_at)
		FROM files GROUP BY category`)
	if err != nil {
		return model.Usage{}, model.NewError(model.KindNetwork, op, err)
	}
	defer rows.Close()

	usage := query.Aggregate(nil, r.opts.Quota)
	for rows.Next() {
		var (
			category string
			size     int64
			latest   *time.Time
		)
		if err := rows.Scan(&category, &size, &latest); err != nil {
			return model.Usage{}, model.NewError(model.KindNetwork, op, err)
		}
		c := model.NormalizeCategory(category)
		cu := usage.ByCategory[c]
		cu.Size += size
		if latest != nil {
			t := latest.UTC()
			if cu.Latest == nil || t.After(*cu.Latest) {
				cu.Latest = &t
			}
		}
		usage.ByCategory[c] = cu
		usage.Used += size
	}
	if err := rows.Err(); err != nil {
		return model.Usage{}, model.NewError(model.KindNetwork, op, err)
	}
	return usage, nil
}

// Content возвращает содержимое файла из бакета.
func (r *FileRegistry) Content(ctx context.Context, id string) (io.ReadCloser, int64, error) {
	const op = "repository.Content"

	var key string
	err := r.db.QueryRow(ctx, `SELECT bucket_file_id FROM files WHERE id = $1`, id).Scan(&key)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, 0, model.Errorf(model.KindNotFound, op, "файл %s не найден", id)
	}
	if err != nil {
		return nil, 0, model.NewError(model.KindNetwork, op, err)
	}
	if key == "" {
		return nil, 0, model.Errorf(model.KindNotFound, op, "у файла %s нет объекта в бакете", id)
	}
	return r.store.Get(ctx, key)
}

// scanFile сканирует строку в FileRecord.
func scanFile(row pgx.Row) (model.FileRecord, error) {
	var (
		rec      model.FileRecord
		category string
	)
	err := row.Scan(
		&rec.ID, &rec.Name, &rec.Extension, &category, &rec.Size, &rec.CreatedAt,
		&rec.URL, &rec.BucketFileID, &rec.Owner, &rec.OwnerID, &rec.SharedWith,
	)
	if err != nil {
		return model.FileRecord{}, err
	}
	rec.Type = model.NormalizeCategory(category)
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

// buildListWhere строит WHERE для выборки.
// startArg - номер первого позиционного параметра ($1, $2, ...).
func buildListWhere(spec model.QuerySpec, startArg int) (whereClause string, args []any) {
	var conditions []string
	argNum := startArg

	if len(spec.Types) > 0 {
		types := make([]string, 0, len(spec.Types))
		for _, c := range spec.Types {
			types = append(types, string(c))
		}
		conditions = append(conditions, fmt.Sprintf("category = ANY($%d)", argNum))
		args = append(args, types)
		argNum++
	}

	if spec.SearchText != "" {
		conditions = append(conditions, fmt.Sprintf(`name ILIKE $%d ESCAPE '\'`, argNum))
		args = append(args, "%"+escapeLike(spec.SearchText)+"%")
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

// escapeLike экранирует метасимволы LIKE, чтобы поиск был по подстроке.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// buildOrderBy строит ORDER BY по whitelist полей.
// seq (порядок вставки) разрешает равенство ключей в обоих направлениях.
func buildOrderBy(key model.SortKey) string {
	allowedColumns := map[model.SortField]string{
		model.SortByCreatedAt: "created_at",
		model.SortByName:      "LOWER(name)",
		model.SortBySize:      "size",
	}

	column, ok := allowedColumns[key.Field]
	if !ok {
		column = "created_at"
	}
	direction := "ASC"
	if key.Direction == model.Desc {
		direction = "DESC"
	}
	return fmt.Sprintf("ORDER BY %s %s, seq ASC", column, direction)
}

// countingReader считает прочитанные байты.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
