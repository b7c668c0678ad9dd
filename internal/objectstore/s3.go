// Пакет objectstore - хранилище содержимого файлов и построение
// адресов для его получения.
//
// S3Store работает с любым S3-совместимым хранилищем (AWS, MinIO).
// Ключ объекта - ID записи (FileRecord.BucketFileID).
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/bigkaa/goartstore/drive-module/internal/domain/model"
)

// S3Config - параметры подключения к S3.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // S3-совместимое хранилище; пусто - AWS
	AccessKeyID     string
	SecretAccessKey string
}

// S3Store - хранилище содержимого в S3 bucket.
type S3Store struct {
	client   *s3.Client
	presign  *s3.PresignClient
	uploader *manager.Uploader
	bucket   string
	logger   *slog.Logger
}

// NewS3Store создаёт клиент S3. Сетевых запросов не выполняет.
func NewS3Store(cfg S3Config, logger *slog.Logger) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("не задан S3 bucket")
	}

	var opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// MinIO требует path-style адреса
			o.UsePathStyle = true
		})
	}

	awsCfg := aws.Config{
		Region: cfg.Region,
	}
	if cfg.AccessKeyID != "" {
		awsCfg.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}

	client := s3.NewFromConfig(awsCfg, opts...)
	logger.Info("S3-хранилище настроено",
		slog.String("bucket", cfg.Bucket),
		slog.String("endpoint", cfg.Endpoint),
	)

	return &S3Store{
		client:   client,
		presign:  s3.NewPresignClient(client),
		uploader: manager.NewUploader(client),
		bucket:   cfg.Bucket,
		logger:   logger.With(slog.String("component", "s3_store")),
	}, nil
}

// Bucket возвращает имя bucket.
func (s *S3Store) Bucket() string { return s.bucket }

// Put загружает содержимое объекта. Большие файлы загружаются частями.
func (s *S3Store) Put(ctx context.Context, key, contentType string, body io.Reader) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return model.NewError(model.KindNetwork, "s3.Put", fmt.Errorf("загрузка %s: %w", key, err))
	}
	s.logger.Debug("Объект загружен", slog.String("key", key))
	return nil
}

// Get открывает объект на чтение. Вызывающий код обязан закрыть reader.
func (s *S3Store) Get(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, 0, model.Errorf(model.KindNotFound, "s3.Get", "объект %s не найден", key)
		}
		return nil, 0, model.NewError(model.KindNetwork, "s3.Get", err)
	}
	return out.Body, aws.ToInt64(out.ContentLength), nil
}

// Delete удаляет объект. Отсутствующий объект не считается ошибкой.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return model.NewError(model.KindNetwork, "s3.Delete", fmt.Errorf("удаление %s: %w", key, err))
	}
	return nil
}

// Presign возвращает подписанный GET URL объекта со сроком действия ttl.
func (s *S3Store) Presign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("подпись URL для %s: %w", key, err)
	}
	return req.URL, nil
}

// Ping проверяет доступность bucket (HeadBucket).
func (s *S3Store) Ping(ctx context.Context) error {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return fmt.Errorf("S3 bucket %s недоступен: %w", s.bucket, err)
	}
	return nil
}

// CheckReady - проверка готовности для /health/ready.
func (s *S3Store) CheckReady() (status string, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := s.Ping(ctx); err != nil {
		return "fail", err.Error()
	}
	return "ok", "bucket " + s.bucket + " доступен"
}
