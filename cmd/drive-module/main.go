// Точка входа Drive Module - файловое хранилище для браузерного клиента.
// Загружает конфигурацию, выбирает реализации реестра файлов и провайдера
// аутентификации по режимам (mock, remote, postgres), собирает сервисный
// слой и API handlers, запускает topologymetrics и HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/bigkaa/goartstore/drive-module/internal/api/handlers"
	"github.com/bigkaa/goartstore/drive-module/internal/api/middleware"
	"github.com/bigkaa/goartstore/drive-module/internal/api/openapi"
	"github.com/bigkaa/goartstore/drive-module/internal/auth"
	"github.com/bigkaa/goartstore/drive-module/internal/config"
	"github.com/bigkaa/goartstore/drive-module/internal/contentclient"
	"github.com/bigkaa/goartstore/drive-module/internal/database"
	"github.com/bigkaa/goartstore/drive-module/internal/domain/model"
	"github.com/bigkaa/goartstore/drive-module/internal/domain/query"
	"github.com/bigkaa/goartstore/drive-module/internal/httpclient"
	"github.com/bigkaa/goartstore/drive-module/internal/objectstore"
	"github.com/bigkaa/goartstore/drive-module/internal/registry"
	"github.com/bigkaa/goartstore/drive-module/internal/registry/mock"
	"github.com/bigkaa/goartstore/drive-module/internal/registry/remote"
	"github.com/bigkaa/goartstore/drive-module/internal/repository"
	"github.com/bigkaa/goartstore/drive-module/internal/server"
	"github.com/bigkaa/goartstore/drive-module/internal/service"
	uihandlers "github.com/bigkaa/goartstore/drive-module/internal/ui/handlers"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Drive Module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("registry_mode", cfg.RegistryMode),
		slog.String("auth_mode", cfg.AuthMode),
	)

	if cfg.AuthMode == config.AuthMock && cfg.SessionKey == "" {
		logger.Warn("DM_SESSION_KEY не задана, сессии не переживут рестарт")
	}

	ctx := context.Background()
	checks := make(map[string]handlers.ReadinessChecker)

	// 3. HTTP-клиент для провайдера и содержимого (с кастомным CA)
	httpClient, err := httpclient.New(cfg.CACertPath, cfg.RemoteTimeout, logger)
	if err != nil {
		logger.Error("Ошибка создания HTTP-клиента", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Хранилище S3 (режим postgres или подписанные URL)
	var s3Store *objectstore.S3Store
	if cfg.S3Enabled() {
		s3Store, err = objectstore.NewS3Store(objectstore.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		}, logger)
		if err != nil {
			logger.Error("Ошибка создания S3-клиента", slog.String("error", err.Error()))
			os.Exit(1)
		}
		checks["s3"] = s3Store
	}

	// 5. Реестр файлов по режиму
	contentBase := cfg.PublicURL + "/api/v1/files"
	var (
		reg     registry.Registry
		content registry.ContentSource
		pgDB    *sql.DB
	)
	switch cfg.RegistryMode {
	case config.RegistryMock:
		m := mock.New(mock.Options{
			ContentBaseURL: contentBase,
			Quota:          cfg.StorageQuota,
			Pipeline:       query.New(cfg.SortLocale),
			Seed:           true,
		}, logger)
		reg, content = m, m

	case config.RegistryRemote:
		rc := remote.New(cfg.APIGatewayURL, httpClient, middleware.TokenFromContext, logger)
		if err := rc.Validate(); err != nil {
			logger.Error("Некорректная конфигурация remote-реестра", slog.String("error", err.Error()))
			os.Exit(1)
		}
		reg = rc

	case config.RegistryPostgres:
		logger.Info("Применение миграций БД...")
		if err := database.Migrate(cfg, logger); err != nil {
			logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
			os.Exit(1)
		}

		pool, err := database.Connect(ctx, cfg, logger)
		if err != nil {
			logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer pool.Close()

		// Адаптер pgxpool → *sql.DB для topologymetrics: проверка идёт
		// через существующий пул соединений.
		pgDB = stdlib.OpenDBFromPool(pool)
		defer pgDB.Close()

		checks["postgresql"] = database.NewReadinessChecker(pool)

		fr := repository.NewFileRegistry(pool, s3Store, repository.Options{
			ContentBaseURL: contentBase,
			Quota:          cfg.StorageQuota,
		}, logger)
		reg, content = fr, fr
	}

	// 6. Провайдер аутентификации
	provider, err := buildAuthProvider(cfg, httpClient, checks, logger)
	if err != nil {
		logger.Error("Ошибка создания провайдера аутентификации", slog.String("error", err.Error()))
		os.Exit(1)
	}
	sessions, err := auth.NewSessionManager(cfg.SessionKey, cfg.SessionSecure, cfg.SessionTTL)
	if err != nil {
		logger.Error("Ошибка создания менеджера сессий", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 7. Построитель адресов содержимого
	var builder objectstore.URLBuilder
	var presign *objectstore.PresignBuilder
	switch {
	case s3Store != nil:
		presign = objectstore.NewPresignBuilder(s3Store, cfg.S3PresignTTL, cfg.CacheMaxSize, logger)
		builder = presign
	case cfg.StorageEndpoint != "":
		builder = objectstore.EndpointBuilder{
			Endpoint: cfg.StorageEndpoint,
			Bucket:   cfg.StorageBucket,
			Project:  cfg.StorageProject,
		}
	}

	// 8. Сервисный слой
	fileOpts := []service.FileServiceOption{service.WithMaxUploadSize(cfg.MaxUploadSize)}
	if presign != nil {
		fileOpts = append(fileOpts, service.WithDeleteHook(func(rec model.FileRecord) {
			presign.Forget(rec.BucketFileID)
		}))
	}
	files := service.NewFileService(reg, service.NewRecordCache(cfg.CacheMaxSize, cfg.CacheTTL), logger, fileOpts...)

	// Токен сессии уходит только на API gateway, не на CDN и S3
	var tokenProvider contentclient.TokenProvider
	if cfg.APIGatewayURL != "" {
		tokenProvider = middleware.TokenFromContext
	}
	contentHTTP, err := httpclient.New(cfg.CACertPath, cfg.DownloadTimeout, logger)
	if err != nil {
		logger.Error("Ошибка создания HTTP-клиента содержимого", slog.String("error", err.Error()))
		os.Exit(1)
	}
	cc := contentclient.New(contentHTTP, tokenProvider, logger).WithTokenScope(cfg.APIGatewayURL)
	if content != nil {
		cc = cc.WithLocalSource(contentBase, content)
	}

	resolver := service.NewResolver(cc, service.ResolverOptions{
		Builder:      builder,
		TmpDir:       cfg.DownloadTmpDir,
		ReleaseDelay: cfg.DownloadReleaseDelay,
		Timeout:      cfg.DownloadTimeout,
	}, logger)

	// 9. topologymetrics - мониторинг зависимостей активного режима
	dephealthCfg := service.DephealthConfig{
		ServiceID:     config.ServiceName,
		Group:         cfg.DephealthGroup,
		CheckInterval: cfg.DephealthCheckInterval,
		DB:            pgDB,
	}
	if cfg.RegistryMode == config.RegistryRemote || cfg.AuthMode == config.AuthRemote {
		dephealthCfg.GatewayURL = cfg.APIGatewayURL
	}
	if pgDB != nil {
		dephealthCfg.PGConnURL = postgresLabelURL(cfg)
	}

	dephealthSvc, err := service.NewDephealthService(dephealthCfg, logger)
	switch {
	case errors.Is(err, service.ErrNoDependencies):
		logger.Info("topologymetrics: внешних зависимостей нет")
	case err != nil:
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", err.Error()),
		)
	default:
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
		} else {
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 10. Проверка запросов по OpenAPI-контракту
	doc, err := openapi.Load(ctx)
	if err != nil {
		logger.Error("Ошибка загрузки OpenAPI-контракта", slog.String("error", err.Error()))
		os.Exit(1)
	}
	validator, err := middleware.NewRequestValidator(doc, logger)
	if err != nil {
		logger.Error("Ошибка создания валидатора запросов", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 11. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, server.Routes{
		API: handlers.NewAPIHandler(handlers.Deps{
			Files:         files,
			Resolver:      resolver,
			Auth:          provider,
			Sessions:      sessions,
			Content:       content,
			MaxUploadSize: cfg.MaxUploadSize,
		}, logger),
		Health:     handlers.NewHealthHandler(checks),
		Preview:    uihandlers.NewPreviewHandler(files, resolver, logger),
		Auth:       middleware.NewSessionAuth(sessions, provider, logger),
		Validator:  validator,
		RateLimit:  middleware.NewIPRateLimiter(cfg.AuthRateLimit, cfg.AuthRateBurst),
		TrustProxy: cfg.TrustProxy,
	})
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 12. Остановка фоновых задач
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}
	resolver.Wait()

	logger.Info("Drive Module остановлен")
}

// buildAuthProvider создаёт провайдер аутентификации по режиму.
// В режиме mock при заданном DM_REDIS_ADDR одноразовые коды хранятся в Redis.
func buildAuthProvider(
	cfg *config.Config,
	httpClient *http.Client,
	checks map[string]handlers.ReadinessChecker,
	logger *slog.Logger,
) (auth.Provider, error) {
	if cfg.AuthMode == config.AuthRemote {
		var verifier *auth.TokenVerifier
		if cfg.AuthJWKSURL != "" {
			v, err := auth.NewTokenVerifier(cfg.AuthJWKSURL, httpClient, logger)
			if err != nil {
				return nil, err
			}
			verifier = v
			logger.Info("Локальная проверка токенов по JWKS", slog.String("jwks_url", cfg.AuthJWKSURL))
		}
		return auth.NewRemoteProvider(cfg.APIGatewayURL, httpClient, verifier, cfg.SessionTTL, logger), nil
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		checks["redis"] = redisChecker{rdb: rdb}
		logger.Info("Одноразовые коды хранятся в Redis", slog.String("addr", cfg.RedisAddr))
	}

	signer, err := auth.NewTokenSigner(cfg.JWTSecret, cfg.SessionTTL)
	if err != nil {
		return nil, err
	}
	return auth.NewMockProvider(
		auth.NewCodeStore(rdb, logger),
		signer,
		auth.LogNotifier{Logger: logger},
		auth.MockOptions{
			CodeTTL:      cfg.CodeTTL,
			SeedEmail:    cfg.DevUserEmail,
			SeedUsername: cfg.DevUserName,
			SeedPassword: cfg.DevUserPassword,
		},
		logger,
	)
}

// postgresLabelURL - адрес PostgreSQL для меток topologymetrics, без учётных данных.
func postgresLabelURL(cfg *config.Config) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   cfg.DBHost + ":" + strconv.Itoa(cfg.DBPort),
		Path:   "/" + cfg.DBName,
	}
	return u.String()
}

// --- Вспомогательные типы ---

// redisChecker - проверка готовности Redis.
// Недоступный Redis не ломает сервис: коды хранятся в памяти процесса.
type redisChecker struct {
	rdb *redis.Client
}

func (c redisChecker) CheckReady() (string, string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return "degraded", fmt.Sprintf("Redis недоступен: %v", err)
	}
	return "ok", ""
}
