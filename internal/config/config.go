// Пакет config - загрузка и валидация конфигурации Drive Module
// из переменных окружения (и необязательного .env файла).
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// ServiceName - имя сервиса в health-ответах и графе зависимостей.
const ServiceName = "drive-module"

// Режимы реестра файлов.
const (
	RegistryMock     = "mock"
	RegistryRemote   = "remote"
	RegistryPostgres = "postgres"
)

// Режимы провайдера аутентификации.
const (
	AuthMock   = "mock"
	AuthRemote = "remote"
)

// Config содержит все параметры конфигурации Drive Module.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Файл для логов с ротацией (пусто - только stdout)
	LogFile string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	ShutdownTimeout  time.Duration

	// Внешний адрес сервиса (для ссылок на содержимое в mock-режиме)
	PublicURL string

	// --- Режимы ---

	RegistryMode string
	AuthMode     string

	// --- Внешний провайдер ---

	// Адрес API gateway провайдера (обязателен для remote-режимов)
	APIGatewayURL string
	// Таймаут запросов к провайдеру
	RemoteTimeout time.Duration
	// Путь к CA-сертификату для исходящих HTTPS (опционально)
	CACertPath string
	// JWKS для локальной проверки токенов провайдера (опционально)
	AuthJWKSURL string

	// --- Сессии и аутентификация ---

	SessionKey    string
	SessionSecure bool
	SessionTTL    time.Duration
	// Секрет подписи JWT в mock-режиме (пусто - случайный)
	JWTSecret string
	CodeTTL   time.Duration

	// Пользователь, создаваемый mock-провайдером при старте
	DevUserEmail    string
	DevUserName     string
	DevUserPassword string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Лимит запросов к /auth в минуту на IP и размер burst
	AuthRateLimit int
	AuthRateBurst int
	// TrustProxy - доверять X-Forwarded-For (только за API Gateway)
	TrustProxy    bool

	// --- Хранилище содержимого ---

	// Шаблон endpoint хранилища: {endpoint}/storage/buckets/{bucket}/files/{id}/download?project={project}
	StorageEndpoint string
	StorageBucket   string
	StorageProject  string

	S3Bucket          string
	S3Region          string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3PresignTTL      time.Duration

	// --- PostgreSQL ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	// --- Скачивание ---

	DownloadTimeout      time.Duration
	DownloadTmpDir       string
	DownloadReleaseDelay time.Duration

	// --- Кэш записей ---

	CacheMaxSize int
	CacheTTL     time.Duration

	// --- Прочее ---

	// Квота хранилища в байтах
	StorageQuota int64
	// Локаль сортировки по имени
	SortLocale string
	// Максимальный размер загружаемого файла в байтах
	MaxUploadSize int64

	DephealthGroup         string
	DephealthCheckInterval time.Duration
}

// Load загружает конфигурацию из переменных окружения.
// Перед чтением подгружается .env (путь из DM_ENV_FILE), если файл существует;
// уже заданные переменные окружения не перезаписываются.
func Load() (*Config, error) {
	if err := loadEnvFile(getEnvDefault("DM_ENV_FILE", ".env")); err != nil {
		return nil, fmt.Errorf("DM_ENV_FILE: %w", err)
	}

	cfg := &Config{}
	var err error

	// --- Сервер ---

	// DM_PORT - порт HTTP-сервера (по умолчанию 8040)
	cfg.Port, err = getEnvInt("DM_PORT", 8040)
	if err != nil {
		return nil, fmt.Errorf("DM_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("DM_PORT: значение %d вне диапазона 1-65535", cfg.Port)
	}

	cfg.LogLevel, err = parseLogLevel(getEnvDefault("DM_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("DM_LOG_LEVEL: %w", err)
	}

	cfg.LogFormat = getEnvDefault("DM_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("DM_LOG_FORMAT: недопустимый формат %q, допустимые: json, text", cfg.LogFormat)
	}
	cfg.LogFile = getEnvDefault("DM_LOG_FILE", "")

	if cfg.HTTPReadTimeout, err = getEnvDuration("DM_HTTP_READ_TIMEOUT", 30*time.Second); err != nil {
		return nil, fmt.Errorf("DM_HTTP_READ_TIMEOUT: %w", err)
	}
	if cfg.HTTPWriteTimeout, err = getEnvDuration("DM_HTTP_WRITE_TIMEOUT", 60*time.Second); err != nil {
		return nil, fmt.Errorf("DM_HTTP_WRITE_TIMEOUT: %w", err)
	}
	if cfg.HTTPIdleTimeout, err = getEnvDuration("DM_HTTP_IDLE_TIMEOUT", 120*time.Second); err != nil {
		return nil, fmt.Errorf("DM_HTTP_IDLE_TIMEOUT: %w", err)
	}
	if cfg.ShutdownTimeout, err = getEnvDuration("DM_SHUTDOWN_TIMEOUT", 5*time.Second); err != nil {
		return nil, fmt.Errorf("DM_SHUTDOWN_TIMEOUT: %w", err)
	}

	// DM_PUBLIC_URL - внешний адрес (по умолчанию http://localhost:<port>)
	cfg.PublicURL = strings.TrimRight(
		getEnvDefault("DM_PUBLIC_URL", fmt.Sprintf("http://localhost:%d", cfg.Port)), "/")
	if err := checkURL(cfg.PublicURL); err != nil {
		return nil, fmt.Errorf("DM_PUBLIC_URL: %w", err)
	}

	// --- Режимы ---

	cfg.RegistryMode = strings.ToLower(getEnvDefault("DM_REGISTRY_MODE", RegistryMock))
	switch cfg.RegistryMode {
	case RegistryMock, RegistryRemote, RegistryPostgres:
	default:
		return nil, fmt.Errorf("DM_REGISTRY_MODE: недопустимое значение %q, допустимые: mock, remote, postgres", cfg.RegistryMode)
	}

	cfg.AuthMode = strings.ToLower(getEnvDefault("DM_AUTH_MODE", AuthMock))
	if cfg.AuthMode != AuthMock && cfg.AuthMode != AuthRemote {
		return nil, fmt.Errorf("DM_AUTH_MODE: недопустимое значение %q, допустимые: mock, remote", cfg.AuthMode)
	}

	// --- Внешний провайдер ---

	cfg.APIGatewayURL = strings.TrimRight(getEnvDefault("DM_API_GATEWAY_URL", ""), "/")
	if cfg.RegistryMode == RegistryRemote || cfg.AuthMode == AuthRemote {
		if cfg.APIGatewayURL == "" {
			return nil, fmt.Errorf("DM_API_GATEWAY_URL: обязательна для режима remote")
		}
	}
	if cfg.APIGatewayURL != "" {
		if err := checkURL(cfg.APIGatewayURL); err != nil {
			return nil, fmt.Errorf("DM_API_GATEWAY_URL: %w", err)
		}
	}

	if cfg.RemoteTimeout, err = getEnvPositiveDuration("DM_REMOTE_TIMEOUT", 30*time.Second); err != nil {
		return nil, fmt.Errorf("DM_REMOTE_TIMEOUT: %w", err)
	}
	cfg.CACertPath = getEnvDefault("DM_CA_CERT_PATH", "")
	cfg.AuthJWKSURL = getEnvDefault("DM_AUTH_JWKS_URL", "")

	// --- Сессии и аутентификация ---

	cfg.SessionKey = getEnvDefault("DM_SESSION_KEY", "")
	if cfg.SessionSecure, err = getEnvBool("DM_SESSION_SECURE", false); err != nil {
		return nil, fmt.Errorf("DM_SESSION_SECURE: %w", err)
	}
	if cfg.SessionTTL, err = getEnvPositiveDuration("DM_SESSION_TTL", 24*time.Hour); err != nil {
		return nil, fmt.Errorf("DM_SESSION_TTL: %w", err)
	}
	cfg.JWTSecret = getEnvDefault("DM_JWT_SECRET", "")
	if cfg.CodeTTL, err = getEnvPositiveDuration("DM_CODE_TTL", 10*time.Minute); err != nil {
		return nil, fmt.Errorf("DM_CODE_TTL: %w", err)
	}

	cfg.DevUserEmail = getEnvDefault("DM_DEV_USER_EMAIL", "john.doe@example.com")
	cfg.DevUserName = getEnvDefault("DM_DEV_USER_NAME", "John Doe")
	cfg.DevUserPassword = getEnvDefault("DM_DEV_USER_PASSWORD", "")

	cfg.RedisAddr = getEnvDefault("DM_REDIS_ADDR", "")
	cfg.RedisPassword = getEnvDefault("DM_REDIS_PASSWORD", "")
	if cfg.RedisDB, err = getEnvInt("DM_REDIS_DB", 0); err != nil {
		return nil, fmt.Errorf("DM_REDIS_DB: %w", err)
	}

	if cfg.AuthRateLimit, err = getEnvInt("DM_AUTH_RATE_LIMIT", 5); err != nil {
		return nil, fmt.Errorf("DM_AUTH_RATE_LIMIT: %w", err)
	}
	if cfg.AuthRateBurst, err = getEnvInt("DM_AUTH_RATE_BURST", 10); err != nil {
		return nil, fmt.Errorf("DM_AUTH_RATE_BURST: %w", err)
	}
	if cfg.AuthRateLimit < 1 || cfg.AuthRateBurst < 1 {
		return nil, fmt.Errorf("DM_AUTH_RATE_LIMIT/DM_AUTH_RATE_BURST: значения должны быть > 0")
	}
	if cfg.TrustProxy, err = getEnvBool("DM_TRUST_PROXY", false); err != nil {
		return nil, fmt.Errorf("DM_TRUST_PROXY: %w", err)
	}

	// --- Хранилище содержимого ---

	cfg.StorageEndpoint = strings.TrimRight(getEnvDefault("DM_STORAGE_ENDPOINT", ""), "/")
	cfg.StorageBucket = getEnvDefault("DM_STORAGE_BUCKET", "")
	cfg.StorageProject = getEnvDefault("DM_STORAGE_PROJECT", "")
	if cfg.StorageEndpoint != "" && cfg.StorageBucket == "" {
		return nil, fmt.Errorf("DM_STORAGE_BUCKET: обязательна при заданном DM_STORAGE_ENDPOINT")
	}

	cfg.S3Bucket = getEnvDefault("DM_S3_BUCKET", "")
	cfg.S3Region = getEnvDefault("DM_S3_REGION", "us-east-1")
	cfg.S3Endpoint = getEnvDefault("DM_S3_ENDPOINT", "")
	cfg.S3AccessKeyID = getEnvDefault("DM_S3_ACCESS_KEY_ID", "")
	cfg.S3SecretAccessKey = getEnvDefault("DM_S3_SECRET_ACCESS_KEY", "")
	if cfg.S3PresignTTL, err = getEnvPositiveDuration("DM_S3_PRESIGN_TTL", 15*time.Minute); err != nil {
		return nil, fmt.Errorf("DM_S3_PRESIGN_TTL: %w", err)
	}

	// --- PostgreSQL ---

	if cfg.RegistryMode == RegistryPostgres {
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("DM_S3_BUCKET: обязательна для режима postgres")
		}
		if cfg.DBHost, err = getEnvRequired("DM_DB_HOST"); err != nil {
			return nil, err
		}
		if cfg.DBName, err = getEnvRequired("DM_DB_NAME"); err != nil {
			return nil, err
		}
		if cfg.DBUser, err = getEnvRequired("DM_DB_USER"); err != nil {
			return nil, err
		}
		if cfg.DBPassword, err = getEnvRequired("DM_DB_PASSWORD"); err != nil {
			return nil, err
		}
	}
	if cfg.DBPort, err = getEnvInt("DM_DB_PORT", 5432); err != nil {
		return nil, fmt.Errorf("DM_DB_PORT: %w", err)
	}
	cfg.DBSSLMode = getEnvDefault("DM_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("DM_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Скачивание ---

	if cfg.DownloadTimeout, err = getEnvPositiveDuration("DM_DOWNLOAD_TIMEOUT", 5*time.Minute); err != nil {
		return nil, fmt.Errorf("DM_DOWNLOAD_TIMEOUT: %w", err)
	}
	cfg.DownloadTmpDir = getEnvDefault("DM_DOWNLOAD_TMP_DIR", os.TempDir())
	if cfg.DownloadReleaseDelay, err = getEnvDuration("DM_DOWNLOAD_RELEASE_DELAY", 100*time.Millisecond); err != nil {
		return nil, fmt.Errorf("DM_DOWNLOAD_RELEASE_DELAY: %w", err)
	}
	if cfg.DownloadReleaseDelay < 0 {
		return nil, fmt.Errorf("DM_DOWNLOAD_RELEASE_DELAY: значение не может быть отрицательным")
	}

	// --- Кэш ---

	if cfg.CacheMaxSize, err = getEnvInt("DM_CACHE_MAX_SIZE", 1000); err != nil {
		return nil, fmt.Errorf("DM_CACHE_MAX_SIZE: %w", err)
	}
	if cfg.CacheMaxSize < 1 {
		return nil, fmt.Errorf("DM_CACHE_MAX_SIZE: значение должно быть > 0")
	}
	if cfg.CacheTTL, err = getEnvPositiveDuration("DM_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, fmt.Errorf("DM_CACHE_TTL: %w", err)
	}

	// --- Прочее ---

	// DM_STORAGE_QUOTA - квота в байтах (по умолчанию 2 GiB)
	if cfg.StorageQuota, err = getEnvInt64("DM_STORAGE_QUOTA", 2*1024*1024*1024); err != nil {
		return nil, fmt.Errorf("DM_STORAGE_QUOTA: %w", err)
	}
	if cfg.StorageQuota < 1 {
		return nil, fmt.Errorf("DM_STORAGE_QUOTA: значение должно быть > 0")
	}

	cfg.SortLocale = getEnvDefault("DM_SORT_LOCALE", "en")
	if _, err := language.Parse(cfg.SortLocale); err != nil {
		return nil, fmt.Errorf("DM_SORT_LOCALE: некорректная локаль %q", cfg.SortLocale)
	}

	// DM_MAX_UPLOAD_SIZE - лимит загрузки в байтах (по умолчанию 50 MiB)
	if cfg.MaxUploadSize, err = getEnvInt64("DM_MAX_UPLOAD_SIZE", 50*1024*1024); err != nil {
		return nil, fmt.Errorf("DM_MAX_UPLOAD_SIZE: %w", err)
	}
	if cfg.MaxUploadSize < 1 {
		return nil, fmt.Errorf("DM_MAX_UPLOAD_SIZE: значение должно быть > 0")
	}

	cfg.DephealthGroup = getEnvDefault("DM_DEPHEALTH_GROUP", "drive")
	if cfg.DephealthCheckInterval, err = getEnvPositiveDuration("DM_DEPHEALTH_CHECK_INTERVAL", 15*time.Second); err != nil {
		return nil, fmt.Errorf("DM_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// S3Enabled сообщает, настроено ли S3-хранилище.
func (c *Config) S3Enabled() bool { return c.S3Bucket != "" }

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
// При заданном DM_LOG_FILE логи дублируются в файл с ротацией.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var out io.Writer = os.Stdout
	if cfg.LogFile != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    100, // MB
			MaxBackups: 3,
			MaxAge:     7, // дней
			Compress:   true,
		})
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// loadEnvFile подгружает .env файл; отсутствие файла не ошибка.
func loadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("некорректный URL: %q", raw)
	}
	return nil
}

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvInt64 возвращает int64 значение переменной окружения или значение по умолчанию.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// getEnvPositiveDuration - как getEnvDuration, но значение должно быть > 0.
func getEnvPositiveDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	d, err := getEnvDuration(key, defaultVal)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("значение должно быть > 0")
	}
	return d, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q (допустимые: true, false, 1, 0)", val)
	}
	return b, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
