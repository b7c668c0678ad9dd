// dephealth.go - интеграция с topologymetrics SDK для мониторинга зависимостей.
//
// Drive Module мониторит зависимости активного режима:
//   - API gateway провайдера - HTTP checker (режимы remote)
//   - PostgreSQL - SQL checker через существующий pgxpool (режим postgres)
//
// Метрики доступны на /metrics вместе с остальными Prometheus-метриками.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // регистрация HTTP checker factory
	"github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/pgcheck"
	"github.com/prometheus/client_golang/prometheus"
)

// ErrNoDependencies - в конфигурации нет внешних зависимостей для мониторинга.
var ErrNoDependencies = errors.New("нет зависимостей для мониторинга")

// DephealthConfig - параметры мониторинга.
type DephealthConfig struct {
	// ServiceID - имя вершины графа текущего приложения
	ServiceID string
	// Group - имя группы в метриках
	Group         string
	CheckInterval time.Duration

	// GatewayURL - адрес API gateway (пусто - не мониторится)
	GatewayURL        string
	GatewayHealthPath string

	// DB - *sql.DB из pgxpool (nil - PostgreSQL не мониторится)
	DB *sql.DB
	// PGConnURL - URL PostgreSQL для меток (не для подключения)
	PGConnURL string

	// Registerer - Prometheus registerer (nil - глобальный)
	Registerer prometheus.Registerer
}

// DephealthService - сервис мониторинга зависимостей через topologymetrics.
type DephealthService struct {
	dh     *dephealth.DepHealth
	names  []string
	logger *slog.Logger
}

// NewDephealthService создаёт сервис мониторинга.
// Возвращает ErrNoDependencies, если отслеживать нечего (режим mock).
func NewDephealthService(cfg DephealthConfig, logger *slog.Logger) (*DephealthService, error) {
	opts := []dephealth.Option{dephealth.WithLogger(logger)}
	var names []string

	if cfg.GatewayURL != "" {
		healthPath := cfg.GatewayHealthPath
		if healthPath == "" {
			healthPath = "/health"
		}
		depOpts := []dephealth.DependencyOption{
			dephealth.FromURL(cfg.GatewayURL),
			dephealth.WithHTTPHealthPath(healthPath),
			dephealth.CheckInterval(cfg.CheckInterval),
			dephealth.Critical(true),
		}
		if parsed, err := url.Parse(cfg.GatewayURL); err == nil && parsed.Scheme == "https" {
			depOpts = append(depOpts, dephealth.WithHTTPTLSSkipVerify(false))
		}
		opts = append(opts, dephealth.HTTP("api-gateway", depOpts...))
		names = append(names, "api-gateway")
	}

	if cfg.DB != nil {
		// Connection pool mode: проверка через *sql.DB поверх pgxpool
		// отражает реальное состояние пула соединений.
		opts = append(opts, dephealth.AddDependency("postgresql", dephealth.TypePostgres,
			pgcheck.New(pgcheck.WithDB(cfg.DB)),
			dephealth.FromURL(cfg.PGConnURL),
			dephealth.CheckInterval(cfg.CheckInterval),
			dephealth.Critical(true),
		))
		names = append(names, "postgresql")
	}

	if len(names) == 0 {
		return nil, ErrNoDependencies
	}
	if cfg.Registerer != nil {
		opts = append(opts, dephealth.WithRegisterer(cfg.Registerer))
	}

	dh, err := dephealth.New(cfg.ServiceID, cfg.Group, opts...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		names:  names,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// Start запускает периодическую проверку зависимостей.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг зависимостей запущен", slog.Any("dependencies", ds.names))
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг зависимостей.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// Health возвращает текущее состояние зависимостей (имя → ok).
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}
