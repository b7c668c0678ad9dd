// Пакет server - HTTP-сервер Drive Module с graceful shutdown.
// Без TLS: HTTP внутри кластера, TLS termination на API Gateway.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/bigkaa/goartstore/drive-module/internal/api/handlers"
	"github.com/bigkaa/goartstore/drive-module/internal/api/middleware"
	"github.com/bigkaa/goartstore/drive-module/internal/api/openapi"
	"github.com/bigkaa/goartstore/drive-module/internal/config"
	uihandlers "github.com/bigkaa/goartstore/drive-module/internal/ui/handlers"
)

// Routes - обработчики и middleware, из которых собирается маршрутизатор.
type Routes struct {
	API     *handlers.APIHandler
	Health  *handlers.HealthHandler
	Preview *uihandlers.PreviewHandler

	Auth       *middleware.SessionAuth
	Validator  *middleware.RequestValidator
	// RateLimit - ограничение /api/v1/auth/* (nil - без ограничения)
	RateLimit  *middleware.IPRateLimiter
	// TrustProxy - брать IP клиента из X-Forwarded-For/X-Real-IP.
	// Включать только за прокси, который перезаписывает эти заголовки.
	TrustProxy bool
}

// Server - HTTP-сервер Drive Module.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с настроенными маршрутами и middleware.
func New(cfg *config.Config, logger *slog.Logger, routes Routes) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      NewRouter(logger, routes),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// NewRouter собирает маршрутизатор. Health и метрики доступны без
// аутентификации, /api/v1/auth/* ограничены по частоте, каталог файлов и
// страница предпросмотра требуют сессии.
func NewRouter(logger *slog.Logger, routes Routes) http.Handler {
	r := chi.NewRouter()

	if routes.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.MetricsMiddleware())

	r.Get("/health/live", routes.Health.HealthLive)
	r.Get("/health/ready", routes.Health.HealthReady)
	r.Get("/metrics", routes.Health.Metrics)

	r.Get("/api/v1/openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(openapi.Raw())
	})

	api := routes.API
	r.Route("/api/v1", func(r chi.Router) {
		if routes.Validator != nil {
			r.Use(routes.Validator.Middleware())
		}

		r.Route("/auth", func(r chi.Router) {
			if routes.RateLimit != nil {
				r.Use(routes.RateLimit.Middleware())
			}
			r.Post("/signup", api.SignUp)
			r.Post("/verify", api.VerifyCode)
			r.Post("/resend-code", api.ResendCode)
			r.Post("/signin", api.SignIn)
			r.Post("/forgot-password", api.ForgotPassword)
			r.Post("/reset-password", api.ResetPassword)
			r.Post("/signout", api.SignOut)
			r.With(routes.Auth.Middleware()).Get("/me", api.CurrentUser)
		})

		r.Group(func(r chi.Router) {
			r.Use(routes.Auth.Middleware())

			r.Get("/usage", api.Usage)
			r.Get("/files", api.ListFiles)
			r.Post("/files", api.UploadFile)
			r.Route("/files/{id}", func(r chi.Router) {
				r.Get("/", api.GetFile)
				r.Patch("/", api.RenameFile)
				r.Delete("/", api.DeleteFile)
				r.Put("/share", api.ShareFile)
				r.Get("/download", api.DownloadFile)
				r.Get("/content", api.FileContent)
				r.Get("/preview", api.PreviewFile)
			})
		})
	})

	if routes.Preview != nil {
		r.With(routes.Auth.Middleware()).Get("/files/{id}/preview", routes.Preview.HandlePreview)
	}

	return r
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
