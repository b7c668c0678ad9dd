// auth.go - регистрация, вход, подтверждение email, сброс пароля, выход.
package handlers

import (
	"log/slog"
	"net/http"

	openapi_types "github.com/oapi-codegen/runtime/types"

	apierrors "github.com/bigkaa/goartstore/drive-module/internal/api/errors"
	"github.com/bigkaa/goartstore/drive-module/internal/api/middleware"
	"github.com/bigkaa/goartstore/drive-module/internal/auth"
)

type signUpRequest struct {
	Email    openapi_types.Email `json:"email"`
	Password string              `json:"password"`
	Username string              `json:"username"`
}

type signUpResponse struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

type verifyRequest struct {
	Email openapi_types.Email `json:"email"`
	Code  string              `json:"code"`
}

type emailRequest struct {
	Email openapi_types.Email `json:"email"`
}

type signInRequest struct {
	Email    openapi_types.Email `json:"email"`
	Password string              `json:"password"`
}

type resetPasswordRequest struct {
	Email       openapi_types.Email `json:"email"`
	Code        string              `json:"code"`
	NewPassword string              `json:"new_password"`
}

// SignUp - POST /api/v1/auth/signup. Аккаунт ждёт подтверждения кода.
func (h *APIHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}

	res, err := h.auth.SignUp(r.Context(), auth.SignUpRequest{
		Email:    string(req.Email),
		Password: req.Password,
		Username: req.Username,
	})
	if err != nil {
		apierrors.FromError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, signUpResponse{UserID: res.UserID, Email: res.Email, Message: res.Message})
}

// VerifyCode - POST /api/v1/auth/verify. При успехе выдаёт сессию.
func (h *APIHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}

	session, err := h.auth.VerifyCode(r.Context(), string(req.Email), req.Code)
	if err != nil {
		apierrors.FromError(w, h.logger, err)
		return
	}
	h.startSession(w, session)
}

// ResendCode - POST /api/v1/auth/resend-code
func (h *APIHandler) ResendCode(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if err := h.auth.ResendCode(r.Context(), string(req.Email)); err != nil {
		apierrors.FromError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SignIn - POST /api/v1/auth/signin
func (h *APIHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}

	session, err := h.auth.SignIn(r.Context(), string(req.Email), req.Password)
	if err != nil {
		apierrors.FromError(w, h.logger, err)
		return
	}
	h.startSession(w, session)
}

// ForgotPassword - POST /api/v1/auth/forgot-password
func (h *APIHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if err := h.auth.ForgotPassword(r.Context(), string(req.Email)); err != nil {
		apierrors.FromError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResetPassword - POST /api/v1/auth/reset-password
func (h *APIHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if err := h.auth.ResetPassword(r.Context(), string(req.Email), req.Code, req.NewPassword); err != nil {
		apierrors.FromError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SignOut - POST /api/v1/auth/signout. Сессия завершается только локально.
func (h *APIHandler) SignOut(w http.ResponseWriter, _ *http.Request) {
	h.sessions.ClearSession(w)
	w.WriteHeader(http.StatusNoContent)
}

// CurrentUser - GET /api/v1/auth/me (за SessionAuth).
func (h *APIHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		apierrors.Unauthorized(w, "требуется вход")
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(user))
}

func (h *APIHandler) startSession(w http.ResponseWriter, s auth.Session) {
	if err := h.sessions.SetSession(w, s); err != nil {
		apierrors.FromError(w, h.logger, err)
		return
	}
	h.logger.Info("Сессия создана", slog.String("user_id", s.User.ID))
	writeJSON(w, http.StatusOK, toUserDTO(s.User))
}
