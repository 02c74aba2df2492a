package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"membership-auth/internal/middleware"
	"membership-auth/internal/model"
	"membership-auth/internal/service"
	"membership-auth/pkg/apierror"
)

type AuthHandler struct {
	service *service.AuthService
}

func NewAuthHandler(service *service.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(payload.Username) == "" || strings.TrimSpace(payload.Password) == "" ||
		strings.TrimSpace(payload.Email) == "" || payload.RoleID <= 0 {
		badRequest(w, "username, password, email and role_id are required")
		return
	}

	user, err := h.service.Register(r.Context(), payload.Username, payload.Password, payload.Email, payload.RoleID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(payload.Username) == "" || payload.Password == "" {
		badRequest(w, "username and password are required")
		return
	}

	result, err := h.service.Login(r.Context(), payload.Username, payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result)
}

func (h *AuthHandler) VerifyOtp(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.VerifyOtpRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(payload.Email) == "" || strings.TrimSpace(payload.Otp) == "" {
		badRequest(w, "email and otp are required")
		return
	}

	if err := h.service.VerifyOtp(r.Context(), payload.Email, payload.Otp); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"verified": true})
}

func (h *AuthHandler) ResendOtp(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.ResendOtpRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(payload.Email) == "" {
		badRequest(w, "email is required")
		return
	}

	if err := h.service.ResendOtp(r.Context(), payload.Email); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"resent": true})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(payload.Username) == "" || strings.TrimSpace(payload.NewPassword) == "" {
		badRequest(w, "username and newPassword are required")
		return
	}

	if err := h.service.ResetPassword(r.Context(), payload.Username, payload.NewPassword); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"reset": true})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.New("UNAUTHORIZED", "authentication required", "", http.StatusUnauthorized))
		return
	}

	if err := h.service.Logout(r.Context(), claims.UserID); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"logged_out": true})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.New("UNAUTHORIZED", "authentication required", "", http.StatusUnauthorized))
		return
	}

	user, err := h.service.Profile(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, user)
}

func (h *AuthHandler) Users(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.Users(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, users)
}
