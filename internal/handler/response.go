package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"membership-auth/internal/model"
	"membership-auth/pkg/apierror"
)

func writeSuccess(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: true,
		Data:    data,
	})
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := &model.APIError{
		Code:    "INTERNAL_ERROR",
		Message: "Unexpected server error",
	}

	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		body.Details = apiErr.Details
	} else if errors.Is(err, model.ErrUserNotFound) {
		status = http.StatusNotFound
		body.Code = "NOT_FOUND"
		body.Message = "User not found"
	} else if errors.Is(err, model.ErrUserAlreadyExists) {
		status = http.StatusConflict
		body.Code = "ALREADY_EXISTS"
		body.Message = "Username already exists"
	} else if errors.Is(err, model.ErrInvalidCredentials) {
		status = http.StatusUnauthorized
		body.Code = "UNAUTHORIZED"
		body.Message = "Invalid credentials"
	} else if errors.Is(err, model.ErrAlreadyLoggedIn) {
		status = http.StatusForbidden
		body.Code = "ALREADY_LOGGED_IN"
		body.Message = "User already logged in"
	} else if errors.Is(err, model.ErrRoleNotFound) {
		status = http.StatusNotFound
		body.Code = "NOT_FOUND"
		body.Message = "Role not found"
	} else if errors.Is(err, model.ErrRoleAlreadyExists) {
		status = http.StatusConflict
		body.Code = "ALREADY_EXISTS"
		body.Message = "Role already exists"
	} else if errors.Is(err, model.ErrRoleInUse) {
		status = http.StatusConflict
		body.Code = "CONFLICT"
		body.Message = "Role is still assigned to users"
	} else if errors.Is(err, model.ErrOtpNotFound) || errors.Is(err, model.ErrOtpMismatch) {
		status = http.StatusBadRequest
		body.Code = "INVALID_OTP"
		body.Message = "Invalid OTP"
	} else if errors.Is(err, model.ErrOtpExpired) {
		status = http.StatusBadRequest
		body.Code = "OTP_EXPIRED"
		body.Message = "OTP has expired. Please request a new OTP."
	} else if errors.Is(err, model.ErrNotificationFailed) {
		status = http.StatusInternalServerError
		body.Code = "NOTIFICATION_FAILED"
		body.Message = "Failed to send email"
	} else if errors.Is(err, model.ErrTokenInvalid) || errors.Is(err, model.ErrTokenExpired) || errors.Is(err, model.ErrSessionInvalid) {
		status = http.StatusUnauthorized
		body.Code = "UNAUTHORIZED"
		body.Message = "Invalid or expired token"
	} else {
		// Log unclassified errors so they are visible in container logs.
		slog.Error("unhandled error in writeError", "error", err.Error())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error:   body,
	})
}

func badRequest(w http.ResponseWriter, message string) {
	writeError(w, apierror.New("BAD_REQUEST", message, "", http.StatusBadRequest))
}
