package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"membership-auth/internal/model"
	"membership-auth/internal/service"
)

type RoleHandler struct {
	service *service.RoleService
}

func NewRoleHandler(service *service.RoleService) *RoleHandler {
	return &RoleHandler{service: service}
}

func (h *RoleHandler) Create(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.RoleRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(payload.Name) == "" {
		badRequest(w, "name is required")
		return
	}

	role, err := h.service.Create(r.Context(), payload.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, role)
}

func (h *RoleHandler) List(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, roles)
}

func (h *RoleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := roleID(w, r)
	if !ok {
		return
	}

	role, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, role)
}

func (h *RoleHandler) Update(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	id, ok := roleID(w, r)
	if !ok {
		return
	}

	var payload model.RoleRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(payload.Name) == "" {
		badRequest(w, "name is required")
		return
	}

	role, err := h.service.Update(r.Context(), id, payload.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, role)
}

func (h *RoleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := roleID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"deleted": true})
}

func roleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "role_id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(w, "role_id must be a positive integer")
		return 0, false
	}
	return id, true
}
