package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/innkeep/innkeep/pkg/logger"
	"github.com/innkeep/innkeep/services/frontdesk/internal/domain"
)

// Login handles POST /login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in domain.LoginReq
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "INVALID_INPUT")
		return
	}
	if in.TenantID == "" || in.Email == "" || in.Password == "" {
		writeError(w, http.StatusBadRequest, "tenant_id, email and password are required", "INVALID_INPUT")
		return
	}

	res, err := h.authService.Login(r.Context(), in.TenantID, &in)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid email or password", "INVALID_CREDENTIALS")
			return
		}
		logger.ErrorContext(r.Context(), "Login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Login failed", "INTERNAL_ERROR")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// CreateUser handles POST /admin/users (admin only).
func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	claims := getStaffClaims(r)

	var in domain.CreateUserReq
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "INVALID_INPUT")
		return
	}

	user, err := h.authService.CreateUser(r.Context(), claims.TenantID, &in)
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			writeError(w, http.StatusConflict, "Email already registered", "CONFLICT")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_FAILED")
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// ListUsers handles GET /admin/users.
func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	claims := getStaffClaims(r)

	users, err := h.authService.ListUsers(r.Context(), claims.TenantID)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to list users", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list users", "INTERNAL_ERROR")
		return
	}
	if users == nil {
		users = []domain.StaffUser{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

// GetUser handles GET /admin/users/{id}.
func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	claims := getStaffClaims(r)

	user, err := h.authService.GetUser(r.Context(), claims.TenantID, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "User not found", "NOT_FOUND")
			return
		}
		logger.ErrorContext(r.Context(), "Failed to get user", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to get user", "INTERNAL_ERROR")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// UpdateUser handles PATCH /admin/users/{id}.
func (h *Handlers) UpdateUser(w http.ResponseWriter, r *http.Request) {
	claims := getStaffClaims(r)

	var in domain.UpdateUserReq
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "INVALID_INPUT")
		return
	}

	user, err := h.authService.UpdateUser(r.Context(), claims.TenantID, chi.URLParam(r, "id"), &in)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "User not found", "NOT_FOUND")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// DeleteUser handles DELETE /admin/users/{id}.
func (h *Handlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	claims := getStaffClaims(r)

	if err := h.authService.DeleteUser(r.Context(), claims.TenantID, chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "User not found", "NOT_FOUND")
			return
		}
		logger.ErrorContext(r.Context(), "Failed to delete user", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete user", "INTERNAL_ERROR")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
