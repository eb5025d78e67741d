package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"collab-realtime/internal/auth"
	"collab-realtime/internal/models"

	"github.com/go-playground/validator/v10"
)

type AuthHandlers struct {
	authService *auth.Service
	log         *slog.Logger
}

func NewAuthHandlers(authService *auth.Service, log *slog.Logger) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		log:         log,
	}
}

func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	response, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			http.Error(w, verrs.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error("Registration error", "email", req.Email, "error", err)
		http.Error(w, "registration failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, response)
}

func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	response, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			h.log.Error("Login error", "error", err)
		}
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
