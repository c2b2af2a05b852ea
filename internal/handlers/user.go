package handlers

import (
	"net/http"

	"pickmate-backend/internal/middleware"
	"pickmate-backend/internal/models"
	"pickmate-backend/internal/services"
	"pickmate-backend/internal/validation"

	"github.com/rs/zerolog/log"
)

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	userService *services.UserService
	validator   *validation.Validator
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService, validator *validation.Validator) *UserHandler {
	return &UserHandler{
		userService: userService,
		validator:   validator,
	}
}

// CreateUserResponse is a new account with its token
type CreateUserResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// PushTokenRequest registers (or, when empty, removes) a device token
type PushTokenRequest struct {
	PushToken string `json:"push_token" validate:"max=200"`
}

// CreateUser handles POST /api/v1/users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req services.CreateUserInput
	if err := decodeJSON(r, h.validator, &req); err != nil {
		respondAppError(w, log.Error(), err, "Invalid create user request")
		return
	}

	user, token, err := h.userService.CreateUser(r.Context(), req)
	if err != nil {
		respondAppError(w, log.Error(), err, "Failed to create user")
		return
	}

	log.Info().Str("user_id", user.ID).Msg("User created")

	respondJSON(w, http.StatusCreated, CreateUserResponse{User: user, Token: token})
}

// GetMe handles GET /api/v1/users/me
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	user, err := h.userService.GetUser(r.Context(), userID)
	if err != nil {
		respondAppError(w, log.Error().Str("user_id", userID), err, "Failed to get user")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// UpdatePushToken handles PUT /api/v1/users/me/push-token
func (h *UserHandler) UpdatePushToken(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req PushTokenRequest
	if err := decodeJSON(r, h.validator, &req); err != nil {
		respondAppError(w, log.Error(), err, "Invalid push token request")
		return
	}

	if err := h.userService.UpdatePushToken(r.Context(), userID, req.PushToken); err != nil {
		respondAppError(w, log.Error().Str("user_id", userID), err, "Failed to update push token")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
