package rest

import (
	"net/http"

	"github.com/dmitrijs2005/resourcehub/internal/server/services"
)

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type updateProfileRequest struct {
	Name  string `json:"name"`
	Email string `json:"email" validate:"omitempty,email"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

func (s *HTTPServer) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	result, err := s.users.Register(r.Context(), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.logger.Info(r.Context(), "Registered", "user_id", result.User.ID)
	respondJSON(w, http.StatusCreated, result)
}

func (s *HTTPServer) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	result, err := s.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) profile(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.Profile(r.Context(), caller(r).UserID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (s *HTTPServer) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	user, err := s.users.UpdateProfile(r.Context(), caller(r).UserID, req.Name, req.Email)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (s *HTTPServer) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	if err := s.users.ChangePassword(r.Context(), caller(r).UserID, req.CurrentPassword, req.NewPassword); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "Password updated successfully")
}
