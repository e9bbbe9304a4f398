package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/resourcehub/internal/common"
	"github.com/go-playground/validator/v10"
)

type messageResponse struct {
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondMessage(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, messageResponse{Message: msg})
}

// statusFor maps an error to a status code and a client message.
func statusFor(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "File too large"
	case errors.Is(err, common.ErrorValidation), errors.Is(err, common.ErrorAlreadyExists):
		return http.StatusBadRequest, common.MessageOf(err, "Bad request")
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired):
		return http.StatusBadRequest, "Invalid Token"
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, common.MessageOf(err, "Access Denied")
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden, common.MessageOf(err, "Unauthorized")
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, common.MessageOf(err, "Not found")
	case errors.Is(err, common.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge, common.MessageOf(err, "File too large")
	case errors.Is(err, common.ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType, common.MessageOf(err, "Unsupported media type")
	default:
		return http.StatusInternalServerError, "Server error"
	}
}

// respondError writes err as {"message": ...}. Server errors are logged in
// full and hidden from the client.
func (s *HTTPServer) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	respondMessage(w, status, msg)
}

// decodeJSON reads the body into dst and validates its struct tags.
func (s *HTTPServer) decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return common.Errorf(common.ErrorValidation, "Invalid request body")
	}
	if err := s.validate.Struct(dst); err != nil {
		return common.Errorf(common.ErrorValidation, "%s", validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "Invalid request body"
	}

	fe := fieldErrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
