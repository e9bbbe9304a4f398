package rest

import (
	"io"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/resourcehub/internal/server/models"
	"github.com/go-chi/chi/v5"
)

func (s *HTTPServer) root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "API is running...")
}

type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s *HTTPServer) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, healthResponse{Status: "Healthy", Message: "Server is running smoothly."})
}

// serveUpload streams a stored file by name. No authentication applies.
func (s *HTTPServer) serveUpload(w http.ResponseWriter, r *http.Request) {
	body, obj, err := s.resources.OpenFile(r.Context(), chi.URLParam(r, "*"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer body.Close()

	if obj.ContentType != "" {
		w.Header().Set("Content-Type", obj.ContentType)
	}
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		s.logger.Warn(r.Context(), "upload stream interrupted", "file", obj.Name, "error", err)
	}
}

// caller returns the identity set by Authenticate.
func caller(r *http.Request) models.Identity {
	id, _ := IdentityFromContext(r.Context())
	return id
}
