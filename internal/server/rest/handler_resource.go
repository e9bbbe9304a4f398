package rest

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/resourcehub/internal/common"
	"github.com/dmitrijs2005/resourcehub/internal/server/models"
	"github.com/dmitrijs2005/resourcehub/internal/server/services"
	"github.com/go-chi/chi/v5"
)

// formOverhead is the body allowance for multipart fields beside the file.
const formOverhead = 1 << 20

type createResourceRequest struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	FileURL     string   `json:"fileUrl"`
}

type updateResourceRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Tags        *string `json:"tags"`
}

func (s *HTTPServer) uploadResource(w http.ResponseWriter, r *http.Request) {
	limit := s.opts.MaxUploadSize + formOverhead
	if r.ContentLength > limit {
		respondMessage(w, http.StatusRequestEntityTooLarge, "File too large")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(formOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, err)
			return
		}
		s.respondError(w, r, common.Errorf(common.ErrorValidation, "Invalid form data"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	in := services.UploadInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Tags:        r.FormValue("tags"),
		Link:        r.FormValue("link"),
	}

	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		in.File = &services.UploadFile{
			Name:      header.Filename,
			MediaType: header.Header.Get("Content-Type"),
			Size:      header.Size,
			Body:      file,
		}
	case !errors.Is(err, http.ErrMissingFile):
		s.respondError(w, r, common.Errorf(common.ErrorValidation, "Invalid form data"))
		return
	}

	res, err := s.resources.Upload(r.Context(), caller(r), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if res.FileURL != nil {
		s.metrics.uploads.Inc()
	}
	s.logger.Info(r.Context(), "resource uploaded", "resource_id", res.ID, "user_id", caller(r).UserID)
	respondJSON(w, http.StatusCreated, res)
}

func (s *HTTPServer) createResource(w http.ResponseWriter, r *http.Request) {
	var req createResourceRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	res, err := s.resources.Create(r.Context(), caller(r), services.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
		FileURL:     req.FileURL,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, res)
}

func (s *HTTPServer) listResources(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := models.ListFilter{
		Search: q.Get("search"),
		Sort:   q.Get("sort"),
		Asc:    q.Get("order") == "asc",
	}
	if tags := q.Get("tags"); tags != "" {
		filter.Tags = strings.Split(tags, ",")
	}
	// malformed numbers fall back to defaults in the service
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))

	result, err := s.resources.List(r.Context(), filter)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) activityLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.activity.Query(r.Context(), caller(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, logs)
}

func (s *HTTPServer) getResource(w http.ResponseWriter, r *http.Request) {
	res, err := s.resources.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) updateResource(w http.ResponseWriter, r *http.Request) {
	var req updateResourceRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	res, err := s.resources.Update(r.Context(), caller(r), chi.URLParam(r, "id"), services.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) deleteResource(w http.ResponseWriter, r *http.Request) {
	if err := s.resources.Delete(r.Context(), caller(r), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "Resource deleted successfully")
}

func (s *HTTPServer) downloadResource(w http.ResponseWriter, r *http.Request) {
	dl, err := s.resources.Download(r.Context(), caller(r), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer dl.Body.Close()

	contentType := dl.Object.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": dl.Filename}))
	if dl.Object.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(dl.Object.Size, 10))
	}
	w.WriteHeader(http.StatusOK)

	s.metrics.downloads.Inc()
	if _, err := io.Copy(w, dl.Body); err != nil {
		s.logger.Warn(r.Context(), "download stream interrupted", "resource_id", chi.URLParam(r, "id"), "error", err)
	}
}
