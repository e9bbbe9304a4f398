package rest

import "net/http"

func (s *HTTPServer) userDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.dashboard.User(r.Context(), caller(r).UserID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (s *HTTPServer) adminDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.dashboard.Admin(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}
