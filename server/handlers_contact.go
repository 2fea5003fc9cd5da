package server

import (
	"net/http"
	"time"

	apperrors "github.com/sjoshi/portfolio-api/internal/errors"
)

type contactRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

// ContactHandler always answers success once the fields validate; storage
// problems only change the reported storage.
func (s *Server) ContactHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req contactRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		res, err := s.contact.Submit(r.Context(), req.Name, req.Email, req.Reason)
		if apperrors.Is(err, apperrors.ErrInvalidRequest) {
			writeJSON(w, http.StatusBadRequest, errorBody{
				Error:   "Missing required fields",
				Message: "Please fill in all fields",
			})
			return
		}
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":   true,
			"persisted": res.Persisted,
			"storage":   res.Storage,
			"message":   "Thank you for your message! I'll get back to you soon.",
			"timestamp": res.Submission.CreatedAt.Format(time.RFC3339),
		})
	}
}
