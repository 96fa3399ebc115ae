package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// handleRate is the anonymous rating channel, no token needed.
func (s *HTTPServer) handleRate(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	avg, err := s.svc.Reviews.RateProperty(r.Context(), mux.Vars(r)["id"], req.Rating)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "newRating": avg})
}

func (s *HTTPServer) handleReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	property, err := s.svc.Reviews.AddReview(r.Context(), identity(r), mux.Vars(r)["id"], req.Rating, req.Title, req.Comment)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "success",
		"reviews":       property.Reviews,
		"averageRating": property.AverageRating,
		"totalReviews":  property.TotalReviews,
	})
}

func (s *HTTPServer) handleHelpful(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	count, err := s.svc.Reviews.MarkHelpful(r.Context(), vars["id"], vars["reviewId"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "helpfulCount": count})
}

func (s *HTTPServer) handleHelpfulByReview(w http.ResponseWriter, r *http.Request) {
	count, err := s.svc.Reviews.MarkHelpfulByReview(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "helpfulCount": count})
}

func (s *HTTPServer) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	isFavorite, err := s.svc.Favorites.ToggleFavorite(r.Context(), identity(r), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "isFavorite": isFavorite})
}

func (s *HTTPServer) handleFavorites(w http.ResponseWriter, r *http.Request) {
	properties, err := s.svc.Favorites.GetFavorites(r.Context(), identity(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, properties)
}
