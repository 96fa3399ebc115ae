package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (s *HTTPServer) handleBook(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	booking, err := s.svc.Bookings.CreateBooking(r.Context(), identity(r), mux.Vars(r)["id"], req.CheckIn.Time, req.CheckOut.Time, req.Message)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"status": "success", "booking": booking})
}

func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	views, err := s.svc.Bookings.GetBookings(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *HTTPServer) handleUserBookings(w http.ResponseWriter, r *http.Request) {
	views, err := s.svc.Bookings.GetUserBookings(r.Context(), identity(r).UserID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *HTTPServer) handlePropertyBookings(w http.ResponseWriter, r *http.Request) {
	views, err := s.svc.Bookings.GetPropertyBookings(r.Context(), mux.Vars(r)["propertyId"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *HTTPServer) handleBookingStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	id := mux.Vars(r)["id"]
	if _, err := s.svc.Bookings.UpdateBookingStatus(r.Context(), identity(r), id, req.Status); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	view, err := s.svc.Bookings.GetBookingView(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
