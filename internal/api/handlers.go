package api

import (
	"net/http"
	"strconv"
	"strings"

	"rentals/internal/models"

	"github.com/gorilla/mux"
)

const defaultMaxUploadSize = 32 << 20

func (s *HTTPServer) maxUploadSize() int64 {
	if s.cfg.HTTP.MaxUploadSize > 0 {
		return s.cfg.HTTP.MaxUploadSize
	}
	return defaultMaxUploadSize
}

// identity returns the caller placed in the context by the auth middleware.
func identity(r *http.Request) models.Identity {
	id, _ := IdentityFrom(r.Context())
	return id
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	properties, err := s.svc.Catalog.SearchProperties(r.Context(), models.PropertyFilter{
		Location: q.Get("location"),
		Type:     q.Get("type"),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, properties)
}

func (s *HTTPServer) handleGetProperty(w http.ResponseWriter, r *http.Request) {
	property, err := s.svc.Catalog.GetProperty(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "property": property})
}

func (s *HTTPServer) handleCreateProperty(w http.ResponseWriter, r *http.Request) {
	var req propertyRequest
	if isMultipart(r) {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize())
		if err := r.ParseMultipartForm(s.maxUploadSize()); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
			return
		}
		defer r.MultipartForm.RemoveAll()

		parsed, err := propertyFromForm(r.MultipartForm)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		if err := validateStruct(&parsed); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		req = parsed
	} else if err := decodeJSON(r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	property := req.toProperty()
	if err := s.svc.Catalog.CreateProperty(r.Context(), identity(r), property); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, property)
}

func (s *HTTPServer) handleUpdateProperty(w http.ResponseWriter, r *http.Request) {
	var patch models.PropertyPatch
	if isMultipart(r) {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize())
		if err := r.ParseMultipartForm(s.maxUploadSize()); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
			return
		}
		defer r.MultipartForm.RemoveAll()

		parsed, err := patchFromForm(r.MultipartForm)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		patch = parsed
	} else {
		var req patchRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		patch = req.toPatch()
	}

	property, err := s.svc.Catalog.UpdateProperty(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "property": property})
}

func (s *HTTPServer) handleDeleteProperty(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Catalog.DeleteProperty(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Property deleted successfully"})
}

func (s *HTTPServer) handleCount(w http.ResponseWriter, r *http.Request) {
	count, err := s.svc.Catalog.CountProperties(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": count})
}

func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	checkIn, err := parseDate(q.Get("checkIn"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	checkOut, err := parseDate(q.Get("checkOut"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if checkIn.IsZero() || checkOut.IsZero() {
		writeError(w, http.StatusBadRequest, "checkIn and checkOut are required")
		return
	}

	available, err := s.svc.Catalog.CheckAvailability(r.Context(), mux.Vars(r)["id"], checkIn, checkOut)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"available": available})
}

func (s *HTTPServer) handlePrice(w http.ResponseWriter, r *http.Request) {
	days, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("days")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "days must be an integer")
		return
	}

	total, err := s.svc.Catalog.CalculateTotalPrice(r.Context(), mux.Vars(r)["id"], days)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"days": days, "totalPrice": total})
}

func (s *HTTPServer) handleImage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid image index")
		return
	}

	image, err := s.svc.Catalog.GetImage(r.Context(), vars["id"], index)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", image.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(image.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(image.Data)
}

func (s *HTTPServer) handleProfile(w http.ResponseWriter, r *http.Request) {
	user := identity(r)

	properties := []*models.Property{}
	if user.Email != "" {
		owned, err := s.svc.Catalog.GetPropertiesByEmail(r.Context(), user.Email)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		properties = owned
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":       models.UserRef{ID: user.UserID, Name: user.Name, Email: user.Email},
		"properties": properties,
	})
}
