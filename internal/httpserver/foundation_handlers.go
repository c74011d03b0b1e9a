package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"foundation_backend/internal/domain"
	"foundation_backend/internal/service"
)

type foundationCreateRequest struct {
	Name string `json:"name" validate:"required"`
}

func handleCreateFoundation(foundationSvc *service.FoundationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req foundationCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		if err := validate.Struct(req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		f := &domain.Foundation{Name: req.Name, IsActive: true}
		if err := foundationSvc.Create(r.Context(), f); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, f)
	}
}

func handleGetFoundation(foundationSvc *service.FoundationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "foundationID"), 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid foundation id"})
			return
		}
		f, err := foundationSvc.GetByID(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, f)
	}
}

func handleListFoundations(foundationSvc *service.FoundationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		foundations, err := foundationSvc.List(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, foundations)
	}
}
