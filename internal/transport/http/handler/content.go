package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/worklink-api/internal/application/distribution"
	"github.com/worklink-api/internal/domain"
	"github.com/worklink-api/internal/pkg/validate"
	"github.com/worklink-api/internal/transport/http/middleware"
)

// ContentHandler handles broadcasts and job listings.
type ContentHandler struct {
	coord distribution.Service
}

func NewContentHandler(coord distribution.Service) *ContentHandler {
	return &ContentHandler{coord: coord}
}

func (h *ContentHandler) decodePublish(w http.ResponseWriter, r *http.Request) (*domain.PublishContentRequest, *domain.IdentityRecord, bool) {
	caller, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil, nil, false
	}
	var req domain.PublishContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, nil, false
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, nil, false
	}
	return &req, caller, true
}

func (h *ContentHandler) PublishBroadcast(w http.ResponseWriter, r *http.Request) {
	req, caller, ok := h.decodePublish(w, r)
	if !ok {
		return
	}
	item, err := h.coord.PublishBroadcast(r.Context(), caller, *req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *ContentHandler) PublishJobListing(w http.ResponseWriter, r *http.Request) {
	req, caller, ok := h.decodePublish(w, r)
	if !ok {
		return
	}
	item, err := h.coord.PublishJobListing(r.Context(), caller, *req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// activeFor derives the visible audiences from the caller's stored role. The
// feed takes no audience query parameter: honoring one would let a caller read
// another role's partition, so the role is authoritative.
func (h *ContentHandler) activeFor(kind domain.ContentKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		items, err := h.coord.GetActiveFor(r.Context(), caller, kind, time.Now().UTC())
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ItemsEnvelope{Items: items, Total: len(items)})
	}
}

// ActiveBroadcasts serves the audience-filtered broadcast feed.
func (h *ContentHandler) ActiveBroadcasts(w http.ResponseWriter, r *http.Request) {
	h.activeFor(domain.KindBroadcast)(w, r)
}

// ActiveJobListings serves the audience-filtered job-listing feed.
func (h *ContentHandler) ActiveJobListings(w http.ResponseWriter, r *http.Request) {
	h.activeFor(domain.KindJobListing)(w, r)
}

// ListAllBroadcasts is the admin unfiltered view, including expired and
// deactivated items.
func (h *ContentHandler) ListAllBroadcasts(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	items, err := h.coord.ListAll(r.Context(), caller, domain.KindBroadcast)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ItemsEnvelope{Items: items, Total: len(items)})
}

// Deactivate terminates an item early. Owner or admin, enforced by the guard.
func (h *ContentHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.coord.Deactivate(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "item deactivated"})
}
