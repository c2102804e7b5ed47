package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/worklink-api/internal/application/distribution"
	"github.com/worklink-api/internal/application/verification"
	"github.com/worklink-api/internal/domain"
	"github.com/worklink-api/internal/pkg/validate"
	"github.com/worklink-api/internal/transport/http/middleware"
)

// VerificationHandler handles verification submission and the admin review surface.
type VerificationHandler struct {
	workflow verification.Service
	coord    distribution.Service
}

func NewVerificationHandler(workflow verification.Service, coord distribution.Service) *VerificationHandler {
	return &VerificationHandler{workflow: workflow, coord: coord}
}

// Submit files a verification request for the caller's own entity.
func (h *VerificationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	entityType, err := domain.ParseEntityType(string(caller.Role))
	if err != nil {
		writeError(w, http.StatusBadRequest, "admins are not subject to verification")
		return
	}
	var req domain.SubmitVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	vr, err := h.workflow.Submit(r.Context(), entityType, caller.EntityID, req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, vr)
}

// Get serves one request for review, document URLs presigned for inspection.
func (h *VerificationHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	vr, err := h.coord.GetVerification(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vr)
}

// Decide records an admin decision on a pending request.
func (h *VerificationHandler) Decide(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.DecideVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	vr, err := h.coord.ReviewVerification(r.Context(), caller, chi.URLParam(r, "id"), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vr)
}

// List is the admin review listing: one entity type, newest first, paginated.
func (h *VerificationHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	entityType, err := domain.ParseEntityType(r.URL.Query().Get("entity_type"))
	if err != nil {
		httpError(w, err)
		return
	}
	var statusFilter domain.RequestStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		switch domain.RequestStatus(raw) {
		case domain.RequestPending, domain.RequestApproved, domain.RequestRejected:
			statusFilter = domain.RequestStatus(raw)
		default:
			writeError(w, http.StatusBadRequest, "unknown status filter")
			return
		}
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	reqs, next, err := h.coord.ListVerifications(r.Context(), caller, entityType, statusFilter, limit, r.URL.Query().Get("cursor"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, VerificationPageEnvelope{Data: reqs, NextCursor: next})
}
