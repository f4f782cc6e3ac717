package leads

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/advisor-match/internal/http/respond"
	"github.com/wolfman30/advisor-match/internal/identity"
	"github.com/wolfman30/advisor-match/pkg/logging"
)

// FirmLookup resolves the firm an advisor belongs to.
type FirmLookup interface {
	FirmOf(ctx context.Context, advisorID string) (string, error)
}

// Handler handles HTTP requests for leads
type Handler struct {
	repo   Repository
	firms  FirmLookup
	logger *logging.Logger
}

// NewHandler creates a new leads handler
func NewHandler(repo Repository, firms FirmLookup, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		repo:   repo,
		firms:  firms,
		logger: logger,
	}
}

// ListLeadsResponse is the response for listing leads
type ListLeadsResponse struct {
	Leads  []*Lead `json:"leads"`
	Count  int     `json:"count"`
	Offset int     `json:"offset"`
	Limit  int     `json:"limit"`
}

// ListLeads handles GET /leads requests
func (h *Handler) ListLeads(w http.ResponseWriter, r *http.Request) {
	advisorID, err := h.resolveAdvisor(r.Context(), r.URL.Query().Get("advisor_id"))
	if err != nil {
		respond.Error(w, http.StatusForbidden, err.Error())
		return
	}

	filter := ListLeadsFilter{
		Limit:  50,
		Offset: 0,
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit <= 100 {
			filter.Limit = limit
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filter.Offset = offset
		}
	}

	if status := r.URL.Query().Get("status"); status != "" {
		st, err := ParseStatus(status)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Status = st
	}

	leads, err := h.repo.ListByAdvisor(r.Context(), advisorID, filter)
	if err != nil {
		h.logger.Error("failed to list leads", "error", err, "advisor_id", advisorID)
		respond.Error(w, http.StatusInternalServerError, "failed to list leads")
		return
	}
	if leads == nil {
		leads = []*Lead{}
	}

	respond.JSON(w, http.StatusOK, ListLeadsResponse{
		Leads:  leads,
		Count:  len(leads),
		Offset: filter.Offset,
		Limit:  filter.Limit,
	})
}

type updateLeadRequest struct {
	Status string  `json:"status"`
	Notes  *string `json:"notes"`
}

// UpdateLead handles PATCH /leads/{leadID} requests
func (h *Handler) UpdateLead(w http.ResponseWriter, r *http.Request) {
	var req updateLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode request", "error", err)
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	status, err := ParseStatus(req.Status)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	leadID := chi.URLParam(r, "leadID")
	lead, err := h.repo.GetByID(r.Context(), leadID)
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	if _, err := h.resolveAdvisor(r.Context(), lead.AdvisorID); err != nil {
		respond.Error(w, http.StatusNotFound, ErrLeadNotFound.Error())
		return
	}

	updated, err := h.repo.UpdateStatus(r.Context(), leadID, status, req.Notes)
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	h.logger.Info("lead updated", "id", updated.ID, "status", updated.Status)
	respond.JSON(w, http.StatusOK, updated)
}

// resolveAdvisor decides whose leads the caller may manage. Advisors get their
// own; firm admins must name an advisor of their firm.
func (h *Handler) resolveAdvisor(ctx context.Context, requested string) (string, error) {
	who, ok := identity.FromContext(ctx)
	if !ok {
		return "", ErrForbidden
	}
	switch {
	case who.IsAdvisor():
		if requested != "" && requested != who.UserID {
			return "", ErrForbidden
		}
		return who.UserID, nil
	case who.IsFirmAdmin() && requested != "" && h.firms != nil:
		firmID, err := h.firms.FirmOf(ctx, requested)
		if err == nil && firmID != "" && firmID == who.FirmID {
			return requested, nil
		}
	}
	return "", ErrForbidden
}

func (h *Handler) writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrLeadNotFound) {
		respond.Error(w, http.StatusNotFound, err.Error())
		return
	}
	h.logger.Error("lead request failed", "error", err)
	respond.Error(w, http.StatusInternalServerError, "internal error")
}
