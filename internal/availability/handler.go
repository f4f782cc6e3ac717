package availability

import (
	"context"
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

// Handler serves /advisors/{advisorID}/availability.
type Handler struct {
	service *Service
	firms   FirmLookup
	logger  *logging.Logger
}

func NewHandler(service *Service, firms FirmLookup, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, firms: firms, logger: logger}
}

// Routes mounts under /advisors/{advisorID}/availability.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Add)
	r.Get("/week", h.Week)
	r.Delete("/{slotID}", h.Remove)
}

type listResponse struct {
	AdvisorID string           `json:"advisor_id"`
	Slots     []TimeSlot       `json:"slots"`
	ByDay     map[Day][]string `json:"labels_by_day"`
}

func newListResponse(advisorID string, slots []TimeSlot) listResponse {
	byDay := make(map[Day][]string)
	for day, group := range GroupByDay(slots) {
		for _, s := range group {
			byDay[day] = append(byDay[day], s.Label())
		}
	}
	return listResponse{AdvisorID: advisorID, Slots: slots, ByDay: byDay}
}

// List handles GET /advisors/{advisorID}/availability.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	advisorID := chi.URLParam(r, "advisorID")
	slots, err := h.service.List(r.Context(), advisorID)
	if err != nil {
		h.logger.Error("failed to list availability", "advisor_id", advisorID, "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to load availability")
		return
	}
	respond.JSON(w, http.StatusOK, newListResponse(advisorID, slots))
}

// Add handles POST /advisors/{advisorID}/availability.
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	advisorID := chi.URLParam(r, "advisorID")
	if err := h.authorize(r.Context(), advisorID); err != nil {
		h.writeError(w, err)
		return
	}
	var draft Draft
	if err := respond.Decode(r, &draft); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.service.AddSlot(r.Context(), advisorID, draft)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, res)
}

// Remove handles DELETE /advisors/{advisorID}/availability/{slotID}.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	advisorID := chi.URLParam(r, "advisorID")
	if err := h.authorize(r.Context(), advisorID); err != nil {
		h.writeError(w, err)
		return
	}
	slots, err := h.service.RemoveSlot(r.Context(), advisorID, chi.URLParam(r, "slotID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, newListResponse(advisorID, slots))
}

// Week handles GET /advisors/{advisorID}/availability/week?offset=N.
func (h *Handler) Week(w http.ResponseWriter, r *http.Request) {
	advisorID := chi.URLParam(r, "advisorID")
	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "offset must be an integer")
			return
		}
		offset = n
	}
	week, err := h.service.Week(r.Context(), advisorID, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, week)
}

// authorize lets the advisor edit their own slots, and firm admins edit
// slots of advisors in their firm.
func (h *Handler) authorize(ctx context.Context, advisorID string) error {
	id, ok := identity.FromContext(ctx)
	if !ok {
		return ErrForbidden
	}
	switch {
	case id.IsAdvisor() && id.UserID == advisorID:
		return nil
	case id.IsFirmAdmin() && h.firms != nil && id.FirmID != "":
		firmID, err := h.firms.FirmOf(ctx, advisorID)
		if err != nil {
			h.logger.Warn("firm lookup failed", "advisor_id", advisorID, "error", err)
			return ErrForbidden
		}
		if firmID == id.FirmID {
			return nil
		}
	}
	return ErrForbidden
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrForbidden):
		respond.Error(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrSlotNotFound):
		respond.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrSlotOverlap):
		respond.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrWeekOutOfRange):
		respond.Error(w, http.StatusBadRequest, err.Error())
	case IsValidation(err):
		respond.Error(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error("availability request failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "internal error")
	}
}
