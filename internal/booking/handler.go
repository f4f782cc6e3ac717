package booking

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/advisor-match/internal/appointments"
	"github.com/wolfman30/advisor-match/internal/http/respond"
	"github.com/wolfman30/advisor-match/internal/identity"
	"github.com/wolfman30/advisor-match/pkg/logging"
)

// Handler serves the consumer actions on an advisor page.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Book handles POST /advisors/{advisorID}/bookings.
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.AdvisorID = chi.URLParam(r, "advisorID")
	res, err := h.service.Book(r.Context(), caller(r), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, res)
}

// MessageAdvisor handles POST /advisors/{advisorID}/chat.
func (h *Handler) MessageAdvisor(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.MessageAdvisor(r.Context(), caller(r), chi.URLParam(r, "advisorID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

func caller(r *http.Request) *identity.Identity {
	if who, ok := identity.FromContext(r.Context()); ok {
		return &who
	}
	return nil
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotAuthenticated):
		respond.Error(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrChatDisabled):
		respond.Error(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrProfileIncomplete), errors.Is(err, ErrSlotTaken):
		respond.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrAdvisorNotFound):
		respond.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNoSlotSelected), errors.Is(err, ErrInvalidDate), errors.Is(err, ErrDateInPast),
		errors.Is(err, ErrDateOutOfRange), errors.Is(err, ErrSlotStarted),
		errors.Is(err, ErrSlotNotOffered), errors.Is(err, appointments.ErrInvalidAppointment):
		respond.Error(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error("booking request failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "internal error")
	}
}
