package chat

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/advisor-match/internal/http/respond"
	"github.com/wolfman30/advisor-match/internal/identity"
	"github.com/wolfman30/advisor-match/pkg/logging"
)

// Handler serves /chats.
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

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{chatID}", h.Get)
	r.Post("/{chatID}/messages", h.Post)
}

type postRequest struct {
	Body string `json:"body"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	who, ok := identity.FromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "sign in required")
		return
	}
	chats, err := h.service.List(r.Context(), who)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"chats": chats})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	who, ok := identity.FromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "sign in required")
		return
	}
	thread, err := h.service.Get(r.Context(), who, chi.URLParam(r, "chatID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, thread)
}

func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	who, ok := identity.FromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "sign in required")
		return
	}
	var req postRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	msg, err := h.service.Post(r.Context(), who, chi.URLParam(r, "chatID"), req.Body)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, msg)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrEmptyMessage), errors.Is(err, ErrTooLong):
		respond.Error(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error("chat request failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "internal error")
	}
}
