package dashboard

import (
	"errors"
	"net/http"

	"github.com/wolfman30/advisor-match/internal/http/respond"
	"github.com/wolfman30/advisor-match/internal/identity"
	"github.com/wolfman30/advisor-match/pkg/logging"
)

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

// Get handles GET /dashboard.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	who, ok := identity.FromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "sign in required")
		return
	}
	sum, err := h.service.For(r.Context(), who)
	if errors.Is(err, ErrForbidden) {
		respond.Error(w, http.StatusForbidden, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("failed to build dashboard", "user_id", who.UserID, "error", err)
		respond.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	respond.JSON(w, http.StatusOK, sum)
}
