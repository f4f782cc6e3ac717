package profiles

import (
	"errors"
	"net/http"

	"github.com/wolfman30/advisor-match/internal/http/respond"
	"github.com/wolfman30/advisor-match/internal/identity"
	"github.com/wolfman30/advisor-match/pkg/logging"
)

// Handler serves /me/profile and /advisors.
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

// GetMe handles GET /me/profile.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	who, ok := identity.FromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "sign in required")
		return
	}
	p, err := h.service.Me(r.Context(), who)
	if err != nil {
		h.logger.Error("failed to load profile", "user_id", who.UserID, "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	respond.JSON(w, http.StatusOK, p)
}

// PutMe handles PUT /me/profile.
func (h *Handler) PutMe(w http.ResponseWriter, r *http.Request) {
	who, ok := identity.FromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "sign in required")
		return
	}
	var req UpdateRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := h.service.UpdateMe(r.Context(), who, req)
	if err != nil {
		if errors.Is(err, ErrInvalidProfile) {
			respond.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to update profile", "user_id", who.UserID, "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to update profile")
		return
	}
	respond.JSON(w, http.StatusOK, p)
}

// ListAdvisors handles GET /advisors?q=.
func (h *Handler) ListAdvisors(w http.ResponseWriter, r *http.Request) {
	advisors, err := h.service.ListAdvisors(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.logger.Error("failed to list advisors", "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to list advisors")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"advisors": advisors, "count": len(advisors)})
}
