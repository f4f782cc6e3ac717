package appointments

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/advisor-match/internal/http/respond"
	"github.com/wolfman30/advisor-match/internal/identity"
	"github.com/wolfman30/advisor-match/pkg/logging"
)

// Handler serves /appointments and /advisors/{advisorID}/categories.
type Handler struct {
	service    *Service
	categories *Categories
	logger     *logging.Logger
	loc        *time.Location
	now        func() time.Time
}

func NewHandler(service *Service, categories *Categories, loc *time.Location, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	if categories == nil {
		categories = NewCategories(nil)
	}
	return &Handler{service: service, categories: categories, logger: logger, loc: loc, now: time.Now}
}

// Routes mounts under /appointments.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/calendar", h.Calendar)
	r.Get("/{appointmentID}", h.Get)
	r.Post("/{appointmentID}/status", h.UpdateStatus)
}

// CategoryRoutes mounts under /advisors/{advisorID}/categories.
func (h *Handler) CategoryRoutes(r chi.Router) {
	r.Get("/", h.ListCategories)
	r.Post("/reset", h.ResetCategories)
	r.Patch("/{categoryID}", h.EditCategory)
	r.Post("/{categoryID}/toggle", h.ToggleCategory)
}

// View is an appointment decorated for display.
type View struct {
	Appointment
	CategoryLabel string   `json:"category_label"`
	TimeLabel     string   `json:"time_label"`
	NextStatuses  []Status `json:"next_statuses"`
}

func (h *Handler) views(ctx context.Context, appts []Appointment) []View {
	cache := make(map[string][]Category)
	out := make([]View, 0, len(appts))
	for _, a := range appts {
		cats, ok := cache[a.AdvisorID]
		if !ok {
			var err error
			if cats, err = h.categories.List(ctx, a.AdvisorID); err != nil {
				h.logger.Warn("failed to load categories", "advisor_id", a.AdvisorID, "error", err)
			}
			cache[a.AdvisorID] = cats
		}
		out = append(out, View{
			Appointment:   a,
			CategoryLabel: ResolveCategoryLabel(cats, a.CategoryID),
			TimeLabel:     a.TimeLabel(),
			NextStatuses:  AllowedNext(a.Status),
		})
	}
	return out
}

type listResponse struct {
	Appointments []View `json:"appointments"`
	Count        int    `json:"count"`
	Status       string `json:"status"`
	Query        string `json:"q,omitempty"`
}

// List handles GET /appointments?q=&status=&advisor_id=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	who, ok := identity.FromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "sign in to view appointments")
		return
	}
	filter, err := ParseFilter(r.URL.Query().Get("q"), r.URL.Query().Get("status"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	appts, err := h.service.ListFor(r.Context(), who, r.URL.Query().Get("advisor_id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	matched := filter.Apply(appts, h.now().In(h.loc))
	respond.JSON(w, http.StatusOK, listResponse{
		Appointments: h.views(r.Context(), matched),
		Count:        len(matched),
		Status:       filter.Status,
		Query:        filter.Query,
	})
}

type calendarResponse struct {
	Month string          `json:"month"`
	Weeks [][]CalendarDay `json:"weeks"`
}

// Calendar handles GET /appointments/calendar?month=YYYY-MM.
func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	who, ok := identity.FromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "sign in to view appointments")
		return
	}
	month := r.URL.Query().Get("month")
	if month == "" {
		month = h.now().In(h.loc).Format("2006-01")
	}
	year, m, err := ParseMonth(month)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	appts, err := h.service.ListFor(r.Context(), who, r.URL.Query().Get("advisor_id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, calendarResponse{Month: month, Weeks: MonthGrid(appts, year, m)})
}

// Get handles GET /appointments/{appointmentID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	who, ok := identity.FromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "sign in to view appointments")
		return
	}
	appt, err := h.service.Get(r.Context(), who, chi.URLParam(r, "appointmentID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, h.views(r.Context(), []Appointment{appt})[0])
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus handles POST /appointments/{appointmentID}/status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	who, ok := identity.FromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "sign in to change appointments")
		return
	}
	var req statusRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	requested, err := ParseStatus(req.Status)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	appt, err := h.service.Transition(r.Context(), who, chi.URLParam(r, "appointmentID"), requested)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, h.views(r.Context(), []Appointment{appt})[0])
}

// ListCategories handles GET /advisors/{advisorID}/categories.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	list, err := h.categories.List(r.Context(), chi.URLParam(r, "advisorID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"categories": list})
}

// ResetCategories handles POST /advisors/{advisorID}/categories/reset.
func (h *Handler) ResetCategories(w http.ResponseWriter, r *http.Request) {
	advisorID := chi.URLParam(r, "advisorID")
	if !h.canEditCategories(r.Context(), advisorID) {
		h.writeError(w, ErrForbidden)
		return
	}
	list, err := h.categories.Reset(r.Context(), advisorID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"categories": list})
}

// EditCategory handles PATCH /advisors/{advisorID}/categories/{categoryID}.
func (h *Handler) EditCategory(w http.ResponseWriter, r *http.Request) {
	advisorID := chi.URLParam(r, "advisorID")
	if !h.canEditCategories(r.Context(), advisorID) {
		h.writeError(w, ErrForbidden)
		return
	}
	var edit CategoryEdit
	if err := respond.Decode(r, &edit); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	list, err := h.categories.Edit(r.Context(), advisorID, chi.URLParam(r, "categoryID"), edit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"categories": list})
}

// ToggleCategory handles POST /advisors/{advisorID}/categories/{categoryID}/toggle.
func (h *Handler) ToggleCategory(w http.ResponseWriter, r *http.Request) {
	advisorID := chi.URLParam(r, "advisorID")
	if !h.canEditCategories(r.Context(), advisorID) {
		h.writeError(w, ErrForbidden)
		return
	}
	list, err := h.categories.Toggle(r.Context(), advisorID, chi.URLParam(r, "categoryID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"categories": list})
}

func (h *Handler) canEditCategories(ctx context.Context, advisorID string) bool {
	who, ok := identity.FromContext(ctx)
	if !ok {
		return false
	}
	if who.IsAdvisor() && who.UserID == advisorID {
		return true
	}
	return who.IsFirmAdmin() && h.service.sameFirm(ctx, who, advisorID)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrCategoryNotFound):
		respond.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrForbidden):
		respond.Error(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrIllegalTransition), errors.Is(err, ErrSlotTaken):
		respond.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidCategory), errors.Is(err, ErrInvalidAppointment),
		errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrInvalidFilter):
		respond.Error(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("appointments request failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "internal error")
	}
}
