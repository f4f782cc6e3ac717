package appointments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/advisor-match/internal/identity"
)

func newHandlerFixture(t *testing.T) (http.Handler, *Service) {
	t.Helper()
	svc, _, _ := newTestService(t)
	h := NewHandler(svc, NewCategories(NewMemoryCategoryStore()), time.UTC, nil)
	h.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	r := chi.NewRouter()
	r.Route("/appointments", h.Routes)
	r.Route("/advisors/{advisorID}/categories", h.CategoryRoutes)
	return r, svc
}

func serve(t *testing.T, router http.Handler, method, path, body string, who *identity.Identity) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if who != nil {
		req = req.WithContext(identity.WithIdentity(req.Context(), *who))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandlerListDecoratesAppointments(t *testing.T) {
	router, svc := newHandlerFixture(t)
	_, err := svc.Create(context.Background(), sampleRequest())
	require.NoError(t, err)

	rec := serve(t, router, http.MethodGet, "/appointments?status=upcoming&q=free", "", &consumer)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body listResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "Free Consultation", body.Appointments[0].CategoryLabel)
	assert.Equal(t, "9:00 AM - 10:00 AM", body.Appointments[0].TimeLabel)
	assert.Equal(t, []Status{StatusConfirmed, StatusCancelled}, body.Appointments[0].NextStatuses)

	rec = serve(t, router, http.MethodGet, "/appointments?status=bogus", "", &consumer)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, router, http.MethodGet, "/appointments", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandlerStatusChanges(t *testing.T) {
	router, svc := newHandlerFixture(t)
	appt, err := svc.Create(context.Background(), sampleRequest())
	require.NoError(t, err)
	path := "/appointments/" + appt.ID + "/status"

	rec := serve(t, router, http.MethodPost, path, `{"status":"confirmed"}`, &consumer)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(t, router, http.MethodPost, path, `{"status":"confirmed"}`, &advisor)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = serve(t, router, http.MethodPost, path, `{"status":"canceled"}`, &consumer)
	require.Equal(t, http.StatusOK, rec.Code)
	var view View
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&view))
	assert.Equal(t, StatusCancelled, view.Status)
	assert.Empty(t, view.NextStatuses)

	rec = serve(t, router, http.MethodPost, path, `{"status":"completed"}`, &advisor)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = serve(t, router, http.MethodPost, path, `{"status":"archived"}`, &advisor)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, router, http.MethodPost, "/appointments/missing/status", `{"status":"confirmed"}`, &advisor)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerGetAndCalendar(t *testing.T) {
	router, svc := newHandlerFixture(t)
	appt, err := svc.Create(context.Background(), sampleRequest())
	require.NoError(t, err)

	rec := serve(t, router, http.MethodGet, "/appointments/"+appt.ID, "", &advisor)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = serve(t, router, http.MethodGet, "/appointments/"+appt.ID, "", &stranger)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, router, http.MethodGet, "/appointments/calendar?month=2026-03", "", &advisor)
	require.Equal(t, http.StatusOK, rec.Code)
	var cal calendarResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&cal))
	assert.Equal(t, "2026-03", cal.Month)
	assert.Len(t, cal.Weeks[1][0].Appointments, 1, "2026-03-02 is the Monday of the second row")

	rec = serve(t, router, http.MethodGet, "/appointments/calendar?month=march", "", &advisor)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerCategories(t *testing.T) {
	router, _ := newHandlerFixture(t)

	rec := serve(t, router, http.MethodGet, "/advisors/adv-1/categories", "", &consumer)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, router, http.MethodPost, "/advisors/adv-1/categories/tax-planning/toggle", "", &consumer)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(t, router, http.MethodPost, "/advisors/adv-1/categories/tax-planning/toggle", "", &advisor)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, router, http.MethodPatch, "/advisors/adv-1/categories/tax-planning", `{"duration_minutes":50}`, &firmAdmin)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Categories []Category `json:"categories"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 50, body.Categories[4].Duration)
	assert.False(t, body.Categories[4].Enabled)

	rec = serve(t, router, http.MethodPatch, "/advisors/adv-1/categories/nope", `{"duration_minutes":50}`, &advisor)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, router, http.MethodPost, "/advisors/adv-1/categories/reset", "", &advisor)
	require.Equal(t, http.StatusOK, rec.Code)
}
