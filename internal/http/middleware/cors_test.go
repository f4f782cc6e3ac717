package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		allowed    []string
		origin     string
		method     string
		preflight  bool
		wantOrigin string
		wantCalled bool
		wantStatus int
	}{
		{"listed origin", []string{"https://app.example.com"}, "https://app.example.com", http.MethodGet, false, "https://app.example.com", true, http.StatusOK},
		{"trailing slash in config", []string{"https://app.example.com/"}, "https://app.example.com", http.MethodGet, false, "https://app.example.com", true, http.StatusOK},
		{"unknown origin", []string{"https://app.example.com"}, "https://evil.example", http.MethodGet, false, "", true, http.StatusOK},
		{"wildcard", []string{"*"}, "https://random.example", http.MethodGet, false, "https://random.example", true, http.StatusOK},
		{"preflight", []string{"https://app.example.com"}, "https://app.example.com", http.MethodOptions, true, "https://app.example.com", false, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			})
			req := httptest.NewRequest(tt.method, "/appointments", nil)
			req.Header.Set("Origin", tt.origin)
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rec := httptest.NewRecorder()
			CORS(tt.allowed)(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCalled, called)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
			if tt.wantOrigin != "" {
				assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
			}
		})
	}
}
