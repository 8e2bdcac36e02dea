package actuator

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsOriginAllowed(t *testing.T) {
	tests := []struct {
		name    string
		origin  string
		allowed []string
		want    bool
	}{
		{name: "exact match", origin: "https://apps.example.com", allowed: []string{"https://apps.example.com"}, want: true},
		{name: "no match", origin: "https://evil.com", allowed: []string{"https://apps.example.com"}, want: false},
		{name: "wildcard all", origin: "https://any-site.com", allowed: []string{"*"}, want: true},
		{name: "subdomain wildcard", origin: "https://apps.sys.example.com", allowed: []string{"https://*.example.com"}, want: true},
		{name: "subdomain wildcard skips root", origin: "https://example.com", allowed: []string{"https://*.example.com"}, want: false},
		{name: "port wildcard", origin: "http://localhost:3000", allowed: []string{"http://localhost:*"}, want: true},
		{name: "port wildcard other host", origin: "http://remote:3000", allowed: []string{"http://localhost:*"}, want: false},
		{name: "same origin request", origin: "", allowed: []string{"*"}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isOriginAllowed(tt.origin, tt.allowed))
		})
	}
}

func TestCORSMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	enabled := DefaultCORSConfig()
	enabled.Enabled = true
	enabled.AllowedOrigins = []string{"https://apps.example.com"}

	tests := []struct {
		name       string
		config     CORSConfig
		method     string
		origin     string
		preflight  bool
		wantStatus int
		wantOrigin string
	}{
		{name: "disabled", config: DefaultCORSConfig(), method: http.MethodGet, origin: "https://apps.example.com", wantStatus: http.StatusOK},
		{name: "allowed origin", config: enabled, method: http.MethodGet, origin: "https://apps.example.com", wantStatus: http.StatusOK, wantOrigin: "https://apps.example.com"},
		{name: "disallowed origin", config: enabled, method: http.MethodGet, origin: "https://evil.com", wantStatus: http.StatusOK},
		{name: "preflight", config: enabled, method: http.MethodOptions, origin: "https://apps.example.com", preflight: true, wantStatus: http.StatusNoContent, wantOrigin: "https://apps.example.com"},
		{name: "plain options", config: enabled, method: http.MethodOptions, origin: "https://apps.example.com", wantStatus: http.StatusOK, wantOrigin: "https://apps.example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/actuator/health", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodGet)
			}
			rec := httptest.NewRecorder()
			corsMiddleware(tt.config)(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
			if tt.wantOrigin != "" {
				assert.Equal(t, "86400", rec.Header().Get("Access-Control-Max-Age"))
				assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "X-Cf-App-Instance")
			}
		})
	}
}
