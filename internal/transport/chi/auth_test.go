package chi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		keys   []string
		method string
		path   string
		header string
		want   int
	}{
		{"no keys pass through", nil, http.MethodGet, "/conversion/list", "", http.StatusOK},
		{"empty string keys pass through", []string{"", ""}, http.MethodGet, "/conversion/list", "", http.StatusOK},
		{"missing header", []string{"secret"}, http.MethodGet, "/conversion/list", "", http.StatusUnauthorized},
		{"wrong scheme", []string{"secret"}, http.MethodGet, "/conversion/list", "Basic secret", http.StatusUnauthorized},
		{"invalid key", []string{"secret"}, http.MethodGet, "/conversion/list", "Bearer nope", http.StatusUnauthorized},
		{"valid key", []string{"secret"}, http.MethodGet, "/conversion/list", "Bearer secret", http.StatusOK},
		{"lowercase scheme", []string{"secret"}, http.MethodGet, "/conversion/list", "bearer secret", http.StatusOK},
		{"key padded in config", []string{" secret\n"}, http.MethodGet, "/conversion/list", "Bearer secret", http.StatusOK},
		{"empty token", []string{"secret"}, http.MethodGet, "/conversion/list", "Bearer ", http.StatusUnauthorized},
		{"key prefix", []string{"secret"}, http.MethodGet, "/conversion/list", "Bearer secre", http.StatusUnauthorized},
		{"second key", []string{"a", "b"}, http.MethodPost, "/recommend", "Bearer b", http.StatusOK},
		{"health exempt", []string{"secret"}, http.MethodGet, "/health", "", http.StatusOK},
		{"metrics exempt", []string{"secret"}, http.MethodGet, "/metrics", "", http.StatusOK},
		{"preflight exempt", []string{"secret"}, http.MethodOptions, "/recommend", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := BearerAuthMiddleware(tt.keys)(okHandler())

			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Fatalf("got %d, want %d", rr.Code, tt.want)
			}
			if tt.want != http.StatusUnauthorized {
				return
			}
			if got := rr.Header().Get("WWW-Authenticate"); got == "" {
				t.Error("missing WWW-Authenticate challenge")
			}
			var errResp ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if errResp.Code != CodeUnauthorized || errResp.Message == "" {
				t.Errorf("error response = %+v", errResp)
			}
		})
	}
}
