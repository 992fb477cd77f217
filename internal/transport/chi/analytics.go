package chi

import (
	"context"
	"net/http"
)

// analyticsHandler adapts an analytics query to an HTTP handler.
func analyticsHandler[T any](s *Server, query func(context.Context) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := query(r.Context())
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}
