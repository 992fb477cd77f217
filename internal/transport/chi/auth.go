package chi

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/DevHassanMehdi/ImageUpLift/internal/logger"
)

// publicPaths never require a key.
var publicPaths = map[string]bool{
	"/":        true,
	"/health":  true,
	"/metrics": true,
}

// apiKeys holds SHA-256 digests so every comparison has the same length.
type apiKeys [][sha256.Size]byte

func newAPIKeys(raw []string) apiKeys {
	var keys apiKeys
	for _, k := range raw {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, sha256.Sum256([]byte(k)))
		}
	}
	return keys
}

func (ks apiKeys) match(token string) bool {
	sum := sha256.Sum256([]byte(token))
	found := 0
	for i := range ks {
		found |= subtle.ConstantTimeCompare(sum[:], ks[i][:])
	}
	return found == 1
}

// bearerToken extracts the credentials of an "Authorization: Bearer" header.
// The scheme is matched case-insensitively.
func bearerToken(r *http.Request) (string, string) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", "missing authorization header"
	}
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", "authorization header must use Bearer scheme"
	}
	return strings.TrimSpace(token), ""
}

// BearerAuthMiddleware rejects requests without one of apiKeys as a Bearer
// token. With no non-empty keys it is a pass-through. Public paths and CORS
// preflights are never checked.
func BearerAuthMiddleware(raw []string) func(http.Handler) http.Handler {
	keys := newAPIKeys(raw)

	return func(next http.Handler) http.Handler {
		if len(keys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			token, problem := bearerToken(r)
			if problem == "" && !keys.match(token) {
				problem = "invalid api key"
			}
			if problem != "" {
				logger.FromContext(r.Context()).Info("Request rejected", zap.String("reason", problem))
				w.Header().Set("WWW-Authenticate", `Bearer realm="imageuplift"`)
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, problem)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
