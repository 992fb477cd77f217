package chi

import (
	"encoding/json"
	"net/http"
	"time"

	chirouter "github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	"github.com/DevHassanMehdi/ImageUpLift/internal/logger"
	"github.com/DevHassanMehdi/ImageUpLift/internal/metrics"
)

// RouterOptions configures the middleware stack.
type RouterOptions struct {
	AllowedOrigins []string
	// RequestsPerMinute limits each client IP. Zero disables limiting.
	RequestsPerMinute int
	// APIKeys enables Bearer authentication when non-empty.
	APIKeys []string
}

// Router builds the chi router with every route and middleware.
func (s *Server) Router(opts RouterOptions) http.Handler {
	r := chirouter.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Conversion-ID", "X-Image-ID", "X-Time-Taken", "X-Device", "X-Params", "X-Request-ID"},
		MaxAge:         300,
	}))
	if opts.RequestsPerMinute > 0 {
		r.Use(httprate.Limit(opts.RequestsPerMinute, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
				writeError(w, http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded")
			}),
		))
	}
	r.Use(BearerAuthMiddleware(opts.APIKeys))
	r.Use(metrics.Middleware())

	r.Get("/", s.Root)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Get("/usage", s.GetUsage)
	r.Post("/recommend", s.Recommend)

	r.Route("/conversion", func(r chirouter.Router) {
		r.Post("/", s.Convert)
		r.Get("/list", s.ListConversions)
		r.Get("/output/{id}", s.ConversionOutput)
		r.Get("/{id}", s.GetConversion)
		r.Delete("/{id}", s.DeleteConversion)
	})

	a := s.svc.Analytics
	r.Route("/analytics", func(r chirouter.Router) {
		r.Get("/summary", analyticsHandler(s, a.Summary))
		r.Get("/mode-usage", analyticsHandler(s, a.ModeUsage))
		r.Get("/daily-trend", analyticsHandler(s, a.DailyTrend))
		r.Get("/recent", analyticsHandler(s, a.Recent))
		r.Get("/time-by-mode", analyticsHandler(s, a.TimeByMode))
		r.Get("/peak-hours", analyticsHandler(s, a.PeakHours))
		r.Get("/image-types", analyticsHandler(s, a.ImageTypes))
		r.Get("/fastest", analyticsHandler(s, a.Fastest))
		r.Get("/slowest", analyticsHandler(s, a.Slowest))
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})
	return r
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(log *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
					log.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(ErrorResponse{Code: CodeInternalError, Message: "internal error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(log *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := log.With(zap.String("request_id", requestID))
			ctx := logger.WithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
