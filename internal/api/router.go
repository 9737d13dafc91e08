package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/fluxrx/internal/observability"
	"github.com/wonny/fluxrx/pkg/httputil"
	"github.com/wonny/fluxrx/pkg/logger"
)

// RouterOptions 선택 구성요소 (nil이면 비활성)
type RouterOptions struct {
	Limiter Limiter
	Metrics *observability.Metrics
	Version string
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h *Handler, log *logger.Logger, opts RouterOptions) http.Handler {
	log = log.WithComponent("api")
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler(h, opts.Version)).Methods(http.MethodGet)

	// Prometheus (레이트 리밋 제외)
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics.Handler()).Methods(http.MethodGet)
	}

	// API v1
	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/metrics", h.Metrics).Methods(http.MethodPost)
	v1.HandleFunc("/screen", h.Screen).Methods(http.MethodPost)
	v1.HandleFunc("/optimize", h.Optimize).Methods(http.MethodPost)
	v1.HandleFunc("/covariance", h.Covariance).Methods(http.MethodPost)
	v1.HandleFunc("/hurst", h.Hurst).Methods(http.MethodPost)
	v1.HandleFunc("/history", h.History).Methods(http.MethodPost)
	if opts.Limiter != nil {
		v1.Use(rateLimitMiddleware(opts.Limiter, opts.Metrics, log))
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httputil.RespondError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httputil.RespondError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	// Apply middleware
	r.Use(loggingMiddleware(log, opts.Metrics))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(h *Handler, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"status":      "ok",
			"service":     "fluxrx-api",
			"version":     version,
			"config_hash": h.engine.ConfigHash(),
		})
	}
}
