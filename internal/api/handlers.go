package api

import (
	"errors"
	"net/http"

	"github.com/wonny/fluxrx/internal/contracts"
	"github.com/wonny/fluxrx/internal/engine"
	"github.com/wonny/fluxrx/internal/portfolio"
	"github.com/wonny/fluxrx/internal/selection"
	"github.com/wonny/fluxrx/pkg/httputil"
	"github.com/wonny/fluxrx/pkg/logger"
)

// Handler serves the analytics endpoints
// ⭐ SSOT: 모든 계산은 Engine에 위임 (핸들러는 디코딩/응답만)
type Handler struct {
	engine  *engine.Engine
	logger  *logger.Logger
	maxBody int64
}

// NewHandler creates a new analytics handler
func NewHandler(eng *engine.Engine, log *logger.Logger) *Handler {
	return &Handler{
		engine:  eng,
		logger:  log.WithComponent("api"),
		maxBody: httputil.DefaultMaxBody,
	}
}

// MetricsRequest POST /api/v1/metrics
type MetricsRequest struct {
	Series    contracts.PriceSeries  `json:"series"`
	Benchmark *contracts.PriceSeries `json:"benchmark,omitempty"`
}

// ScreenRequest POST /api/v1/screen
type ScreenRequest struct {
	Series    []contracts.PriceSeries `json:"series"`
	Benchmark *contracts.PriceSeries  `json:"benchmark,omitempty"`
	SortBy    string                  `json:"sort_by,omitempty"`
	Order     string                  `json:"order,omitempty"`
	Top       int                     `json:"top,omitempty"`
}

// OptimizeRequest POST /api/v1/optimize
type OptimizeRequest struct {
	Series      []contracts.PriceSeries    `json:"series"`
	Objective   string                     `json:"objective,omitempty"`
	AssetBounds map[string]portfolio.Bound `json:"asset_bounds,omitempty"`
}

// BatchRequest POST /api/v1/covariance
type BatchRequest struct {
	Series []contracts.PriceSeries `json:"series"`
}

// HurstRequest POST /api/v1/hurst
type HurstRequest struct {
	Series contracts.PriceSeries `json:"series"`
}

// HistoryRequest POST /api/v1/history
type HistoryRequest struct {
	Series contracts.PriceSeries `json:"series"`
	Window int                   `json:"window,omitempty"`
}

// Metrics computes the metric set of one asset
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	var req MetricsRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.engine.Metrics(req.Series, req.Benchmark)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, h.engine.Wrap("metrics", res))
}

// Screen ranks a batch of assets
func (h *Handler) Screen(w http.ResponseWriter, r *http.Request) {
	var req ScreenRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.engine.Screen(r.Context(), req.Series, req.Benchmark, req.SortBy, selection.Order(req.Order))
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	if req.Top > 0 {
		res.Ranked = res.Top(req.Top)
	}
	httputil.RespondJSON(w, http.StatusOK, h.engine.Wrap("screen", res))
}

// Optimize solves for portfolio weights
func (h *Handler) Optimize(w http.ResponseWriter, r *http.Request) {
	var req OptimizeRequest
	if !h.decode(w, r, &req) {
		return
	}
	rep, err := h.engine.Optimize(r.Context(), req.Series, engine.OptimizeRequest{
		Objective:   req.Objective,
		AssetBounds: req.AssetBounds,
	})
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, h.engine.Wrap("optimize", rep))
}

// Covariance estimates the annualized covariance of a batch
func (h *Handler) Covariance(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if !h.decode(w, r, &req) {
		return
	}
	rep, err := h.engine.Covariance(req.Series)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, h.engine.Wrap("covariance", rep))
}

// Hurst runs R/S analysis on one asset
func (h *Handler) Hurst(w http.ResponseWriter, r *http.Request) {
	var req HurstRequest
	if !h.decode(w, r, &req) {
		return
	}
	rep, err := h.engine.Hurst(req.Series)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, h.engine.Wrap("hurst", rep))
}

// History returns drawdown, rolling and period-return series of one asset
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	var req HistoryRequest
	if !h.decode(w, r, &req) {
		return
	}
	rep, err := h.engine.History(req.Series, req.Window)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, h.engine.Wrap("history", rep))
}

// decode parses the body; 실패 시 400 응답 후 false
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := httputil.DecodeJSON(r, v, h.maxBody); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// respondDomainError maps engine errors to HTTP.
// 도메인 오류 → 422 (kind/asset/metric 포함), 취소 → 503, 그 외 → 500
func (h *Handler) respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	if e, ok := contracts.AsError(err); ok {
		httputil.RespondJSON(w, http.StatusUnprocessableEntity, httputil.ErrorBody{
			Error:  err.Error(),
			Kind:   string(e.Kind),
			Asset:  e.Asset,
			Metric: e.Metric,
		})
		return
	}
	if errors.Is(err, contracts.ErrConfig) {
		httputil.RespondJSON(w, http.StatusUnprocessableEntity, httputil.ErrorBody{
			Error: err.Error(),
			Kind:  string(contracts.KindConfig),
		})
		return
	}
	if r.Context().Err() != nil {
		httputil.RespondError(w, http.StatusServiceUnavailable, "request cancelled")
		return
	}

	h.logger.WithError(err).WithField("path", r.URL.Path).Error("Unhandled engine error")
	httputil.RespondError(w, http.StatusInternalServerError, "internal error")
}
