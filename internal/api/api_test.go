package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fluxrx/internal/contracts"
	"github.com/wonny/fluxrx/internal/engine"
	"github.com/wonny/fluxrx/internal/observability"
	"github.com/wonny/fluxrx/pkg/logger"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func walk(asset string, seed int64, n int, drift, sigma float64) contracts.PriceSeries {
	rng := rand.New(rand.NewSource(seed))
	s := contracts.PriceSeries{Asset: asset}
	p := 100.0
	for i := 0; i < n; i++ {
		s.Points = append(s.Points, contracts.PricePoint{Time: start.AddDate(0, 0, i), Price: p})
		p *= 1 + drift + sigma*rng.NormFloat64()
	}
	return s
}

func basket() []contracts.PriceSeries {
	return []contracts.PriceSeries{
		walk("AAA", 1, 200, 0.0005, 0.01),
		walk("BBB", 2, 200, 0.0003, 0.02),
		walk("CCC", 3, 200, 0.0001, 0.005),
	}
}

func newTestRouter(t *testing.T, opts RouterOptions) (http.Handler, *observability.Metrics) {
	t.Helper()
	if opts.Metrics == nil {
		opts.Metrics = observability.NewMetrics()
	}
	eng, err := engine.New(nil, nil, opts.Metrics)
	require.NoError(t, err)
	return NewRouter(NewHandler(eng, logger.NewNop()), logger.NewNop(), opts), opts.Metrics
}

func post(t *testing.T, h http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	RunID      string          `json:"run_id"`
	ConfigHash string          `json:"config_hash"`
	Operation  string          `json:"operation"`
	Result     json.RawMessage `json:"result"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.NotEmpty(t, env.RunID)
	assert.Len(t, env.ConfigHash, 64)
	return env
}

func TestHealth(t *testing.T) {
	h, _ := newTestRouter(t, RouterOptions{Version: "test"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := newTestRouter(t, RouterOptions{})

	rec := post(t, h, "/api/v1/metrics", MetricsRequest{Series: walk("SPY", 7, 120, 0.0004, 0.01)})
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "metrics", env.Operation)

	var res map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Result, &res))
	assert.Equal(t, "SPY", res["asset"])
	assert.Contains(t, res, "sharpe_ratio")
}

func TestScreenEndpoint(t *testing.T) {
	h, _ := newTestRouter(t, RouterOptions{})
	batch := append(basket(), walk("ONE", 9, 1, 0, 0))

	rec := post(t, h, "/api/v1/screen", ScreenRequest{Series: batch, SortBy: contracts.MetricVolatility, Top: 2})
	env := decodeEnvelope(t, rec)

	var res contracts.ScreenResult
	require.NoError(t, json.Unmarshal(env.Result, &res))
	assert.Equal(t, contracts.MetricVolatility, res.SortBy)
	assert.Equal(t, "asc", res.Order)
	require.Len(t, res.Ranked, 2)
	assert.Equal(t, "CCC", res.Ranked[0].Asset)
	require.Len(t, res.Excluded, 1)
	assert.Equal(t, "ONE", res.Excluded[0].Asset)
	assert.Equal(t, contracts.KindInsufficientData, res.Excluded[0].Kind)
}

func TestOptimizeEndpoint(t *testing.T) {
	h, m := newTestRouter(t, RouterOptions{})

	rec := post(t, h, "/api/v1/optimize", OptimizeRequest{Series: basket(), Objective: "min_volatility"})
	env := decodeEnvelope(t, rec)

	var rep struct {
		Result struct {
			Objective string             `json:"objective"`
			Weights   map[string]float64 `json:"weights"`
		} `json:"result"`
		Periods int `json:"periods"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &rep))
	assert.Equal(t, "min_volatility", rep.Result.Objective)
	assert.Equal(t, 199, rep.Periods)

	sum := 0.0
	for _, w := range rep.Result.Weights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/api/v1/optimize", "200")))
}

func TestCovarianceEndpoint(t *testing.T) {
	h, _ := newTestRouter(t, RouterOptions{})

	rec := post(t, h, "/api/v1/covariance", BatchRequest{Series: basket()})
	env := decodeEnvelope(t, rec)

	var rep struct {
		Matrix struct {
			Assets     []string    `json:"assets"`
			Covariance [][]float64 `json:"covariance"`
		} `json:"matrix"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &rep))
	assert.Equal(t, []string{"AAA", "BBB", "CCC"}, rep.Matrix.Assets)
	require.Len(t, rep.Matrix.Covariance, 3)
	assert.InDelta(t, rep.Matrix.Covariance[0][1], rep.Matrix.Covariance[1][0], 1e-15)
}

func TestHistoryEndpoint(t *testing.T) {
	h, _ := newTestRouter(t, RouterOptions{})

	rec := post(t, h, "/api/v1/history", HistoryRequest{Series: walk("SPY", 7, 120, 0.0004, 0.01), Window: 10})
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "history", env.Operation)

	var rep struct {
		Window            int               `json:"window"`
		Drawdown          []json.RawMessage `json:"drawdown"`
		RollingVolatility []json.RawMessage `json:"rolling_volatility"`
		MonthlyReturns    []json.RawMessage `json:"monthly_returns"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &rep))
	assert.Equal(t, 10, rep.Window)
	assert.Len(t, rep.Drawdown, 120)
	assert.Len(t, rep.RollingVolatility, 110)
	assert.NotEmpty(t, rep.MonthlyReturns)
}

func TestDomainErrorsAre422(t *testing.T) {
	h, _ := newTestRouter(t, RouterOptions{})

	tests := []struct {
		name  string
		path  string
		body  interface{}
		kind  contracts.ErrorKind
		asset string
	}{
		{"insufficient data", "/api/v1/metrics", MetricsRequest{Series: walk("ONE", 1, 1, 0, 0)}, contracts.KindInsufficientData, "ONE"},
		{"unknown objective", "/api/v1/optimize", OptimizeRequest{Series: basket(), Objective: "min_drawdown"}, contracts.KindInvalidObjective, ""},
		{"unknown sort field", "/api/v1/screen", ScreenRequest{Series: basket(), SortBy: "momentum"}, contracts.KindConfig, ""},
		{"insufficient hurst sample", "/api/v1/hurst", HurstRequest{Series: walk("H", 1, 30, 0, 0.01)}, contracts.KindInsufficientData, "H"},
		{"history window", "/api/v1/history", HistoryRequest{Series: walk("R", 1, 30, 0, 0.01), Window: 1}, contracts.KindInvalidPeriod, "R"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, h, tt.path, tt.body)
			require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, string(tt.kind), body["kind"])
			assert.Equal(t, tt.asset, body["asset"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestMalformedRequestsAre400(t *testing.T) {
	h, _ := newTestRouter(t, RouterOptions{})

	for _, body := range []string{``, `{`, `{"serie":[]}`, `[1,2]`} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/screen", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestMethodAndRouteErrors(t *testing.T) {
	h, _ := newTestRouter(t, RouterOptions{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/screen", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v2/nothing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimit(t *testing.T) {
	m := observability.NewMetrics()
	h, _ := newTestRouter(t, RouterOptions{Limiter: NewLocalLimiter(0.001, 2), Metrics: m})
	body := MetricsRequest{Series: walk("SPY", 7, 60, 0.0004, 0.01)}

	assert.Equal(t, http.StatusOK, post(t, h, "/api/v1/metrics", body).Code)
	assert.Equal(t, http.StatusOK, post(t, h, "/api/v1/metrics", body).Code)

	rec := post(t, h, "/api/v1/metrics", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimitDenied))

	// health는 제한 대상 아님
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func TestRateLimit_FailsOpen(t *testing.T) {
	h, _ := newTestRouter(t, RouterOptions{Limiter: failingLimiter{}})

	rec := post(t, h, "/api/v1/metrics", MetricsRequest{Series: walk("SPY", 7, 60, 0.0004, 0.01)})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLocalLimiter_PerClient(t *testing.T) {
	l := NewLocalLimiter(0.001, 1)
	ctx := context.Background()

	ok, _ := l.Allow(ctx, "10.0.0.1")
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "10.0.0.1")
	assert.False(t, ok)
	ok, _ = l.Allow(ctx, "10.0.0.2")
	assert.True(t, ok)
}

func TestPrometheusEndpoint(t *testing.T) {
	h, _ := newTestRouter(t, RouterOptions{})
	post(t, h, "/api/v1/metrics", MetricsRequest{Series: walk("SPY", 7, 60, 0.0004, 0.01)})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fluxrx_engine_operations_total")
	assert.Contains(t, rec.Body.String(), "fluxrx_api_requests_total")
}
