package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/fluxrx/internal/contracts"
	"github.com/wonny/fluxrx/internal/covariance"
	"github.com/wonny/fluxrx/internal/engineconfig"
	"github.com/wonny/fluxrx/internal/observability"
	"github.com/wonny/fluxrx/internal/portfolio"
	"github.com/wonny/fluxrx/internal/returns"
	"github.com/wonny/fluxrx/internal/risk"
	"github.com/wonny/fluxrx/internal/selection"
	"github.com/wonny/fluxrx/internal/timeseries"
	"github.com/wonny/fluxrx/pkg/logger"
)

// EqualWeightObjective 1/n 기준 포트폴리오 (최적화 없음)
const EqualWeightObjective = "equal_weight"

// Engine coordinates the analytics components behind one configuration
// ⭐ SSOT: 컴포넌트 조립은 여기서만 (CLI/API는 Engine만 사용)
type Engine struct {
	config *engineconfig.Config
	hash   string

	calculator *risk.Calculator
	estimator  *covariance.Estimator
	optimizer  *portfolio.Optimizer
	screener   *selection.Screener

	logger  *logger.Logger
	metrics *observability.Metrics
}

// New builds every component from cfg.
// nil cfg → engineconfig.Default(), nil log → Nop, nil metrics → 계측 생략
func New(cfg *engineconfig.Config, log *logger.Logger, metrics *observability.Metrics) (*Engine, error) {
	if cfg == nil {
		cfg = engineconfig.Default()
	}
	if err := engineconfig.Validate(cfg); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNop()
	}

	hash, err := engineconfig.Hash(cfg)
	if err != nil {
		return nil, fmt.Errorf("hash engine config: %w", err)
	}

	calc, err := risk.NewCalculator(cfg.Risk())
	if err != nil {
		return nil, fmt.Errorf("risk calculator: %w", err)
	}
	est, err := covariance.NewEstimator(cfg.CovarianceConfig())
	if err != nil {
		return nil, fmt.Errorf("covariance estimator: %w", err)
	}
	opt, err := portfolio.NewOptimizer(cfg.OptimizerConfig())
	if err != nil {
		return nil, fmt.Errorf("portfolio optimizer: %w", err)
	}
	scr, err := selection.NewScreener(calc, cfg.ScreenerConfig(), log)
	if err != nil {
		return nil, fmt.Errorf("screener: %w", err)
	}

	return &Engine{
		config:     cfg,
		hash:       hash,
		calculator: calc,
		estimator:  est,
		optimizer:  opt,
		screener:   scr,
		logger:     log.WithComponent("engine"),
		metrics:    metrics,
	}, nil
}

// Config returns the engine configuration
func (e *Engine) Config() *engineconfig.Config {
	return e.config
}

// ConfigHash returns the sha256 of the canonical configuration
func (e *Engine) ConfigHash() string {
	return e.hash
}

// Calculator exposes the metrics calculator
func (e *Engine) Calculator() *risk.Calculator {
	return e.calculator
}

// =============================================================================
// Per-asset
// =============================================================================

// Metrics computes the full metric set of one asset
func (e *Engine) Metrics(prices contracts.PriceSeries, benchmark *contracts.PriceSeries) (res *contracts.MetricsResult, err error) {
	defer e.observe("metrics", time.Now(), &err)

	res, err = e.calculator.Compute(prices, benchmark)
	if err != nil {
		return nil, err
	}
	e.logger.WithFields(map[string]interface{}{
		"asset":     prices.Asset,
		"points":    prices.Len(),
		"benchmark": benchmark != nil,
	}).Debug("Metrics computed")
	return res, nil
}

// HurstReport Hurst 지수와 해석 레이블
type HurstReport struct {
	Asset        string                 `json:"asset"`
	Hurst        contracts.Scalar       `json:"hurst"`
	Regime       timeseries.HurstRegime `json:"regime,omitempty"`
	ZScore       contracts.Scalar       `json:"z_score"`
	Observations int                    `json:"observations"`
}

// Hurst runs R/S analysis on the return series of one asset.
// 관측치 부족은 InsufficientDataError 그대로 반환
func (e *Engine) Hurst(prices contracts.PriceSeries) (rep *HurstReport, err error) {
	defer e.observe("hurst", time.Now(), &err)

	h, err := e.calculator.HurstOf(prices)
	if err != nil {
		return nil, err
	}
	rep = &HurstReport{
		Asset:        prices.Asset,
		Hurst:        h,
		ZScore:       timeseries.ZScore(prices.Prices(), e.config.ZScoreWindow),
		Observations: prices.Len() - 1,
	}
	if label, ok := timeseries.Classify(h); ok {
		rep.Regime = label
	}
	return rep, nil
}

// Regime classifies trend and volatility at the end of the series
func (e *Engine) Regime(prices contracts.PriceSeries) (reg *timeseries.Regime, err error) {
	defer e.observe("regime", time.Now(), &err)

	cfg := timeseries.DefaultRegimeConfig()
	cfg.PeriodsPerYear = float64(e.config.PeriodsPerYear)
	return timeseries.DetectRegime(prices, cfg)
}

// =============================================================================
// Cross-sectional
// =============================================================================

// Screen ranks a batch. 빈 field/order → 설정값
func (e *Engine) Screen(
	ctx context.Context,
	series []contracts.PriceSeries,
	benchmark *contracts.PriceSeries,
	field string,
	order selection.Order,
) (res *contracts.ScreenResult, err error) {
	defer e.observe("screen", time.Now(), &err)

	if field == "" {
		field = e.config.Screener.SortBy
		if order == "" {
			order = selection.Order(e.config.Screener.Order)
		}
	}
	res, err = e.screener.ScreenBy(ctx, series, benchmark, field, order)
	if err != nil {
		return nil, err
	}
	e.metrics.ObserveScreen(res)
	return res, nil
}

// CovarianceReport 정렬 결과와 공분산
type CovarianceReport struct {
	Matrix   *covariance.Matrix    `json:"matrix"`
	Excluded []contracts.Exclusion `json:"excluded"`
}

// Covariance aligns the batch and estimates the annualized covariance.
// 특이 행렬도 보고서로 반환 (Singular 플래그), 최적화만 거부
func (e *Engine) Covariance(series []contracts.PriceSeries) (rep *CovarianceReport, err error) {
	defer e.observe("covariance", time.Now(), &err)

	m, err := returns.Align(series, e.alignOptions())
	if err != nil {
		return nil, err
	}
	cov, err := e.estimator.Estimate(m)
	if err != nil {
		return nil, err
	}
	if cov.Singular {
		e.logger.WithField("condition_number", cov.ConditionNumber).Warn("Covariance is ill-conditioned")
	}
	return &CovarianceReport{Matrix: cov, Excluded: excludedOrEmpty(m.Excluded)}, nil
}

// OptimizeRequest 최적화 요청 (빈 값은 설정 사용)
type OptimizeRequest struct {
	Objective   string                     `json:"objective,omitempty"`
	AssetBounds map[string]portfolio.Bound `json:"asset_bounds,omitempty"`
}

// OptimizeReport 최적화 결과 + 입력 요약
type OptimizeReport struct {
	Result          *contracts.OptimizationResult `json:"result"`
	ExpectedReturns map[string]float64            `json:"expected_returns"`
	Periods         int                           `json:"periods"`
	Excluded        []contracts.Exclusion         `json:"excluded"`
}

// Optimize runs align → covariance → expected returns → solve
func (e *Engine) Optimize(ctx context.Context, series []contracts.PriceSeries, req OptimizeRequest) (rep *OptimizeReport, err error) {
	defer e.observe("optimize", time.Now(), &err)

	in, err := e.prepare(series)
	if err != nil {
		return nil, err
	}

	var res *contracts.OptimizationResult
	if req.Objective == EqualWeightObjective {
		opt, oerr := e.optimizerFor("", req.AssetBounds, in.excluded)
		if oerr != nil {
			return nil, oerr
		}
		res, err = opt.EqualWeight(in.cov, in.expected)
	} else {
		opt, oerr := e.optimizerFor(req.Objective, req.AssetBounds, in.excluded)
		if oerr != nil {
			return nil, oerr
		}
		res, err = opt.Optimize(ctx, in.cov, in.expected)
	}
	if err != nil {
		return nil, err
	}
	e.metrics.ObserveOptimization(res)

	e.logger.WithFields(map[string]interface{}{
		"objective":  res.Objective,
		"assets":     len(in.cov.Assets),
		"iterations": res.Iterations,
		"restarts":   res.Restarts,
		"converged":  res.Converged,
	}).Info("Optimization completed")

	return &OptimizeReport{
		Result:          res,
		ExpectedReturns: in.expectedByAsset(),
		Periods:         in.cov.Periods,
		Excluded:        excludedOrEmpty(in.excluded),
	}, nil
}

// FrontierReport 효율적 투자선
type FrontierReport struct {
	Points   []contracts.PortfolioPerformance `json:"points"`
	Excluded []contracts.Exclusion            `json:"excluded"`
}

// Frontier traces points portfolios from min-variance to max-return
func (e *Engine) Frontier(series []contracts.PriceSeries, points int) (rep *FrontierReport, err error) {
	defer e.observe("frontier", time.Now(), &err)

	in, err := e.prepare(series)
	if err != nil {
		return nil, err
	}
	opt, err := e.optimizerFor("", nil, in.excluded)
	if err != nil {
		return nil, err
	}
	pts, err := opt.Frontier(in.cov, in.expected, points)
	if err != nil {
		return nil, err
	}
	return &FrontierReport{Points: pts, Excluded: excludedOrEmpty(in.excluded)}, nil
}

// Evaluate scores fixed weights against the batch
func (e *Engine) Evaluate(series []contracts.PriceSeries, weights contracts.PortfolioWeights) (perf *contracts.PortfolioPerformance, err error) {
	defer e.observe("evaluate", time.Now(), &err)

	in, err := e.prepare(series)
	if err != nil {
		return nil, err
	}
	opt, err := e.optimizerFor("", nil, in.excluded)
	if err != nil {
		return nil, err
	}
	return opt.Evaluate(in.cov, in.expected, weights)
}

// =============================================================================
// Helpers
// =============================================================================

type optimizationInput struct {
	cov      *covariance.Matrix
	expected []float64
	excluded []contracts.Exclusion
}

func (in optimizationInput) expectedByAsset() map[string]float64 {
	out := make(map[string]float64, len(in.expected))
	for i, a := range in.cov.Assets {
		out[a] = in.expected[i]
	}
	return out
}

func (e *Engine) prepare(series []contracts.PriceSeries) (optimizationInput, error) {
	m, err := returns.Align(series, e.alignOptions())
	if err != nil {
		return optimizationInput{}, err
	}
	for _, ex := range m.Excluded {
		e.logger.WithFields(map[string]interface{}{
			"asset": ex.Asset,
			"kind":  ex.Kind,
		}).Warn("asset excluded from alignment")
	}
	cov, err := e.estimator.Estimate(m)
	if err != nil {
		return optimizationInput{}, err
	}
	expected, err := risk.ExpectedReturns(m, e.config.ExpectedReturnMethod(), float64(e.config.PeriodsPerYear))
	if err != nil {
		return optimizationInput{}, err
	}
	return optimizationInput{cov: cov, expected: expected, excluded: m.Excluded}, nil
}

// optimizerFor returns the configured optimizer or a copy with overrides applied.
// 정렬에서 제외된 자산의 비중 한도는 버림 (최적화 대상이 아님)
func (e *Engine) optimizerFor(objective string, bounds map[string]portfolio.Bound, excluded []contracts.Exclusion) (*portfolio.Optimizer, error) {
	cfg := e.optimizer.Config()
	dropped := droppedBounds(cfg.Constraints.PerAsset, bounds, excluded)
	if objective == "" && len(bounds) == 0 && len(dropped) == 0 {
		return e.optimizer, nil
	}
	if objective != "" {
		obj, err := portfolio.ParseObjective(objective)
		if err != nil {
			return nil, err
		}
		cfg.Objective = obj
	}
	if len(bounds) > 0 || len(dropped) > 0 {
		merged := make(map[string]portfolio.Bound, len(cfg.Constraints.PerAsset)+len(bounds))
		for a, b := range cfg.Constraints.PerAsset {
			merged[a] = b
		}
		for a, b := range bounds {
			merged[a] = b
		}
		for _, a := range dropped {
			delete(merged, a)
		}
		if len(dropped) > 0 {
			e.logger.WithField("assets", dropped).Warn("Bounds for excluded assets dropped")
		}
		cfg.Constraints.PerAsset = merged
	}
	return portfolio.NewOptimizer(cfg)
}

// droppedBounds lists excluded assets that carry a configured or requested bound
func droppedBounds(configured, requested map[string]portfolio.Bound, excluded []contracts.Exclusion) []string {
	var out []string
	for _, ex := range excluded {
		_, inConfig := configured[ex.Asset]
		_, inRequest := requested[ex.Asset]
		if inConfig || inRequest {
			out = append(out, ex.Asset)
		}
	}
	return out
}

func (e *Engine) alignOptions() returns.AlignOptions {
	conv, _ := contracts.ParseReturnConvention(e.config.ReturnConvention)
	return returns.AlignOptions{Convention: conv, MinOverlap: e.config.MinOverlap}
}

// observe records duration/outcome and logs domain failures
func (e *Engine) observe(op string, started time.Time, errp *error) {
	err := *errp
	e.metrics.ObserveOperation(op, started, err)
	if err != nil {
		e.logger.WithError(err).WithFields(map[string]interface{}{
			"operation": op,
			"kind":      contracts.KindOf(err),
		}).Debug("Operation failed")
	}
}

func excludedOrEmpty(ex []contracts.Exclusion) []contracts.Exclusion {
	if ex == nil {
		return []contracts.Exclusion{}
	}
	return ex
}
