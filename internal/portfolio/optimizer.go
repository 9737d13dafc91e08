package portfolio

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/wonny/fluxrx/internal/contracts"
	"github.com/wonny/fluxrx/internal/covariance"
)

// Config 최적화 설정
// ⭐ SSOT: 재현성을 위해 seed/예산/허용오차를 명시적으로 기록
type Config struct {
	Objective       Objective   `json:"objective"`
	RiskFreeRate    float64     `json:"risk_free_rate"`   // 연율 (기본: 0.04)
	Constraints     Constraints `json:"constraints"`      // 기본: [0, 1]
	IterationBudget int         `json:"iteration_budget"` // 재시작당 최대 반복 (기본: 10000)
	Tolerance       float64     `json:"tolerance"`        // 수렴 판정 (기본: 1e-9)
	TieTolerance    float64     `json:"tie_tolerance"`    // 목적함수 동률 판정 (기본: 1e-6)
	Seed            int64       `json:"seed"`             // 재시작 시드 (기본: 42)
	Restarts        int         `json:"restarts"`         // 무작위 재시작 수 (기본: 8)
	Workers         int         `json:"workers"`          // 병렬 재시작 수 (기본: 4)
}

// DefaultConfig returns the default optimizer configuration
func DefaultConfig() Config {
	return Config{
		Objective:       MaxSharpe,
		RiskFreeRate:    0.04,
		Constraints:     DefaultConstraints(),
		IterationBudget: 10000,
		Tolerance:       1e-9,
		TieTolerance:    1e-6,
		Seed:            42,
		Restarts:        8,
		Workers:         4,
	}
}

// Validate checks the optimizer configuration
func (c Config) Validate() error {
	if _, err := ParseObjective(string(c.Objective)); err != nil {
		return err
	}
	if c.IterationBudget <= 0 {
		return contracts.NewError(contracts.KindConfig, "iteration_budget must be > 0, got %d", c.IterationBudget)
	}
	if c.Tolerance <= 0 || c.TieTolerance < 0 {
		return contracts.NewError(contracts.KindConfig, "tolerances must be positive")
	}
	if c.Restarts < 0 {
		return contracts.NewError(contracts.KindConfig, "restarts must be >= 0, got %d", c.Restarts)
	}
	if math.IsNaN(c.RiskFreeRate) || math.IsInf(c.RiskFreeRate, 0) {
		return contracts.NewError(contracts.KindConfig, "risk_free_rate must be finite")
	}
	return nil
}

// Optimizer 제약 평균-분산 최적화기
// 순수 계산: 같은 입력과 seed → 같은 결과
type Optimizer struct {
	config Config
}

// NewOptimizer creates an optimizer (InvalidObjectiveError / FluxConfigError on bad config)
func NewOptimizer(config Config) (*Optimizer, error) {
	obj, err := ParseObjective(string(config.Objective))
	if err != nil {
		return nil, err
	}
	config.Objective = obj
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Optimizer{config: config}, nil
}

// Config returns the optimizer configuration
func (o *Optimizer) Config() Config {
	return o.config
}

// problem 최적화 입력 (자산 순서 고정)
type problem struct {
	assets   []string
	cov      *covariance.Matrix
	mu       []float64
	lo, hi   []float64
	riskFree float64
}

func (p *problem) variance(w []float64) float64 {
	return p.cov.PortfolioVariance(w)
}

func (p *problem) expectedReturn(w []float64) float64 {
	return floats.Dot(p.mu, w)
}

// sharpe returns (μ·w - rf)/σ and false when σ is zero
func (p *problem) sharpe(w []float64) (float64, bool) {
	v := p.variance(w)
	if v <= 0 {
		return 0, false
	}
	return (p.expectedReturn(w) - p.riskFree) / math.Sqrt(v), true
}

// Optimize solves the configured objective.
// cov: 연율 공분산, expected: 연율 기대수익률 (cov.Assets 순서)
func (o *Optimizer) Optimize(ctx context.Context, cov *covariance.Matrix, expected []float64) (*contracts.OptimizationResult, error) {
	p, err := o.prepare(cov, expected)
	if err != nil {
		return nil, err
	}

	var (
		w          []float64
		iterations int
		restarts   int
	)
	switch o.config.Objective {
	case MinVolatility:
		w, iterations, err = o.minVolatility(p)
	case MaxReturn:
		w, iterations, err = o.maxReturn(p)
	case MaxSharpe:
		w, iterations, restarts, err = o.maxSharpe(ctx, p)
	default:
		return nil, &contracts.Error{Kind: contracts.KindInvalidObjective, Message: string(o.config.Objective)}
	}
	if err != nil {
		return nil, err
	}

	// 최종 불변식 확인: 위반 시 부분 결과 폐기
	if err := CheckWeights(w, p.lo, p.hi, boundTolerance); err != nil {
		return nil, err
	}

	res := o.result(p, w)
	res.Iterations = iterations
	res.Restarts = restarts
	return res, nil
}

const boundTolerance = 1e-9

func (o *Optimizer) prepare(cov *covariance.Matrix, expected []float64) (*problem, error) {
	if cov == nil || cov.Size() == 0 {
		return nil, contracts.NewError(contracts.KindInsufficientData, "empty covariance matrix")
	}
	if err := cov.Err(); err != nil {
		return nil, err
	}
	if len(expected) != cov.Size() {
		return nil, contracts.NewError(contracts.KindData, "expected returns length %d does not match %d assets", len(expected), cov.Size())
	}
	for i, v := range expected {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &contracts.Error{Kind: contracts.KindData, Asset: cov.Assets[i], Message: "non-finite expected return"}
		}
	}
	lo, hi, err := o.config.Constraints.Resolve(cov.Assets)
	if err != nil {
		return nil, err
	}
	return &problem{
		assets:   cov.Assets,
		cov:      cov,
		mu:       append([]float64(nil), expected...),
		lo:       lo,
		hi:       hi,
		riskFree: o.config.RiskFreeRate,
	}, nil
}

func (o *Optimizer) result(p *problem, w []float64) *contracts.OptimizationResult {
	weights := make(contracts.PortfolioWeights, len(w))
	for i, a := range p.assets {
		weights[a] = w[i]
	}
	vol := math.Sqrt(math.Max(p.variance(w), 0))
	res := &contracts.OptimizationResult{
		Objective:          string(o.config.Objective),
		Weights:            weights,
		ExpectedReturn:     p.expectedReturn(w),
		ExpectedVolatility: vol,
		SharpeRatio:        contracts.Undefined(),
		Converged:          true,
	}
	if s, ok := p.sharpe(w); ok {
		res.SharpeRatio = contracts.Defined(s)
	}
	return res
}

// Evaluate 주어진 비중의 기대 성과 (제약 위반 시 FluxDataError)
func (o *Optimizer) Evaluate(cov *covariance.Matrix, expected []float64, weights contracts.PortfolioWeights) (*contracts.PortfolioPerformance, error) {
	p, err := o.prepare(cov, expected)
	if err != nil {
		return nil, err
	}
	for a := range weights {
		if _, ok := cov.Index(a); !ok {
			return nil, &contracts.Error{Kind: contracts.KindData, Asset: a, Message: "weight given for unknown asset"}
		}
	}
	w := weights.Vector(p.assets)
	if err := CheckWeights(w, p.lo, p.hi, boundTolerance); err != nil {
		e, _ := contracts.AsError(err)
		cp := *e
		cp.Kind = contracts.KindData
		return nil, &cp
	}
	res := o.result(p, w)
	return &contracts.PortfolioPerformance{
		Weights:            res.Weights,
		ExpectedReturn:     res.ExpectedReturn,
		ExpectedVolatility: res.ExpectedVolatility,
		SharpeRatio:        res.SharpeRatio,
	}, nil
}
