package engineconfig

import (
	"github.com/wonny/fluxrx/internal/contracts"
	"github.com/wonny/fluxrx/internal/covariance"
	"github.com/wonny/fluxrx/internal/portfolio"
	"github.com/wonny/fluxrx/internal/risk"
	"github.com/wonny/fluxrx/internal/selection"
	"github.com/wonny/fluxrx/internal/timeseries"
)

// Config 분석 엔진 전체 설정 (YAML)
// ⭐ SSOT: 계산 파라미터는 여기서만 정의, 해시로 실행 결과와 연결
type Config struct {
	ReturnConvention string     `yaml:"return_convention" json:"return_convention"`
	ConfidenceLevel  float64    `yaml:"confidence_level" json:"confidence_level"`
	RiskFreeRate     float64    `yaml:"risk_free_rate" json:"risk_free_rate"`
	PeriodsPerYear   int        `yaml:"periods_per_year" json:"periods_per_year"`
	MinOverlap       int        `yaml:"min_overlap" json:"min_overlap"`
	ZScoreWindow     int        `yaml:"z_score_window" json:"z_score_window"`
	OmegaThreshold   float64    `yaml:"omega_threshold" json:"omega_threshold"`
	Hurst            Hurst      `yaml:"hurst" json:"hurst"`
	Covariance       Covariance `yaml:"covariance" json:"covariance"`
	Optimizer        Optimizer  `yaml:"optimizer" json:"optimizer"`
	Screener         Screener   `yaml:"screener" json:"screener"`
}

// Hurst R/S 분석 설정
type Hurst struct {
	MinObservations int `yaml:"min_observations" json:"min_observations"`
	MinWindow       int `yaml:"min_window" json:"min_window"`
}

// Covariance 공분산 설정
type Covariance struct {
	MaxConditionNumber float64 `yaml:"max_condition_number" json:"max_condition_number"`
}

// Optimizer 포트폴리오 최적화 설정
type Optimizer struct {
	Objective       string                     `yaml:"objective" json:"objective"`
	WeightBounds    portfolio.Bound            `yaml:"weight_bounds" json:"weight_bounds"`
	AssetBounds     map[string]portfolio.Bound `yaml:"asset_bounds,omitempty" json:"asset_bounds,omitempty"`
	IterationBudget int                        `yaml:"iteration_budget" json:"iteration_budget"`
	Tolerance       float64                    `yaml:"tolerance" json:"tolerance"`
	TieTolerance    float64                    `yaml:"tie_tolerance" json:"tie_tolerance"`
	RandomSeed      int64                      `yaml:"random_seed" json:"random_seed"`
	Restarts        int                        `yaml:"restarts" json:"restarts"`
	Workers         int                        `yaml:"workers" json:"workers"`
	ExpectedReturns string                     `yaml:"expected_returns" json:"expected_returns"` // mean | cagr
}

// Screener 스크리닝 설정
type Screener struct {
	SortBy  string `yaml:"sort_by" json:"sort_by"`
	Order   string `yaml:"order" json:"order"`
	Workers int    `yaml:"workers" json:"workers"`
}

// Default returns the configuration used when no YAML file is given
func Default() *Config {
	r := risk.DefaultConfig()
	o := portfolio.DefaultConfig()
	s := selection.DefaultConfig()
	return &Config{
		ReturnConvention: string(r.Convention),
		ConfidenceLevel:  r.ConfidenceLevel,
		RiskFreeRate:     r.RiskFreeRate,
		PeriodsPerYear:   int(r.PeriodsPerYear),
		MinOverlap:       r.MinOverlap,
		ZScoreWindow:     r.ZScoreWindow,
		OmegaThreshold:   r.OmegaThreshold,
		Hurst: Hurst{
			MinObservations: r.Hurst.MinObservations,
			MinWindow:       r.Hurst.MinWindow,
		},
		Covariance: Covariance{
			MaxConditionNumber: covariance.DefaultConfig().MaxConditionNumber,
		},
		Optimizer: Optimizer{
			Objective:       string(o.Objective),
			WeightBounds:    o.Constraints.Default,
			IterationBudget: o.IterationBudget,
			Tolerance:       o.Tolerance,
			TieTolerance:    o.TieTolerance,
			RandomSeed:      o.Seed,
			Restarts:        o.Restarts,
			Workers:         o.Workers,
			ExpectedReturns: string(risk.ExpectedMean),
		},
		Screener: Screener{
			SortBy:  s.SortBy,
			Workers: s.Workers,
		},
	}
}

// Risk builds the metrics calculator configuration
func (c *Config) Risk() risk.Config {
	conv, _ := contracts.ParseReturnConvention(c.ReturnConvention)
	return risk.Config{
		Convention:      conv,
		ConfidenceLevel: c.ConfidenceLevel,
		RiskFreeRate:    c.RiskFreeRate,
		PeriodsPerYear:  float64(c.PeriodsPerYear),
		MinOverlap:      c.MinOverlap,
		ZScoreWindow:    c.ZScoreWindow,
		OmegaThreshold:  c.OmegaThreshold,
		Hurst: timeseries.HurstConfig{
			MinObservations: c.Hurst.MinObservations,
			MinWindow:       c.Hurst.MinWindow,
		},
	}
}

// CovarianceConfig builds the estimator configuration
func (c *Config) CovarianceConfig() covariance.Config {
	return covariance.Config{
		PeriodsPerYear:     float64(c.PeriodsPerYear),
		MaxConditionNumber: c.Covariance.MaxConditionNumber,
	}
}

// OptimizerConfig builds the optimizer configuration
func (c *Config) OptimizerConfig() portfolio.Config {
	return portfolio.Config{
		Objective:    portfolio.Objective(c.Optimizer.Objective),
		RiskFreeRate: c.RiskFreeRate,
		Constraints: portfolio.Constraints{
			Default:  c.Optimizer.WeightBounds,
			PerAsset: c.Optimizer.AssetBounds,
		},
		IterationBudget: c.Optimizer.IterationBudget,
		Tolerance:       c.Optimizer.Tolerance,
		TieTolerance:    c.Optimizer.TieTolerance,
		Seed:            c.Optimizer.RandomSeed,
		Restarts:        c.Optimizer.Restarts,
		Workers:         c.Optimizer.Workers,
	}
}

// ScreenerConfig builds the screener configuration
func (c *Config) ScreenerConfig() selection.Config {
	return selection.Config{
		SortBy:  c.Screener.SortBy,
		Order:   selection.Order(c.Screener.Order),
		Workers: c.Screener.Workers,
	}
}

// ExpectedReturnMethod returns the configured expected-return estimator
func (c *Config) ExpectedReturnMethod() risk.ExpectedReturnMethod {
	return risk.ExpectedReturnMethod(c.Optimizer.ExpectedReturns)
}
