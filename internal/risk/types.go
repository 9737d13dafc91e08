package risk

import (
	"github.com/wonny/fluxrx/internal/contracts"
	"github.com/wonny/fluxrx/internal/returns"
	"github.com/wonny/fluxrx/internal/timeseries"
)

// =============================================================================
// Conventions
// =============================================================================

// VaRConvention VaR 부호 규약
// ⭐ SSOT: Loss를 양수로 표현 (VaR=0.05 → 5% 손실 가능)
const VaRConvention = "loss_positive"

// DaysPerYear CAGR 연수 계산용 달력 일수
const DaysPerYear = 365.25

// =============================================================================
// Config
// =============================================================================

// Config 지표 계산 설정
// ⭐ SSOT: 재현성을 위해 모든 설정을 명시적으로 기록
type Config struct {
	Convention      contracts.ReturnConvention `json:"return_convention"` // simple/log
	ConfidenceLevel float64                    `json:"confidence_level"`  // VaR/CVaR 신뢰수준 (기본: 0.95)
	RiskFreeRate    float64                    `json:"risk_free_rate"`    // 연율 무위험 수익률 (기본: 0.04)
	PeriodsPerYear  float64                    `json:"periods_per_year"`  // 연율화 계수 (기본: 252)
	MinOverlap      int                        `json:"min_overlap"`       // 벤치마크 최소 공통 구간 (기본: 20)
	ZScoreWindow    int                        `json:"z_score_window"`    // z-score 구간 (기본: 20)
	OmegaThreshold  float64                    `json:"omega_threshold"`   // 주기당 기준 수익률 (기본: 0)
	Hurst           timeseries.HurstConfig     `json:"hurst"`
}

// DefaultConfig 기본 설정
func DefaultConfig() Config {
	return Config{
		Convention:      contracts.ReturnSimple,
		ConfidenceLevel: 0.95,
		RiskFreeRate:    0.04,
		PeriodsPerYear:  252,
		MinOverlap:      returns.DefaultMinOverlap,
		ZScoreWindow:    timeseries.DefaultZScoreWindow,
		OmegaThreshold:  0,
		Hurst:           timeseries.DefaultHurstConfig(),
	}
}

// Validate checks the configuration (FluxConfigError on failure)
func (c Config) Validate() error {
	if c.Convention != contracts.ReturnSimple && c.Convention != contracts.ReturnLog {
		return contracts.NewError(contracts.KindConfig, "unknown return convention %q", c.Convention)
	}
	if c.ConfidenceLevel <= 0 || c.ConfidenceLevel >= 1 {
		return contracts.NewError(contracts.KindConfig, "confidence_level must be in (0, 1), got %g", c.ConfidenceLevel)
	}
	if c.PeriodsPerYear <= 0 {
		return contracts.NewError(contracts.KindConfig, "periods_per_year must be > 0, got %g", c.PeriodsPerYear)
	}
	if c.MinOverlap < 1 {
		return contracts.NewError(contracts.KindConfig, "min_overlap must be >= 1, got %d", c.MinOverlap)
	}
	if c.ZScoreWindow < 2 {
		return contracts.NewError(contracts.KindConfig, "z_score_window must be >= 2, got %d", c.ZScoreWindow)
	}
	return c.Hurst.Validate()
}

func (c Config) alignOptions() returns.AlignOptions {
	return returns.AlignOptions{Convention: c.Convention, MinOverlap: c.MinOverlap}
}

// =============================================================================
// VaR/CVaR Types
// =============================================================================

// VaRResult VaR 계산 결과
// ⭐ SSOT: VaR/CVaR는 손실을 양수로 표현
// - VaR=0.05 → 95% 신뢰수준에서 최대 5% 손실 가능
// - CVaR=0.07 → 5% tail에서 평균 7% 손실 예상
type VaRResult struct {
	Confidence float64 `json:"confidence"` // 신뢰수준 (예: 0.95, 0.99)
	VaR        float64 `json:"var"`        // Value at Risk (손실, 양수)
	CVaR       float64 `json:"cvar"`       // Conditional VaR (Expected Shortfall, 양수)
}

// =============================================================================
// Rolling / Period Types
// =============================================================================

// RollingPoint 롤링 지표 한 점
type RollingPoint struct {
	Index int              `json:"index"` // 구간 마지막 수익률 인덱스
	Value contracts.Scalar `json:"value"`
}

// Period 기간 단위
type Period string

const (
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
)

// PeriodReturn 기간별 수익률
type PeriodReturn struct {
	Label  string  `json:"label"` // 2024-01 or 2024
	Year   int     `json:"year"`
	Month  int     `json:"month,omitempty"`
	Return float64 `json:"return"`
}
