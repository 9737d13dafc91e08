package risk

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/wonny/fluxrx/internal/contracts"
)

// =============================================================================
// VaR (Value at Risk) Calculation
// =============================================================================

// HistoricalVaR 과거 수익률 기반 VaR/CVaR (Historical Simulation)
// returns: 주기별 수익률 (양수=이익, 음수=손실)
// confidence: 신뢰수준 (예: 0.95, 0.99)
//
// VaR is the negated empirical (1-confidence) quantile. CVaR is the negated mean of
// every return at or below that quantile, so CVaR >= VaR always holds.
// 반환값은 손실을 양수로 표현하며 0으로 자르지 않음 (이익 구간이면 음수 가능)
func HistoricalVaR(returns []float64, confidence float64) (VaRResult, error) {
	if confidence <= 0 || confidence >= 1 {
		return VaRResult{}, contracts.NewError(contracts.KindConfig, "confidence must be in (0, 1), got %g", confidence)
	}
	if len(returns) == 0 {
		return VaRResult{}, &contracts.Error{
			Kind:    contracts.KindInsufficientData,
			Metric:  contracts.MetricVaR,
			Message: "no returns",
		}
	}

	// 수익률 정렬 (오름차순: 손실이 앞에)
	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	q := stat.Quantile(1-confidence, stat.Empirical, sorted, nil)

	// CVaR (Expected Shortfall): 분위수 이하 tail 평균
	var sum float64
	var count int
	for _, r := range sorted {
		if r > q {
			break
		}
		sum += r
		count++
	}

	return VaRResult{
		Confidence: confidence,
		VaR:        -q,
		CVaR:       -(sum / float64(count)),
	}, nil
}

// =============================================================================
// Parametric VaR (정규분포 가정)
// =============================================================================

// ParametricVaR 정규분포 가정 VaR/CVaR
// mean: 주기 평균 수익률, stdDev: 주기 표준편차
func ParametricVaR(mean, stdDev, confidence float64) (VaRResult, error) {
	if confidence <= 0 || confidence >= 1 {
		return VaRResult{}, contracts.NewError(contracts.KindConfig, "confidence must be in (0, 1), got %g", confidence)
	}
	if stdDev < 0 || math.IsNaN(stdDev) {
		return VaRResult{}, contracts.NewError(contracts.KindData, "invalid standard deviation %g", stdDev)
	}

	z := NormInv(confidence)
	varValue := z*stdDev - mean

	// Expected shortfall of a normal: stdDev * φ(z) / (1-confidence) - mean
	cvar := stdDev*NormPDF(z)/(1-confidence) - mean

	return VaRResult{
		Confidence: confidence,
		VaR:        varValue,
		CVaR:       cvar,
	}, nil
}

// =============================================================================
// 통계 유틸리티
// =============================================================================

// NormInv 표준정규분포 역함수 (Quantile Function)
func NormInv(p float64) float64 {
	if p <= 0 || p >= 1 {
		return 0
	}
	return distuv.UnitNormal.Quantile(p)
}

// NormPDF 표준정규분포 확률밀도함수
func NormPDF(x float64) float64 {
	return distuv.UnitNormal.Prob(x)
}

// sampleStd 표본 표준편차 (n-1), 2개 미만이면 false
func sampleStd(values []float64) (float64, bool) {
	if len(values) < 2 {
		return 0, false
	}
	return stat.StdDev(values, nil), true
}

func insufficient(metric string, got, need int) error {
	return &contracts.Error{
		Kind:    contracts.KindInsufficientData,
		Metric:  metric,
		Message: fmt.Sprintf("got %d, need %d", got, need),
	}
}
