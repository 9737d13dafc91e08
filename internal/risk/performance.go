package risk

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/wonny/fluxrx/internal/contracts"
)

// =============================================================================
// Return-based performance metrics (pure)
// =============================================================================

// CAGR 연평균 복리 수익률
// years: 첫/마지막 시점 사이 달력 일수 / 365.25
func CAGR(initial, final, years float64) (float64, error) {
	if years <= 0 || math.IsNaN(years) {
		return 0, (&contracts.Error{
			Kind:    contracts.KindInvalidPeriod,
			Metric:  contracts.MetricCAGR,
			Message: "elapsed period must be positive",
		}).WithValue(years)
	}
	if initial <= 0 || final <= 0 {
		return 0, (&contracts.Error{
			Kind:    contracts.KindInvalidPeriod,
			Metric:  contracts.MetricCAGR,
			Message: fmt.Sprintf("prices must be positive (initial=%g, final=%g)", initial, final),
		}).WithValue(initial)
	}
	return math.Pow(final/initial, 1/years) - 1, nil
}

// YearsBetween 달력 기준 경과 연수
func YearsBetween(start, end time.Time) float64 {
	return end.Sub(start).Hours() / 24 / DaysPerYear
}

// SeriesCAGR CAGR of a price series over its own span
func SeriesCAGR(series contracts.PriceSeries) (float64, error) {
	if series.Len() < 2 {
		return 0, insufficient(contracts.MetricCAGR, series.Len(), 2)
	}
	return CAGR(series.First().Price, series.Last().Price, YearsBetween(series.First().Time, series.Last().Time))
}

// AnnualizedVolatility 연율화 변동성 (표본 표준편차 × √ppy)
func AnnualizedVolatility(returns []float64, periodsPerYear float64) contracts.Scalar {
	std, ok := sampleStd(returns)
	if !ok {
		return contracts.Undefined()
	}
	return contracts.Defined(std * math.Sqrt(periodsPerYear))
}

// AnnualizedMean 연율화 평균 수익률
func AnnualizedMean(returns []float64, periodsPerYear float64) contracts.Scalar {
	if len(returns) == 0 {
		return contracts.Undefined()
	}
	return contracts.Defined(stat.Mean(returns, nil) * periodsPerYear)
}

// Sharpe (연율 평균 - rf) / 연율 변동성, 변동성 0이면 Undefined
func Sharpe(returns []float64, riskFree, periodsPerYear float64) contracts.Scalar {
	vol, ok := AnnualizedVolatility(returns, periodsPerYear).Value()
	if !ok || vol == 0 {
		return contracts.Undefined()
	}
	mean := stat.Mean(returns, nil) * periodsPerYear
	return contracts.Defined((mean - riskFree) / vol)
}

// Sortino 하방 변동성 대비 초과 수익
// 하방 = 음수 수익률의 표본 표준편차
func Sortino(returns []float64, riskFree, periodsPerYear float64) contracts.Scalar {
	if len(returns) == 0 {
		return contracts.Undefined()
	}
	downside := make([]float64, 0, len(returns))
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	dd, ok := sampleStd(downside)
	if !ok || dd == 0 {
		return contracts.Undefined()
	}
	excess := stat.Mean(returns, nil) - riskFree/periodsPerYear
	return contracts.Defined(excess / dd * math.Sqrt(periodsPerYear))
}

// MaxDrawdown 최대 낙폭 min(p_t / max_{s<=t} p_s - 1), 항상 <= 0
func MaxDrawdown(prices []float64) contracts.Scalar {
	if len(prices) == 0 {
		return contracts.Undefined()
	}
	return contracts.Defined(floats.Min(DrawdownSeries(prices)))
}

// DrawdownSeries 시점별 낙폭
func DrawdownSeries(prices []float64) []float64 {
	out := make([]float64, len(prices))
	peak := math.Inf(-1)
	for i, p := range prices {
		if p > peak {
			peak = p
		}
		out[i] = p/peak - 1
	}
	return out
}

// Calmar CAGR / |MDD|, 낙폭 0이면 Undefined
func Calmar(cagr, maxDrawdown contracts.Scalar) contracts.Scalar {
	c, ok1 := cagr.Value()
	m, ok2 := maxDrawdown.Value()
	if !ok1 || !ok2 || m == 0 {
		return contracts.Undefined()
	}
	return contracts.Defined(c / math.Abs(m))
}

// Omega 기준 수익률 대비 상방 합 / 하방 합
func Omega(returns []float64, threshold float64) contracts.Scalar {
	var up, down float64
	for _, r := range returns {
		d := r - threshold
		if d > 0 {
			up += d
		} else {
			down -= d
		}
	}
	if down == 0 {
		return contracts.Undefined()
	}
	return contracts.Defined(up / down)
}

// WinRate 양수 수익률 비율
func WinRate(returns []float64) contracts.Scalar {
	if len(returns) == 0 {
		return contracts.Undefined()
	}
	wins := 0
	for _, r := range returns {
		if r > 0 {
			wins++
		}
	}
	return contracts.Defined(float64(wins) / float64(len(returns)))
}

// TotalReturn 누적 수익률 last/first - 1
func TotalReturn(prices []float64) contracts.Scalar {
	if len(prices) < 2 {
		return contracts.Undefined()
	}
	return contracts.Defined(prices[len(prices)-1]/prices[0] - 1)
}
