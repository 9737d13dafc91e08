package risk

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/fluxrx/internal/contracts"
)

// =============================================================================
// Benchmark-relative metrics (aligned inputs)
// =============================================================================

// RelativeMetrics 벤치마크 대비 지표
type RelativeMetrics struct {
	TrackingError    contracts.Scalar `json:"tracking_error"`
	InformationRatio contracts.Scalar `json:"information_ratio"`
	Beta             contracts.Scalar `json:"beta"`
	Periods          int              `json:"periods"`
}

// Relative computes tracking error, information ratio and beta from aligned returns.
// asset/bench는 같은 시점으로 정렬된 수익률이어야 함
func Relative(asset, bench []float64, periodsPerYear float64) RelativeMetrics {
	out := RelativeMetrics{
		TrackingError:    contracts.Undefined(),
		InformationRatio: contracts.Undefined(),
		Beta:             contracts.Undefined(),
		Periods:          len(asset),
	}
	if len(asset) != len(bench) || len(asset) < 2 {
		return out
	}

	active := make([]float64, len(asset))
	for i := range asset {
		active[i] = asset[i] - bench[i]
	}

	te := stat.StdDev(active, nil) * math.Sqrt(periodsPerYear)
	out.TrackingError = contracts.Defined(te)
	if te > 0 {
		out.InformationRatio = contracts.Defined(stat.Mean(active, nil) * periodsPerYear / te)
	}

	if v := stat.Variance(bench, nil); v > 0 {
		out.Beta = contracts.Defined(stat.Covariance(asset, bench, nil) / v)
	}
	return out
}

// JensenAlpha 연율 alpha = CAGR - (rf + beta·(benchCAGR - rf))
func JensenAlpha(cagr, benchCAGR, beta contracts.Scalar, riskFree float64) contracts.Scalar {
	c, ok1 := cagr.Value()
	bc, ok2 := benchCAGR.Value()
	b, ok3 := beta.Value()
	if !ok1 || !ok2 || !ok3 {
		return contracts.Undefined()
	}
	return contracts.Defined(c - (riskFree + b*(bc-riskFree)))
}
