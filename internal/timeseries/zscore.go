package timeseries

import (
	"gonum.org/v1/gonum/stat"

	"github.com/wonny/fluxrx/internal/contracts"
)

// DefaultZScoreWindow 기본 z-score 구간
const DefaultZScoreWindow = 20

// ZScore returns the z-score of the last price against a trailing window.
// window보다 짧으면 전체 시계열 사용, 표준편차 0이면 Undefined
func ZScore(prices []float64, window int) contracts.Scalar {
	if window <= 0 {
		window = DefaultZScoreWindow
	}
	if len(prices) < 2 {
		return contracts.Undefined()
	}
	start := len(prices) - window
	if start < 0 {
		start = 0
	}
	tail := prices[start:]
	if len(tail) < 2 {
		return contracts.Undefined()
	}

	mean, std := stat.MeanStdDev(tail, nil)
	if std == 0 {
		return contracts.Undefined()
	}
	return contracts.Defined((prices[len(prices)-1] - mean) / std)
}

// RollingZScore returns the z-score at every index with a full trailing window.
// 처음 window-1개는 Undefined
func RollingZScore(prices []float64, window int) []contracts.Scalar {
	if window < 2 {
		window = DefaultZScoreWindow
	}
	out := make([]contracts.Scalar, len(prices))
	for i := range prices {
		if i+1 < window {
			out[i] = contracts.Undefined()
			continue
		}
		out[i] = ZScore(prices[i+1-window:i+1], window)
	}
	return out
}
