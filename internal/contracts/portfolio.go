package contracts

import (
	"fmt"
	"math"
	"sort"
)

// WeightTolerance 비중 합 허용 오차
const WeightTolerance = 1e-6

// PortfolioWeights 자산별 비중
// ⭐ 계약: 합 = 1 (±1e-6), 모든 비중은 [lo, hi] 범위
type PortfolioWeights map[string]float64

// Sum returns the total weight
func (w PortfolioWeights) Sum() float64 {
	total := 0.0
	for _, v := range w {
		total += v
	}
	return total
}

// Assets returns the asset ids in sorted order
func (w PortfolioWeights) Assets() []string {
	out := make([]string, 0, len(w))
	for a := range w {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Vector returns weights in the given asset order
func (w PortfolioWeights) Vector(assets []string) []float64 {
	out := make([]float64, len(assets))
	for i, a := range assets {
		out[i] = w[a]
	}
	return out
}

// CheckBudget verifies the weights sum to one within tol and are finite
func (w PortfolioWeights) CheckBudget(tol float64) error {
	for a, v := range w {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &Error{Kind: KindConvergenceFailure, Asset: a, Message: "non-finite weight"}
		}
	}
	if sum := w.Sum(); math.Abs(sum-1) > tol {
		return (&Error{Kind: KindConvergenceFailure, Message: fmt.Sprintf("weights sum to %.9f", sum)}).WithValue(sum)
	}
	return nil
}

// OptimizationResult 최적화 결과
type OptimizationResult struct {
	Objective          string           `json:"objective"`
	Weights            PortfolioWeights `json:"weights"`
	ExpectedReturn     float64          `json:"expected_return"`
	ExpectedVolatility float64          `json:"expected_volatility"`
	SharpeRatio        Scalar           `json:"sharpe_ratio"`
	Converged          bool             `json:"converged"`
	Iterations         int              `json:"iterations"`
	Restarts           int              `json:"restarts"`
}

// PortfolioPerformance 주어진 비중의 기대 성과
type PortfolioPerformance struct {
	Weights            PortfolioWeights `json:"weights"`
	ExpectedReturn     float64          `json:"expected_return"`
	ExpectedVolatility float64          `json:"expected_volatility"`
	SharpeRatio        Scalar           `json:"sharpe_ratio"`
}
