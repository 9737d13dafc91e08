package portfolio

import (
	"github.com/wonny/fluxrx/internal/contracts"
	"github.com/wonny/fluxrx/internal/covariance"
)

// EqualWeight builds the feasible portfolio closest to 1/n weighting.
// 제약이 없으면 정확히 1/n, 기준 비교용
func (o *Optimizer) EqualWeight(cov *covariance.Matrix, expected []float64) (*contracts.OptimizationResult, error) {
	p, err := o.prepare(cov, expected)
	if err != nil {
		return nil, err
	}
	w := equalWeights(p.lo, p.hi)
	if err := CheckWeights(w, p.lo, p.hi, boundTolerance); err != nil {
		return nil, err
	}
	res := o.result(p, w)
	res.Objective = "equal_weight"
	return res, nil
}

// Frontier traces efficient portfolios between min-volatility and max-return.
// 위험회피 계수를 바꿔가며 w'Σw - γ·μ·w 최소화
func (o *Optimizer) Frontier(cov *covariance.Matrix, expected []float64, points int) ([]contracts.PortfolioPerformance, error) {
	if points < 2 {
		return nil, contracts.NewError(contracts.KindConfig, "frontier needs at least 2 points, got %d", points)
	}
	p, err := o.prepare(cov, expected)
	if err != nil {
		return nil, err
	}

	out := make([]contracts.PortfolioPerformance, 0, points)
	for k := 0; k < points; k++ {
		// λ sweeps from pure variance minimization toward return maximization
		lambda := float64(k) / float64(points-1)
		w, err := o.meanVariance(p, lambda)
		if err != nil {
			return nil, err
		}
		res := o.result(p, w)
		out = append(out, contracts.PortfolioPerformance{
			Weights:            res.Weights,
			ExpectedReturn:     res.ExpectedReturn,
			ExpectedVolatility: res.ExpectedVolatility,
			SharpeRatio:        res.SharpeRatio,
		})
	}
	return out, nil
}
