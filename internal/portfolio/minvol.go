package portfolio

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/wonny/fluxrx/internal/contracts"
)

// minVolatility minimizes w'Σw over the feasible set
func (o *Optimizer) minVolatility(p *problem) ([]float64, int, error) {
	return o.quadratic(p, nil, "min_volatility")
}

// meanVariance minimizes w'Σw - γ·μ·w with γ = λ/(1-λ).
// λ=0 → 최소 분산, λ=1 → 최대 수익 (선형계획)
func (o *Optimizer) meanVariance(p *problem, lambda float64) ([]float64, error) {
	if lambda >= 1 {
		w, _, err := o.maxReturn(p)
		return w, err
	}
	gamma := lambda / (1 - lambda)
	linear := make([]float64, len(p.mu))
	floats.ScaleTo(linear, gamma, p.mu)
	w, _, err := o.quadratic(p, linear, "frontier")
	return w, err
}

// quadratic minimizes w'Σw - c·w with accelerated projected gradient (FISTA).
// 스텝 1/L (L = 2·λmax), 목적함수가 증가하면 모멘텀 재시작
// 수렴: ||w - P(w - ∇f(w))||∞ < Tolerance
func (o *Optimizer) quadratic(p *problem, linear []float64, name string) ([]float64, int, error) {
	n := len(p.assets)
	if n == 1 {
		return []float64{1}, 0, nil
	}

	lipschitz, err := gradientLipschitz(p.cov.Cov)
	if err != nil {
		return nil, 0, err
	}

	f := func(w []float64) float64 {
		v := p.variance(w)
		if linear != nil {
			v -= floats.Dot(linear, w)
		}
		return v
	}

	x := equalWeights(p.lo, p.hi)
	y := append([]float64(nil), x...)
	next := make([]float64, n)
	grad := make([]float64, n)
	step := make([]float64, n)
	t := 1.0
	fx := f(x)

	for k := 1; k <= o.config.IterationBudget; k++ {
		p.gradient(y, linear, grad)
		for i := range step {
			step[i] = y[i] - grad[i]/lipschitz
		}
		project(step, p.lo, p.hi, 1, next)

		fNext := f(next)
		if fNext > fx {
			// restart momentum from the current iterate
			t = 1
			copy(y, x)
			continue
		}

		if p.stationarity(next, linear) < o.config.Tolerance {
			return next, k, nil
		}

		tNext := (1 + math.Sqrt(1+4*t*t)) / 2
		beta := (t - 1) / tNext
		for i := range y {
			y[i] = next[i] + beta*(next[i]-x[i])
		}
		copy(x, next)
		fx = fNext
		t = tNext
	}

	if p.stationarity(x, linear) < o.config.Tolerance {
		return x, o.config.IterationBudget, nil
	}
	return nil, o.config.IterationBudget, contracts.NewError(contracts.KindConvergenceFailure,
		"%s did not converge within %d iterations", name, o.config.IterationBudget)
}

// gradient ∇(w'Σw - c·w) = 2Σw - c
func (p *problem) gradient(w, linear, out []float64) {
	wv := mat.NewVecDense(len(w), w)
	ov := mat.NewVecDense(len(out), out)
	ov.MulVec(p.cov.Cov, wv)
	ov.ScaleVec(2, ov)
	if linear != nil {
		floats.Sub(out, linear)
	}
}

// stationarity returns the projected-gradient residual ||w - P(w - ∇f)||∞
func (p *problem) stationarity(w, linear []float64) float64 {
	n := len(w)
	grad := make([]float64, n)
	p.gradient(w, linear, grad)
	y := make([]float64, n)
	for i := range y {
		y[i] = w[i] - grad[i]
	}
	proj := make([]float64, n)
	project(y, p.lo, p.hi, 1, proj)
	return maxAbsDiff(w, proj)
}

// gradientLipschitz returns 2·λmax(Σ)
func gradientLipschitz(cov *mat.SymDense) (float64, error) {
	var eig mat.EigenSym
	if ok := eig.Factorize(cov, false); !ok {
		return 0, contracts.NewError(contracts.KindSingularCovariance, "eigen decomposition failed")
	}
	values := eig.Values(nil)
	lmax := 0.0
	for _, v := range values {
		lmax = math.Max(lmax, v)
	}
	if lmax <= 0 {
		return 0, contracts.NewError(contracts.KindSingularCovariance, "covariance has no positive eigenvalue")
	}
	return 2 * lmax, nil
}
