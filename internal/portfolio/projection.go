package portfolio

import "math"

const bisectionSteps = 200

// project writes into out the Euclidean projection of y onto
// {w : Σw = total, lo <= w <= hi}.
// w_i = clip(y_i - τ, lo_i, hi_i), τ는 이분법으로 탐색 (Σw는 τ에 대해 단조 감소)
func project(y, lo, hi []float64, total float64, out []float64) {
	a, b := math.Inf(1), math.Inf(-1)
	for i := range y {
		a = math.Min(a, y[i]-hi[i]) // every coordinate at its upper bound
		b = math.Max(b, y[i]-lo[i]) // every coordinate at its lower bound
	}

	for step := 0; step < bisectionSteps; step++ {
		tau := 0.5 * (a + b)
		if tau == a || tau == b {
			break
		}
		if clippedSum(y, lo, hi, tau) > total {
			a = tau
		} else {
			b = tau
		}
	}
	tau := 0.5 * (a + b)

	// exact τ on the free set removes the residual left by bisection
	fixed, free, freeY := 0.0, 0, 0.0
	for i := range y {
		v := y[i] - tau
		switch {
		case v <= lo[i]:
			fixed += lo[i]
		case v >= hi[i]:
			fixed += hi[i]
		default:
			free++
			freeY += y[i]
		}
	}
	if free > 0 {
		tau = (freeY - (total - fixed)) / float64(free)
	}

	for i := range y {
		out[i] = clip(y[i]-tau, lo[i], hi[i])
	}
}

func clippedSum(y, lo, hi []float64, tau float64) float64 {
	s := 0.0
	for i := range y {
		s += clip(y[i]-tau, lo[i], hi[i])
	}
	return s
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// projectBudget projects onto the full-investment set Σw = 1
func projectBudget(y, lo, hi []float64) []float64 {
	out := make([]float64, len(y))
	project(y, lo, hi, 1, out)
	return out
}

// equalWeights returns the feasible point closest to 1/n weighting
func equalWeights(lo, hi []float64) []float64 {
	y := make([]float64, len(lo))
	for i := range y {
		y[i] = 1 / float64(len(lo))
	}
	return projectBudget(y, lo, hi)
}

// dispersion Σ(w - 1/n)², 동률 판정용
func dispersion(w []float64) float64 {
	n := float64(len(w))
	d := 0.0
	for _, v := range w {
		d += (v - 1/n) * (v - 1/n)
	}
	return d
}

func maxAbsDiff(a, b []float64) float64 {
	m := 0.0
	for i := range a {
		m = math.Max(m, math.Abs(a[i]-b[i]))
	}
	return m
}
