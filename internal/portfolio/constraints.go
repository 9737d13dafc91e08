package portfolio

import (
	"math"
	"sort"

	"github.com/wonny/fluxrx/internal/contracts"
)

// Bound 비중 하한/상한
type Bound struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Constraints defines portfolio weight bounds
// ⭐ SSOT: 포트폴리오 제약조건은 여기서만 (기본: long-only [0, 1])
// 공매도는 하한을 음수로 설정할 때만 허용
type Constraints struct {
	Default  Bound            `json:"default" yaml:"default"`
	PerAsset map[string]Bound `json:"per_asset,omitempty" yaml:"per_asset,omitempty"`
}

// DefaultConstraints returns long-only bounds
func DefaultConstraints() Constraints {
	return Constraints{
		Default: Bound{Min: 0, Max: 1},
	}
}

// BoundFor returns the bound that applies to an asset
func (c Constraints) BoundFor(asset string) Bound {
	if b, ok := c.PerAsset[asset]; ok {
		return b
	}
	return c.Default
}

// Resolve returns per-asset lower/upper bound vectors and checks feasibility.
// 실행 불가능한 제약 (lo > hi, Σlo > 1, Σhi < 1) → FluxConfigError
func (c Constraints) Resolve(assets []string) ([]float64, []float64, error) {
	known := make(map[string]struct{}, len(assets))
	for _, a := range assets {
		known[a] = struct{}{}
	}
	unknown := make([]string, 0)
	for a := range c.PerAsset {
		if _, ok := known[a]; !ok {
			unknown = append(unknown, a)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, nil, contracts.NewError(contracts.KindConfig, "bounds given for unknown assets %v", unknown)
	}

	lo := make([]float64, len(assets))
	hi := make([]float64, len(assets))
	var sumLo, sumHi float64
	for i, a := range assets {
		b := c.BoundFor(a)
		if math.IsNaN(b.Min) || math.IsNaN(b.Max) || math.IsInf(b.Min, 0) || math.IsInf(b.Max, 0) {
			return nil, nil, &contracts.Error{Kind: contracts.KindConfig, Asset: a, Message: "bounds must be finite"}
		}
		if b.Min > b.Max {
			return nil, nil, &contracts.Error{Kind: contracts.KindConfig, Asset: a, Message: "lower bound exceeds upper bound"}
		}
		lo[i], hi[i] = b.Min, b.Max
		sumLo += b.Min
		sumHi += b.Max
	}
	if sumLo > 1+boundSlack {
		return nil, nil, (&contracts.Error{Kind: contracts.KindConfig, Message: "lower bounds sum above 1"}).WithValue(sumLo)
	}
	if sumHi < 1-boundSlack {
		return nil, nil, (&contracts.Error{Kind: contracts.KindConfig, Message: "upper bounds sum below 1"}).WithValue(sumHi)
	}
	return lo, hi, nil
}

const boundSlack = 1e-12

// CheckWeights verifies the budget and bound invariants of a solution
func CheckWeights(w, lo, hi []float64, tol float64) error {
	sum := 0.0
	for i, v := range w {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return contracts.NewError(contracts.KindConvergenceFailure, "non-finite weight at %d", i)
		}
		if v < lo[i]-tol || v > hi[i]+tol {
			return (&contracts.Error{Kind: contracts.KindConvergenceFailure, Message: "weight outside bounds"}).WithValue(v)
		}
		sum += v
	}
	if math.Abs(sum-1) > contracts.WeightTolerance {
		return (&contracts.Error{Kind: contracts.KindConvergenceFailure, Message: "weights do not sum to 1"}).WithValue(sum)
	}
	return nil
}
