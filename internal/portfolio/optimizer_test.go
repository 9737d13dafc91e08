package portfolio

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fluxrx/internal/contracts"
	"github.com/wonny/fluxrx/internal/covariance"
)

func covOf(t *testing.T, assets []string, rows [][]float64) *covariance.Matrix {
	t.Helper()
	est, err := covariance.NewEstimator(covariance.DefaultConfig())
	require.NoError(t, err)
	m, err := est.FromRows(assets, rows)
	require.NoError(t, err)
	return m
}

func newOptimizer(t *testing.T, obj Objective, mutate ...func(*Config)) *Optimizer {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Objective = obj
	for _, m := range mutate {
		m(&cfg)
	}
	o, err := NewOptimizer(cfg)
	require.NoError(t, err)
	return o
}

// randomCov builds a well-conditioned covariance A·A'/n + 0.01·I
func randomCov(seed int64, n int) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	a := make([][]float64, n)
	for i := range a {
		a[i] = make([]float64, n)
		for j := range a[i] {
			a[i][j] = 0.2 * rng.NormFloat64()
		}
	}
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := 0.0
			for k := 0; k < n; k++ {
				v += a[i][k] * a[j][k]
			}
			v /= float64(n)
			if i == j {
				v += 0.01
			}
			rows[i][j], rows[j][i] = v, v
		}
	}
	return rows
}

func assertFeasible(t *testing.T, res *contracts.OptimizationResult, lo, hi float64) {
	t.Helper()
	assert.InDelta(t, 1.0, res.Weights.Sum(), contracts.WeightTolerance)
	for a, w := range res.Weights {
		assert.GreaterOrEqual(t, w, lo-1e-9, a)
		assert.LessOrEqual(t, w, hi+1e-9, a)
	}
}

func TestParseObjective(t *testing.T) {
	tests := []struct {
		in   string
		want Objective
	}{
		{"max_sharpe", MaxSharpe},
		{"sharpe", MaxSharpe},
		{"MIN_VOLATILITY", MinVolatility},
		{"min_vol", MinVolatility},
		{" max_return ", MaxReturn},
		{"return", MaxReturn},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseObjective(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseObjective("max_alpha")
	assert.True(t, errors.Is(err, contracts.ErrInvalidObjective))
	assert.Contains(t, err.Error(), "max_alpha")
}

func TestNewOptimizer_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Objective = "min_drawdown"
	_, err := NewOptimizer(cfg)
	assert.True(t, errors.Is(err, contracts.ErrInvalidObjective))

	cfg = DefaultConfig()
	cfg.IterationBudget = 0
	_, err = NewOptimizer(cfg)
	assert.True(t, errors.Is(err, contracts.ErrConfig))

	cfg = DefaultConfig()
	cfg.Tolerance = 0
	_, err = NewOptimizer(cfg)
	assert.True(t, errors.Is(err, contracts.ErrConfig))
}

func TestMinVolatility_TwoAssetClosedForm(t *testing.T) {
	cov := covOf(t, []string{"A", "B"}, [][]float64{
		{0.04, 0.006},
		{0.006, 0.09},
	})
	res, err := newOptimizer(t, MinVolatility).Optimize(context.Background(), cov, []float64{0.08, 0.12})
	require.NoError(t, err)

	// w_A = (σ_B² - σ_AB) / (σ_A² + σ_B² - 2σ_AB)
	wantA := 0.084 / 0.118
	assert.InDelta(t, wantA, res.Weights["A"], 1e-6)
	assert.InDelta(t, 1-wantA, res.Weights["B"], 1e-6)
	assert.True(t, res.Converged)
	assert.Equal(t, string(MinVolatility), res.Objective)

	wantVar := wantA*wantA*0.04 + (1-wantA)*(1-wantA)*0.09 + 2*wantA*(1-wantA)*0.006
	assert.InDelta(t, math.Sqrt(wantVar), res.ExpectedVolatility, 1e-6)
}

func TestMinVolatility_RespectsUpperBound(t *testing.T) {
	cov := covOf(t, []string{"A", "B"}, [][]float64{
		{0.04, 0.006},
		{0.006, 0.09},
	})
	o := newOptimizer(t, MinVolatility, func(c *Config) {
		c.Constraints.PerAsset = map[string]Bound{"A": {Min: 0, Max: 0.6}}
	})
	res, err := o.Optimize(context.Background(), cov, []float64{0.08, 0.12})
	require.NoError(t, err)
	assert.InDelta(t, 0.6, res.Weights["A"], 1e-9)
	assert.InDelta(t, 0.4, res.Weights["B"], 1e-9)
}

func TestMaxReturn_ConcentratesOnBestAsset(t *testing.T) {
	assets := []string{"A", "B", "C"}
	cov := covOf(t, assets, randomCov(3, 3))

	res, err := newOptimizer(t, MaxReturn).Optimize(context.Background(), cov, []float64{0.05, 0.20, 0.10})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.Weights["B"], 1e-12)
	assert.InDelta(t, 0.20, res.ExpectedReturn, 1e-12)
}

func TestMaxReturn_FillsInReturnOrderUnderBounds(t *testing.T) {
	assets := []string{"A", "B", "C", "D"}
	cov := covOf(t, assets, randomCov(4, 4))
	o := newOptimizer(t, MaxReturn, func(c *Config) {
		c.Constraints.Default = Bound{Min: 0, Max: 0.4}
	})

	res, err := o.Optimize(context.Background(), cov, []float64{0.10, 0.20, 0.15, 0.05})
	require.NoError(t, err)
	assert.InDelta(t, 0.2, res.Weights["A"], 1e-12)
	assert.InDelta(t, 0.4, res.Weights["B"], 1e-12)
	assert.InDelta(t, 0.4, res.Weights["C"], 1e-12)
	assert.InDelta(t, 0.0, res.Weights["D"], 1e-12)
}

func TestMaxReturn_TiedAssetsShareEqually(t *testing.T) {
	assets := []string{"A", "B", "C"}
	cov := covOf(t, assets, randomCov(5, 3))

	res, err := newOptimizer(t, MaxReturn).Optimize(context.Background(), cov, []float64{0.12, 0.12, 0.03})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, res.Weights["A"], 1e-9)
	assert.InDelta(t, 0.5, res.Weights["B"], 1e-9)
	assert.InDelta(t, 0.0, res.Weights["C"], 1e-9)
}

func TestMaxReturn_NearTiesWithinTieTolerance(t *testing.T) {
	assets := []string{"A", "B", "C"}
	cov := covOf(t, assets, randomCov(6, 3))

	// 차이 5e-7: 수렴 허용오차(1e-9)보다 크고 동률 허용오차(1e-6)보다 작음
	res, err := newOptimizer(t, MaxReturn).Optimize(context.Background(), cov, []float64{0.1200005, 0.12, 0.03})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, res.Weights["A"], 1e-9)
	assert.InDelta(t, 0.5, res.Weights["B"], 1e-9)
	assert.InDelta(t, 0.0, res.Weights["C"], 1e-9)

	// 동률 허용오차 밖이면 최고 수익 자산에 집중
	strict := newOptimizer(t, MaxReturn, func(c *Config) { c.TieTolerance = 1e-8 })
	res, err = strict.Optimize(context.Background(), cov, []float64{0.1200005, 0.12, 0.03})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.Weights["A"], 1e-9)
}

func TestMaxSharpe_UncorrelatedTangency(t *testing.T) {
	cov := covOf(t, []string{"A", "B"}, [][]float64{
		{0.04, 0},
		{0, 0.09},
	})
	o := newOptimizer(t, MaxSharpe, func(c *Config) { c.RiskFreeRate = 0.02 })

	res, err := o.Optimize(context.Background(), cov, []float64{0.10, 0.15})
	require.NoError(t, err)

	// w ∝ Σ⁻¹(μ - rf) = (2, 1.444...)
	zA, zB := 0.08/0.04, 0.13/0.09
	assert.InDelta(t, zA/(zA+zB), res.Weights["A"], 1e-3)
	assert.InDelta(t, zB/(zA+zB), res.Weights["B"], 1e-3)

	sharpe, ok := res.SharpeRatio.Value()
	require.True(t, ok)
	assert.InDelta(t, math.Sqrt(0.08*zA+0.13*zB), sharpe, 1e-5)
	assert.Greater(t, res.Restarts, 0)
}

func TestOptimize_InvariantsUnderBounds(t *testing.T) {
	assets := []string{"A", "B", "C", "D", "E"}
	cov := covOf(t, assets, randomCov(11, 5))
	mu := []float64{0.06, 0.11, 0.09, 0.14, 0.04}

	for _, obj := range Objectives() {
		t.Run(string(obj), func(t *testing.T) {
			o := newOptimizer(t, obj, func(c *Config) {
				c.Constraints.Default = Bound{Min: 0.05, Max: 0.4}
			})
			res, err := o.Optimize(context.Background(), cov, mu)
			require.NoError(t, err)
			assertFeasible(t, res, 0.05, 0.4)

			eq, err := o.EqualWeight(cov, mu)
			require.NoError(t, err)
			switch obj {
			case MinVolatility:
				assert.LessOrEqual(t, res.ExpectedVolatility, eq.ExpectedVolatility+1e-12)
			case MaxReturn:
				assert.GreaterOrEqual(t, res.ExpectedReturn, eq.ExpectedReturn-1e-12)
			case MaxSharpe:
				got, _ := res.SharpeRatio.Value()
				base, _ := eq.SharpeRatio.Value()
				assert.GreaterOrEqual(t, got, base-1e-9)
			}
		})
	}
}

func TestMaxSharpe_Deterministic(t *testing.T) {
	assets := []string{"A", "B", "C", "D"}
	cov := covOf(t, assets, randomCov(21, 4))
	mu := []float64{0.07, 0.12, 0.10, 0.05}

	first, err := newOptimizer(t, MaxSharpe).Optimize(context.Background(), cov, mu)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := newOptimizer(t, MaxSharpe, func(c *Config) { c.Workers = i + 1 }).
			Optimize(context.Background(), cov, mu)
		require.NoError(t, err)
		assert.Equal(t, first.Weights, again.Weights)
	}
}

func TestOptimize_SingleAsset(t *testing.T) {
	cov := covOf(t, []string{"A"}, [][]float64{{0.04}})
	for _, obj := range Objectives() {
		res, err := newOptimizer(t, obj).Optimize(context.Background(), cov, []float64{0.1})
		require.NoError(t, err, obj)
		assert.Equal(t, 1.0, res.Weights["A"])
	}
}

func TestOptimize_Errors(t *testing.T) {
	ctx := context.Background()
	good := covOf(t, []string{"A", "B"}, [][]float64{{0.04, 0.01}, {0.01, 0.09}})

	t.Run("singular covariance", func(t *testing.T) {
		cov := covOf(t, []string{"A", "B"}, [][]float64{{0.04, 0.04}, {0.04, 0.04}})
		_, err := newOptimizer(t, MinVolatility).Optimize(ctx, cov, []float64{0.1, 0.1})
		assert.True(t, errors.Is(err, contracts.ErrSingularCovariance))
	})

	t.Run("expected length mismatch", func(t *testing.T) {
		_, err := newOptimizer(t, MinVolatility).Optimize(ctx, good, []float64{0.1})
		assert.True(t, errors.Is(err, contracts.ErrData))
	})

	t.Run("non-finite expected return", func(t *testing.T) {
		_, err := newOptimizer(t, MaxReturn).Optimize(ctx, good, []float64{0.1, math.NaN()})
		require.True(t, errors.Is(err, contracts.ErrData))
		e, _ := contracts.AsError(err)
		assert.Equal(t, "B", e.Asset)
	})

	t.Run("infeasible bounds", func(t *testing.T) {
		o := newOptimizer(t, MinVolatility, func(c *Config) {
			c.Constraints.Default = Bound{Min: 0.6, Max: 1}
		})
		_, err := o.Optimize(ctx, good, []float64{0.1, 0.2})
		assert.True(t, errors.Is(err, contracts.ErrConfig))
	})

	t.Run("bounds for unknown asset", func(t *testing.T) {
		o := newOptimizer(t, MinVolatility, func(c *Config) {
			c.Constraints.PerAsset = map[string]Bound{"Z": {Min: 0, Max: 0.5}}
		})
		_, err := o.Optimize(ctx, good, []float64{0.1, 0.2})
		assert.True(t, errors.Is(err, contracts.ErrConfig))
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := newOptimizer(t, MaxSharpe).Optimize(cctx, good, []float64{0.1, 0.2})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestProject_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	lo := []float64{0, 0.05, -0.2, 0, 0.1}
	hi := []float64{0.5, 0.4, 0.6, 1, 0.3}

	for trial := 0; trial < 50; trial++ {
		y := make([]float64, len(lo))
		for i := range y {
			y[i] = 2 * rng.NormFloat64()
		}
		out := make([]float64, len(y))
		project(y, lo, hi, 1, out)

		sum := 0.0
		for i, v := range out {
			assert.GreaterOrEqual(t, v, lo[i])
			assert.LessOrEqual(t, v, hi[i])
			sum += v
		}
		assert.InDelta(t, 1.0, sum, 1e-12)

		// idempotent
		again := make([]float64, len(out))
		project(out, lo, hi, 1, again)
		assert.InDeltaSlice(t, out, again, 1e-12)
	}
}

func TestEvaluate(t *testing.T) {
	cov := covOf(t, []string{"A", "B"}, [][]float64{{0.04, 0}, {0, 0.09}})
	o := newOptimizer(t, MaxSharpe, func(c *Config) { c.RiskFreeRate = 0.02 })

	perf, err := o.Evaluate(cov, []float64{0.10, 0.15}, contracts.PortfolioWeights{"A": 0.5, "B": 0.5})
	require.NoError(t, err)
	assert.InDelta(t, 0.125, perf.ExpectedReturn, 1e-12)
	assert.InDelta(t, math.Sqrt(0.25*0.04+0.25*0.09), perf.ExpectedVolatility, 1e-12)

	_, err = o.Evaluate(cov, []float64{0.10, 0.15}, contracts.PortfolioWeights{"A": 0.7, "B": 0.5})
	assert.True(t, errors.Is(err, contracts.ErrData))

	_, err = o.Evaluate(cov, []float64{0.10, 0.15}, contracts.PortfolioWeights{"A": 0.5, "C": 0.5})
	assert.True(t, errors.Is(err, contracts.ErrData))
}

func TestFrontier_MonotoneRiskAndReturn(t *testing.T) {
	assets := []string{"A", "B", "C"}
	cov := covOf(t, assets, [][]float64{
		{0.04, 0.01, 0.0},
		{0.01, 0.09, 0.02},
		{0.0, 0.02, 0.16},
	})
	o := newOptimizer(t, MinVolatility)

	points, err := o.Frontier(cov, []float64{0.05, 0.10, 0.15}, 5)
	require.NoError(t, err)
	require.Len(t, points, 5)
	for i := 1; i < len(points); i++ {
		assert.GreaterOrEqual(t, points[i].ExpectedReturn, points[i-1].ExpectedReturn-1e-9)
		assert.GreaterOrEqual(t, points[i].ExpectedVolatility, points[i-1].ExpectedVolatility-1e-9)
	}
	assert.InDelta(t, 1.0, points[4].Weights["C"], 1e-12)

	_, err = o.Frontier(cov, []float64{0.05, 0.10, 0.15}, 1)
	assert.True(t, errors.Is(err, contracts.ErrConfig))
}
