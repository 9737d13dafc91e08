package risk

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fluxrx/internal/contracts"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func series(asset string, prices ...float64) contracts.PriceSeries {
	s := contracts.PriceSeries{Asset: asset}
	for i, p := range prices {
		s.Points = append(s.Points, contracts.PricePoint{Time: start.AddDate(0, 0, i), Price: p})
	}
	return s
}

func fromReturns(asset string, offset int, rets []float64) contracts.PriceSeries {
	s := contracts.PriceSeries{Asset: asset}
	p := 100.0
	s.Points = append(s.Points, contracts.PricePoint{Time: start.AddDate(0, 0, offset), Price: p})
	for i, r := range rets {
		p *= 1 + r
		s.Points = append(s.Points, contracts.PricePoint{Time: start.AddDate(0, 0, offset+i+1), Price: p})
	}
	return s
}

func randomReturns(seed int64, n int, mu, sigma float64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = mu + sigma*rng.NormFloat64()
	}
	return out
}

func newCalc(t *testing.T) *Calculator {
	t.Helper()
	c, err := NewCalculator(DefaultConfig())
	require.NoError(t, err)
	return c
}

func value(t *testing.T, s contracts.Scalar) float64 {
	t.Helper()
	v, ok := s.Value()
	require.True(t, ok, "expected a defined value")
	return v
}

func TestCompute_FivePointScenario(t *testing.T) {
	calc := newCalc(t)
	prices := series("AAA", 100, 102, 101, 105, 103)

	res, err := calc.Compute(prices, nil)
	require.NoError(t, err)

	// 4 calendar days elapsed
	assert.InDelta(t, math.Pow(1.03, DaysPerYear/4)-1, value(t, res.CAGR), 1e-9)
	assert.InDelta(t, 0.03, value(t, res.TotalReturn), 1e-12)

	// deepest trough is 103 after the 105 peak; the first episode is 101 after 102
	assert.InDelta(t, 103.0/105.0-1, value(t, res.MaxDrawdown), 1e-12)
	dd := DrawdownSeries(prices.Prices())
	assert.InDelta(t, 101.0/102.0-1, dd[2], 1e-12)

	// 4 returns: the 5% empirical quantile is the worst return
	assert.InDelta(t, -(103.0/105.0 - 1), value(t, res.VaR), 1e-12)
	assert.GreaterOrEqual(t, value(t, res.CVaR), value(t, res.VaR))

	assert.True(t, res.Volatility.IsDefined())
	assert.True(t, res.SharpeRatio.IsDefined())
	assert.False(t, res.HurstExponent.IsDefined(), "5 points is below the Hurst minimum")
	assert.False(t, res.TrackingError.IsDefined())
	assert.False(t, res.InformationRatio.IsDefined())
	assert.Equal(t, 5, res.Observations)
	assert.Equal(t, 0.95, res.ConfidenceLevel)
}

func TestCompute_InputErrors(t *testing.T) {
	calc := newCalc(t)

	_, err := calc.Compute(series("AAA", 100), nil)
	assert.ErrorIs(t, err, contracts.ErrInsufficientData)

	_, err = calc.Compute(series("AAA", 100, math.NaN(), 101), nil)
	assert.ErrorIs(t, err, contracts.ErrData)

	bad := series("BENCH", 100, 0, 101)
	_, err = calc.Compute(series("AAA", 100, 101, 102), &bad)
	assert.ErrorIs(t, err, contracts.ErrData)
}

func TestCompute_ConstantPricesAreUndefinedNotNaN(t *testing.T) {
	calc := newCalc(t)
	res, err := calc.Compute(series("FLAT", 50, 50, 50, 50, 50, 50), nil)
	require.NoError(t, err)

	assert.Equal(t, 0.0, value(t, res.Volatility))
	assert.False(t, res.SharpeRatio.IsDefined())
	assert.False(t, res.SortinoRatio.IsDefined())
	assert.False(t, res.CalmarRatio.IsDefined())
	assert.False(t, res.ZScore.IsDefined())
	assert.Equal(t, 0.0, value(t, res.MaxDrawdown))
	assert.Equal(t, 0.0, value(t, res.CAGR))
}

func TestCompute_TwoPointsHasUndefinedVolatility(t *testing.T) {
	res, err := newCalc(t).Compute(series("AAA", 100, 110), nil)
	require.NoError(t, err)
	assert.False(t, res.Volatility.IsDefined())
	assert.False(t, res.SharpeRatio.IsDefined())
}

func TestCompute_Benchmark(t *testing.T) {
	calc := newCalc(t)
	bench := randomReturns(3, 60, 0.0005, 0.01)
	doubled := make([]float64, len(bench))
	for i, r := range bench {
		doubled[i] = 2 * r
	}

	benchmark := fromReturns("IDX", 0, bench)
	asset := fromReturns("AAA", 0, doubled)

	res, err := calc.Compute(asset, &benchmark)
	require.NoError(t, err)

	assert.InDelta(t, 2.0, value(t, res.Beta), 1e-9)

	te := value(t, res.TrackingError)
	mean, std := 0.0, 0.0
	for _, r := range bench {
		mean += r
	}
	mean /= float64(len(bench))
	for _, r := range bench {
		std += (r - mean) * (r - mean)
	}
	std = math.Sqrt(std / float64(len(bench)-1))
	assert.InDelta(t, std*math.Sqrt(252), te, 1e-9)
	assert.InDelta(t, mean*252/te, value(t, res.InformationRatio), 1e-9)
	assert.True(t, res.Alpha.IsDefined())
}

func TestCompute_BenchmarkIdenticalSeries(t *testing.T) {
	calc := newCalc(t)
	s := fromReturns("AAA", 0, randomReturns(5, 40, 0, 0.01))
	bench := s

	res, err := calc.Compute(s, &bench)
	require.NoError(t, err)
	assert.InDelta(t, 0, value(t, res.TrackingError), 1e-12)
	assert.False(t, res.InformationRatio.IsDefined())
	assert.InDelta(t, 1, value(t, res.Beta), 1e-9)
	assert.InDelta(t, 0, value(t, res.Alpha), 1e-9)
}

func TestCompute_BenchmarkInsufficientOverlap(t *testing.T) {
	calc := newCalc(t)
	asset := fromReturns("AAA", 0, randomReturns(1, 40, 0, 0.01))
	bench := fromReturns("IDX", 30, randomReturns(2, 40, 0, 0.01))

	_, err := calc.Compute(asset, &bench)
	require.ErrorIs(t, err, contracts.ErrInsufficientOverlap)
	e, ok := contracts.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "AAA", e.Asset)
}

func TestCompute_LogConvention(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Convention = contracts.ReturnLog
	calc, err := NewCalculator(cfg)
	require.NoError(t, err)

	res, err := calc.Compute(series("AAA", 100, 110, 121), nil)
	require.NoError(t, err)
	assert.InDelta(t, 0, value(t, res.Volatility), 1e-12)
	assert.InDelta(t, -math.Log(1.1), value(t, res.VaR), 1e-12)
}

func TestCompute_HurstDefinedForLongSeries(t *testing.T) {
	calc := newCalc(t)
	res, err := calc.Compute(fromReturns("AAA", 0, randomReturns(9, 600, 0, 0.01)), nil)
	require.NoError(t, err)
	assert.True(t, res.HurstExponent.IsDefined())

	_, err = calc.HurstOf(series("AAA", 100, 101, 102))
	assert.ErrorIs(t, err, contracts.ErrInsufficientData)
}

func TestNewCalculator_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"confidence zero", func(c *Config) { c.ConfidenceLevel = 0 }},
		{"confidence one", func(c *Config) { c.ConfidenceLevel = 1 }},
		{"periods", func(c *Config) { c.PeriodsPerYear = 0 }},
		{"convention", func(c *Config) { c.Convention = "weird" }},
		{"z window", func(c *Config) { c.ZScoreWindow = 1 }},
		{"overlap", func(c *Config) { c.MinOverlap = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := NewCalculator(cfg)
			assert.ErrorIs(t, err, contracts.ErrConfig)
		})
	}
}

func TestExpectedReturns(t *testing.T) {
	m := &contracts.AlignedReturnMatrix{
		Assets: []string{"AAA", "BBB"},
		Times:  []time.Time{start, start.AddDate(0, 0, 1)},
		Series: map[string]contracts.ReturnSeries{
			"AAA": {Convention: contracts.ReturnSimple, Values: []float64{0.01, 0.03}},
			"BBB": {Convention: contracts.ReturnSimple, Values: []float64{0.0, 0.0}},
		},
	}

	mu, err := ExpectedReturns(m, ExpectedMean, 252)
	require.NoError(t, err)
	assert.InDelta(t, 0.02*252, mu[0], 1e-12)
	assert.Equal(t, 0.0, mu[1])

	mu, err = ExpectedReturns(m, ExpectedCAGR, 2)
	require.NoError(t, err)
	assert.InDelta(t, 1.01*1.03-1, mu[0], 1e-12)

	_, err = ExpectedReturns(m, "median", 252)
	assert.ErrorIs(t, err, contracts.ErrConfig)
}
