package selection

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fluxrx/internal/contracts"
	"github.com/wonny/fluxrx/internal/risk"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func walk(asset string, seed int64, n int, drift, sigma float64) contracts.PriceSeries {
	rng := rand.New(rand.NewSource(seed))
	s := contracts.PriceSeries{Asset: asset}
	p := 100.0
	for i := 0; i < n; i++ {
		s.Points = append(s.Points, contracts.PricePoint{Time: start.AddDate(0, 0, i), Price: p})
		p *= 1 + drift + sigma*rng.NormFloat64()
	}
	return s
}

func newCalculator(t *testing.T) *risk.Calculator {
	t.Helper()
	c, err := risk.NewCalculator(risk.DefaultConfig())
	require.NoError(t, err)
	return c
}

// stubCalculator returns canned results keyed by asset
type stubCalculator struct {
	results map[string]*contracts.MetricsResult
}

func (s stubCalculator) Compute(prices contracts.PriceSeries, _ *contracts.PriceSeries) (*contracts.MetricsResult, error) {
	r, ok := s.results[prices.Asset]
	if !ok {
		return nil, contracts.NewError(contracts.KindInsufficientData, "no data").ForAsset(prices.Asset)
	}
	return r, nil
}

func sharpeOf(asset string, v *float64) *contracts.MetricsResult {
	r := &contracts.MetricsResult{Asset: asset, SharpeRatio: contracts.Undefined()}
	if v != nil {
		r.SharpeRatio = contracts.Defined(*v)
	}
	return r
}

func ptr(v float64) *float64 { return &v }

func TestScreen_ExcludesAssetWithSinglePoint(t *testing.T) {
	batch := []contracts.PriceSeries{
		walk("A", 1, 60, 0.001, 0.01),
		walk("B", 2, 60, 0.002, 0.02),
		walk("C", 3, 1, 0, 0),
		walk("D", 4, 60, -0.001, 0.015),
		walk("E", 5, 60, 0.0005, 0.005),
	}

	s, err := NewScreener(newCalculator(t), DefaultConfig(), nil)
	require.NoError(t, err)

	res, err := s.Screen(context.Background(), batch, nil)
	require.NoError(t, err)

	require.Len(t, res.Ranked, 4)
	require.Len(t, res.Excluded, 1)
	assert.Equal(t, "C", res.Excluded[0].Asset)
	assert.Equal(t, contracts.KindInsufficientData, res.Excluded[0].Kind)
	assert.NotEmpty(t, res.Excluded[0].Reason)

	for i, r := range res.Ranked {
		assert.Equal(t, i+1, r.Rank)
		assert.NotEqual(t, "C", r.Asset)
	}
	_, found := res.Get("C")
	assert.False(t, found)
}

func TestScreen_SingleAssetMatchesCalculator(t *testing.T) {
	calc := newCalculator(t)
	series := walk("SPY", 9, 120, 0.0004, 0.01)

	direct, err := calc.Compute(series, nil)
	require.NoError(t, err)

	s, err := NewScreener(calc, DefaultConfig(), nil)
	require.NoError(t, err)
	res, err := s.Screen(context.Background(), []contracts.PriceSeries{series}, nil)
	require.NoError(t, err)

	require.Len(t, res.Ranked, 1)
	assert.Empty(t, res.Excluded)
	assert.Equal(t, 1, res.Ranked[0].Rank)
	assert.Equal(t, direct, res.Ranked[0].Metrics)
}

func TestScreenBy_DirectionAndUndefinedLast(t *testing.T) {
	calc := stubCalculator{results: map[string]*contracts.MetricsResult{
		"A": sharpeOf("A", ptr(0.5)),
		"B": sharpeOf("B", nil),
		"C": sharpeOf("C", ptr(1.5)),
		"D": sharpeOf("D", ptr(0.5)),
	}}
	batch := []contracts.PriceSeries{{Asset: "A"}, {Asset: "B"}, {Asset: "C"}, {Asset: "D"}}

	s, err := NewScreener(calc, DefaultConfig(), nil)
	require.NoError(t, err)

	tests := []struct {
		name  string
		order Order
		want  []string
	}{
		{"default descending", "", []string{"C", "A", "D", "B"}},
		{"explicit ascending", Ascending, []string{"A", "D", "C", "B"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.ScreenBy(context.Background(), batch, nil, contracts.MetricSharpe, tt.order)
			require.NoError(t, err)
			got := make([]string, 0, len(res.Ranked))
			for _, r := range res.Ranked {
				got = append(got, r.Asset)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultOrder(t *testing.T) {
	tests := []struct {
		field string
		want  Order
	}{
		{contracts.MetricCAGR, Descending},
		{contracts.MetricSharpe, Descending},
		{contracts.MetricMaxDrawdown, Descending},
		{contracts.MetricVolatility, Ascending},
		{contracts.MetricVaR, Ascending},
		{contracts.MetricCVaR, Ascending},
		{contracts.MetricTrackingError, Ascending},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			got, err := DefaultOrder(tt.field)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	// every metric has an explicit direction
	for _, name := range contracts.MetricNames() {
		_, err := DefaultOrder(name)
		assert.NoError(t, err, name)
	}
}

func TestScreen_MaxDrawdownRanksSmallestLossFirst(t *testing.T) {
	mdd := func(asset string, v float64) *contracts.MetricsResult {
		return &contracts.MetricsResult{Asset: asset, MaxDrawdown: contracts.Defined(v)}
	}
	calc := stubCalculator{results: map[string]*contracts.MetricsResult{
		"deep":    mdd("deep", -0.45),
		"shallow": mdd("shallow", -0.05),
		"mid":     mdd("mid", -0.20),
	}}
	s, err := NewScreener(calc, Config{SortBy: contracts.MetricMaxDrawdown, Workers: 2}, nil)
	require.NoError(t, err)

	res, err := s.Screen(context.Background(),
		[]contracts.PriceSeries{{Asset: "deep"}, {Asset: "shallow"}, {Asset: "mid"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "shallow", res.Ranked[0].Asset)
	assert.Equal(t, "deep", res.Ranked[2].Asset)
	assert.Equal(t, string(Descending), res.Order)
}

func TestScreen_Errors(t *testing.T) {
	calc := stubCalculator{results: map[string]*contracts.MetricsResult{}}

	_, err := NewScreener(calc, Config{SortBy: "momentum"}, nil)
	assert.True(t, errors.Is(err, contracts.ErrConfig))

	_, err = NewScreener(calc, Config{SortBy: contracts.MetricSharpe, Order: "sideways"}, nil)
	assert.True(t, errors.Is(err, contracts.ErrConfig))

	s, err := NewScreener(calc, DefaultConfig(), nil)
	require.NoError(t, err)

	_, err = s.ScreenBy(context.Background(), nil, nil, "not_a_metric", "")
	assert.True(t, errors.Is(err, contracts.ErrConfig))

	_, err = s.Screen(context.Background(), []contracts.PriceSeries{{Asset: "A"}, {Asset: "A"}}, nil)
	require.True(t, errors.Is(err, contracts.ErrData))
	e, _ := contracts.AsError(err)
	assert.Equal(t, "A", e.Asset)
}

func TestScreen_EmptyBatch(t *testing.T) {
	s, err := NewScreener(stubCalculator{}, DefaultConfig(), nil)
	require.NoError(t, err)

	res, err := s.Screen(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Ranked)
	assert.Empty(t, res.Excluded)
}
