package returns

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fluxrx/internal/contracts"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func dailySeries(asset string, startDay int, prices ...float64) contracts.PriceSeries {
	s := contracts.PriceSeries{Asset: asset}
	for i, p := range prices {
		s.Points = append(s.Points, contracts.PricePoint{Time: base.AddDate(0, 0, startDay+i), Price: p})
	}
	return s
}

func linearSeries(asset string, startDay, n int) contracts.PriceSeries {
	prices := make([]float64, n)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}
	return dailySeries(asset, startDay, prices...)
}

func TestBuild(t *testing.T) {
	s := dailySeries("AAA", 0, 100, 110, 99)

	simple, err := Build(s, contracts.ReturnSimple)
	require.NoError(t, err)
	require.Equal(t, 2, simple.Len())
	assert.InDelta(t, 0.10, simple.Values[0], 1e-12)
	assert.InDelta(t, -0.10, simple.Values[1], 1e-12)
	assert.Equal(t, s.Points[1].Time, simple.Times[0])

	logr, err := Build(s, contracts.ReturnLog)
	require.NoError(t, err)
	assert.InDelta(t, math.Log(1.1), logr.Values[0], 1e-12)
	assert.Equal(t, contracts.ReturnLog, logr.Convention)
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build(dailySeries("AAA", 0, 100), contracts.ReturnSimple)
	assert.ErrorIs(t, err, contracts.ErrInsufficientData)

	_, err = Build(dailySeries("AAA", 0, 100, -1), contracts.ReturnSimple)
	assert.ErrorIs(t, err, contracts.ErrData)
}

func TestCumulative(t *testing.T) {
	r := contracts.ReturnSeries{Convention: contracts.ReturnSimple, Values: []float64{0.1, -0.1}}
	cum := Cumulative(r)
	assert.InDelta(t, 0.1, cum[0], 1e-12)
	assert.InDelta(t, 1.1*0.9-1, cum[1], 1e-12)

	lr := contracts.ReturnSeries{Convention: contracts.ReturnLog, Values: []float64{math.Log(1.1), math.Log(0.9)}}
	assert.InDelta(t, 1.1*0.9-1, Cumulative(lr)[1], 1e-12)
}

func TestAlign_IntersectsTimestamps(t *testing.T) {
	a := linearSeries("AAA", 0, 30)
	b := linearSeries("BBB", 5, 30) // overlaps days 5..29

	m, err := Align([]contracts.PriceSeries{a, b}, AlignOptions{MinOverlap: 20})
	require.NoError(t, err)

	assert.Equal(t, []string{"AAA", "BBB"}, m.Assets)
	assert.Equal(t, 24, m.Periods()) // 25 common prices
	for _, asset := range m.Assets {
		col, ok := m.Column(asset)
		require.True(t, ok)
		assert.Len(t, col, m.Periods())
		assert.Equal(t, m.Times, m.Series[asset].Times)
	}
	assert.Equal(t, base.AddDate(0, 0, 6), m.Times[0])
	assert.Empty(t, m.Excluded)
}

func TestAlign_ExcludesShortAndPoorlyOverlappingAssets(t *testing.T) {
	a := linearSeries("AAA", 0, 60)
	b := linearSeries("BBB", 0, 60)
	c := linearSeries("CCC", 50, 60) // only 10 days in common with the others
	d := dailySeries("DDD", 0, 100)   // single point

	m, err := Align([]contracts.PriceSeries{a, b, c, d}, AlignOptions{MinOverlap: 20})
	require.NoError(t, err)

	assert.Equal(t, []string{"AAA", "BBB"}, m.Assets)
	assert.Equal(t, 59, m.Periods())
	require.Len(t, m.Excluded, 2)

	kinds := map[string]contracts.ErrorKind{}
	for _, ex := range m.Excluded {
		kinds[ex.Asset] = ex.Kind
		assert.NotEmpty(t, ex.Reason)
	}
	assert.Equal(t, contracts.KindInsufficientData, kinds["DDD"])
	assert.Equal(t, contracts.KindInsufficientOverlap, kinds["CCC"])
}

func TestAlign_FailsWhenTooFewSurvive(t *testing.T) {
	a := linearSeries("AAA", 0, 30)
	b := linearSeries("BBB", 25, 30)

	_, err := Align([]contracts.PriceSeries{a, b}, AlignOptions{MinOverlap: 20})
	assert.ErrorIs(t, err, contracts.ErrInsufficientOverlap)

	_, err = Align([]contracts.PriceSeries{dailySeries("AAA", 0, 1)}, AlignOptions{})
	assert.ErrorIs(t, err, contracts.ErrInsufficientData)

	_, err = Align(nil, AlignOptions{})
	assert.ErrorIs(t, err, contracts.ErrInsufficientData)
}

func TestAlign_SingleAssetPassesThrough(t *testing.T) {
	m, err := Align([]contracts.PriceSeries{linearSeries("AAA", 0, 5)}, AlignOptions{MinOverlap: 20})
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA"}, m.Assets)
	assert.Equal(t, 4, m.Periods())
}

func TestAlign_DuplicateAssetIDs(t *testing.T) {
	a := linearSeries("AAA", 0, 30)
	_, err := Align([]contracts.PriceSeries{a, a}, AlignOptions{})
	assert.ErrorIs(t, err, contracts.ErrData)
}

func TestAlignPair(t *testing.T) {
	a := linearSeries("AAA", 0, 40)
	b := linearSeries("BBB", 10, 40)

	ra, rb, err := AlignPair(a, b, AlignOptions{MinOverlap: 20})
	require.NoError(t, err)
	assert.Len(t, ra, 29)
	assert.Len(t, rb, 29)
	// day 11 vs day 10 for AAA is 111/110-1; BBB starts at 100 on day 10
	assert.InDelta(t, 111.0/110.0-1, ra[0], 1e-12)
	assert.InDelta(t, 101.0/100.0-1, rb[0], 1e-12)
}
