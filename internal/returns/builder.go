package returns

import (
	"fmt"
	"math"
	"time"

	"github.com/wonny/fluxrx/internal/contracts"
)

// Build converts a price series into per-period returns.
// 가격 n개 → 수익률 n-1개, Times[i]는 구간 종료 시점
func Build(series contracts.PriceSeries, convention contracts.ReturnConvention) (contracts.ReturnSeries, error) {
	if err := series.Validate(); err != nil {
		return contracts.ReturnSeries{}, err
	}
	if series.Len() < 2 {
		return contracts.ReturnSeries{}, &contracts.Error{
			Kind:    contracts.KindInsufficientData,
			Asset:   series.Asset,
			Message: fmt.Sprintf("got %d price points, need 2", series.Len()),
		}
	}
	if convention == "" {
		convention = contracts.ReturnSimple
	}

	out := contracts.ReturnSeries{
		Asset:      series.Asset,
		Convention: convention,
		Times:      make([]time.Time, 0, series.Len()-1),
		Values:     make([]float64, 0, series.Len()-1),
	}
	for i := 1; i < series.Len(); i++ {
		prev := series.Points[i-1].Price
		cur := series.Points[i].Price
		out.Times = append(out.Times, series.Points[i].Time)
		out.Values = append(out.Values, periodReturn(prev, cur, convention))
	}
	return out, nil
}

// FromPrices computes returns from a bare price slice (no validation, no timestamps)
func FromPrices(prices []float64, convention contracts.ReturnConvention) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		out[i-1] = periodReturn(prices[i-1], prices[i], convention)
	}
	return out
}

func periodReturn(prev, cur float64, convention contracts.ReturnConvention) float64 {
	if convention == contracts.ReturnLog {
		return math.Log(cur / prev)
	}
	return cur/prev - 1
}

// Cumulative returns the compounded cumulative return path.
// log 수익률은 합산 후 지수 변환
func Cumulative(r contracts.ReturnSeries) []float64 {
	out := make([]float64, len(r.Values))
	if r.Convention == contracts.ReturnLog {
		sum := 0.0
		for i, v := range r.Values {
			sum += v
			out[i] = math.Exp(sum) - 1
		}
		return out
	}
	growth := 1.0
	for i, v := range r.Values {
		growth *= 1 + v
		out[i] = growth - 1
	}
	return out
}

// ToSimple converts a single-period return to the simple convention
func ToSimple(v float64, convention contracts.ReturnConvention) float64 {
	if convention == contracts.ReturnLog {
		return math.Exp(v) - 1
	}
	return v
}
