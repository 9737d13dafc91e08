package risk

import (
	"fmt"
	"time"

	"github.com/wonny/fluxrx/internal/contracts"
)

// RollingVolatility 롤링 연율 변동성 (window개 수익률마다 한 점)
func RollingVolatility(returns []float64, window int, periodsPerYear float64) []RollingPoint {
	return rolling(returns, window, func(w []float64) contracts.Scalar {
		return AnnualizedVolatility(w, periodsPerYear)
	})
}

// RollingSharpe 롤링 샤프 비율
func RollingSharpe(returns []float64, window int, riskFree, periodsPerYear float64) []RollingPoint {
	return rolling(returns, window, func(w []float64) contracts.Scalar {
		return Sharpe(w, riskFree, periodsPerYear)
	})
}

func rolling(values []float64, window int, fn func([]float64) contracts.Scalar) []RollingPoint {
	if window < 2 || len(values) < window {
		return nil
	}
	out := make([]RollingPoint, 0, len(values)-window+1)
	for end := window; end <= len(values); end++ {
		out = append(out, RollingPoint{Index: end - 1, Value: fn(values[end-window : end])})
	}
	return out
}

// PeriodReturns 월별/연별 수익률
// 각 기간의 마지막 가격 / 직전 기간의 마지막 가격 - 1 (첫 기간은 기준이 없어 제외)
func PeriodReturns(series contracts.PriceSeries, period Period) ([]PeriodReturn, error) {
	if err := series.Validate(); err != nil {
		return nil, err
	}
	if period != PeriodMonthly && period != PeriodYearly {
		return nil, contracts.NewError(contracts.KindConfig, "unknown period %q", period)
	}

	type bucket struct {
		year, month int
		last        float64
	}
	var buckets []bucket
	for _, p := range series.Points {
		t := p.Time.UTC()
		y, m := t.Year(), int(t.Month())
		if period == PeriodYearly {
			m = 0
		}
		if n := len(buckets); n > 0 && buckets[n-1].year == y && buckets[n-1].month == m {
			buckets[n-1].last = p.Price
			continue
		}
		buckets = append(buckets, bucket{year: y, month: m, last: p.Price})
	}

	if len(buckets) < 2 {
		return []PeriodReturn{}, nil
	}
	out := make([]PeriodReturn, 0, len(buckets)-1)
	for i := 1; i < len(buckets); i++ {
		b := buckets[i]
		pr := PeriodReturn{Year: b.year, Month: b.month, Return: b.last/buckets[i-1].last - 1}
		if period == PeriodYearly {
			pr.Label = fmt.Sprintf("%04d", b.year)
		} else {
			pr.Label = time.Date(b.year, time.Month(b.month), 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
		}
		out = append(out, pr)
	}
	return out, nil
}
