package contracts

import (
	"context"
	"time"
)

// PriceLoader loads price histories from a source (file, database, cache)
// ⭐ SSOT: 가격 데이터 수집은 엔진 밖의 협력자
type PriceLoader interface {
	LoadSeries(ctx context.Context, assets []string, from, to time.Time) ([]PriceSeries, error)
}

// MetricsCalculator computes per-asset metrics
type MetricsCalculator interface {
	Compute(prices PriceSeries, benchmark *PriceSeries) (*MetricsResult, error)
}
