package contracts

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// PricePoint 단일 관측 가격
type PricePoint struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
}

// PriceSeries 자산 하나의 가격 이력
// ⭐ SSOT: 엔진의 유일한 입력 형태 (시간 오름차순, 양수 가격)
type PriceSeries struct {
	Asset  string       `json:"asset"`
	Points []PricePoint `json:"points"`
}

// NewPriceSeries builds a series from parallel time/price slices
func NewPriceSeries(asset string, times []time.Time, prices []float64) (PriceSeries, error) {
	if len(times) != len(prices) {
		return PriceSeries{}, &Error{
			Kind:    KindData,
			Asset:   asset,
			Message: fmt.Sprintf("times and prices length mismatch: %d vs %d", len(times), len(prices)),
		}
	}
	points := make([]PricePoint, len(times))
	for i := range times {
		points[i] = PricePoint{Time: times[i], Price: prices[i]}
	}
	return PriceSeries{Asset: asset, Points: points}, nil
}

// Validate checks the series is well-formed.
// 실패 시 FluxDataError (지표 계산 전에 전체 거부)
func (s PriceSeries) Validate() error {
	if strings.TrimSpace(s.Asset) == "" {
		return &Error{Kind: KindData, Message: "asset id is empty"}
	}
	for i, p := range s.Points {
		if math.IsNaN(p.Price) || math.IsInf(p.Price, 0) {
			return &Error{Kind: KindData, Asset: s.Asset, Message: fmt.Sprintf("non-finite price at index %d", i)}
		}
		if p.Price <= 0 {
			return (&Error{Kind: KindData, Asset: s.Asset, Message: fmt.Sprintf("non-positive price at index %d", i)}).WithValue(p.Price)
		}
		if i > 0 && !p.Time.After(s.Points[i-1].Time) {
			return &Error{
				Kind:    KindData,
				Asset:   s.Asset,
				Message: fmt.Sprintf("timestamps not strictly increasing at index %d (%s after %s)", i, p.Time.Format(time.RFC3339), s.Points[i-1].Time.Format(time.RFC3339)),
			}
		}
	}
	return nil
}

// Len returns the number of observations
func (s PriceSeries) Len() int {
	return len(s.Points)
}

// Prices returns a copy of the price values
func (s PriceSeries) Prices() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Price
	}
	return out
}

// Times returns a copy of the timestamps
func (s PriceSeries) Times() []time.Time {
	out := make([]time.Time, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Time
	}
	return out
}

// First returns the first observation (zero value if empty)
func (s PriceSeries) First() PricePoint {
	if len(s.Points) == 0 {
		return PricePoint{}
	}
	return s.Points[0]
}

// Last returns the last observation (zero value if empty)
func (s PriceSeries) Last() PricePoint {
	if len(s.Points) == 0 {
		return PricePoint{}
	}
	return s.Points[len(s.Points)-1]
}

// Span returns the elapsed time between the first and last observation
func (s PriceSeries) Span() time.Duration {
	if len(s.Points) < 2 {
		return 0
	}
	return s.Last().Time.Sub(s.First().Time)
}

// Window returns the sub-series with from <= t <= to (zero times are open ends)
func (s PriceSeries) Window(from, to time.Time) PriceSeries {
	out := PriceSeries{Asset: s.Asset}
	for _, p := range s.Points {
		if !from.IsZero() && p.Time.Before(from) {
			continue
		}
		if !to.IsZero() && p.Time.After(to) {
			continue
		}
		out.Points = append(out.Points, p)
	}
	return out
}

// =============================================================================
// Returns
// =============================================================================

// ReturnConvention 수익률 계산 방식
type ReturnConvention string

const (
	ReturnSimple ReturnConvention = "simple" // P1/P0 - 1
	ReturnLog    ReturnConvention = "log"    // ln(P1/P0)
)

// ParseReturnConvention parses "simple" or "log" (empty means simple)
func ParseReturnConvention(s string) (ReturnConvention, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ReturnSimple):
		return ReturnSimple, nil
	case string(ReturnLog):
		return ReturnLog, nil
	default:
		return "", NewError(KindConfig, "unknown return convention %q", s)
	}
}

// ReturnSeries 주기별 수익률
// len(Values) == len(prices)-1, Times[i]는 i번째 구간이 끝나는 시점
type ReturnSeries struct {
	Asset      string           `json:"asset"`
	Convention ReturnConvention `json:"convention"`
	Times      []time.Time      `json:"times"`
	Values     []float64        `json:"values"`
}

// Len returns the number of return periods
func (r ReturnSeries) Len() int {
	return len(r.Values)
}

// Exclusion 제외된 자산과 사유 (조용히 버리지 않음)
type Exclusion struct {
	Asset  string    `json:"asset"`
	Kind   ErrorKind `json:"kind"`
	Reason string    `json:"reason"`
}

// ExclusionFromError converts a domain error into an exclusion record
func ExclusionFromError(asset string, err error) Exclusion {
	kind := KindOf(err)
	if kind == "" {
		kind = KindData
	}
	return Exclusion{Asset: asset, Kind: kind, Reason: err.Error()}
}

// AlignedReturnMatrix 공통 시점으로 정렬된 수익률 행렬
// ⭐ 모든 Series는 같은 길이, 같은 Times
type AlignedReturnMatrix struct {
	Assets   []string                `json:"assets"`
	Times    []time.Time             `json:"times"`
	Series   map[string]ReturnSeries `json:"series"`
	Excluded []Exclusion             `json:"excluded"`
}

// Periods returns the number of common return periods
func (m *AlignedReturnMatrix) Periods() int {
	return len(m.Times)
}

// Column returns the aligned returns of one asset
func (m *AlignedReturnMatrix) Column(asset string) ([]float64, bool) {
	s, ok := m.Series[asset]
	if !ok {
		return nil, false
	}
	return s.Values, true
}

// Columns returns the aligned returns in Assets order
func (m *AlignedReturnMatrix) Columns() [][]float64 {
	out := make([][]float64, len(m.Assets))
	for i, a := range m.Assets {
		out[i] = m.Series[a].Values
	}
	return out
}
