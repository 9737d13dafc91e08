package timeseries

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/fluxrx/internal/contracts"
)

// RegimeConfig 국면 판별 설정
type RegimeConfig struct {
	ShortWindow    int     `json:"short_window"`    // 단기 이동평균 (기본: 20)
	LongWindow     int     `json:"long_window"`     // 장기 이동평균 (기본: 50)
	VolWindow      int     `json:"vol_window"`      // 변동성 구간 (기본: 21)
	VolThreshold   float64 `json:"vol_threshold"`   // 연율화 변동성 기준 (기본: 0.25)
	PeriodsPerYear float64 `json:"periods_per_year"` // 연율화 계수 (기본: 252)
}

// DefaultRegimeConfig 기본 설정
func DefaultRegimeConfig() RegimeConfig {
	return RegimeConfig{
		ShortWindow:    20,
		LongWindow:     50,
		VolWindow:      21,
		VolThreshold:   0.25,
		PeriodsPerYear: 252,
	}
}

// Trend 추세 국면
type Trend string

const (
	TrendUp   Trend = "uptrend"
	TrendDown Trend = "downtrend"
)

// VolRegime 변동성 국면
type VolRegime string

const (
	VolHigh VolRegime = "high_vol"
	VolLow  VolRegime = "low_vol"
)

// Regime 마지막 시점의 시장 국면
type Regime struct {
	Asset            string    `json:"asset"`
	Trend            Trend     `json:"trend"`
	VolatilityRegime VolRegime `json:"volatility_regime"`
	ShortMA          float64   `json:"short_ma"`
	LongMA           float64   `json:"long_ma"`
	RollingVol       float64   `json:"rolling_vol"`
}

// DetectRegime classifies the trend and volatility regime at the end of the series.
// 단기 MA > 장기 MA → uptrend, 연율화 변동성 > 기준 → high_vol
func DetectRegime(series contracts.PriceSeries, cfg RegimeConfig) (*Regime, error) {
	if err := series.Validate(); err != nil {
		return nil, err
	}
	if cfg.ShortWindow <= 0 || cfg.LongWindow < cfg.ShortWindow || cfg.VolWindow < 2 || cfg.PeriodsPerYear <= 0 {
		return nil, contracts.NewError(contracts.KindConfig, "invalid regime windows: short=%d long=%d vol=%d",
			cfg.ShortWindow, cfg.LongWindow, cfg.VolWindow)
	}
	need := cfg.LongWindow
	if cfg.VolWindow+1 > need {
		need = cfg.VolWindow + 1
	}
	if series.Len() < need {
		return nil, &contracts.Error{
			Kind:    contracts.KindInsufficientData,
			Asset:   series.Asset,
			Message: fmt.Sprintf("got %d points, need %d", series.Len(), need),
		}
	}

	prices := series.Prices()
	n := len(prices)
	shortMA := stat.Mean(prices[n-cfg.ShortWindow:], nil)
	longMA := stat.Mean(prices[n-cfg.LongWindow:], nil)

	rets := make([]float64, cfg.VolWindow)
	for i := range rets {
		j := n - cfg.VolWindow + i
		rets[i] = prices[j]/prices[j-1] - 1
	}
	vol := stat.StdDev(rets, nil) * math.Sqrt(cfg.PeriodsPerYear)

	r := &Regime{
		Asset:            series.Asset,
		Trend:            TrendDown,
		VolatilityRegime: VolLow,
		ShortMA:          shortMA,
		LongMA:           longMA,
		RollingVol:       vol,
	}
	if shortMA > longMA {
		r.Trend = TrendUp
	}
	if vol > cfg.VolThreshold {
		r.VolatilityRegime = VolHigh
	}
	return r, nil
}
