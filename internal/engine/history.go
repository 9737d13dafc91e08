package engine

import (
	"time"

	"github.com/wonny/fluxrx/internal/contracts"
	"github.com/wonny/fluxrx/internal/returns"
	"github.com/wonny/fluxrx/internal/risk"
	"github.com/wonny/fluxrx/internal/timeseries"
)

// DefaultRollingWindow 롤링 지표 기본 구간 (약 1개월 거래일)
const DefaultRollingWindow = 21

// HistoryPoint 시점별 값 (Undefined 구간은 제외)
type HistoryPoint struct {
	Time  time.Time        `json:"time"`
	Value contracts.Scalar `json:"value"`
}

// HistoryReport 한 자산의 시점별 지표 (차트/리포트용)
type HistoryReport struct {
	Asset             string              `json:"asset"`
	Window            int                 `json:"window"`
	Drawdown          []HistoryPoint      `json:"drawdown"`
	RollingVolatility []HistoryPoint      `json:"rolling_volatility"`
	RollingSharpe     []HistoryPoint      `json:"rolling_sharpe"`
	ZScores           []HistoryPoint      `json:"z_scores"`
	MonthlyReturns    []risk.PeriodReturn `json:"monthly_returns"`
	YearlyReturns     []risk.PeriodReturn `json:"yearly_returns"`
}

// History computes drawdown, rolling and calendar-period series of one asset.
// window 0 → DefaultRollingWindow
func (e *Engine) History(prices contracts.PriceSeries, window int) (rep *HistoryReport, err error) {
	defer e.observe("history", time.Now(), &err)

	if window == 0 {
		window = DefaultRollingWindow
	}
	if window < 2 {
		return nil, contracts.NewError(contracts.KindInvalidPeriod, "rolling window must be >= 2, got %d", window).
			ForAsset(prices.Asset).WithValue(float64(window))
	}

	cfg := e.calculator.Config()
	rets, err := returns.Build(prices, cfg.Convention)
	if err != nil {
		return nil, err
	}
	if rets.Len() < window {
		return nil, contracts.NewError(contracts.KindInsufficientData,
			"got %d returns, rolling window needs %d", rets.Len(), window).ForAsset(prices.Asset)
	}

	times := prices.Times()
	monthly, err := risk.PeriodReturns(prices, risk.PeriodMonthly)
	if err != nil {
		return nil, err
	}
	yearly, err := risk.PeriodReturns(prices, risk.PeriodYearly)
	if err != nil {
		return nil, err
	}

	rep = &HistoryReport{
		Asset:             prices.Asset,
		Window:            window,
		Drawdown:          make([]HistoryPoint, 0, len(times)),
		RollingVolatility: rollingPoints(risk.RollingVolatility(rets.Values, window, cfg.PeriodsPerYear), rets.Times),
		RollingSharpe:     rollingPoints(risk.RollingSharpe(rets.Values, window, cfg.RiskFreeRate, cfg.PeriodsPerYear), rets.Times),
		ZScores:           definedPoints(timeseries.RollingZScore(prices.Prices(), e.config.ZScoreWindow), times),
		MonthlyReturns:    monthly,
		YearlyReturns:     yearly,
	}
	for i, dd := range risk.DrawdownSeries(prices.Prices()) {
		rep.Drawdown = append(rep.Drawdown, HistoryPoint{Time: times[i], Value: contracts.Defined(dd)})
	}

	e.logger.WithFields(map[string]interface{}{
		"asset":  prices.Asset,
		"window": window,
		"months": len(monthly),
	}).Debug("History computed")
	return rep, nil
}

// rollingPoints maps return indexes to return timestamps
func rollingPoints(points []risk.RollingPoint, times []time.Time) []HistoryPoint {
	out := make([]HistoryPoint, 0, len(points))
	for _, p := range points {
		if !p.Value.IsDefined() || p.Index >= len(times) {
			continue
		}
		out = append(out, HistoryPoint{Time: times[p.Index], Value: p.Value})
	}
	return out
}

func definedPoints(values []contracts.Scalar, times []time.Time) []HistoryPoint {
	out := make([]HistoryPoint, 0, len(values))
	for i, v := range values {
		if v.IsDefined() && i < len(times) {
			out = append(out, HistoryPoint{Time: times[i], Value: v})
		}
	}
	return out
}
