package risk

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/fluxrx/internal/contracts"
	"github.com/wonny/fluxrx/internal/returns"
	"github.com/wonny/fluxrx/internal/timeseries"
)

// =============================================================================
// Calculator - 순수 계산기
// =============================================================================

// Calculator 자산별 리스크/수익 지표 계산기
// ⭐ SSOT: 데이터 수집/표시는 상위 레이어에서 담당, 여기서는 순수 계산만
type Calculator struct {
	config Config
}

// NewCalculator 새 계산기 생성 (설정 검증 실패 시 FluxConfigError)
func NewCalculator(config Config) (*Calculator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{config: config}, nil
}

// Config returns the calculator configuration
func (c *Calculator) Config() Config {
	return c.config
}

// Compute 전체 지표 계산
// prices: 대상 자산 가격, benchmark: 선택 (nil이면 TE/IR/beta/alpha는 Undefined)
//
// Malformed input fails with FluxDataError before any metric is computed.
// A Hurst estimate that lacks observations is reported as undefined, not as a failure.
func (c *Calculator) Compute(prices contracts.PriceSeries, benchmark *contracts.PriceSeries) (*contracts.MetricsResult, error) {
	if err := prices.Validate(); err != nil {
		return nil, err
	}
	if benchmark != nil {
		if err := benchmark.Validate(); err != nil {
			return nil, err
		}
	}
	if prices.Len() < 2 {
		return nil, withAsset(insufficient(contracts.MetricCAGR, prices.Len(), 2), prices.Asset)
	}

	rs, err := returns.Build(prices, c.config.Convention)
	if err != nil {
		return nil, err
	}
	rets := rs.Values
	px := prices.Prices()

	cagrValue, err := SeriesCAGR(prices)
	if err != nil {
		return nil, withAsset(err, prices.Asset)
	}

	vr, err := HistoricalVaR(rets, c.config.ConfidenceLevel)
	if err != nil {
		return nil, withAsset(err, prices.Asset)
	}

	res := &contracts.MetricsResult{
		Asset:            prices.Asset,
		Start:            prices.First().Time,
		End:              prices.Last().Time,
		Observations:     prices.Len(),
		ConfidenceLevel:  c.config.ConfidenceLevel,
		CAGR:             contracts.Defined(cagrValue),
		Volatility:       AnnualizedVolatility(rets, c.config.PeriodsPerYear),
		SharpeRatio:      Sharpe(rets, c.config.RiskFreeRate, c.config.PeriodsPerYear),
		MaxDrawdown:      MaxDrawdown(px),
		VaR:              contracts.Defined(vr.VaR),
		CVaR:             contracts.Defined(vr.CVaR),
		InformationRatio: contracts.Undefined(),
		TrackingError:    contracts.Undefined(),
		ZScore:           timeseries.ZScore(px, c.config.ZScoreWindow),
		TotalReturn:      TotalReturn(px),
		SortinoRatio:     Sortino(rets, c.config.RiskFreeRate, c.config.PeriodsPerYear),
		OmegaRatio:       Omega(rets, c.config.OmegaThreshold),
		WinRate:          WinRate(rets),
		Beta:             contracts.Undefined(),
		Alpha:            contracts.Undefined(),
	}
	res.CalmarRatio = Calmar(res.CAGR, res.MaxDrawdown)

	hurst, err := timeseries.Hurst(rets, c.config.Hurst)
	if err != nil && !errors.Is(err, contracts.ErrInsufficientData) {
		return nil, withAsset(err, prices.Asset)
	}
	res.HurstExponent = hurst

	if benchmark != nil {
		if err := c.applyBenchmark(res, prices, *benchmark); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// applyBenchmark 벤치마크와 공통 시점으로 정렬 후 상대 지표 계산
func (c *Calculator) applyBenchmark(res *contracts.MetricsResult, prices, bench contracts.PriceSeries) error {
	if bench.Asset == prices.Asset {
		bench.Asset = bench.Asset + " (benchmark)"
	}
	ra, rb, err := returns.AlignPair(prices, bench, c.config.alignOptions())
	if err != nil {
		if e, ok := contracts.AsError(err); ok {
			e = e.ForAsset(prices.Asset).ForMetric(contracts.MetricTrackingError)
			return e
		}
		return err
	}

	rel := Relative(ra, rb, c.config.PeriodsPerYear)
	res.TrackingError = rel.TrackingError
	res.InformationRatio = rel.InformationRatio
	res.Beta = rel.Beta

	benchCAGR := contracts.Undefined()
	if v, err := SeriesCAGR(bench.Window(prices.First().Time, prices.Last().Time)); err == nil {
		benchCAGR = contracts.Defined(v)
	}
	res.Alpha = JensenAlpha(res.CAGR, benchCAGR, rel.Beta, c.config.RiskFreeRate)
	return nil
}

// HurstOf Hurst 지수 직접 계산 (InsufficientDataError를 그대로 반환)
func (c *Calculator) HurstOf(prices contracts.PriceSeries) (contracts.Scalar, error) {
	rs, err := returns.Build(prices, c.config.Convention)
	if err != nil {
		return contracts.Undefined(), err
	}
	h, err := timeseries.Hurst(rs.Values, c.config.Hurst)
	if err != nil {
		return h, withAsset(err, prices.Asset)
	}
	return h, nil
}

// =============================================================================
// Expected returns (optimizer input)
// =============================================================================

// ExpectedReturnMethod 기대수익률 추정 방식
type ExpectedReturnMethod string

const (
	ExpectedMean ExpectedReturnMethod = "mean" // 연율화 산술 평균
	ExpectedCAGR ExpectedReturnMethod = "cagr" // 정렬 구간의 복리 연율
)

// ExpectedReturns 자산별 연율 기대수익률 (m.Assets 순서)
func ExpectedReturns(m *contracts.AlignedReturnMatrix, method ExpectedReturnMethod, periodsPerYear float64) ([]float64, error) {
	if m == nil || m.Periods() == 0 {
		return nil, contracts.NewError(contracts.KindInsufficientData, "no aligned return periods")
	}
	out := make([]float64, len(m.Assets))
	for i, asset := range m.Assets {
		s := m.Series[asset]
		switch method {
		case "", ExpectedMean:
			out[i] = stat.Mean(s.Values, nil) * periodsPerYear
		case ExpectedCAGR:
			growth := 0.0
			for _, r := range s.Values {
				if s.Convention == contracts.ReturnLog {
					growth += r
				} else {
					growth += math.Log1p(r)
				}
			}
			out[i] = math.Exp(growth*periodsPerYear/float64(len(s.Values))) - 1
		default:
			return nil, contracts.NewError(contracts.KindConfig, "unknown expected return method %q", method)
		}
	}
	return out, nil
}

func withAsset(err error, asset string) error {
	if e, ok := contracts.AsError(err); ok && e.Asset == "" {
		return e.ForAsset(asset)
	}
	return err
}
