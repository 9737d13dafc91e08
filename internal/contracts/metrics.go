package contracts

import "time"

// MetricsResult 자산 하나의 리스크/수익 지표
// ⭐ SSOT: JSON 필드명 고정 (외부 계약)
type MetricsResult struct {
	Asset           string    `json:"asset"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	Observations    int       `json:"observations"`
	ConfidenceLevel float64   `json:"confidence_level"`

	CAGR             Scalar `json:"cagr"`
	Volatility       Scalar `json:"volatility"`
	SharpeRatio      Scalar `json:"sharpe_ratio"`
	MaxDrawdown      Scalar `json:"max_drawdown"`
	VaR              Scalar `json:"var"`
	CVaR             Scalar `json:"cvar"`
	InformationRatio Scalar `json:"information_ratio"`
	TrackingError    Scalar `json:"tracking_error"`
	HurstExponent    Scalar `json:"hurst_exponent"`
	ZScore           Scalar `json:"z_score"`

	TotalReturn  Scalar `json:"total_return"`
	SortinoRatio Scalar `json:"sortino_ratio"`
	CalmarRatio  Scalar `json:"calmar_ratio"`
	OmegaRatio   Scalar `json:"omega_ratio"`
	WinRate      Scalar `json:"win_rate"`
	Beta         Scalar `json:"beta"`
	Alpha        Scalar `json:"alpha"`
}

// Metric field names
const (
	MetricCAGR             = "cagr"
	MetricVolatility       = "volatility"
	MetricSharpe           = "sharpe_ratio"
	MetricMaxDrawdown      = "max_drawdown"
	MetricVaR              = "var"
	MetricCVaR             = "cvar"
	MetricInformationRatio = "information_ratio"
	MetricTrackingError    = "tracking_error"
	MetricHurst            = "hurst_exponent"
	MetricZScore           = "z_score"
	MetricTotalReturn      = "total_return"
	MetricSortino          = "sortino_ratio"
	MetricCalmar           = "calmar_ratio"
	MetricOmega            = "omega_ratio"
	MetricWinRate          = "win_rate"
	MetricBeta             = "beta"
	MetricAlpha            = "alpha"
)

// MetricNames lists every numeric field in output order
func MetricNames() []string {
	return []string{
		MetricCAGR, MetricVolatility, MetricSharpe, MetricMaxDrawdown,
		MetricVaR, MetricCVaR, MetricInformationRatio, MetricTrackingError,
		MetricHurst, MetricZScore, MetricTotalReturn, MetricSortino,
		MetricCalmar, MetricOmega, MetricWinRate, MetricBeta, MetricAlpha,
	}
}

// Field looks up a metric by its JSON name
func (m *MetricsResult) Field(name string) (Scalar, bool) {
	switch name {
	case MetricCAGR:
		return m.CAGR, true
	case MetricVolatility:
		return m.Volatility, true
	case MetricSharpe:
		return m.SharpeRatio, true
	case MetricMaxDrawdown:
		return m.MaxDrawdown, true
	case MetricVaR:
		return m.VaR, true
	case MetricCVaR:
		return m.CVaR, true
	case MetricInformationRatio:
		return m.InformationRatio, true
	case MetricTrackingError:
		return m.TrackingError, true
	case MetricHurst:
		return m.HurstExponent, true
	case MetricZScore:
		return m.ZScore, true
	case MetricTotalReturn:
		return m.TotalReturn, true
	case MetricSortino:
		return m.SortinoRatio, true
	case MetricCalmar:
		return m.CalmarRatio, true
	case MetricOmega:
		return m.OmegaRatio, true
	case MetricWinRate:
		return m.WinRate, true
	case MetricBeta:
		return m.Beta, true
	case MetricAlpha:
		return m.Alpha, true
	}
	return Scalar{}, false
}
