package covariance

import (
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/wonny/fluxrx/internal/contracts"
)

// Config 공분산 추정 설정
type Config struct {
	PeriodsPerYear     float64 `json:"periods_per_year" yaml:"periods_per_year"`         // 연율화 계수 (기본: 252)
	MaxConditionNumber float64 `json:"max_condition_number" yaml:"max_condition_number"` // 특이 판정 기준 (기본: 1e10)
}

// DefaultConfig 기본 설정
func DefaultConfig() Config {
	return Config{
		PeriodsPerYear:     252,
		MaxConditionNumber: 1e10,
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.PeriodsPerYear <= 0 {
		return contracts.NewError(contracts.KindConfig, "periods_per_year must be > 0, got %g", c.PeriodsPerYear)
	}
	if c.MaxConditionNumber <= 1 {
		return contracts.NewError(contracts.KindConfig, "max_condition_number must be > 1, got %g", c.MaxConditionNumber)
	}
	return nil
}

// Matrix 연율화 공분산/상관 행렬
// ⭐ 대칭 보장 (SymDense), 대각 원소 >= 0
type Matrix struct {
	Assets             []string
	Cov                *mat.SymDense
	Corr               *mat.SymDense
	ConditionNumber    float64
	Singular           bool
	ZeroVarianceAssets []string
	Periods            int
}

// Estimator 공분산 추정기
type Estimator struct {
	config Config
}

// NewEstimator 새 추정기 생성
func NewEstimator(config Config) (*Estimator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Estimator{config: config}, nil
}

// Estimate builds the annualized sample covariance and correlation of an aligned matrix.
// 조건수가 MaxConditionNumber를 넘으면 Singular 표시 (Err()로 확인)
func (e *Estimator) Estimate(m *contracts.AlignedReturnMatrix) (*Matrix, error) {
	if m == nil || len(m.Assets) == 0 {
		return nil, contracts.NewError(contracts.KindInsufficientData, "no assets to estimate covariance")
	}
	n := len(m.Assets)
	periods := m.Periods()
	if periods < 2 {
		return nil, contracts.NewError(contracts.KindInsufficientData, "got %d aligned periods, need 2", periods)
	}

	// rows = observations, cols = assets
	data := mat.NewDense(periods, n, nil)
	for j, asset := range m.Assets {
		col := m.Series[asset].Values
		if len(col) != periods {
			return nil, &contracts.Error{
				Kind:    contracts.KindData,
				Asset:   asset,
				Message: fmt.Sprintf("column length %d does not match %d periods", len(col), periods),
			}
		}
		for i, v := range col {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &contracts.Error{Kind: contracts.KindData, Asset: asset, Message: fmt.Sprintf("non-finite return at period %d", i)}
			}
			data.Set(i, j, v)
		}
	}

	cov := mat.NewSymDense(n, nil)
	stat.CovarianceMatrix(cov, data, nil)
	cov.ScaleSym(e.config.PeriodsPerYear, cov)
	for i := 0; i < n; i++ {
		if cov.At(i, i) < 0 {
			cov.SetSym(i, i, 0)
		}
	}

	return e.finalize(append([]string(nil), m.Assets...), cov, periods), nil
}

// FromRows builds a Matrix from an already annualized covariance.
// 비대칭/NaN/음수 분산이면 FluxDataError
func (e *Estimator) FromRows(assets []string, rows [][]float64) (*Matrix, error) {
	n := len(assets)
	if n == 0 || len(rows) != n {
		return nil, contracts.NewError(contracts.KindData, "covariance must be %dx%d", n, n)
	}
	cov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		if len(rows[i]) != n {
			return nil, contracts.NewError(contracts.KindData, "covariance row %d has %d columns, want %d", i, len(rows[i]), n)
		}
		for j := 0; j < n; j++ {
			v := rows[i][j]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, contracts.NewError(contracts.KindData, "non-finite covariance at (%d,%d)", i, j)
			}
			if j > i && math.Abs(v-rows[j][i]) > 1e-12*math.Max(1, math.Abs(v)) {
				return nil, contracts.NewError(contracts.KindData, "covariance not symmetric at (%d,%d)", i, j)
			}
		}
		if rows[i][i] < 0 {
			return nil, (&contracts.Error{Kind: contracts.KindData, Asset: assets[i], Message: "negative variance"}).WithValue(rows[i][i])
		}
		for j := i; j < n; j++ {
			cov.SetSym(i, j, rows[i][j])
		}
	}
	return e.finalize(append([]string(nil), assets...), cov, 0), nil
}

// finalize derives correlation, zero-variance assets and the condition number
func (e *Estimator) finalize(assets []string, cov *mat.SymDense, periods int) *Matrix {
	n := len(assets)
	out := &Matrix{
		Assets:  assets,
		Cov:     cov,
		Corr:    mat.NewSymDense(n, nil),
		Periods: periods,
	}
	for i := 0; i < n; i++ {
		if cov.At(i, i) == 0 {
			out.ZeroVarianceAssets = append(out.ZeroVarianceAssets, assets[i])
		}
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if i == j {
				out.Corr.SetSym(i, i, 1)
				continue
			}
			vi, vj := cov.At(i, i), cov.At(j, j)
			if vi == 0 || vj == 0 {
				out.Corr.SetSym(i, j, 0)
				continue
			}
			r := cov.At(i, j) / math.Sqrt(vi*vj)
			out.Corr.SetSym(i, j, math.Max(-1, math.Min(1, r)))
		}
	}

	out.ConditionNumber = mat.Cond(cov, 2)
	out.Singular = math.IsInf(out.ConditionNumber, 0) || math.IsNaN(out.ConditionNumber) ||
		out.ConditionNumber > e.config.MaxConditionNumber
	return out
}

// Err returns SingularCovarianceError when the matrix is ill-conditioned
func (m *Matrix) Err() error {
	if !m.Singular {
		return nil
	}
	msg := fmt.Sprintf("condition number %.3g exceeds limit", m.ConditionNumber)
	if len(m.ZeroVarianceAssets) > 0 {
		msg += fmt.Sprintf(" (zero-variance assets: %v)", m.ZeroVarianceAssets)
	}
	e := &contracts.Error{Kind: contracts.KindSingularCovariance, Message: msg}
	return e.WithValue(m.ConditionNumber)
}

// Size returns the number of assets
func (m *Matrix) Size() int {
	return len(m.Assets)
}

// Index returns the position of an asset
func (m *Matrix) Index(asset string) (int, bool) {
	for i, a := range m.Assets {
		if a == asset {
			return i, true
		}
	}
	return -1, false
}

// Volatilities returns annualized volatilities (sqrt of the diagonal)
func (m *Matrix) Volatilities() []float64 {
	out := make([]float64, len(m.Assets))
	for i := range out {
		out[i] = math.Sqrt(m.Cov.At(i, i))
	}
	return out
}

// PortfolioVariance returns w'Σw
func (m *Matrix) PortfolioVariance(w []float64) float64 {
	v := mat.NewVecDense(len(w), w)
	return mat.Inner(v, m.Cov, v)
}

// Rows returns the covariance as row slices (for serialization)
func (m *Matrix) Rows() [][]float64 {
	return symRows(m.Cov)
}

// CorrelationRows returns the correlation as row slices
func (m *Matrix) CorrelationRows() [][]float64 {
	return symRows(m.Corr)
}

func symRows(s *mat.SymDense) [][]float64 {
	n := s.SymmetricDim()
	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		out[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			out[i][j] = s.At(i, j)
		}
	}
	return out
}

// MarshalJSON encodes the matrix as nested rows
func (m *Matrix) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Assets             []string    `json:"assets"`
		Covariance         [][]float64 `json:"covariance"`
		Correlation        [][]float64 `json:"correlation"`
		ConditionNumber    *float64    `json:"condition_number"`
		Singular           bool        `json:"singular"`
		ZeroVarianceAssets []string    `json:"zero_variance_assets"`
		Periods            int         `json:"periods"`
	}{
		Assets:             m.Assets,
		Covariance:         m.Rows(),
		Correlation:        m.CorrelationRows(),
		ConditionNumber:    finiteOrNil(m.ConditionNumber),
		Singular:           m.Singular,
		ZeroVarianceAssets: m.ZeroVarianceAssets,
		Periods:            m.Periods,
	})
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
