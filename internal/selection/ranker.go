package selection

import (
	"sort"
	"strings"

	"github.com/wonny/fluxrx/internal/contracts"
)

// Order 정렬 방향
type Order string

const (
	Ascending  Order = "asc"
	Descending Order = "desc"
)

// directions 지표별 기본 정렬 방향
// ⭐ SSOT: 방향은 명시적으로만 정의 (필드명에서 추론하지 않음)
// max_drawdown은 0 이하 값이므로 내림차순 = 손실이 작은 쪽이 상위
var directions = map[string]Order{
	contracts.MetricCAGR:             Descending,
	contracts.MetricSharpe:           Descending,
	contracts.MetricSortino:          Descending,
	contracts.MetricCalmar:           Descending,
	contracts.MetricOmega:            Descending,
	contracts.MetricInformationRatio: Descending,
	contracts.MetricTotalReturn:      Descending,
	contracts.MetricWinRate:          Descending,
	contracts.MetricAlpha:            Descending,
	contracts.MetricHurst:            Descending,
	contracts.MetricZScore:           Descending,
	contracts.MetricBeta:             Descending,
	contracts.MetricMaxDrawdown:      Descending,

	contracts.MetricVolatility:    Ascending,
	contracts.MetricVaR:           Ascending,
	contracts.MetricCVaR:          Ascending,
	contracts.MetricTrackingError: Ascending,
}

// DefaultOrder returns the natural ranking direction of a metric field
func DefaultOrder(field string) (Order, error) {
	o, ok := directions[field]
	if !ok {
		return "", &contracts.Error{
			Kind:    contracts.KindConfig,
			Metric:  field,
			Message: "unknown sort field (expected one of " + strings.Join(contracts.MetricNames(), ", ") + ")",
		}
	}
	return o, nil
}

// ParseOrder parses an explicit order override; empty means the field default
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	}
	return "", contracts.NewError(contracts.KindConfig, "unknown sort order %q (expected asc or desc)", s)
}

// rank sorts results by field and assigns 1-based ranks.
// 정의되지 않은 값은 방향과 무관하게 맨 뒤, 동률은 자산 ID 순
func rank(results []*contracts.MetricsResult, field string, order Order) []contracts.RankedAsset {
	type keyed struct {
		result  *contracts.MetricsResult
		value   float64
		defined bool
	}
	rows := make([]keyed, 0, len(results))
	for _, r := range results {
		s, _ := r.Field(field)
		v, ok := s.Value()
		rows = append(rows, keyed{result: r, value: v, defined: ok})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.defined != b.defined {
			return a.defined
		}
		if a.defined && a.value != b.value {
			if order == Ascending {
				return a.value < b.value
			}
			return a.value > b.value
		}
		return a.result.Asset < b.result.Asset
	})

	ranked := make([]contracts.RankedAsset, len(rows))
	for i, row := range rows {
		ranked[i] = contracts.RankedAsset{
			Asset:   row.result.Asset,
			Rank:    i + 1,
			Metrics: row.result,
		}
	}
	return ranked
}
