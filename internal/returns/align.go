package returns

import (
	"fmt"
	"sort"
	"time"

	"github.com/wonny/fluxrx/internal/contracts"
)

// DefaultMinOverlap 정렬 후 필요한 최소 공통 수익률 구간 수
const DefaultMinOverlap = 20

// AlignOptions 정렬 옵션
type AlignOptions struct {
	Convention contracts.ReturnConvention
	MinOverlap int
}

// DefaultAlignOptions 기본 정렬 옵션
func DefaultAlignOptions() AlignOptions {
	return AlignOptions{
		Convention: contracts.ReturnSimple,
		MinOverlap: DefaultMinOverlap,
	}
}

type candidate struct {
	series contracts.PriceSeries
	index  int
	times  map[int64]struct{}
}

// Align intersects timestamps across assets and returns an aligned return matrix.
// ⭐ 제외된 자산은 반드시 Excluded에 기록 (조용히 버리지 않음)
//
// Assets with fewer than 2 points or malformed data are excluded first. While the
// common return-period count is below MinOverlap, the asset with the smallest pairwise
// overlap is excluded. Fails when fewer than min(2, len(series)) assets survive.
func Align(series []contracts.PriceSeries, opts AlignOptions) (*contracts.AlignedReturnMatrix, error) {
	if len(series) == 0 {
		return nil, contracts.NewError(contracts.KindInsufficientData, "no price series supplied")
	}
	if opts.MinOverlap <= 0 {
		opts.MinOverlap = DefaultMinOverlap
	}
	if opts.Convention == "" {
		opts.Convention = contracts.ReturnSimple
	}

	seen := make(map[string]struct{}, len(series))
	for _, s := range series {
		if _, dup := seen[s.Asset]; dup {
			return nil, &contracts.Error{Kind: contracts.KindData, Asset: s.Asset, Message: "duplicate asset id"}
		}
		seen[s.Asset] = struct{}{}
	}

	var excluded []contracts.Exclusion
	alive := make([]*candidate, 0, len(series))
	for i, s := range series {
		if err := s.Validate(); err != nil {
			excluded = append(excluded, contracts.ExclusionFromError(s.Asset, err))
			continue
		}
		if s.Len() < 2 {
			excluded = append(excluded, contracts.Exclusion{
				Asset:  s.Asset,
				Kind:   contracts.KindInsufficientData,
				Reason: fmt.Sprintf("got %d price points, need 2", s.Len()),
			})
			continue
		}
		alive = append(alive, &candidate{series: s, index: i, times: timeSet(s)})
	}

	for len(alive) >= 2 {
		common := commonTimes(alive)
		if periods(len(common)) >= opts.MinOverlap {
			break
		}
		drop, overlap := worstOverlap(alive)
		excluded = append(excluded, contracts.Exclusion{
			Asset: alive[drop].series.Asset,
			Kind:  contracts.KindInsufficientOverlap,
			Reason: fmt.Sprintf("common return periods %d below minimum %d (smallest pairwise overlap %d)",
				periods(len(common)), opts.MinOverlap, overlap),
		})
		alive = append(alive[:drop], alive[drop+1:]...)
	}

	required := 2
	if len(series) < required {
		required = len(series)
	}
	if len(alive) < required {
		return nil, survivorError(excluded, len(alive), required)
	}

	return buildMatrix(alive, excluded, opts.Convention), nil
}

// AlignPair aligns two series on their common timestamps and returns both return vectors
func AlignPair(a, b contracts.PriceSeries, opts AlignOptions) ([]float64, []float64, error) {
	m, err := Align([]contracts.PriceSeries{a, b}, opts)
	if err != nil {
		return nil, nil, err
	}
	if len(m.Assets) != 2 {
		return nil, nil, survivorError(m.Excluded, len(m.Assets), 2)
	}
	ra, _ := m.Column(a.Asset)
	rb, _ := m.Column(b.Asset)
	return ra, rb, nil
}

func survivorError(excluded []contracts.Exclusion, got, need int) error {
	kind := contracts.KindInsufficientData
	for _, ex := range excluded {
		if ex.Kind == contracts.KindInsufficientOverlap {
			kind = contracts.KindInsufficientOverlap
			break
		}
	}
	e := contracts.NewError(kind, "%d assets survived alignment, need %d", got, need)
	if len(excluded) == 1 {
		e.Asset = excluded[0].Asset
	}
	return e
}

func timeSet(s contracts.PriceSeries) map[int64]struct{} {
	out := make(map[int64]struct{}, s.Len())
	for _, p := range s.Points {
		out[p.Time.UnixNano()] = struct{}{}
	}
	return out
}

func periods(points int) int {
	if points < 2 {
		return 0
	}
	return points - 1
}

// commonTimes returns the timestamps shared by every candidate, ascending
func commonTimes(alive []*candidate) []time.Time {
	if len(alive) == 0 {
		return nil
	}
	var out []time.Time
	for _, p := range alive[0].series.Points {
		key := p.Time.UnixNano()
		shared := true
		for _, c := range alive[1:] {
			if _, ok := c.times[key]; !ok {
				shared = false
				break
			}
		}
		if shared {
			out = append(out, p.Time)
		}
	}
	return out
}

// worstOverlap picks the candidate whose smallest pairwise overlap is lowest.
// 동률: 관측치가 적은 쪽, 그 다음 id가 큰 쪽
func worstOverlap(alive []*candidate) (int, int) {
	minOverlap := make([]int, len(alive))
	for i := range alive {
		minOverlap[i] = -1
	}
	for i := 0; i < len(alive); i++ {
		for j := i + 1; j < len(alive); j++ {
			n := 0
			for key := range alive[i].times {
				if _, ok := alive[j].times[key]; ok {
					n++
				}
			}
			ov := periods(n)
			if minOverlap[i] < 0 || ov < minOverlap[i] {
				minOverlap[i] = ov
			}
			if minOverlap[j] < 0 || ov < minOverlap[j] {
				minOverlap[j] = ov
			}
		}
	}

	order := make([]int, len(alive))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		if minOverlap[ia] != minOverlap[ib] {
			return minOverlap[ia] < minOverlap[ib]
		}
		if alive[ia].series.Len() != alive[ib].series.Len() {
			return alive[ia].series.Len() < alive[ib].series.Len()
		}
		return alive[ia].series.Asset > alive[ib].series.Asset
	})
	return order[0], minOverlap[order[0]]
}

func buildMatrix(alive []*candidate, excluded []contracts.Exclusion, convention contracts.ReturnConvention) *contracts.AlignedReturnMatrix {
	sort.SliceStable(alive, func(i, j int) bool { return alive[i].index < alive[j].index })

	common := commonTimes(alive)
	keep := make(map[int64]struct{}, len(common))
	for _, t := range common {
		keep[t.UnixNano()] = struct{}{}
	}

	m := &contracts.AlignedReturnMatrix{
		Assets:   make([]string, 0, len(alive)),
		Series:   make(map[string]contracts.ReturnSeries, len(alive)),
		Excluded: excluded,
	}
	if len(common) > 1 {
		m.Times = append([]time.Time(nil), common[1:]...)
	}

	for _, c := range alive {
		prices := make([]float64, 0, len(common))
		for _, p := range c.series.Points {
			if _, ok := keep[p.Time.UnixNano()]; ok {
				prices = append(prices, p.Price)
			}
		}
		m.Assets = append(m.Assets, c.series.Asset)
		m.Series[c.series.Asset] = contracts.ReturnSeries{
			Asset:      c.series.Asset,
			Convention: convention,
			Times:      m.Times,
			Values:     FromPrices(prices, convention),
		}
	}
	return m
}
