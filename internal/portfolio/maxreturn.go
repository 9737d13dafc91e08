package portfolio

import (
	"sort"
)

// maxReturn solves the linear program max μ·w exactly.
// 하한을 먼저 채우고 남은 예산을 기대수익률 내림차순으로 배분
// 허용오차 내 동률 자산들은 동일 비중에 가장 가까운 배분으로 공유
func (o *Optimizer) maxReturn(p *problem) ([]float64, int, error) {
	n := len(p.assets)
	w := append([]float64(nil), p.lo...)
	remaining := 1.0
	for _, v := range p.lo {
		remaining -= v
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return p.mu[order[a]] > p.mu[order[b]]
	})

	for start := 0; start < n && remaining > 0; {
		end := start + 1
		for end < n && p.mu[order[start]]-p.mu[order[end]] <= o.config.TieTolerance {
			end++
		}
		group := order[start:end]

		capacity := 0.0
		for _, i := range group {
			capacity += p.hi[i] - p.lo[i]
		}
		if capacity <= remaining {
			for _, i := range group {
				w[i] = p.hi[i]
			}
			remaining -= capacity
			start = end
			continue
		}

		// 동률 그룹: 그룹 합을 유지하며 1/n 에 가장 가까운 점으로 투영
		y := make([]float64, len(group))
		glo := make([]float64, len(group))
		ghi := make([]float64, len(group))
		total := remaining
		for k, i := range group {
			y[k] = 1 / float64(n)
			glo[k], ghi[k] = p.lo[i], p.hi[i]
			total += p.lo[i]
		}
		out := make([]float64, len(group))
		project(y, glo, ghi, total, out)
		for k, i := range group {
			w[i] = out[k]
		}
		remaining = 0
	}
	return w, 1, nil
}
