package contracts

// RankedAsset 스크리닝 결과의 한 줄
type RankedAsset struct {
	Asset   string         `json:"asset"`
	Rank    int            `json:"rank"` // 1-based
	Metrics *MetricsResult `json:"metrics"`
}

// ScreenResult 스크리닝 결과
// ⭐ 실패한 자산은 Excluded에 사유와 함께 기록 (배치는 계속 진행)
type ScreenResult struct {
	SortBy   string        `json:"sort_by"`
	Order    string        `json:"order"`
	Ranked   []RankedAsset `json:"ranked"`
	Excluded []Exclusion   `json:"excluded"`
}

// Top returns the first n ranked assets
func (r *ScreenResult) Top(n int) []RankedAsset {
	if n <= 0 || n >= len(r.Ranked) {
		return r.Ranked
	}
	return r.Ranked[:n]
}

// Get finds a ranked asset by id
func (r *ScreenResult) Get(asset string) (*RankedAsset, bool) {
	for i := range r.Ranked {
		if r.Ranked[i].Asset == asset {
			return &r.Ranked[i], true
		}
	}
	return nil, false
}
